package questionbank

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrNotLoaded is returned when a bank is used before any data was loaded.
var ErrNotLoaded = errors.New("question bank not loaded")

// ErrUnknownLanguage is returned for a language with no loaded bank.
var ErrUnknownLanguage = errors.New("unknown language")

// Question is one trivia question with its colon-delimited tags.
type Question struct {
	ID   int      `json:"id"`
	Text string   `json:"text"`
	Tags []string `json:"tags"`
}

// Category is a display category backing the "categorie:" tag namespace.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RawQuestion is a question as exported by the static site.
type RawQuestion struct {
	ID       int      `json:"id"`
	Question string   `json:"question"`
	Tags     []string `json:"tags"`
}

// RawCategory is a category as exported by the static site.
type RawCategory struct {
	ID  string `json:"id"`
	Nom string `json:"nom"`
}

// RawBank is the static site's questions-<lang>.json layout.
type RawBank struct {
	Categories []RawCategory `json:"categories"`
	Questions  []RawQuestion `json:"questions"`
}

// bankFile is the on-disk bank format written by Save.
type bankFile struct {
	Version    string     `json:"version"`
	Generated  string     `json:"generated"` // ISO timestamp
	Language   string     `json:"language,omitempty"`
	Categories []Category `json:"categories"`
	Questions  []Question `json:"questions"`
}

// Bank is an immutable-after-load set of categories and questions for one language.
type Bank struct {
	Version    string
	Generated  string
	Language   string
	categories []Category
	questions  []Question
	mu         sync.RWMutex
}

// NewBank builds a bank from already decoded data. Questions with a duplicate
// id are dropped, keeping the first one.
func NewBank(lang string, categories []Category, questions []Question) *Bank {
	b := &Bank{
		Version:   "1.0",
		Generated: time.Now().UTC().Format(time.RFC3339),
		Language:  lang,
	}
	b.set(categories, questions)
	return b
}

func (b *Bank) set(categories []Category, questions []Question) {
	seen := make(map[int]struct{}, len(questions))
	qs := make([]Question, 0, len(questions))
	for _, q := range questions {
		if _, dup := seen[q.ID]; dup {
			continue
		}
		seen[q.ID] = struct{}{}
		q.Tags = append([]string(nil), q.Tags...)
		qs = append(qs, q)
	}
	b.categories = append([]Category(nil), categories...)
	b.questions = qs
}

// LoadBank reads a bank file. Both the site export format (categories with
// "nom", questions with "question") and the bank format are accepted.
func LoadBank(path, lang string) (*Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseBank(data, lang)
}

// ParseBank decodes bank data, detecting the format from its top-level keys.
func ParseBank(data []byte, lang string) (*Bank, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode bank: %w", err)
	}

	if _, hasVersion := probe["version"]; hasVersion {
		var f bankFile
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("decode bank: %w", err)
		}
		b := NewBank(lang, f.Categories, f.Questions)
		b.Version = f.Version
		if f.Generated != "" {
			b.Generated = f.Generated
		}
		return b, nil
	}

	var raw RawBank
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode raw bank: %w", err)
	}
	return convertRawToBank(raw, lang), nil
}

func convertRawToBank(raw RawBank, lang string) *Bank {
	cats := make([]Category, 0, len(raw.Categories))
	for _, rc := range raw.Categories {
		cats = append(cats, Category{ID: strings.TrimSpace(rc.ID), Name: rc.Nom})
	}
	qs := make([]Question, 0, len(raw.Questions))
	for _, rq := range raw.Questions {
		qs = append(qs, Question{ID: rq.ID, Text: rq.Question, Tags: rq.Tags})
	}
	return NewBank(lang, cats, qs)
}

// Save persists the bank in bank format.
func (b *Bank) Save(path string) error {
	if b == nil {
		return ErrNotLoaded
	}
	b.mu.RLock()
	f := bankFile{
		Version:    b.Version,
		Generated:  b.Generated,
		Language:   b.Language,
		Categories: b.categories,
		Questions:  b.questions,
	}
	data, err := json.MarshalIndent(f, "", "  ")
	b.mu.RUnlock()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Questions returns a copy of every question in the bank.
func (b *Bank) Questions() []Question {
	if b == nil {
		return nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Question, len(b.questions))
	copy(out, b.questions)
	return out
}

// Categories returns the bank's categories in file order.
func (b *Bank) Categories() []Category {
	if b == nil {
		return nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Category, len(b.categories))
	copy(out, b.categories)
	return out
}

// Category looks a category up by id.
func (b *Bank) Category(id string) (Category, bool) {
	if b == nil {
		return Category{}, false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, c := range b.categories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}

// QuestionByID returns the question with the given id.
func (b *Bank) QuestionByID(id int) (Question, bool) {
	if b == nil {
		return Question{}, false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, q := range b.questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// Len returns the number of questions.
func (b *Bank) Len() int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.questions)
}

// IsEmpty returns true if the bank has no questions
func (b *Bank) IsEmpty() bool {
	return b.Len() == 0
}

// CountTagged returns how many questions carry exactly tag.
func (b *Bank) CountTagged(tag string) int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, q := range b.questions {
		if q.HasTag(tag) {
			n++
		}
	}
	return n
}

// CountAnyTagged returns the number of distinct questions carrying at least one of tags.
func (b *Bank) CountAnyTagged(tags []string) int {
	if b == nil || len(tags) == 0 {
		return 0
	}
	want := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		want[t] = struct{}{}
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, q := range b.questions {
		for _, t := range q.Tags {
			if _, ok := want[t]; ok {
				n++
				break
			}
		}
	}
	return n
}

// Library holds one bank per language.
type Library struct {
	banks map[string]*Bank
	mu    sync.RWMutex
}

// NewLibrary creates an empty library.
func NewLibrary() *Library {
	return &Library{banks: make(map[string]*Bank)}
}

// LoadLibrary loads questions-<lang>.json from dir for every language.
// A missing file leaves that language unloaded; a malformed one is an error.
func LoadLibrary(dir string, langs []string) (*Library, error) {
	lib := NewLibrary()
	for _, lang := range langs {
		path := BankPath(dir, lang)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		b, err := LoadBank(path, lang)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		lib.Set(lang, b)
	}
	return lib, nil
}

// BankPath returns the conventional file name for a language's bank.
func BankPath(dir, lang string) string {
	return strings.TrimRight(dir, "/") + "/questions-" + lang + ".json"
}

// Set registers or replaces the bank for lang.
func (l *Library) Set(lang string, b *Bank) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.banks[lang] = b
}

// Bank returns the bank for lang, if loaded.
func (l *Library) Bank(lang string) (*Bank, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	b, ok := l.banks[lang]
	return b, ok
}

// Lookup is Bank with an error for callers that report it.
func (l *Library) Lookup(lang string) (*Bank, error) {
	if b, ok := l.Bank(lang); ok {
		return b, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownLanguage, lang)
}

// Languages returns the loaded language codes, sorted.
func (l *Library) Languages() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.banks))
	for lang := range l.banks {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}
