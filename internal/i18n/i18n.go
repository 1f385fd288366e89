// Package i18n loads the translations-<lang>.json catalogs and resolves
// dotted keys such as "messages.gameStarted".
package i18n

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Catalog is one language's nested translation table.
type Catalog struct {
	Lang string
	tree map[string]any
}

// Path returns where the catalog for lang lives under dir.
func Path(dir, lang string) string {
	return filepath.Join(dir, fmt.Sprintf("translations-%s.json", lang))
}

// Parse decodes a catalog.
func Parse(data []byte, lang string) (*Catalog, error) {
	var tree map[string]any
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("parse translations %s: %w", lang, err)
	}
	return &Catalog{Lang: lang, tree: tree}, nil
}

// Load reads the catalog for lang from dir.
func Load(dir, lang string) (*Catalog, error) {
	data, err := os.ReadFile(Path(dir, lang))
	if err != nil {
		return nil, err
	}
	return Parse(data, lang)
}

// Lookup walks the dotted key and reports whether it ends on a non-empty string.
func (c *Catalog) Lookup(key string) (string, bool) {
	if c == nil {
		return "", false
	}
	var node any = c.tree
	for _, part := range strings.Split(key, ".") {
		m, ok := node.(map[string]any)
		if !ok {
			return "", false
		}
		if node, ok = m[part]; !ok {
			return "", false
		}
	}
	s, ok := node.(string)
	return s, ok && s != ""
}

// T translates key, falling back to the key itself.
func (c *Catalog) T(key string) string {
	if s, ok := c.Lookup(key); ok {
		return s
	}
	return key
}

// Plural picks the "questionsSection.question" or "questionsSection.questions"
// style word for n: plural strictly above one.
func (c *Catalog) Plural(n int, singularKey, pluralKey string) string {
	if n > 1 {
		return c.T(pluralKey)
	}
	return c.T(singularKey)
}

// Bundle holds the catalogs of every configured language.
type Bundle struct {
	fallback string
	catalogs map[string]*Catalog
}

// NewBundle returns an empty bundle resolving unknown languages to fallback.
func NewBundle(fallback string) *Bundle {
	return &Bundle{fallback: fallback, catalogs: make(map[string]*Catalog)}
}

// LoadBundle loads every language from dir. Missing files are skipped so the
// service can run with untranslated keys.
func LoadBundle(dir string, langs []string, fallback string) (*Bundle, error) {
	b := NewBundle(fallback)
	for _, lang := range langs {
		c, err := Load(dir, lang)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		b.Add(c)
	}
	return b, nil
}

// Add registers or replaces a catalog.
func (b *Bundle) Add(c *Catalog) { b.catalogs[c.Lang] = c }

// Catalog returns lang's catalog, the fallback's, or nil.
func (b *Bundle) Catalog(lang string) *Catalog {
	if c, ok := b.catalogs[lang]; ok {
		return c
	}
	return b.catalogs[b.fallback]
}

// Languages lists the loaded languages.
func (b *Bundle) Languages() []string {
	out := make([]string, 0, len(b.catalogs))
	for lang := range b.catalogs {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}
