package game

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/uberfrank/bierephilo/internal/questionbank"
)

// Question is the engine's view of a repository question.
type Question = questionbank.Question

// Mode selects how the candidate pool is built.
type Mode string

const (
	ModeUnset   Mode = ""
	ModeRandom  Mode = "random"
	ModeByTopic Mode = "by-topic"
	ModeCustom  Mode = "custom"
	// ModeByTags is the older tag mode: any of the selected tags matches.
	ModeByTags Mode = "by-tags"
)

// ParseMode validates a mode name coming from a client.
func ParseMode(s string) (Mode, bool) {
	switch m := Mode(strings.TrimSpace(s)); m {
	case ModeRandom, ModeByTopic, ModeCustom, ModeByTags:
		return m, true
	}
	return ModeUnset, false
}

// usesTags reports whether the mode builds its pool from selectedTags.
func (m Mode) usesTags() bool {
	return m == ModeCustom || m == ModeByTags
}

const (
	DefaultDrawCount = 3
	MinDrawCount     = 1
	MaxDrawCount     = 5
)

// QuestionCount is the mug size ceiling: either all questions or a positive limit.
// The zero value means all.
type QuestionCount struct {
	n int
}

// AllQuestions is the "no ceiling" count.
func AllQuestions() QuestionCount { return QuestionCount{} }

// Limit returns a ceiling of n questions. Non-positive n means all.
func Limit(n int) QuestionCount {
	if n < 1 {
		return QuestionCount{}
	}
	return QuestionCount{n: n}
}

// IsAll reports whether the count is unbounded.
func (c QuestionCount) IsAll() bool { return c.n == 0 }

// N returns the limit, or 0 for all.
func (c QuestionCount) N() int { return c.n }

func (c QuestionCount) String() string {
	if c.IsAll() {
		return "all"
	}
	return strconv.Itoa(c.n)
}

// ParseQuestionCount accepts "all" or a positive integer.
func ParseQuestionCount(s string) (QuestionCount, error) {
	s = strings.TrimSpace(s)
	if s == "all" {
		return AllQuestions(), nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return QuestionCount{}, fmt.Errorf("invalid question count %q", s)
	}
	return Limit(n), nil
}

func (c QuestionCount) MarshalJSON() ([]byte, error) {
	if c.IsAll() {
		return []byte(`"all"`), nil
	}
	return []byte(strconv.Itoa(c.n)), nil
}

func (c *QuestionCount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := ParseQuestionCount(s)
		if err != nil {
			return err
		}
		*c = parsed
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("question count must be \"all\" or an integer: %w", err)
	}
	if n < 1 {
		return fmt.Errorf("invalid question count %d", n)
	}
	*c = Limit(n)
	return nil
}

// State is one session's configuration and live mug. It is not safe for
// concurrent use; callers own one State per session.
type State struct {
	mode              Mode
	questionCount     QuestionCount
	selectedTags      []string
	customTagCounts   map[string]int
	topicCategory     questionbank.TopicType
	selectedTopic     string
	mug               []Question
	currentRound      int
	totalRounds       int
	roundQuestions    []Question
	selectedDrawCount int
}

// NewState returns a freshly reset state.
func NewState() *State {
	s := &State{}
	s.Reset()
	return s
}

// Reset puts every field back to its initial value.
func (s *State) Reset() {
	*s = State{
		customTagCounts:   make(map[string]int),
		selectedTags:      []string{},
		mug:               []Question{},
		roundQuestions:    []Question{},
		selectedDrawCount: DefaultDrawCount,
	}
}

func (s *State) Mode() Mode { return s.mode }
func (s *State) QuestionCount() QuestionCount { return s.questionCount }
func (s *State) TopicCategory() questionbank.TopicType { return s.topicCategory }
func (s *State) SelectedDrawCount() int { return s.selectedDrawCount }
func (s *State) CurrentRound() int { return s.currentRound }
func (s *State) TotalRounds() int { return s.totalRounds }
func (s *State) MugSize() int { return len(s.mug) }

// SelectedTopic returns the chosen topic and whether one is set.
func (s *State) SelectedTopic() (string, bool) {
	return s.selectedTopic, s.selectedTopic != ""
}

// SelectedTags returns a copy of the selected tags in insertion order.
func (s *State) SelectedTags() []string {
	return append([]string{}, s.selectedTags...)
}

// CustomTagCounts returns a copy of the per-tag sample sizes.
func (s *State) CustomTagCounts() map[string]int {
	out := make(map[string]int, len(s.customTagCounts))
	for k, v := range s.customTagCounts {
		out[k] = v
	}
	return out
}

// CustomTagCount returns the sample size for tag, if set.
func (s *State) CustomTagCount(tag string) (int, bool) {
	n, ok := s.customTagCounts[tag]
	return n, ok
}

// Mug returns a copy of the remaining mug in draw order.
func (s *State) Mug() []Question {
	return append([]Question{}, s.mug...)
}

// RoundQuestions returns a copy of the latest drawn batch.
func (s *State) RoundQuestions() []Question {
	return append([]Question{}, s.roundQuestions...)
}

func (s *State) SetMode(m Mode) { s.mode = m }
func (s *State) SetQuestionCount(c QuestionCount) { s.questionCount = c }
func (s *State) SetSelectedDrawCount(n int) { s.selectedDrawCount = n }
func (s *State) SetTopicCategory(t questionbank.TopicType) { s.topicCategory = t }

// SetSelectedTopic sets the topic; an empty string clears it.
func (s *State) SetSelectedTopic(topic string) { s.selectedTopic = topic }

// AddSelectedTag inserts tag unless it is already selected.
func (s *State) AddSelectedTag(tag string) {
	if s.HasSelectedTag(tag) {
		return
	}
	s.selectedTags = append(s.selectedTags, tag)
}

// RemoveSelectedTag drops tag from the selection. Its custom count, if any,
// is left in place; callers remove it with RemoveCustomTagCount.
func (s *State) RemoveSelectedTag(tag string) {
	out := s.selectedTags[:0]
	for _, t := range s.selectedTags {
		if t != tag {
			out = append(out, t)
		}
	}
	s.selectedTags = out
}

// HasSelectedTag reports whether tag is selected.
func (s *State) HasSelectedTag(tag string) bool {
	for _, t := range s.selectedTags {
		if t == tag {
			return true
		}
	}
	return false
}

func (s *State) SetCustomTagCount(tag string, n int) {
	if s.customTagCounts == nil {
		s.customTagCounts = make(map[string]int)
	}
	s.customTagCounts[tag] = n
}

func (s *State) RemoveCustomTagCount(tag string) {
	delete(s.customTagCounts, tag)
}

// CanStartGame is the gate the flow controller checks before building a pool.
func (s *State) CanStartGame() bool {
	switch {
	case s.mode == ModeRandom:
		return true
	case s.mode == ModeByTopic:
		_, ok := s.SelectedTopic()
		return ok
	case s.mode.usesTags():
		return len(s.selectedTags) > 0
	}
	return false
}

type stateJSON struct {
	Mode              Mode                   `json:"mode"`
	QuestionCount     QuestionCount          `json:"questionCount"`
	SelectedTags      []string               `json:"selectedTags"`
	CustomTagCounts   map[string]int         `json:"customTagCounts"`
	TopicCategory     questionbank.TopicType `json:"topicCategory,omitempty"`
	SelectedTopic     string                 `json:"selectedTopic,omitempty"`
	Mug               []Question             `json:"mug"`
	CurrentRound      int                    `json:"currentRound"`
	TotalRounds       int                    `json:"totalRounds"`
	RoundQuestions    []Question             `json:"roundQuestions"`
	SelectedDrawCount int                    `json:"selectedDrawCount"`
}

// MarshalJSON encodes the full state so a session can live out of process.
func (s *State) MarshalJSON() ([]byte, error) {
	return json.Marshal(stateJSON{
		Mode:              s.mode,
		QuestionCount:     s.questionCount,
		SelectedTags:      s.selectedTags,
		CustomTagCounts:   s.customTagCounts,
		TopicCategory:     s.topicCategory,
		SelectedTopic:     s.selectedTopic,
		Mug:               s.mug,
		CurrentRound:      s.currentRound,
		TotalRounds:       s.totalRounds,
		RoundQuestions:    s.roundQuestions,
		SelectedDrawCount: s.selectedDrawCount,
	})
}

func (s *State) UnmarshalJSON(data []byte) error {
	var v stateJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	s.Reset()
	s.mode = v.Mode
	s.questionCount = v.QuestionCount
	for _, tag := range v.SelectedTags {
		s.AddSelectedTag(tag)
	}
	for tag, n := range v.CustomTagCounts {
		s.customTagCounts[tag] = n
	}
	s.topicCategory = v.TopicCategory
	s.selectedTopic = v.SelectedTopic
	if v.Mug != nil {
		s.mug = v.Mug
	}
	s.currentRound = v.CurrentRound
	s.totalRounds = v.TotalRounds
	if v.RoundQuestions != nil {
		s.roundQuestions = v.RoundQuestions
	}
	if v.SelectedDrawCount != 0 {
		s.selectedDrawCount = v.SelectedDrawCount
	}
	return nil
}
