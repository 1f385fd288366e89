package game

import (
	"math/rand/v2"

	"github.com/uberfrank/bierephilo/internal/questionbank"
)

// Source is the question repository as the engine sees it. A nil *Bank is a
// valid Source that yields no questions.
type Source interface {
	Questions() []questionbank.Question
}

// CustomPolicy chooses how custom mode samples its tags.
type CustomPolicy string

const (
	// PolicyPerTag shuffles each tag's matches and keeps customTagCounts[tag] of them.
	PolicyPerTag CustomPolicy = "per-tag"
	// PolicyAnyTag keeps every question that carries any selected tag.
	PolicyAnyTag CustomPolicy = "any-tag"
)

// ParseCustomPolicy validates a policy name; empty selects PolicyPerTag.
func ParseCustomPolicy(s string) (CustomPolicy, bool) {
	switch p := CustomPolicy(s); p {
	case "":
		return PolicyPerTag, true
	case PolicyPerTag, PolicyAnyTag:
		return p, true
	}
	return "", false
}

// BuildPool returns the deduplicated candidates for the state's mode.
// rng is only consumed by custom mode under PolicyPerTag.
func BuildPool(src Source, st *State, policy CustomPolicy, rng *rand.Rand) []Question {
	if src == nil || st == nil {
		return []Question{}
	}
	all := src.Questions()
	if len(all) == 0 {
		return []Question{}
	}

	var raw []Question
	switch st.mode {
	case ModeRandom:
		raw = all
	case ModeByTopic:
		topic, ok := st.SelectedTopic()
		if !ok {
			return []Question{}
		}
		raw = withTag(all, st.topicCategory.Tag(topic))
	case ModeByTags:
		raw = withAnyTag(all, st.selectedTags)
	case ModeCustom:
		if policy == PolicyAnyTag {
			raw = withAnyTag(all, st.selectedTags)
		} else {
			raw = perTagSample(all, st.selectedTags, st.customTagCounts, rng)
		}
	}
	return dedupe(raw)
}

func withTag(qs []Question, tag string) []Question {
	var out []Question
	for _, q := range qs {
		if q.HasTag(tag) {
			out = append(out, q)
		}
	}
	return out
}

func withAnyTag(qs []Question, tags []string) []Question {
	if len(tags) == 0 {
		return nil
	}
	var out []Question
	for _, q := range qs {
		for _, tag := range tags {
			if q.HasTag(tag) {
				out = append(out, q)
				break
			}
		}
	}
	return out
}

// perTagSample takes up to counts[tag] random matches for each tag. The result
// may hold a question more than once when it matches several tags.
func perTagSample(qs []Question, tags []string, counts map[string]int, rng *rand.Rand) []Question {
	var out []Question
	for _, tag := range tags {
		n := counts[tag]
		if n <= 0 {
			continue
		}
		matches := Shuffle(withTag(qs, tag), rng)
		out = append(out, matches[:min(n, len(matches))]...)
	}
	return out
}

// dedupe keeps the first occurrence of every question id.
func dedupe(qs []Question) []Question {
	seen := make(map[int]struct{}, len(qs))
	out := make([]Question, 0, len(qs))
	for _, q := range qs {
		if _, ok := seen[q.ID]; ok {
			continue
		}
		seen[q.ID] = struct{}{}
		out = append(out, q)
	}
	return out
}
