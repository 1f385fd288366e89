package questionbank

import (
	"sort"
	"strings"
)

// CategoryPrefix is the tag namespace used for question categories.
const CategoryPrefix = "categorie"

// TopicType is one of the fixed tag namespaces a player can pick a topic from.
type TopicType string

const (
	TopicBranch     TopicType = "branch"
	TopicMovement   TopicType = "movement"
	TopicTheme      TopicType = "theme"
	TopicDifficulty TopicType = "difficulty"
)

// TopicTypes lists the topic types in display order.
var TopicTypes = []TopicType{TopicBranch, TopicMovement, TopicTheme, TopicDifficulty}

var topicPrefixes = map[TopicType]string{
	TopicBranch:     "branche",
	TopicMovement:   "mouvement",
	TopicTheme:      "theme",
	TopicDifficulty: "difficulte",
}

var topicLabelKeys = map[TopicType]string{
	TopicBranch:     "branches",
	TopicMovement:   "movements",
	TopicTheme:      "themes",
	TopicDifficulty: "difficulties",
}

// Valid reports whether t is one of the four known topic types.
func (t TopicType) Valid() bool {
	_, ok := topicPrefixes[t]
	return ok
}

// Prefix returns the tag prefix for t. Unknown types fall back to their own name.
func (t TopicType) Prefix() string {
	if p, ok := topicPrefixes[t]; ok {
		return p
	}
	return string(t)
}

// Tag builds the exact tag string for a topic value under t.
func (t TopicType) Tag(topic string) string {
	return MakeTag(t.Prefix(), topic)
}

// LabelKey returns the translation key for a topic value, e.g. "movements.stoicism".
func (t TopicType) LabelKey(topic string) string {
	ns, ok := topicLabelKeys[t]
	if !ok {
		ns = string(t)
	}
	return ns + "." + topic
}

// MakeTag joins a prefix and a value into a "prefix:value" tag.
func MakeTag(prefix, value string) string {
	return prefix + ":" + value
}

// SplitTag splits "prefix:value". Tags without a colon have an empty value.
func SplitTag(tag string) (prefix, value string) {
	prefix, value, _ = strings.Cut(tag, ":")
	return prefix, value
}

// TagValue returns the value of the first tag on q under prefix.
func (q Question) TagValue(prefix string) (string, bool) {
	for _, tag := range q.Tags {
		p, v := SplitTag(tag)
		if p == prefix {
			return v, true
		}
	}
	return "", false
}

// HasTag reports whether q carries exactly tag.
func (q Question) HasTag(tag string) bool {
	for _, t := range q.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// HumanizeTopic is the display fallback for a topic without a translation.
func HumanizeTopic(topic string) string {
	return strings.ReplaceAll(topic, "_", " ")
}

// Topics returns the sorted distinct values observed under the prefix of t.
func (b *Bank) Topics(t TopicType) []string {
	if b == nil {
		return nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	prefix := t.Prefix()
	seen := make(map[string]struct{})
	for _, q := range b.questions {
		for _, tag := range q.Tags {
			p, v := SplitTag(tag)
			if p == prefix && v != "" {
				seen[v] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// TopicCount pairs a topic value with the number of questions carrying it.
type TopicCount struct {
	Topic string `json:"topic"`
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// TopicCounts returns every topic of t with its question count.
func (b *Bank) TopicCounts(t TopicType) []TopicCount {
	topics := b.Topics(t)
	out := make([]TopicCount, 0, len(topics))
	for _, topic := range topics {
		tag := t.Tag(topic)
		out = append(out, TopicCount{Topic: topic, Tag: tag, Count: b.CountTagged(tag)})
	}
	return out
}
