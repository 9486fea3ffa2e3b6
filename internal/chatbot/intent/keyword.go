package intent

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"botforge/internal/models"

	goahocorasick "github.com/anknown/ahocorasick"
)

// KeywordSet is one intent and the phrases that trigger it. Sets are checked in order.
type KeywordSet struct {
	Intent   string   `json:"intent" yaml:"intent"`
	Keywords []string `json:"keywords" yaml:"keywords"`
}

// DefaultKeywordSets are the built-in rules in priority order.
var DefaultKeywordSets = []KeywordSet{
	{Intent: "greeting", Keywords: []string{"hi", "hello", "hey", "good morning", "good evening"}},
	{Intent: "business_hours", Keywords: []string{"open", "opening", "close", "closing", "hours", "time"}},
	{Intent: "pricing", Keywords: []string{"price", "pricing", "cost", "fee", "plan", "subscription"}},
	{Intent: "booking", Keywords: []string{"book", "booking", "reserve", "reservation", "appointment"}},
	{Intent: "location", Keywords: []string{"where", "location", "address", "how to get there"}},
	{Intent: "contact_support", Keywords: []string{"contact", "email", "phone", "call", "support", "helpdesk"}},
}

// KeywordStrategy matches substrings of the lowercased message against ordered keyword sets.
// The earliest set with any hit wins, regardless of where in the message the hit occurs.
type KeywordStrategy struct {
	sets      []KeywordSet
	matcher   *goahocorasick.Machine
	setIndex  map[string]int
	extractor *EntityExtractor
}

func NewKeywordStrategy(sets []KeywordSet, extractor *EntityExtractor) (*KeywordStrategy, error) {
	if len(sets) == 0 {
		sets = DefaultKeywordSets
	}

	setIndex := make(map[string]int)
	for i, set := range sets {
		for _, kw := range set.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				continue
			}
			if _, seen := setIndex[kw]; !seen {
				setIndex[kw] = i
			}
		}
	}
	if len(setIndex) == 0 {
		return nil, fmt.Errorf("%w: keyword sets contain no keywords", ErrModelInvalid)
	}

	patterns := make([][]rune, 0, len(setIndex))
	for kw := range setIndex {
		patterns = append(patterns, []rune(kw))
	}
	sort.Slice(patterns, func(i, j int) bool { return string(patterns[i]) < string(patterns[j]) })

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, fmt.Errorf("%w: build keyword matcher: %v", ErrModelInvalid, err)
	}

	return &KeywordStrategy{sets: sets, matcher: m, setIndex: setIndex, extractor: extractor}, nil
}

func (s *KeywordStrategy) Name() string {
	return "keyword"
}

func (s *KeywordStrategy) Classify(_ context.Context, text string) (models.IntentResult, error) {
	lowered := strings.ToLower(strings.TrimSpace(text))
	if lowered == "" {
		return models.FallbackResult(), nil
	}

	best := -1
	for _, hit := range s.matcher.MultiPatternSearch([]rune(lowered), false) {
		idx, ok := s.setIndex[string(hit.Word)]
		if ok && (best == -1 || idx < best) {
			best = idx
		}
	}

	if best == -1 {
		return models.FallbackResult(), nil
	}

	entities := []models.Entity{}
	if s.extractor != nil {
		entities = s.extractor.Extract(text)
	}

	return models.IntentResult{
		Intent:     s.sets[best].Intent,
		Confidence: 1.0,
		Entities:   entities,
	}, nil
}
