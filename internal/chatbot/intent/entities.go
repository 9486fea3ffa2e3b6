package intent

import (
	"regexp"
	"sort"
	"strings"

	"botforge/internal/models"
)

var (
	paxPattern  = regexp.MustCompile(`(?i)\b(?:for\s+)?(\d{1,3})\s*(?:people|persons|person|pax|guests|guest|adults|ppl)\b|\b(?:party|table)\s+of\s+(\d{1,3})\b`)
	timePattern = regexp.MustCompile(`(?i)\b(\d{1,2}(?::\d{2})?\s*(?:am|pm))\b|\b(\d{1,2}:\d{2})\b|\b(noon|midnight)\b`)
	datePattern = regexp.MustCompile(`(?i)\b(today|tonight|tomorrow|monday|tuesday|wednesday|thursday|friday|saturday|sunday|\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}(?:/\d{2,4})?)\b`)
)

// EntityExtractor pulls booking details (pax, time, date) out of free text.
type EntityExtractor struct {
	rules []entityRule
}

type entityRule struct {
	key     string
	pattern *regexp.Regexp
}

func NewEntityExtractor() *EntityExtractor {
	return &EntityExtractor{rules: []entityRule{
		{key: "pax", pattern: paxPattern},
		{key: "time", pattern: timePattern},
		{key: "date", pattern: datePattern},
	}}
}

type positioned struct {
	pos    int
	entity models.Entity
}

// Extract returns entities ordered by where they appear in text.
func (e *EntityExtractor) Extract(text string) []models.Entity {
	var found []positioned
	for _, rule := range e.rules {
		for _, m := range rule.pattern.FindAllStringSubmatchIndex(text, -1) {
			for g := 1; g*2 < len(m); g++ {
				start, end := m[g*2], m[g*2+1]
				if start < 0 {
					continue
				}
				found = append(found, positioned{
					pos:    start,
					entity: models.Entity{Key: rule.key, Value: strings.ToLower(strings.TrimSpace(text[start:end]))},
				})
				break
			}
		}
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].pos < found[j].pos })

	out := make([]models.Entity, 0, len(found))
	for _, f := range found {
		out = append(out, f.entity)
	}
	return out
}
