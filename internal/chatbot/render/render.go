// Package render fills {{variable}} placeholders in response templates.
package render

import (
	"regexp"

	"botforge/internal/models"
)

// NoAnswer is returned for an empty template.
const NoAnswer = "Sorry, I don't have an answer for that yet."

var placeholder = regexp.MustCompile(`\{\{\s*(.*?)\s*\}\}`)

// Render substitutes each placeholder with the profile value, else the first entity with
// that key, else "<key>" so missing data stays visible. An empty profile disables substitution.
func Render(template string, profile models.Profile, entities []models.Entity) string {
	if template == "" {
		return NoAnswer
	}
	if len(profile) == 0 {
		return template
	}

	return placeholder.ReplaceAllStringFunc(template, func(match string) string {
		key := placeholder.FindStringSubmatch(match)[1]
		if v, ok := profile.Lookup(key); ok {
			return v
		}
		for _, e := range entities {
			if e.Key == key {
				return e.Value
			}
		}
		return "<" + key + ">"
	})
}
