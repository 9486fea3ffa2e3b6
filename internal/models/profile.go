package models

import (
	"fmt"
	"strconv"
	"strings"
)

type Industry string

const (
	IndustryRestaurant Industry = "restaurant"
	IndustryEducation  Industry = "education"
	IndustryRetail     Industry = "retail"
	IndustryDefault    Industry = "default"
)

// Industries lists the closed set in display order.
var Industries = []Industry{IndustryRestaurant, IndustryEducation, IndustryRetail, IndustryDefault}

// NormalizeIndustry maps anything outside the closed set to IndustryDefault.
func NormalizeIndustry(raw string) Industry {
	switch Industry(strings.ToLower(strings.TrimSpace(raw))) {
	case IndustryRestaurant:
		return IndustryRestaurant
	case IndustryEducation:
		return IndustryEducation
	case IndustryRetail:
		return IndustryRetail
	default:
		return IndustryDefault
	}
}

// Profile is the flat attribute map describing one organisation. Read-only per request.
type Profile map[string]interface{}

// Industry returns the normalized industry tag.
func (p Profile) Industry() Industry {
	if p == nil {
		return IndustryDefault
	}
	return NormalizeIndustry(p.String("industry"))
}

// String stringifies an attribute. Missing and nil values yield "".
func (p Profile) String(key string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return ""
	}
	return Stringify(v)
}

// Lookup returns the stringified attribute and whether it was present and non-nil.
func (p Profile) Lookup(key string) (string, bool) {
	v, ok := p[key]
	if !ok || v == nil {
		return "", false
	}
	return Stringify(v), true
}

// Stringify renders scalar attribute values the way they are shown to users.
func Stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case bool:
		if t {
			return "True"
		}
		return "False"
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
