package models

// IntentFallback is the reserved label for messages no strategy could place.
const IntentFallback = "fallback"

// IntentAny marks quick-reply rows that apply to every intent.
const IntentAny = "any"

// IntentGreeting drives the welcome turn.
const IntentGreeting = "greeting"

// Entity is a key/value pair extracted from a message. Order is significant.
type Entity struct {
	Key   string `json:"entity" yaml:"entity"`
	Value string `json:"value" yaml:"value"`
}

type IntentResult struct {
	Intent     string   `json:"intent"`
	Confidence float64  `json:"confidence"`
	Entities   []Entity `json:"entities"`
}

// FallbackResult is the zero-confidence answer used for empty input and absorbed failures.
func FallbackResult() IntentResult {
	return IntentResult{Intent: IntentFallback, Confidence: 0.0, Entities: []Entity{}}
}

// IsFallback reports whether r carries the reserved fallback label.
func (r IntentResult) IsFallback() bool {
	return r.Intent == IntentFallback
}
