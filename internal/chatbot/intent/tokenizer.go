package intent

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// Normalize applies NFKC, case folding and whitespace trimming.
func Normalize(text string) string {
	return strings.TrimSpace(folder.String(norm.NFKC.String(text)))
}

// Tokenize splits normalized text into word tokens. Han characters become
// one token each since Chinese is written without spaces.
func Tokenize(text string) []string {
	normalized := Normalize(text)
	tokens := make([]string, 0, len(normalized)/4+1)

	var word strings.Builder
	flush := func() {
		if word.Len() > 0 {
			tokens = append(tokens, word.String())
			word.Reset()
		}
	}

	for _, r := range normalized {
		switch {
		case unicode.Is(unicode.Han, r):
			flush()
			tokens = append(tokens, string(r))
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'':
			word.WriteRune(r)
		default:
			flush()
		}
	}
	flush()

	return tokens
}

// Features returns unigrams followed by adjacent bigrams.
func Features(text string) []string {
	tokens := Tokenize(text)
	if len(tokens) < 2 {
		return tokens
	}
	out := make([]string, 0, len(tokens)*2-1)
	out = append(out, tokens...)
	for i := 0; i+1 < len(tokens); i++ {
		out = append(out, tokens[i]+" "+tokens[i+1])
	}
	return out
}
