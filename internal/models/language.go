package models

import "strings"

type Language string

const (
	LanguageEnglish Language = "en"
	LanguageFrench  Language = "fr"
	LanguageChinese Language = "zh"
)

var languageAliases = map[string]Language{
	"english": LanguageEnglish,
	"en":      LanguageEnglish,
	"french":  LanguageFrench,
	"fr":      LanguageFrench,
	"chinese": LanguageChinese,
	"zh":      LanguageChinese,
}

// NormalizeLanguage resolves aliases like "english" and defaults unknown input to en.
func NormalizeLanguage(raw string) Language {
	if lang, ok := ParseLanguage(raw); ok {
		return lang
	}
	return LanguageEnglish
}

// ParseLanguage is NormalizeLanguage without the default.
func ParseLanguage(raw string) (Language, bool) {
	lang, ok := languageAliases[strings.ToLower(strings.TrimSpace(raw))]
	return lang, ok
}
