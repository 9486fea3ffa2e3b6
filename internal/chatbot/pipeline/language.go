package pipeline

import (
	"github.com/abadojack/whatlanggo"

	"botforge/internal/models"
)

var detectable = whatlanggo.Options{
	Whitelist: map[whatlanggo.Lang]bool{
		whatlanggo.Eng: true,
		whatlanggo.Fra: true,
		whatlanggo.Cmn: true,
	},
}

// resolveLanguage prefers the request, then the organisation's primary language, then
// detection on the message text, then English.
func (s *Service) resolveLanguage(requested string, prof models.Profile, text string) models.Language {
	if lang, ok := models.ParseLanguage(requested); ok {
		return lang
	}
	if lang, ok := models.ParseLanguage(prof.String("primary_language")); ok {
		return lang
	}
	if s.detectLanguage && text != "" {
		if lang, ok := detectLanguage(text); ok {
			return lang
		}
	}
	return models.LanguageEnglish
}

// detectLanguage trusts Han script outright and Latin guesses only when reliable.
func detectLanguage(text string) (models.Language, bool) {
	info := whatlanggo.DetectWithOptions(text, detectable)
	if info.Lang != whatlanggo.Cmn && !info.IsReliable() {
		return "", false
	}
	return models.ParseLanguage(info.Lang.Iso6391())
}
