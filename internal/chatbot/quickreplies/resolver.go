// Package quickreplies picks the suggestion chips shown under a reply.
package quickreplies

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"

	"botforge/internal/common/logger"
	"botforge/internal/common/metrics"
	"botforge/internal/models"
)

var ErrDefaultsExcluded = errors.New("QUICK_REPLY_DEFAULTS_EXCLUDED")

// DefaultReplies is the terminal tier, keyed by language. English must always be present.
var DefaultReplies = map[models.Language][]string{
	models.LanguageEnglish: {"Business hours", "Location", "Pricing", "Contact support"},
	models.LanguageFrench:  {"Heures d'ouverture", "Localisation", "Tarifs", "Contacter le support"},
	models.LanguageChinese: {"营业时间", "地址", "价格", "联系客服"},
}

// Source is one quick-reply store. A nil orgID selects global rows.
type Source interface {
	QuickReplies(ctx context.Context, orgID *int64, industry, language, intent string) ([]string, error)
}

type Resolver struct {
	sources    []Source
	exclusions map[models.Language]map[string]struct{}
	defaults   map[models.Language][]string
	logger     logger.Logger
}

// NewResolver builds a resolver over sources in priority order. exclusions maps a language
// (or alias) to labels that must never be offered in that language. Exclusions that would
// leave a language without any built-in default are rejected.
func NewResolver(log logger.Logger, exclusions map[string][]string, sources ...Source) (*Resolver, error) {
	r := &Resolver{
		sources:    sources,
		exclusions: make(map[models.Language]map[string]struct{}),
		defaults:   DefaultReplies,
		logger:     log.WithFields(map[string]interface{}{"component": "quick-reply-resolver"}),
	}
	for raw, labels := range exclusions {
		lang := models.NormalizeLanguage(raw)
		set, ok := r.exclusions[lang]
		if !ok {
			set = make(map[string]struct{}, len(labels))
			r.exclusions[lang] = set
		}
		for _, l := range labels {
			set[l] = struct{}{}
		}
	}
	for lang := range r.exclusions {
		if len(r.filter(lang, r.defaultsFor(lang))) == 0 {
			return nil, fmt.Errorf("%w: language=%s", ErrDefaultsExcluded, lang)
		}
	}
	return r, nil
}

type tier struct {
	name     string
	global   bool
	industry string
	intent   string
}

// Resolve returns a non-empty, ordered list of labels with excluded labels removed.
func (r *Resolver) Resolve(ctx context.Context, orgID *int64, industry, intent, language string) []string {
	labels, tierName := r.resolve(ctx, orgID, industry, intent, language)
	metrics.QuickReplyResolutionTier.WithLabelValues(tierName).Inc()
	return labels
}

func (r *Resolver) resolve(ctx context.Context, orgID *int64, industry, intent, language string) ([]string, string) {
	lang := models.NormalizeLanguage(language)
	ind := string(models.NormalizeIndustry(industry))
	def := string(models.IndustryDefault)
	if intent == "" {
		intent = models.IntentAny
	}

	tiers := []tier{
		{name: "organisation_intent", industry: ind, intent: intent},
		{name: "organisation_any", industry: ind, intent: models.IntentAny},
		{name: "industry_intent", global: true, industry: ind, intent: intent},
		{name: "industry_any", global: true, industry: ind, intent: models.IntentAny},
		{name: "default_intent", global: true, industry: def, intent: intent},
		{name: "default_any", global: true, industry: def, intent: models.IntentAny},
	}

	for _, t := range tiers {
		var owner *int64
		if !t.global {
			if orgID == nil {
				continue
			}
			owner = orgID
		}
		for _, src := range r.sources {
			labels, err := src.QuickReplies(ctx, owner, t.industry, string(lang), t.intent)
			if err != nil {
				r.logger.Warn("quick reply source failed, treating as miss", map[string]interface{}{
					"tier":  t.name,
					"error": err,
				})
				continue
			}
			if filtered := r.filter(lang, labels); len(filtered) > 0 {
				return filtered, t.name
			}
		}
	}

	return r.filter(lang, r.defaultsFor(lang)), "builtin_default"
}

func (r *Resolver) defaultsFor(lang models.Language) []string {
	if labels, ok := r.defaults[lang]; ok && len(labels) > 0 {
		return labels
	}
	return r.defaults[models.LanguageEnglish]
}

// filter keeps order and always returns a fresh slice.
func (r *Resolver) filter(lang models.Language, labels []string) []string {
	excluded := r.exclusions[lang]
	return lo.Filter(labels, func(label string, _ int) bool {
		_, drop := excluded[label]
		return !drop
	})
}
