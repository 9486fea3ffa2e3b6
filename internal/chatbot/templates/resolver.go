// Package templates picks the response template for an organisation, industry and intent.
package templates

import (
	"context"
	"errors"
	"fmt"

	"botforge/internal/common/logger"
	"botforge/internal/common/metrics"
	"botforge/internal/models"
)

var ErrNoDefaultFallback = errors.New("MISSING_DEFAULT_FALLBACK_TEMPLATE")

const (
	TierOrganisation     = "organisation"
	TierIndustry         = "industry"
	TierIndustryFallback = "industry_fallback"
	TierDefaultFallback  = "default_fallback"
)

// Source is one template store. A miss is ("", false, nil).
type Source interface {
	OrganisationTemplate(ctx context.Context, orgID int64, intent string) (string, bool, error)
	IndustryTemplate(ctx context.Context, industry, intent string) (string, bool, error)
}

// Resolver walks the tiers against each source in order. Source errors count as misses.
type Resolver struct {
	sources         []Source
	defaultFallback string
	logger          logger.Logger
}

// NewResolver requires the default industry's fallback template to exist in some source,
// and keeps it as the answer of last resort.
func NewResolver(ctx context.Context, log logger.Logger, sources ...Source) (*Resolver, error) {
	r := &Resolver{
		sources: sources,
		logger:  log.WithFields(map[string]interface{}{"component": "template-resolver"}),
	}

	body, ok := r.industry(ctx, string(models.IndustryDefault), models.IntentFallback)
	if !ok {
		return nil, fmt.Errorf("%w: industry=%s intent=%s", ErrNoDefaultFallback, models.IndustryDefault, models.IntentFallback)
	}
	r.defaultFallback = body
	return r, nil
}

// Resolve always returns a non-empty template. A nil orgID skips the organisation tier.
func (r *Resolver) Resolve(ctx context.Context, orgID *int64, industry, intent string) string {
	body, tier := r.resolve(ctx, orgID, industry, intent)
	metrics.TemplateResolutionTier.WithLabelValues(tier).Inc()
	return body
}

func (r *Resolver) resolve(ctx context.Context, orgID *int64, industry, intent string) (string, string) {
	if intent == "" {
		intent = models.IntentFallback
	}
	ind := string(models.NormalizeIndustry(industry))

	if orgID != nil {
		for _, src := range r.sources {
			body, ok, err := src.OrganisationTemplate(ctx, *orgID, intent)
			if err != nil {
				r.logMiss(err, "organisation", intent)
				continue
			}
			if ok && body != "" {
				return body, TierOrganisation
			}
		}
	}

	if body, ok := r.industry(ctx, ind, intent); ok {
		return body, TierIndustry
	}
	if body, ok := r.industry(ctx, ind, models.IntentFallback); ok {
		return body, TierIndustryFallback
	}
	if body, ok := r.industry(ctx, string(models.IndustryDefault), models.IntentFallback); ok {
		return body, TierDefaultFallback
	}
	return r.defaultFallback, TierDefaultFallback
}

func (r *Resolver) industry(ctx context.Context, industry, intent string) (string, bool) {
	for _, src := range r.sources {
		body, ok, err := src.IndustryTemplate(ctx, industry, intent)
		if err != nil {
			r.logMiss(err, industry, intent)
			continue
		}
		if ok && body != "" {
			return body, true
		}
	}
	return "", false
}

func (r *Resolver) logMiss(err error, scope, intent string) {
	r.logger.Warn("template source failed, treating as miss", map[string]interface{}{
		"scope":  scope,
		"intent": intent,
		"error":  err,
	})
}
