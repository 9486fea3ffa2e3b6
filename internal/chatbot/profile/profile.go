// Package profile resolves organisation ids to profile attribute maps.
package profile

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	apperrors "botforge/internal/common/errors"
	"botforge/internal/common/logger"
	"botforge/internal/models"
)

var ErrNotFound = errors.New("ORGANISATION_NOT_FOUND")

// Provider is the external profile store.
type Provider interface {
	GetProfile(ctx context.Context, orgID int64) (models.Profile, error)
}

// ParseOrganisationID accepts positive integers only. Anything else cannot name an organisation.
func ParseOrganisationID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// Chain asks each provider in order. A not-found answer moves on to the next provider;
// any other error stops the lookup.
type Chain []Provider

func (c Chain) GetProfile(ctx context.Context, orgID int64) (models.Profile, error) {
	for _, provider := range c {
		p, err := provider.GetProfile(ctx, orgID)
		switch {
		case err == nil && p != nil:
			return p, nil
		case err == nil, isNotFound(err):
			continue
		default:
			return nil, err
		}
	}
	return nil, apperrors.NewNotFoundError(strconv.FormatInt(orgID, 10))
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || apperrors.HasCode(err, apperrors.ErrCodeOrganisationNotFound)
}

type Resolver struct {
	provider Provider
	logger   logger.Logger
}

func NewResolver(provider Provider, log logger.Logger) *Resolver {
	return &Resolver{
		provider: provider,
		logger:   log.WithFields(map[string]interface{}{"component": "profile-resolver"}),
	}
}

// Resolve returns the profile for rawID. Unknown or malformed ids yield ErrNotFound; any other
// error comes from the provider. The returned profile always carries a normalized industry.
func (r *Resolver) Resolve(ctx context.Context, rawID string) (models.Profile, error) {
	id, ok := ParseOrganisationID(rawID)
	if !ok {
		return nil, fmt.Errorf("%w: invalid organisation id %q", ErrNotFound, rawID)
	}

	p, err := r.provider.GetProfile(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
		}
		r.logger.Error("profile lookup failed", map[string]interface{}{
			"organisationId": id,
			"error":          err,
		})
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}

	p["industry"] = string(p.Industry())
	return p, nil
}

// OrEmpty degrades a failed resolution to the empty profile with the default industry.
func OrEmpty(p models.Profile, err error) models.Profile {
	if err != nil || p == nil {
		return models.Profile{}
	}
	return p
}
