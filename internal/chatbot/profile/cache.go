package profile

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "botforge/internal/common/errors"
	"botforge/internal/common/logger"
	"botforge/internal/common/metrics"
	"botforge/internal/models"
)

// missingMarker is cached for unknown organisations so repeated misses skip the store.
const missingMarker = "null"

// CachedProvider puts a Redis read-through cache in front of another Provider.
// Redis failures are logged and bypassed.
type CachedProvider struct {
	next   Provider
	redis  *redis.Client
	ttl    time.Duration
	prefix string
	logger logger.Logger
}

func NewCachedProvider(next Provider, client *redis.Client, ttl time.Duration, prefix string, log logger.Logger) *CachedProvider {
	return &CachedProvider{
		next:   next,
		redis:  client,
		ttl:    ttl,
		prefix: prefix,
		logger: log.WithFields(map[string]interface{}{"component": "profile-cache"}),
	}
}

func (c *CachedProvider) key(orgID int64) string {
	return c.prefix + strconv.FormatInt(orgID, 10)
}

func (c *CachedProvider) GetProfile(ctx context.Context, orgID int64) (models.Profile, error) {
	cacheKey := c.key(orgID)

	val, err := c.redis.Get(ctx, cacheKey).Result()
	switch {
	case err == nil:
		if val == missingMarker {
			metrics.ProfileCacheLookups.WithLabelValues("negative_hit").Inc()
			return nil, apperrors.NewNotFoundError(strconv.FormatInt(orgID, 10))
		}
		var p models.Profile
		if jsonErr := json.Unmarshal([]byte(val), &p); jsonErr == nil {
			metrics.ProfileCacheLookups.WithLabelValues("hit").Inc()
			return p, nil
		}
		c.logger.Warn("discarding undecodable cached profile", map[string]interface{}{"key": cacheKey})
		metrics.ProfileCacheLookups.WithLabelValues("miss").Inc()
	case errors.Is(err, redis.Nil):
		metrics.ProfileCacheLookups.WithLabelValues("miss").Inc()
	default:
		metrics.ProfileCacheLookups.WithLabelValues("error").Inc()
		c.logger.Warn("profile cache read failed", map[string]interface{}{"key": cacheKey, "error": err})
	}

	p, err := c.next.GetProfile(ctx, orgID)
	if err != nil {
		if apperrors.HasCode(err, apperrors.ErrCodeOrganisationNotFound) || errors.Is(err, ErrNotFound) {
			c.store(ctx, cacheKey, []byte(missingMarker))
		}
		return nil, err
	}

	data, err := json.Marshal(p)
	if err == nil {
		c.store(ctx, cacheKey, data)
	}
	return p, nil
}

// Invalidate drops the cached entry for one organisation.
func (c *CachedProvider) Invalidate(ctx context.Context, orgID int64) error {
	return c.redis.Del(ctx, c.key(orgID)).Err()
}

func (c *CachedProvider) store(ctx context.Context, key string, data []byte) {
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("profile cache write failed", map[string]interface{}{"key": key, "error": err})
	}
}
