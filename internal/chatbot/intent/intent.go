// Package intent maps raw message text to an intent label, a confidence and extracted entities.
package intent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"botforge/internal/common/logger"
	"botforge/internal/common/metrics"
	"botforge/internal/models"
)

var (
	ErrModelUnavailable = errors.New("MODEL_UNAVAILABLE")
	ErrModelInvalid     = errors.New("MODEL_INVALID")
	ErrEncoderFailed    = errors.New("ENCODER_FAILED")
)

// Strategy is one interchangeable classification method.
type Strategy interface {
	Name() string
	Classify(ctx context.Context, text string) (models.IntentResult, error)
}

// Classifier guards a Strategy: empty input short-circuits to fallback and any
// strategy error or panic is absorbed into fallback.
type Classifier struct {
	strategy Strategy
	logger   logger.Logger
}

func NewClassifier(strategy Strategy, log logger.Logger) *Classifier {
	return &Classifier{
		strategy: strategy,
		logger:   log.WithFields(map[string]interface{}{"component": "intent", "strategy": strategy.Name()}),
	}
}

func (c *Classifier) Strategy() string {
	return c.strategy.Name()
}

// Parse never fails. Confidence is always within [0, 1].
func (c *Classifier) Parse(ctx context.Context, text string) (result models.IntentResult) {
	if strings.TrimSpace(text) == "" {
		return models.FallbackResult()
	}

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("intent strategy panicked", map[string]interface{}{"panic": fmt.Sprint(r)})
			metrics.IntentStrategyErrors.WithLabelValues(c.strategy.Name()).Inc()
			result = models.FallbackResult()
		}
		metrics.IntentClassifications.WithLabelValues(c.strategy.Name(), result.Intent).Inc()
		metrics.IntentConfidence.WithLabelValues(c.strategy.Name()).Observe(result.Confidence)
	}()

	res, err := c.strategy.Classify(ctx, text)
	if err != nil {
		c.logger.Warn("intent strategy failed, using fallback", map[string]interface{}{"error": err.Error()})
		metrics.IntentStrategyErrors.WithLabelValues(c.strategy.Name()).Inc()
		return models.FallbackResult()
	}

	return sanitize(res)
}

func sanitize(res models.IntentResult) models.IntentResult {
	if res.Intent == "" {
		res.Intent = models.IntentFallback
	}
	switch {
	case res.Confidence != res.Confidence || res.Confidence < 0:
		res.Confidence = 0
	case res.Confidence > 1:
		res.Confidence = 1
	}
	if res.Entities == nil {
		res.Entities = []models.Entity{}
	}
	return res
}
