package intent

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"botforge/internal/models"
)

type modelEntry struct {
	once  sync.Once
	model TextModel
	err   error
}

var modelCache sync.Map // absolute path -> *modelEntry

// LoadModel reads an artifact once per process and path. Later calls return the
// same instance, or the same error.
func LoadModel(path string) (TextModel, error) {
	key, err := filepath.Abs(path)
	if err != nil {
		key = path
	}

	v, _ := modelCache.LoadOrStore(key, &modelEntry{})
	entry := v.(*modelEntry)
	entry.once.Do(func() {
		entry.model, entry.err = ReadArtifact(path)
	})
	return entry.model, entry.err
}

// TrainedStrategy classifies with a fitted text model loaded from disk.
type TrainedStrategy struct {
	model TextModel
}

// NewTrainedStrategy fails when the artifact is missing or malformed so the
// process refuses to start instead of failing every request.
func NewTrainedStrategy(path string) (*TrainedStrategy, error) {
	model, err := LoadModel(path)
	if err != nil {
		return nil, err
	}
	return &TrainedStrategy{model: model}, nil
}

// NewTrainedStrategyFromModel wraps an in-memory model.
func NewTrainedStrategyFromModel(model TextModel) *TrainedStrategy {
	return &TrainedStrategy{model: model}
}

func (s *TrainedStrategy) Name() string {
	return "trained"
}

func (s *TrainedStrategy) Classify(_ context.Context, text string) (models.IntentResult, error) {
	if !s.model.Fitted() {
		return models.FallbackResult(), nil
	}

	features := Features(text)

	if pm, ok := s.model.(ProbabilisticModel); ok {
		probs := pm.PredictProba(features)
		classes := pm.Classes()
		if len(probs) != len(classes) {
			return models.IntentResult{}, fmt.Errorf("%w: %d probabilities for %d classes", ErrModelInvalid, len(probs), len(classes))
		}
		best := argmax(probs)
		return models.IntentResult{
			Intent:     classes[best],
			Confidence: probs[best],
			Entities:   []models.Entity{},
		}, nil
	}

	label := s.model.Predict(features)
	if label == "" {
		return models.FallbackResult(), nil
	}
	return models.IntentResult{Intent: label, Confidence: 1.0, Entities: []models.Entity{}}, nil
}
