package intent

import (
	"fmt"

	"botforge/internal/common/config"
	"botforge/internal/common/errors"
)

// NewStrategy builds the configured strategy eagerly so artifact problems surface at startup.
func NewStrategy(cfg config.IntentConfig, keywordSets []KeywordSet) (Strategy, error) {
	switch cfg.Strategy {
	case "", "keyword":
		s, err := NewKeywordStrategy(keywordSets, NewEntityExtractor())
		if err != nil {
			return nil, errors.NewModelUnavailableError("keyword rules", err)
		}
		return s, nil

	case "trained":
		s, err := NewTrainedStrategy(cfg.ModelPath)
		if err != nil {
			return nil, errors.NewModelUnavailableError(cfg.ModelPath, err)
		}
		return s, nil

	case "embedding":
		encoder, err := NewEncoder(cfg.Encoder)
		if err != nil {
			return nil, errors.NewModelUnavailableError("encoder", err)
		}
		corpus, err := LoadCorpus(cfg.EmbeddingsPath, cfg.LabelsPath)
		if err != nil {
			return nil, errors.NewModelUnavailableError(cfg.EmbeddingsPath, err)
		}
		s, err := NewEmbeddingStrategy(encoder, corpus)
		if err != nil {
			return nil, errors.NewModelUnavailableError(cfg.EmbeddingsPath, err)
		}
		return s, nil

	default:
		return nil, errors.NewModelUnavailableError(cfg.Strategy, fmt.Errorf("unknown intent strategy %q", cfg.Strategy))
	}
}

// NewEncoder returns the configured encoder. The same settings must be used to
// precompute the corpus and to serve queries.
func NewEncoder(cfg config.EncoderConfig) (Encoder, error) {
	switch cfg.Provider {
	case "", "hashing":
		return NewHashingEncoder(cfg.Dimensions), nil
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%w: openai encoder requires an api key", ErrModelUnavailable)
		}
		return NewOpenAIEncoder(OpenAIEncoderConfig{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Timeout:    config.GetDuration(cfg.Timeout),
		}), nil
	default:
		return nil, fmt.Errorf("unknown encoder provider %q", cfg.Provider)
	}
}
