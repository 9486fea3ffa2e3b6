package intent

import (
	"context"
	"fmt"

	"botforge/internal/models"
)

// EmbeddingStrategy labels a message with the closest precomputed example.
type EmbeddingStrategy struct {
	encoder Encoder
	corpus  *Corpus
}

func NewEmbeddingStrategy(encoder Encoder, corpus *Corpus) (*EmbeddingStrategy, error) {
	if corpus == nil || corpus.Len() == 0 {
		return nil, fmt.Errorf("%w: empty embedding corpus", ErrModelUnavailable)
	}
	if dims := encoder.Dimensions(); dims > 0 && dims != corpus.Dimensions() {
		return nil, fmt.Errorf("%w: encoder %s produces %d dimensions, corpus has %d",
			ErrModelInvalid, encoder.Name(), dims, corpus.Dimensions())
	}
	return &EmbeddingStrategy{encoder: encoder, corpus: corpus}, nil
}

func (s *EmbeddingStrategy) Name() string {
	return "embedding"
}

// Classify returns the arg-max cosine similarity. Ties keep the earliest corpus row.
func (s *EmbeddingStrategy) Classify(ctx context.Context, text string) (models.IntentResult, error) {
	vecs, err := s.encoder.Encode(ctx, []string{text})
	if err != nil {
		return models.IntentResult{}, err
	}
	if len(vecs) != 1 || len(vecs[0]) != s.corpus.Dimensions() {
		return models.IntentResult{}, fmt.Errorf("%w: unexpected query embedding shape", ErrEncoderFailed)
	}
	query := vecs[0]

	best := 0
	bestScore := dot32(query, s.corpus.Embeddings[0])
	for i := 1; i < len(s.corpus.Embeddings); i++ {
		if score := dot32(query, s.corpus.Embeddings[i]); score > bestScore {
			best, bestScore = i, score
		}
	}

	confidence := float64(bestScore)
	if confidence < 0 {
		confidence = 0
	}
	return models.IntentResult{
		Intent:     s.corpus.Labels[best],
		Confidence: confidence,
		Entities:   []models.Entity{},
	}, nil
}

// BuildCorpus encodes labelled examples in batches.
func BuildCorpus(ctx context.Context, encoder Encoder, examples []Example, batchSize int) (*Corpus, error) {
	if batchSize <= 0 {
		batchSize = 64
	}
	c := &Corpus{}
	for start := 0; start < len(examples); start += batchSize {
		end := start + batchSize
		if end > len(examples) {
			end = len(examples)
		}
		texts := make([]string, 0, end-start)
		for _, e := range examples[start:end] {
			texts = append(texts, e.Text)
			c.Labels = append(c.Labels, e.Intent)
		}
		vecs, err := encoder.Encode(ctx, texts)
		if err != nil {
			return nil, err
		}
		c.Embeddings = append(c.Embeddings, vecs...)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
