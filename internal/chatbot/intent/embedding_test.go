package intent

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashingEncoder_Normalized(t *testing.T) {
	enc := NewHashingEncoder(64)
	vecs, err := enc.Encode(context.Background(), []string{"when do you open", ""})
	require.NoError(t, err)
	require.Len(t, vecs, 2)

	assert.InDelta(t, 1.0, float64(dot32(vecs[0], vecs[0])), 1e-5)
	assert.Zero(t, dot32(vecs[1], vecs[1]))
}

func TestEmbeddingStrategy_ExactExampleMatchesItself(t *testing.T) {
	enc := NewHashingEncoder(256)
	corpus, err := BuildCorpus(context.Background(), enc, trainingExamples, 4)
	require.NoError(t, err)

	s, err := NewEmbeddingStrategy(enc, corpus)
	require.NoError(t, err)

	for _, ex := range trainingExamples {
		got, err := s.Classify(context.Background(), ex.Text)
		require.NoError(t, err)
		assert.Equal(t, ex.Intent, got.Intent, ex.Text)
		assert.InDelta(t, 1.0, got.Confidence, 1e-5, ex.Text)
	}
}

func TestEmbeddingStrategy_StableTieBreak(t *testing.T) {
	enc := NewHashingEncoder(32)
	vecs, err := enc.Encode(context.Background(), []string{"same text"})
	require.NoError(t, err)

	dup := append([]float32(nil), vecs[0]...)
	corpus := &Corpus{Embeddings: [][]float32{vecs[0], dup}, Labels: []string{"first", "second"}}
	require.NoError(t, corpus.Validate())

	s, err := NewEmbeddingStrategy(enc, corpus)
	require.NoError(t, err)

	got, err := s.Classify(context.Background(), "same text")
	require.NoError(t, err)
	assert.Equal(t, "first", got.Intent)
}

func TestEmbeddingStrategy_DimensionMismatch(t *testing.T) {
	corpus := &Corpus{Embeddings: [][]float32{{1, 0}}, Labels: []string{"a"}}
	_, err := NewEmbeddingStrategy(NewHashingEncoder(16), corpus)
	assert.ErrorIs(t, err, ErrModelInvalid)
}

func TestCorpus_ValidateAndPersist(t *testing.T) {
	bad := &Corpus{Embeddings: [][]float32{{1, 0}}, Labels: []string{"a", "b"}}
	assert.ErrorIs(t, bad.Validate(), ErrModelInvalid)

	dir := t.TempDir()
	embPath := filepath.Join(dir, "emb.json")
	lblPath := filepath.Join(dir, "labels.json")
	good := &Corpus{Embeddings: [][]float32{{3, 4}, {0, 2}}, Labels: []string{"a", "b"}}
	require.NoError(t, WriteCorpus(good, embPath, lblPath))

	loaded, err := LoadCorpus(embPath, lblPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, loaded.Labels)
	assert.InDelta(t, 0.6, float64(loaded.Embeddings[0][0]), 1e-6)
	assert.InDelta(t, 1.0, float64(loaded.Embeddings[1][1]), 1e-6)

	_, err = LoadCorpus(filepath.Join(dir, "missing.json"), lblPath)
	assert.ErrorIs(t, err, ErrModelUnavailable)
}

type fakeEmbeddingsAPI struct {
	params openai.EmbeddingNewParams
	resp   *openai.CreateEmbeddingResponse
	err    error
}

func (f *fakeEmbeddingsAPI) New(_ context.Context, body openai.EmbeddingNewParams, _ ...option.RequestOption) (*openai.CreateEmbeddingResponse, error) {
	f.params = body
	return f.resp, f.err
}

func TestOpenAIEncoder(t *testing.T) {
	api := &fakeEmbeddingsAPI{resp: &openai.CreateEmbeddingResponse{
		Data: []openai.Embedding{
			{Index: 1, Embedding: []float64{0, 5}},
			{Index: 0, Embedding: []float64{3, 4}},
		},
	}}
	enc := newOpenAIEncoder(api, "", 2)

	vecs, err := enc.Encode(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, api.params.Input.OfArrayOfStrings)
	assert.Equal(t, openai.EmbeddingModelTextEmbedding3Small, api.params.Model)
	assert.InDelta(t, 0.6, float64(vecs[0][0]), 1e-6)
	assert.InDelta(t, 1.0, float64(vecs[1][1]), 1e-6)

	api.err = errors.New("rate limited")
	_, err = enc.Encode(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, ErrEncoderFailed)
}
