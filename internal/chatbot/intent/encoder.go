package intent

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Encoder maps texts into a shared, L2-normalized vector space.
type Encoder interface {
	Name() string
	Dimensions() int
	Encode(ctx context.Context, texts []string) ([][]float32, error)
}

// HashingEncoder embeds text with signed feature hashing over words, bigrams and
// character trigrams. It needs no network or model files, so tests and offline
// deployments use it.
type HashingEncoder struct {
	dims int
}

func NewHashingEncoder(dims int) *HashingEncoder {
	if dims <= 0 {
		dims = 384
	}
	return &HashingEncoder{dims: dims}
}

func (e *HashingEncoder) Name() string    { return fmt.Sprintf("hashing-%d", e.dims) }
func (e *HashingEncoder) Dimensions() int { return e.dims }

func (e *HashingEncoder) Encode(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = e.encodeOne(text)
	}
	return out, nil
}

func (e *HashingEncoder) encodeOne(text string) []float32 {
	vec := make([]float32, e.dims)
	add := func(feature string, weight float32) {
		h := xxhash.Sum64String(feature)
		idx := int(h % uint64(e.dims))
		if h&(1<<63) != 0 {
			weight = -weight
		}
		vec[idx] += weight
	}

	for _, f := range Features(text) {
		add("w:"+f, 1.0)
	}
	for _, tok := range Tokenize(text) {
		runes := []rune("#" + tok + "#")
		for i := 0; i+3 <= len(runes); i++ {
			add("c:"+string(runes[i:i+3]), 0.5)
		}
	}

	Normalize32(vec)
	return vec
}

// embeddingsAPI is the slice of the OpenAI client the encoder depends on.
type embeddingsAPI interface {
	New(ctx context.Context, body openai.EmbeddingNewParams, opts ...option.RequestOption) (*openai.CreateEmbeddingResponse, error)
}

// OpenAIEncoder calls the OpenAI embeddings endpoint.
type OpenAIEncoder struct {
	api   embeddingsAPI
	model string
	dims  int
}

type OpenAIEncoderConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	Timeout    time.Duration
}

func NewOpenAIEncoder(cfg OpenAIEncoderConfig) *OpenAIEncoder {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	client := openai.NewClient(opts...)

	return newOpenAIEncoder(&client.Embeddings, cfg.Model, cfg.Dimensions)
}

func newOpenAIEncoder(api embeddingsAPI, model string, dims int) *OpenAIEncoder {
	if model == "" {
		model = string(openai.EmbeddingModelTextEmbedding3Small)
	}
	return &OpenAIEncoder{api: api, model: model, dims: dims}
}

func (e *OpenAIEncoder) Name() string    { return "openai-" + e.model }
func (e *OpenAIEncoder) Dimensions() int { return e.dims }

func (e *OpenAIEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(e.model),
	}
	if e.dims > 0 {
		params.Dimensions = openai.Int(int64(e.dims))
	}

	resp, err := e.api.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoderFailed, err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d inputs", ErrEncoderFailed, len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || int(item.Index) >= len(out) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", ErrEncoderFailed, item.Index)
		}
		vec := make([]float32, len(item.Embedding))
		for i, v := range item.Embedding {
			vec[i] = float32(v)
		}
		Normalize32(vec)
		out[item.Index] = vec
	}
	return out, nil
}

// Normalize32 scales vec to unit length in place. Zero vectors are left alone.
func Normalize32(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}

func dot32(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
