package speech

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"botforge/internal/common/config"
	apperrors "botforge/internal/common/errors"
	"botforge/internal/common/logger"
	"botforge/internal/common/metrics"
	"botforge/internal/models"
)

type recognizedWord struct {
	Word string   `json:"word"`
	Conf *float64 `json:"conf"`
}

type recognizerResult struct {
	Text    string           `json:"text"`
	Partial string           `json:"partial"`
	Result  []recognizedWord `json:"result"`
}

type Transcriber struct {
	decoder     AudioDecoder
	pool        *RecognizerPool
	chunkBytes  int
	minDuration time.Duration
	logger      logger.Logger
}

func NewTranscriber(decoder AudioDecoder, pool *RecognizerPool, cfg config.SpeechConfig, log logger.Logger) *Transcriber {
	chunk := cfg.ChunkBytes
	if chunk <= 0 {
		chunk = 4000
	}
	// Keep chunks frame aligned.
	chunk -= chunk % 2
	return &Transcriber{
		decoder:     decoder,
		pool:        pool,
		chunkBytes:  chunk,
		minDuration: time.Duration(cfg.MinDuration * float64(time.Second)),
		logger:      log.WithFields(map[string]interface{}{"component": "transcriber"}),
	}
}

// Transcribe returns the recognized text and the mean word confidence. Audio shorter than
// the minimum duration yields an empty transcript without touching a recognizer.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte) (models.Transcription, error) {
	start := time.Now()
	defer func() { metrics.TranscriptionDuration.Observe(time.Since(start).Seconds()) }()

	if len(audio) == 0 {
		metrics.Transcriptions.WithLabelValues("invalid_audio").Inc()
		return models.Transcription{}, apperrors.NewValidationError("audio is empty")
	}

	pcm, err := t.decoder.Decode(ctx, audio)
	if err != nil {
		metrics.Transcriptions.WithLabelValues("invalid_audio").Inc()
		return models.Transcription{}, err
	}

	if pcm.Duration() < t.minDuration {
		metrics.Transcriptions.WithLabelValues("too_short").Inc()
		t.logger.Debug("audio below minimum duration", map[string]interface{}{
			"duration": pcm.Duration().String(),
		})
		return models.Transcription{Text: "", Confidence: 0.0}, nil
	}

	var out models.Transcription
	err = t.pool.With(ctx, pcm.SampleRate, func(rec Recognizer) error {
		var recErr error
		out, recErr = t.recognize(ctx, rec, pcm.Samples)
		return recErr
	})
	if err != nil {
		metrics.Transcriptions.WithLabelValues("failed").Inc()
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return models.Transcription{}, err
		}
		return models.Transcription{}, apperrors.NewTranscriptionFailedError(err)
	}

	outcome := "ok"
	if out.Text == "" {
		outcome = "empty"
	}
	metrics.Transcriptions.WithLabelValues(outcome).Inc()
	return out, nil
}

func (t *Transcriber) recognize(ctx context.Context, rec Recognizer, samples []byte) (models.Transcription, error) {
	var (
		texts []string
		confs []float64
	)
	collect := func(raw string) error {
		var res recognizerResult
		if err := json.Unmarshal([]byte(raw), &res); err != nil {
			return fmt.Errorf("decode recognizer result: %w", err)
		}
		if text := strings.TrimSpace(res.Text); text != "" {
			texts = append(texts, text)
		}
		for _, w := range res.Result {
			if w.Conf != nil {
				confs = append(confs, *w.Conf)
			}
		}
		return nil
	}

	for off := 0; off < len(samples); off += t.chunkBytes {
		if err := ctx.Err(); err != nil {
			return models.Transcription{}, err
		}
		end := off + t.chunkBytes
		if end > len(samples) {
			end = len(samples)
		}
		boundary, err := rec.AcceptWaveform(samples[off:end])
		if err != nil {
			return models.Transcription{}, err
		}
		if boundary {
			if err := collect(rec.Result()); err != nil {
				return models.Transcription{}, err
			}
		}
	}

	// FinalResult finalizes the decoder, so the partial hypothesis must be read first.
	pending := rec.PartialResult()
	if err := collect(rec.FinalResult()); err != nil {
		return models.Transcription{}, err
	}

	text := strings.Join(texts, " ")
	if text == "" {
		var partial recognizerResult
		if err := json.Unmarshal([]byte(pending), &partial); err == nil {
			text = strings.TrimSpace(partial.Partial)
		}
	}

	return models.Transcription{Text: text, Confidence: meanConfidence(text, confs)}, nil
}

func meanConfidence(text string, confs []float64) float64 {
	if text == "" || len(confs) == 0 {
		return 0.0
	}
	var sum float64
	for _, c := range confs {
		sum += c
	}
	return sum / float64(len(confs))
}
