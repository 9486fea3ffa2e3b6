package speech

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"botforge/internal/common/config"
	apperrors "botforge/internal/common/errors"
	"botforge/internal/common/logger"
)

type staticDecoder struct {
	pcm PCM
	err error
}

func (d staticDecoder) Decode(context.Context, []byte) (PCM, error) { return d.pcm, d.err }

func pcmOf(ms int) PCM {
	frames := 16000 * ms / 1000
	return PCM{Samples: make([]byte, frames*2), SampleRate: 16000}
}

func newTestTranscriber(t *testing.T, decoder AudioDecoder, engine Engine) *Transcriber {
	cfg := config.SpeechConfig{ChunkBytes: 4000, MinDuration: 0.5, SampleRate: 16000}
	log := logger.NewTestLogger(t)
	return NewTranscriber(decoder, NewRecognizerPool(engine, 1, log), cfg, log)
}

func TestTranscriber_Transcribe(t *testing.T) {
	tests := []struct {
		name      string
		pcm       PCM
		configure func(r *fakeRecognizer)
		wantText  string
		wantConf  float64
		wantBuilt int
	}{
		{
			name: "utterance boundary plus final result",
			pcm:  pcmOf(1000),
			configure: func(r *fakeRecognizer) {
				r.boundaryAt = 3
				r.result = `{"text":"what time","result":[{"word":"what","conf":0.8},{"word":"time","conf":0.6}]}`
				r.final = `{"text":"do you open","result":[{"word":"do","conf":1},{"word":"you","conf":1},{"word":"open","conf":1}]}`
			},
			wantText:  "what time do you open",
			wantConf:  0.88,
			wantBuilt: 1,
		},
		{
			name: "final result only",
			pcm:  pcmOf(600),
			configure: func(r *fakeRecognizer) {
				r.final = `{"text":" hello there ","result":[{"word":"hello","conf":0.9},{"word":"there","conf":0.7}]}`
			},
			wantText:  "hello there",
			wantConf:  0.8,
			wantBuilt: 1,
		},
		{
			name: "empty final falls back to the pre-final partial",
			pcm:  pcmOf(800),
			configure: func(r *fakeRecognizer) {
				r.partial = `{"partial":"menu please"}`
			},
			wantText:  "menu please",
			wantConf:  0.0,
			wantBuilt: 1,
		},
		{
			name:      "nothing recognized",
			pcm:       pcmOf(800),
			wantText:  "",
			wantConf:  0.0,
			wantBuilt: 1,
		},
		{
			name:      "too short skips recognition",
			pcm:       pcmOf(200),
			wantText:  "",
			wantConf:  0.0,
			wantBuilt: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := &fakeEngine{configure: tt.configure}
			tr := newTestTranscriber(t, staticDecoder{pcm: tt.pcm}, engine)

			got, err := tr.Transcribe(context.Background(), []byte("RIFF"))
			require.NoError(t, err)
			assert.Equal(t, tt.wantText, got.Text)
			assert.InDelta(t, tt.wantConf, got.Confidence, 1e-9)
			assert.Equal(t, tt.wantBuilt, engine.count())
		})
	}
}

func TestTranscriber_FeedsFixedChunks(t *testing.T) {
	engine := &fakeEngine{}
	tr := newTestTranscriber(t, staticDecoder{pcm: pcmOf(1000)}, engine)

	_, err := tr.Transcribe(context.Background(), []byte("RIFF"))
	require.NoError(t, err)

	rec := engine.built[0]
	assert.Equal(t, 32000, rec.bytes)
	assert.Equal(t, 8, rec.chunks)
}

func TestTranscriber_Errors(t *testing.T) {
	t.Run("empty audio is a validation error", func(t *testing.T) {
		engine := &fakeEngine{}
		tr := newTestTranscriber(t, staticDecoder{}, engine)

		_, err := tr.Transcribe(context.Background(), nil)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))
		assert.Zero(t, engine.count())
	})

	t.Run("decode errors pass through", func(t *testing.T) {
		decodeErr := apperrors.NewDecodeError(ErrUndecodable)
		tr := newTestTranscriber(t, staticDecoder{err: decodeErr}, &fakeEngine{})

		_, err := tr.Transcribe(context.Background(), []byte("junk"))
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidAudioFormat))
	})

	t.Run("recognizer failure", func(t *testing.T) {
		engine := &fakeEngine{configure: func(r *fakeRecognizer) { r.acceptErr = errors.New("kaldi exploded") }}
		tr := newTestTranscriber(t, staticDecoder{pcm: pcmOf(1000)}, engine)

		_, err := tr.Transcribe(context.Background(), []byte("RIFF"))
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeTranscriptionFailed))
		assert.True(t, engine.built[0].closed)
	})

	t.Run("malformed recognizer json", func(t *testing.T) {
		engine := &fakeEngine{configure: func(r *fakeRecognizer) { r.final = "not json" }}
		tr := newTestTranscriber(t, staticDecoder{pcm: pcmOf(1000)}, engine)

		_, err := tr.Transcribe(context.Background(), []byte("RIFF"))
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeTranscriptionFailed))
	})
}
