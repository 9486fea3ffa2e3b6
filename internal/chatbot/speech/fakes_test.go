package speech

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/require"
)

type fakeRecognizer struct {
	rate       int
	chunks     int
	bytes      int
	boundaryAt int
	acceptErr  error
	result     string
	final      string
	partial    string
	resets     int
	closed     bool
}

func (r *fakeRecognizer) AcceptWaveform(chunk []byte) (bool, error) {
	if r.acceptErr != nil {
		return false, r.acceptErr
	}
	r.chunks++
	r.bytes += len(chunk)
	return r.chunks == r.boundaryAt, nil
}

func (r *fakeRecognizer) Result() string        { return r.result }
func (r *fakeRecognizer) PartialResult() string { return r.partial }
func (r *fakeRecognizer) Close()                { r.closed = true }

// FinalResult flushes the decoder the way the engine does, dropping any pending partial.
func (r *fakeRecognizer) FinalResult() string {
	r.partial = `{"partial":""}`
	return r.final
}

func (r *fakeRecognizer) Reset() {
	r.resets++
	r.chunks, r.bytes = 0, 0
}

type fakeEngine struct {
	mu        sync.Mutex
	built     []*fakeRecognizer
	configure func(r *fakeRecognizer)
	err       error
	closed    bool
}

func (e *fakeEngine) NewRecognizer(rate int) (Recognizer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	r := &fakeRecognizer{rate: rate, boundaryAt: -1, result: `{"text":""}`, final: `{"text":""}`, partial: `{"partial":""}`}
	if e.configure != nil {
		e.configure(r)
	}
	e.built = append(e.built, r)
	return r, nil
}

func (e *fakeEngine) Close() error {
	e.closed = true
	return nil
}

func (e *fakeEngine) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.built)
}

// writeWAV encodes frames of integer PCM and returns the file bytes.
func writeWAV(t *testing.T, sampleRate, channels, depth int, data []int) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	enc := wav.NewEncoder(f, sampleRate, depth, channels, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: depth,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())

	out, err := os.ReadFile(path)
	require.NoError(t, err)
	return out
}

func silence(frames int) []int {
	return make([]int, frames)
}
