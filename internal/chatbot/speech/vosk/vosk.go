//go:build vosk

// Package vosk adapts the Vosk/Kaldi recognizer to the speech engine interfaces.
package vosk

import (
	"fmt"
	"os"

	voskapi "github.com/alphacep/vosk-api/go"

	"botforge/internal/chatbot/speech"
	apperrors "botforge/internal/common/errors"
)

type Engine struct {
	model *voskapi.VoskModel
}

// NewEngine loads the acoustic model once. A missing model directory is fatal at startup.
func NewEngine(modelPath string) (*Engine, error) {
	info, err := os.Stat(modelPath)
	if err != nil || !info.IsDir() {
		return nil, apperrors.NewModelUnavailableError(modelPath, fmt.Errorf("model directory not found"))
	}
	voskapi.SetLogLevel(-1)

	model, err := voskapi.NewModel(modelPath)
	if err != nil {
		return nil, apperrors.NewModelUnavailableError(modelPath, err)
	}
	return &Engine{model: model}, nil
}

func (e *Engine) NewRecognizer(sampleRate int) (speech.Recognizer, error) {
	rec, err := voskapi.NewRecognizer(e.model, float64(sampleRate))
	if err != nil {
		return nil, err
	}
	rec.SetWords(1)
	return &recognizer{rec: rec}, nil
}

func (e *Engine) Close() error {
	e.model.Free()
	return nil
}

type recognizer struct {
	rec *voskapi.VoskRecognizer
}

func (r *recognizer) AcceptWaveform(chunk []byte) (bool, error) {
	switch r.rec.AcceptWaveform(chunk) {
	case 1:
		return true, nil
	case 0:
		return false, nil
	default:
		return false, fmt.Errorf("vosk rejected waveform chunk")
	}
}

func (r *recognizer) Result() string        { return r.rec.Result() }
func (r *recognizer) PartialResult() string { return r.rec.PartialResult() }
func (r *recognizer) FinalResult() string   { return r.rec.FinalResult() }
func (r *recognizer) Reset()                { r.rec.Reset() }
func (r *recognizer) Close()                { r.rec.Free() }
