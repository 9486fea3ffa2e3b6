//go:build !vosk

package vosk

import (
	"errors"

	"botforge/internal/chatbot/speech"
	apperrors "botforge/internal/common/errors"
)

// ErrNotCompiled is returned when the binary was built without the vosk tag.
var ErrNotCompiled = errors.New("speech recognition requires building with -tags vosk")

type Engine struct{}

func NewEngine(modelPath string) (*Engine, error) {
	return nil, apperrors.NewModelUnavailableError(modelPath, ErrNotCompiled)
}

func (e *Engine) NewRecognizer(int) (speech.Recognizer, error) { return nil, ErrNotCompiled }

func (e *Engine) Close() error { return nil }
