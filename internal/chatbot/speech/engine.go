package speech

// Engine owns a loaded acoustic model and builds recognizers bound to one sample rate.
type Engine interface {
	NewRecognizer(sampleRate int) (Recognizer, error)
	Close() error
}

// Recognizer is a stateful streaming decoder. Results are JSON documents of the form
// {"text": "...", "result": [{"word": "...", "conf": 0.9}]} and partials {"partial": "..."}.
type Recognizer interface {
	// AcceptWaveform feeds one chunk and reports whether it closed an utterance.
	AcceptWaveform(chunk []byte) (bool, error)
	Result() string
	PartialResult() string
	FinalResult() string
	Reset()
	Close()
}
