package speech

import (
	"context"
	"fmt"

	"botforge/internal/common/logger"
	"botforge/internal/common/metrics"
)

// slot is one worker's recognizer, reused across requests at the same sample rate.
type slot struct {
	id   int
	rec  Recognizer
	rate int
}

// RecognizerPool hands each caller exclusive use of one worker slot. A slot keeps its
// recognizer between requests: it is reset when the sample rate matches and rebuilt otherwise.
type RecognizerPool struct {
	engine Engine
	slots  chan *slot
	size   int
	logger logger.Logger
}

func NewRecognizerPool(engine Engine, workers int, log logger.Logger) *RecognizerPool {
	if workers < 1 {
		workers = 1
	}
	p := &RecognizerPool{
		engine: engine,
		slots:  make(chan *slot, workers),
		size:   workers,
		logger: log.WithFields(map[string]interface{}{"component": "recognizer-pool"}),
	}
	for i := 0; i < workers; i++ {
		p.slots <- &slot{id: i}
	}
	return p
}

// With runs fn with a recognizer bound to sampleRate. A recognizer whose run failed is discarded.
func (p *RecognizerPool) With(ctx context.Context, sampleRate int, fn func(Recognizer) error) error {
	var s *slot
	select {
	case s = <-p.slots:
	case <-ctx.Done():
		return ctx.Err()
	}
	metrics.RecognizersBusy.Inc()
	defer func() {
		metrics.RecognizersBusy.Dec()
		p.slots <- s
	}()

	rec, err := p.prepare(s, sampleRate)
	if err != nil {
		return err
	}

	if err := fn(rec); err != nil {
		p.discard(s)
		return err
	}
	return nil
}

func (p *RecognizerPool) prepare(s *slot, sampleRate int) (Recognizer, error) {
	if s.rec != nil && s.rate == sampleRate {
		s.rec.Reset()
		return s.rec, nil
	}

	if s.rec != nil {
		p.logger.Info("rebuilding recognizer for new sample rate", map[string]interface{}{
			"worker":  s.id,
			"oldRate": s.rate,
			"newRate": sampleRate,
		})
		p.discard(s)
	}

	rec, err := p.engine.NewRecognizer(sampleRate)
	if err != nil {
		return nil, fmt.Errorf("create recognizer: %w", err)
	}
	s.rec, s.rate = rec, sampleRate
	return rec, nil
}

func (p *RecognizerPool) discard(s *slot) {
	if s.rec != nil {
		s.rec.Close()
	}
	s.rec, s.rate = nil, 0
}

// Close waits for in-flight work, frees every recognizer and then the engine.
func (p *RecognizerPool) Close() error {
	for i := 0; i < p.size; i++ {
		p.discard(<-p.slots)
	}
	return p.engine.Close()
}
