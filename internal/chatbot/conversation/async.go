package conversation

import (
	"context"
	"sync"
	"time"

	"botforge/internal/common/logger"
	"botforge/internal/common/metrics"
	"botforge/internal/models"
)

const appendTimeout = 5 * time.Second

// AsyncLogger writes to the wrapped sink from a single background goroutine. Append never
// blocks: when the queue is full the message is dropped and counted.
type AsyncLogger struct {
	sink    Logger
	queue   chan models.Message
	logger  logger.Logger
	wg      sync.WaitGroup
	once    sync.Once
	closing chan struct{}
}

func NewAsyncLogger(sink Logger, queueSize int, log logger.Logger) *AsyncLogger {
	if queueSize < 1 {
		queueSize = 1
	}
	a := &AsyncLogger{
		sink:    sink,
		queue:   make(chan models.Message, queueSize),
		logger:  log.WithFields(map[string]interface{}{"component": "conversation-log"}),
		closing: make(chan struct{}),
	}
	a.wg.Add(1)
	go a.run()
	return a
}

func (a *AsyncLogger) Append(_ context.Context, msg models.Message) error {
	select {
	case <-a.closing:
		metrics.ConversationLogDropped.Inc()
		return nil
	default:
	}

	select {
	case a.queue <- msg:
	default:
		metrics.ConversationLogDropped.Inc()
		a.logger.Warn("conversation log queue full, dropping message", map[string]interface{}{
			"sessionId": msg.SessionID,
			"sender":    msg.Sender,
		})
	}
	return nil
}

func (a *AsyncLogger) History(ctx context.Context, orgID, sessionID string, limit int) ([]models.Message, error) {
	return a.sink.History(ctx, orgID, sessionID, limit)
}

func (a *AsyncLogger) run() {
	defer a.wg.Done()
	for {
		select {
		case msg := <-a.queue:
			a.write(msg)
		case <-a.closing:
			for {
				select {
				case msg := <-a.queue:
					a.write(msg)
				default:
					return
				}
			}
		}
	}
}

func (a *AsyncLogger) write(msg models.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), appendTimeout)
	defer cancel()

	if err := a.sink.Append(ctx, msg); err != nil {
		metrics.ConversationLogFailures.Inc()
		a.logger.Error("failed to append conversation message", map[string]interface{}{
			"sessionId": msg.SessionID,
			"error":     err,
		})
	}
}

// Close stops accepting messages and flushes what is queued, or gives up when ctx ends.
func (a *AsyncLogger) Close(ctx context.Context) error {
	a.once.Do(func() { close(a.closing) })

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
