// Package conversation records chat turns and reads them back per session.
package conversation

import (
	"context"
	"errors"
	"sort"
	"sync"

	"botforge/internal/models"
)

var ErrAppendFailed = errors.New("CONVERSATION_LOG_FAILED")

// Logger is the conversation log sink.
type Logger interface {
	Append(ctx context.Context, msg models.Message) error
	// History returns the most recent limit messages of a session, oldest first.
	History(ctx context.Context, orgID, sessionID string, limit int) ([]models.Message, error)
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Append(context.Context, models.Message) error { return nil }

func (NopLogger) History(context.Context, string, string, int) ([]models.Message, error) {
	return []models.Message{}, nil
}

type sessionKey struct {
	orgID     string
	sessionID string
}

// MemoryLogger keeps up to perSession messages per session in process memory.
type MemoryLogger struct {
	mu         sync.RWMutex
	perSession int
	sessions   map[sessionKey][]models.Message
}

func NewMemoryLogger(perSession int) *MemoryLogger {
	return &MemoryLogger{perSession: perSession, sessions: make(map[sessionKey][]models.Message)}
}

func (m *MemoryLogger) Append(_ context.Context, msg models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := sessionKey{msg.OrganisationID, msg.SessionID}
	msgs := append(m.sessions[key], msg)
	if m.perSession > 0 && len(msgs) > m.perSession {
		msgs = append([]models.Message(nil), msgs[len(msgs)-m.perSession:]...)
	}
	m.sessions[key] = msgs
	return nil
}

func (m *MemoryLogger) History(_ context.Context, orgID, sessionID string, limit int) ([]models.Message, error) {
	m.mu.RLock()
	msgs := m.sessions[sessionKey{orgID, sessionID}]
	out := make([]models.Message, len(msgs))
	copy(out, msgs)
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return before(out[i], out[j]) })
	return tail(out, limit), nil
}

func before(a, b models.Message) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	return a.Seq < b.Seq
}

func tail(msgs []models.Message, limit int) []models.Message {
	if limit > 0 && len(msgs) > limit {
		return msgs[len(msgs)-limit:]
	}
	return msgs
}
