package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"botforge/internal/common/config"
	"botforge/internal/common/database"
	"botforge/internal/common/logger"
	"botforge/internal/models"
)

type recordedRequest struct {
	method string
	path   string
	body   string
}

// fakeTransport answers Elasticsearch requests from a handler and records them.
type fakeTransport struct {
	mu       sync.Mutex
	requests []recordedRequest
	handler  func(req *http.Request) (int, string)
}

func (f *fakeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body string
	if req.Body != nil {
		data, _ := io.ReadAll(req.Body)
		body = string(data)
	}
	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{method: req.Method, path: req.URL.Path, body: body})
	f.mu.Unlock()

	status, payload := f.handler(req)
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header: http.Header{
			"Content-Type":      []string{"application/json"},
			"X-Elastic-Product": []string{"Elasticsearch"},
		},
		Body: io.NopCloser(strings.NewReader(payload)),
	}, nil
}

func newElasticLogger(t *testing.T, handler func(req *http.Request) (int, string)) (*ElasticLogger, *fakeTransport) {
	t.Helper()
	transport := &fakeTransport{handler: handler}
	es, err := database.NewElasticsearch(config.ElasticsearchConfig{URL: "http://es.test:9200"}, transport)
	require.NoError(t, err)
	return NewElasticLogger(es.Client, "chat-messages", logger.NewTestLogger(t)), transport
}

func message(sender models.Sender, text string, at time.Time) models.Message {
	return models.Message{
		ID:             text,
		OrganisationID: "7",
		SessionID:      "s-1",
		Sender:         sender,
		Text:           text,
		Timestamp:      at,
	}
}

func TestElasticLogger_Append(t *testing.T) {
	l, transport := newElasticLogger(t, func(*http.Request) (int, string) {
		return http.StatusCreated, `{"result":"created"}`
	})

	msg := message(models.SenderUser, "hello", time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
	msg.Intent = "greeting"
	require.NoError(t, l.Append(context.Background(), msg))

	require.Len(t, transport.requests, 1)
	req := transport.requests[0]
	assert.Equal(t, http.MethodPut, req.method)
	assert.Equal(t, "/chat-messages/_doc/hello", req.path)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(req.body), &doc))
	assert.Equal(t, "greeting", doc["intent"])
	assert.Equal(t, "user", doc["sender"])
}

func TestElasticLogger_AppendFailure(t *testing.T) {
	l, _ := newElasticLogger(t, func(*http.Request) (int, string) {
		return http.StatusServiceUnavailable, `{"error":"unavailable"}`
	})

	err := l.Append(context.Background(), message(models.SenderUser, "hi", time.Now()))
	assert.ErrorIs(t, err, ErrAppendFailed)
}

func TestElasticLogger_History(t *testing.T) {
	l, transport := newElasticLogger(t, func(*http.Request) (int, string) {
		return http.StatusOK, `{"hits":{"hits":[
			{"_source":{"id":"2","sender":"agent","text":"We open at 9.","sessionId":"s-1"}},
			{"_source":{"id":"1","sender":"user","text":"When do you open?","sessionId":"s-1"}}
		]}}`
	})

	msgs, err := l.History(context.Background(), "7", "s-1", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "When do you open?", msgs[0].Text)
	assert.Equal(t, models.SenderAgent, msgs[1].Sender)

	req := transport.requests[0]
	assert.Equal(t, "/chat-messages/_search", req.path)
	assert.Contains(t, req.body, `"sessionId":"s-1"`)
}

func TestElasticLogger_HistorySortBreaksTimestampTies(t *testing.T) {
	l, transport := newElasticLogger(t, func(*http.Request) (int, string) {
		return http.StatusOK, `{"hits":{"hits":[]}}`
	})

	_, err := l.History(context.Background(), "7", "s-1", 10)
	require.NoError(t, err)
	require.Len(t, transport.requests, 1)

	var body struct {
		Sort []map[string]map[string]interface{} `json:"sort"`
	}
	require.NoError(t, json.Unmarshal([]byte(transport.requests[0].body), &body))
	require.Len(t, body.Sort, 2)
	assert.Equal(t, "desc", body.Sort[0]["timestamp"]["order"])
	assert.Equal(t, "desc", body.Sort[1]["seq"]["order"])
}

func TestElasticLogger_MappingIncludesSeq(t *testing.T) {
	var mapping struct {
		Mappings struct {
			Properties map[string]map[string]string `json:"properties"`
		} `json:"mappings"`
	}
	require.NoError(t, json.Unmarshal([]byte(indexMapping), &mapping))
	assert.Equal(t, "long", mapping.Mappings.Properties["seq"]["type"])
	assert.Equal(t, "date", mapping.Mappings.Properties["timestamp"]["type"])
}

func TestElasticLogger_HistoryMissingIndex(t *testing.T) {
	l, _ := newElasticLogger(t, func(*http.Request) (int, string) {
		return http.StatusNotFound, `{"error":{"type":"index_not_found_exception"}}`
	})

	msgs, err := l.History(context.Background(), "7", "s-1", 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestElasticLogger_EnsureIndex(t *testing.T) {
	l, transport := newElasticLogger(t, func(req *http.Request) (int, string) {
		if req.Method == http.MethodHead {
			return http.StatusNotFound, ``
		}
		return http.StatusOK, `{"acknowledged":true}`
	})

	require.NoError(t, l.EnsureIndex(context.Background()))
	require.Len(t, transport.requests, 2)
	assert.Equal(t, http.MethodPut, transport.requests[1].method)
	assert.Contains(t, transport.requests[1].body, `"organisationId"`)
}

func TestMemoryLogger(t *testing.T) {
	m := NewMemoryLogger(3)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	for i, text := range []string{"a", "b", "c", "d"} {
		require.NoError(t, m.Append(ctx, message(models.SenderUser, text, base.Add(time.Duration(i)*time.Second))))
	}

	msgs, err := m.History(ctx, "7", "s-1", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "d"}, texts(msgs))

	msgs, err = m.History(ctx, "7", "s-1", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "d"}, texts(msgs))

	msgs, err = m.History(ctx, "7", "other", 2)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestMemoryLogger_SeqOrdersEqualTimestamps(t *testing.T) {
	m := NewMemoryLogger(10)
	ctx := context.Background()
	at := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	reply := message(models.SenderAgent, "reply", at)
	reply.Seq = 2
	question := message(models.SenderUser, "question", at)
	question.Seq = 1
	require.NoError(t, m.Append(ctx, reply))
	require.NoError(t, m.Append(ctx, question))

	msgs, err := m.History(ctx, "7", "s-1", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"question", "reply"}, texts(msgs))
}

type blockingSink struct {
	release chan struct{}
	mu      sync.Mutex
	got     []models.Message
	err     error
}

func (b *blockingSink) Append(_ context.Context, msg models.Message) error {
	<-b.release
	b.mu.Lock()
	defer b.mu.Unlock()
	b.got = append(b.got, msg)
	return b.err
}

func (b *blockingSink) History(context.Context, string, string, int) ([]models.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.Message(nil), b.got...), nil
}

func TestAsyncLogger_DropsWhenFull(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	a := NewAsyncLogger(sink, 1, logger.NewNoOpLogger())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		assert.NoError(t, a.Append(ctx, message(models.SenderUser, string(rune('a'+i)), time.Now())))
	}

	close(sink.release)
	require.NoError(t, a.Close(ctx))

	msgs, err := a.History(ctx, "7", "s-1", 0)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(msgs), 1)
	assert.Less(t, len(msgs), 5)
	assert.Equal(t, "a", msgs[0].Text)
}

func TestAsyncLogger_SinkErrorsAreSwallowed(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{}), err: errors.New("es down")}
	close(sink.release)
	a := NewAsyncLogger(sink, 8, logger.NewNoOpLogger())

	require.NoError(t, a.Append(context.Background(), message(models.SenderAgent, "reply", time.Now())))
	require.NoError(t, a.Close(context.Background()))
	assert.Len(t, sink.got, 1)
}

func texts(msgs []models.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Text
	}
	return out
}
