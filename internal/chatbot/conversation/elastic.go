package conversation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"botforge/internal/common/logger"
	"botforge/internal/models"
)

const indexMapping = `{
  "mappings": {
    "properties": {
      "id":             {"type": "keyword"},
      "organisationId": {"type": "keyword"},
      "sessionId":      {"type": "keyword"},
      "sender":         {"type": "keyword"},
      "text":           {"type": "text"},
      "language":       {"type": "keyword"},
      "intent":         {"type": "keyword"},
      "timestamp":      {"type": "date"},
      "seq":            {"type": "long"}
    }
  }
}`

// ElasticLogger stores one document per message in a single index.
type ElasticLogger struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewElasticLogger(client *elasticsearch.Client, index string, log logger.Logger) *ElasticLogger {
	return &ElasticLogger{
		client: client,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "conversation-elastic", "index": index}),
	}
}

// EnsureIndex creates the index with its mapping when it does not exist yet.
func (e *ElasticLogger) EnsureIndex(ctx context.Context) error {
	res, err := esapi.IndicesExistsRequest{Index: []string{e.index}}.Do(ctx, e.client)
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	drain(res)
	if res.StatusCode == http.StatusOK {
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("check index: unexpected status %s", res.Status())
	}

	res, err = esapi.IndicesCreateRequest{
		Index: e.index,
		Body:  bytes.NewReader([]byte(indexMapping)),
	}.Do(ctx, e.client)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer drain(res)
	if res.IsError() {
		return fmt.Errorf("create index: %s", res.Status())
	}

	e.logger.Info("created conversation index", nil)
	return nil
}

func (e *ElasticLogger) Append(ctx context.Context, msg models.Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAppendFailed, err)
	}

	res, err := esapi.IndexRequest{
		Index:      e.index,
		DocumentID: msg.ID,
		Body:       bytes.NewReader(body),
	}.Do(ctx, e.client)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAppendFailed, err)
	}
	defer drain(res)

	if res.IsError() {
		return fmt.Errorf("%w: %s", ErrAppendFailed, res.Status())
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source models.Message `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (e *ElasticLogger) History(ctx context.Context, orgID, sessionID string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []interface{}{
					map[string]interface{}{"term": map[string]interface{}{"organisationId": orgID}},
					map[string]interface{}{"term": map[string]interface{}{"sessionId": sessionID}},
				},
			},
		},
		"sort": []interface{}{
			map[string]interface{}{"timestamp": map[string]interface{}{"order": "desc"}},
			map[string]interface{}{"seq": map[string]interface{}{"order": "desc", "unmapped_type": "long"}},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	res, err := esapi.SearchRequest{
		Index: []string{e.index},
		Body:  bytes.NewReader(body),
		Size:  &limit,
	}.Do(ctx, e.client)
	if err != nil {
		return nil, fmt.Errorf("search history: %w", err)
	}
	defer drain(res)

	if res.StatusCode == http.StatusNotFound {
		return []models.Message{}, nil
	}
	if res.IsError() {
		return nil, fmt.Errorf("search history: %s", res.Status())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}

	// Hits come newest first.
	out := make([]models.Message, len(parsed.Hits.Hits))
	for i, hit := range parsed.Hits.Hits {
		out[len(out)-1-i] = hit.Source
	}
	return out, nil
}

func drain(res *esapi.Response) {
	if res != nil && res.Body != nil {
		_, _ = io.Copy(io.Discard, res.Body)
		_ = res.Body.Close()
	}
}
