package intent

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Corpus is the precomputed example space: row i of Embeddings is labelled Labels[i].
type Corpus struct {
	Embeddings [][]float32
	Labels     []string
}

func (c *Corpus) Len() int {
	return len(c.Labels)
}

// Dimensions is zero for an empty corpus.
func (c *Corpus) Dimensions() int {
	if len(c.Embeddings) == 0 {
		return 0
	}
	return len(c.Embeddings[0])
}

// Validate checks the two parallel artifacts agree and re-normalizes every row.
func (c *Corpus) Validate() error {
	if len(c.Embeddings) != len(c.Labels) {
		return fmt.Errorf("%w: %d embeddings but %d labels", ErrModelInvalid, len(c.Embeddings), len(c.Labels))
	}
	if len(c.Labels) == 0 {
		return fmt.Errorf("%w: corpus is empty", ErrModelInvalid)
	}
	dims := c.Dimensions()
	for i, row := range c.Embeddings {
		if len(row) != dims {
			return fmt.Errorf("%w: row %d has %d dimensions, expected %d", ErrModelInvalid, i, len(row), dims)
		}
		Normalize32(row)
	}
	return nil
}

type corpusEntry struct {
	once   sync.Once
	corpus *Corpus
	err    error
}

var corpusCache sync.Map

// LoadCorpus reads the embeddings and labels artifacts once per process.
func LoadCorpus(embeddingsPath, labelsPath string) (*Corpus, error) {
	a, _ := filepath.Abs(embeddingsPath)
	b, _ := filepath.Abs(labelsPath)

	v, _ := corpusCache.LoadOrStore(a+"|"+b, &corpusEntry{})
	entry := v.(*corpusEntry)
	entry.once.Do(func() {
		entry.corpus, entry.err = readCorpus(embeddingsPath, labelsPath)
	})
	return entry.corpus, entry.err
}

func readCorpus(embeddingsPath, labelsPath string) (*Corpus, error) {
	var c Corpus
	if err := readJSON(embeddingsPath, &c.Embeddings); err != nil {
		return nil, err
	}
	if err := readJSON(labelsPath, &c.Labels); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// WriteCorpus writes the two parallel artifacts.
func WriteCorpus(c *Corpus, embeddingsPath, labelsPath string) error {
	if err := writeJSON(embeddingsPath, c.Embeddings); err != nil {
		return err
	}
	return writeJSON(labelsPath, c.Labels)
}

func readJSON(path string, dst interface{}) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrModelInvalid, path, err)
	}
	return nil
}

func writeJSON(path string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}
