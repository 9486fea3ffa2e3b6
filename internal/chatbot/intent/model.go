package intent

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

const (
	KindNaiveBayes      = "naive_bayes"
	KindNearestCentroid = "nearest_centroid"
)

// TextModel is a fitted text classifier over token features.
type TextModel interface {
	Kind() string
	Classes() []string
	// Fitted is false for an artifact saved before training produced any class.
	Fitted() bool
	Predict(features []string) string
}

// ProbabilisticModel additionally exposes a distribution over Classes().
type ProbabilisticModel interface {
	TextModel
	PredictProba(features []string) []float64
}

// Artifact is the on-disk form of a trained model.
type Artifact struct {
	Kind       string         `json:"kind"`
	Version    int            `json:"version"`
	Classes    []string       `json:"classes"`
	Vocabulary map[string]int `json:"vocabulary"`

	ClassLogPrior  []float64   `json:"class_log_prior,omitempty"`
	FeatureLogProb [][]float64 `json:"feature_log_prob,omitempty"`
	UnseenLogProb  []float64   `json:"unseen_log_prob,omitempty"`
	Centroids      [][]float64 `json:"centroids,omitempty"`
}

// ReadArtifact decodes an artifact file into a model.
func ReadArtifact(path string) (TextModel, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	var art Artifact
	if err := json.Unmarshal(raw, &art); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrModelInvalid, path, err)
	}
	return art.Model()
}

// WriteArtifact persists a model in the format ReadArtifact expects.
func WriteArtifact(path string, model TextModel) error {
	var art Artifact
	switch m := model.(type) {
	case *NaiveBayes:
		art = m.artifact()
	case *NearestCentroid:
		art = m.artifact()
	default:
		return fmt.Errorf("%w: cannot serialize %T", ErrModelInvalid, model)
	}

	raw, err := json.Marshal(art)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}

// Model validates dimensions and builds the concrete classifier.
func (a Artifact) Model() (TextModel, error) {
	n := len(a.Classes)
	v := len(a.Vocabulary)
	for term, idx := range a.Vocabulary {
		if idx < 0 || idx >= v {
			return nil, fmt.Errorf("%w: vocabulary index %d for %q out of range [0,%d)", ErrModelInvalid, idx, term, v)
		}
	}

	switch a.Kind {
	case KindNaiveBayes:
		if len(a.ClassLogPrior) != n || len(a.FeatureLogProb) != n || len(a.UnseenLogProb) != n {
			return nil, fmt.Errorf("%w: naive bayes shape mismatch", ErrModelInvalid)
		}
		for _, row := range a.FeatureLogProb {
			if len(row) != v {
				return nil, fmt.Errorf("%w: naive bayes feature row has %d entries, vocabulary has %d", ErrModelInvalid, len(row), v)
			}
		}
		return &NaiveBayes{
			classes:        a.Classes,
			vocabulary:     a.Vocabulary,
			classLogPrior:  a.ClassLogPrior,
			featureLogProb: a.FeatureLogProb,
			unseenLogProb:  a.UnseenLogProb,
		}, nil

	case KindNearestCentroid:
		if len(a.Centroids) != n {
			return nil, fmt.Errorf("%w: centroid count mismatch", ErrModelInvalid)
		}
		for _, row := range a.Centroids {
			if len(row) != v {
				return nil, fmt.Errorf("%w: centroid has %d entries, vocabulary has %d", ErrModelInvalid, len(row), v)
			}
		}
		return &NearestCentroid{classes: a.Classes, vocabulary: a.Vocabulary, centroids: a.Centroids}, nil

	default:
		return nil, fmt.Errorf("%w: unknown model kind %q", ErrModelInvalid, a.Kind)
	}
}

// NaiveBayes is a multinomial naive Bayes classifier with additive smoothing.
type NaiveBayes struct {
	classes        []string
	vocabulary     map[string]int
	classLogPrior  []float64
	featureLogProb [][]float64
	// unseenLogProb scores features outside the vocabulary so short novel messages still rank.
	unseenLogProb []float64
}

func (m *NaiveBayes) Kind() string      { return KindNaiveBayes }
func (m *NaiveBayes) Classes() []string { return m.classes }
func (m *NaiveBayes) Fitted() bool      { return len(m.classes) > 0 }

func (m *NaiveBayes) jointLogLikelihood(features []string) []float64 {
	scores := make([]float64, len(m.classes))
	copy(scores, m.classLogPrior)
	for _, f := range features {
		idx, ok := m.vocabulary[f]
		for c := range scores {
			if ok {
				scores[c] += m.featureLogProb[c][idx]
			} else {
				scores[c] += m.unseenLogProb[c]
			}
		}
	}
	return scores
}

func (m *NaiveBayes) PredictProba(features []string) []float64 {
	scores := m.jointLogLikelihood(features)
	return softmax(scores)
}

func (m *NaiveBayes) Predict(features []string) string {
	if !m.Fitted() {
		return ""
	}
	return m.classes[argmax(m.jointLogLikelihood(features))]
}

func (m *NaiveBayes) artifact() Artifact {
	return Artifact{
		Kind:           KindNaiveBayes,
		Version:        1,
		Classes:        m.classes,
		Vocabulary:     m.vocabulary,
		ClassLogPrior:  m.classLogPrior,
		FeatureLogProb: m.featureLogProb,
		UnseenLogProb:  m.unseenLogProb,
	}
}

// NearestCentroid assigns the class whose mean feature vector has the highest cosine similarity.
// It has no calibrated probabilities.
type NearestCentroid struct {
	classes    []string
	vocabulary map[string]int
	centroids  [][]float64
}

func (m *NearestCentroid) Kind() string      { return KindNearestCentroid }
func (m *NearestCentroid) Classes() []string { return m.classes }
func (m *NearestCentroid) Fitted() bool      { return len(m.classes) > 0 }

func (m *NearestCentroid) Predict(features []string) string {
	if !m.Fitted() {
		return ""
	}
	vec := bagOfWords(features, m.vocabulary)
	scores := make([]float64, len(m.centroids))
	for c, centroid := range m.centroids {
		scores[c] = dot64(vec, centroid)
	}
	return m.classes[argmax(scores)]
}

func (m *NearestCentroid) artifact() Artifact {
	return Artifact{
		Kind:       KindNearestCentroid,
		Version:    1,
		Classes:    m.classes,
		Vocabulary: m.vocabulary,
		Centroids:  m.centroids,
	}
}

func bagOfWords(features []string, vocabulary map[string]int) []float64 {
	vec := make([]float64, len(vocabulary))
	for _, f := range features {
		if idx, ok := vocabulary[f]; ok {
			vec[idx]++
		}
	}
	normalize64(vec)
	return vec
}

func softmax(scores []float64) []float64 {
	if len(scores) == 0 {
		return scores
	}
	maxScore := scores[argmax(scores)]
	out := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		out[i] = math.Exp(s - maxScore)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// argmax returns the first index holding the maximum.
func argmax(values []float64) int {
	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[best] {
			best = i
		}
	}
	return best
}

func dot64(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func normalize64(vec []float64) {
	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
}
