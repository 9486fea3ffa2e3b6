package intent

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"botforge/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var trainingExamples = []Example{
	{Text: "hello", Intent: "greeting"},
	{Text: "hi there", Intent: "greeting"},
	{Text: "good morning", Intent: "greeting"},
	{Text: "how much does it cost", Intent: "pricing"},
	{Text: "what is the price", Intent: "pricing"},
	{Text: "tell me about your pricing plans", Intent: "pricing"},
	{Text: "when do you open", Intent: "business_hours"},
	{Text: "what are your opening hours", Intent: "business_hours"},
	{Text: "are you open on sunday", Intent: "business_hours"},
}

func TestNaiveBayes_TrainAndClassify(t *testing.T) {
	s := NewTrainedStrategyFromModel(TrainNaiveBayes(trainingExamples, 1.0))

	got, err := s.Classify(context.Background(), "what is the price of the plan")
	require.NoError(t, err)
	assert.Equal(t, "pricing", got.Intent)
	assert.Greater(t, got.Confidence, 0.5)
	assert.LessOrEqual(t, got.Confidence, 1.0)

	got, err = s.Classify(context.Background(), "are you open today")
	require.NoError(t, err)
	assert.Equal(t, "business_hours", got.Intent)
}

func TestNaiveBayes_ProbabilitiesSumToOne(t *testing.T) {
	nb := TrainNaiveBayes(trainingExamples, 1.0)
	probs := nb.PredictProba(Features("completely unseen words"))

	var sum float64
	for _, p := range probs {
		assert.GreaterOrEqual(t, p, 0.0)
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Equal(t, []string{"greeting", "pricing", "business_hours"}, nb.Classes())
}

func TestNearestCentroid_ReportsFullConfidence(t *testing.T) {
	s := NewTrainedStrategyFromModel(TrainNearestCentroid(trainingExamples))

	got, err := s.Classify(context.Background(), "hello there")
	require.NoError(t, err)
	assert.Equal(t, "greeting", got.Intent)
	assert.Equal(t, 1.0, got.Confidence)
}

func TestTrainedStrategy_UnfittedModelFallsBack(t *testing.T) {
	model, err := Artifact{Kind: KindNaiveBayes, Vocabulary: map[string]int{}}.Model()
	require.NoError(t, err)
	require.False(t, model.Fitted())

	got, err := NewTrainedStrategyFromModel(model).Classify(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, models.FallbackResult(), got)
}

func TestTrainedStrategy_ArtifactRoundTripAndMemoization(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")
	require.NoError(t, WriteArtifact(path, TrainNaiveBayes(trainingExamples, 1.0)))

	first, err := LoadModel(path)
	require.NoError(t, err)

	// The cached instance survives the file disappearing.
	require.NoError(t, os.Remove(path))
	second, err := LoadModel(path)
	require.NoError(t, err)
	assert.Same(t, first, second)

	s, err := NewTrainedStrategy(path)
	require.NoError(t, err)
	got, err := s.Classify(context.Background(), "good morning")
	require.NoError(t, err)
	assert.Equal(t, "greeting", got.Intent)
}

func TestTrainedStrategy_MissingArtifact(t *testing.T) {
	_, err := NewTrainedStrategy(filepath.Join(t.TempDir(), "absent.json"))
	assert.ErrorIs(t, err, ErrModelUnavailable)
}

func TestReadArtifact_ShapeMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"kind":"nearest_centroid","classes":["a"],"vocabulary":{"x":0},"centroids":[[1,2]]}`), 0o644))

	_, err := ReadArtifact(path)
	assert.ErrorIs(t, err, ErrModelInvalid)
}

func TestArtifactModel_VocabularyIndexOutOfRange(t *testing.T) {
	tests := []struct {
		name string
		art  Artifact
	}{
		{
			name: "naive bayes index past the rows",
			art: Artifact{
				Kind: KindNaiveBayes, Classes: []string{"a"}, Vocabulary: map[string]int{"x": 0, "y": 5},
				ClassLogPrior: []float64{0}, FeatureLogProb: [][]float64{{-1, -1}}, UnseenLogProb: []float64{-2},
			},
		},
		{
			name: "centroid negative index",
			art: Artifact{
				Kind: KindNearestCentroid, Classes: []string{"a"}, Vocabulary: map[string]int{"x": -1},
				Centroids: [][]float64{{1}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.art.Model()
			assert.ErrorIs(t, err, ErrModelInvalid)
		})
	}
}

func TestParseExamples_PreservesOrder(t *testing.T) {
	examples, err := ParseExamples([]byte(`
intents:
  pricing:
    - how much
  greeting:
    - hello
    - hi
`))
	require.NoError(t, err)
	assert.Equal(t, []Example{
		{Text: "how much", Intent: "pricing"},
		{Text: "hello", Intent: "greeting"},
		{Text: "hi", Intent: "greeting"},
	}, examples)
}

func TestEvaluate(t *testing.T) {
	nb := TrainNaiveBayes(trainingExamples, 1.0)
	eval := Evaluate(func(text string) string { return nb.Predict(Features(text)) }, trainingExamples)

	assert.Equal(t, 1.0, eval.Accuracy)
	require.Len(t, eval.Scores, 3)
	assert.Equal(t, "greeting", eval.Scores[0].Intent)
	assert.Equal(t, 3, eval.Scores[0].Support)
}
