package intent

import (
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// Example is one labelled training utterance.
type Example struct {
	Text   string
	Intent string
}

// ExampleFile is the YAML layout of the training set: intent -> utterances.
type ExampleFile struct {
	Intents yaml.Node `yaml:"intents"`
}

// LoadExamples reads training examples, preserving the file's intent order.
func LoadExamples(path string) ([]Example, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read examples: %w", err)
	}
	return ParseExamples(raw)
}

func ParseExamples(raw []byte) ([]Example, error) {
	var file ExampleFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse examples: %w", err)
	}
	if file.Intents.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parse examples: intents must be a mapping")
	}

	var examples []Example
	nodes := file.Intents.Content
	for i := 0; i+1 < len(nodes); i += 2 {
		label := nodes[i].Value
		var utterances []string
		if err := nodes[i+1].Decode(&utterances); err != nil {
			return nil, fmt.Errorf("parse examples for %q: %w", label, err)
		}
		for _, u := range utterances {
			examples = append(examples, Example{Text: u, Intent: label})
		}
	}
	if len(examples) == 0 {
		return nil, fmt.Errorf("parse examples: no utterances")
	}
	return examples, nil
}

func orderedClasses(examples []Example) []string {
	return lo.Uniq(lo.Map(examples, func(e Example, _ int) string { return e.Intent }))
}

func buildVocabulary(featureSets [][]string) map[string]int {
	all := lo.Uniq(lo.Flatten(featureSets))
	sort.Strings(all)
	vocab := make(map[string]int, len(all))
	for i, f := range all {
		vocab[f] = i
	}
	return vocab
}

// TrainNaiveBayes fits a multinomial naive Bayes model with Laplace smoothing alpha.
func TrainNaiveBayes(examples []Example, alpha float64) *NaiveBayes {
	if alpha <= 0 {
		alpha = 1.0
	}
	classes := orderedClasses(examples)
	featureSets := lo.Map(examples, func(e Example, _ int) []string { return Features(e.Text) })
	vocab := buildVocabulary(featureSets)
	classIdx := make(map[string]int, len(classes))
	for i, c := range classes {
		classIdx[c] = i
	}

	docCounts := make([]float64, len(classes))
	counts := make([][]float64, len(classes))
	totals := make([]float64, len(classes))
	for c := range classes {
		counts[c] = make([]float64, len(vocab))
	}
	for i, e := range examples {
		c := classIdx[e.Intent]
		docCounts[c]++
		for _, f := range featureSets[i] {
			counts[c][vocab[f]]++
			totals[c]++
		}
	}

	// One extra pseudo-feature absorbs everything outside the vocabulary.
	width := float64(len(vocab) + 1)
	nb := &NaiveBayes{
		classes:        classes,
		vocabulary:     vocab,
		classLogPrior:  make([]float64, len(classes)),
		featureLogProb: make([][]float64, len(classes)),
		unseenLogProb:  make([]float64, len(classes)),
	}
	for c := range classes {
		denom := totals[c] + alpha*width
		nb.classLogPrior[c] = math.Log(docCounts[c] / float64(len(examples)))
		nb.unseenLogProb[c] = math.Log(alpha / denom)
		nb.featureLogProb[c] = make([]float64, len(vocab))
		for f := range vocab {
			idx := vocab[f]
			nb.featureLogProb[c][idx] = math.Log((counts[c][idx] + alpha) / denom)
		}
	}
	return nb
}

// TrainNearestCentroid averages the normalized bag-of-words vectors of each class.
func TrainNearestCentroid(examples []Example) *NearestCentroid {
	classes := orderedClasses(examples)
	featureSets := lo.Map(examples, func(e Example, _ int) []string { return Features(e.Text) })
	vocab := buildVocabulary(featureSets)

	centroids := make([][]float64, len(classes))
	for c, class := range classes {
		centroid := make([]float64, len(vocab))
		for i, e := range examples {
			if e.Intent != class {
				continue
			}
			for j, v := range bagOfWords(featureSets[i], vocab) {
				centroid[j] += v
			}
		}
		normalize64(centroid)
		centroids[c] = centroid
	}

	return &NearestCentroid{classes: classes, vocabulary: vocab, centroids: centroids}
}

// IntentScore is the per-intent slice of an evaluation.
type IntentScore struct {
	Intent    string
	Precision float64
	Recall    float64
	Support   int
}

type Evaluation struct {
	Accuracy float64
	Scores   []IntentScore
}

// Evaluate scores a prediction function against labelled examples.
func Evaluate(predict func(text string) string, examples []Example) Evaluation {
	truePos := map[string]int{}
	predicted := map[string]int{}
	support := map[string]int{}
	correct := 0

	for _, e := range examples {
		got := predict(e.Text)
		support[e.Intent]++
		predicted[got]++
		if got == e.Intent {
			truePos[got]++
			correct++
		}
	}

	eval := Evaluation{}
	if len(examples) > 0 {
		eval.Accuracy = float64(correct) / float64(len(examples))
	}
	for _, intent := range orderedClasses(examples) {
		score := IntentScore{Intent: intent, Support: support[intent]}
		if predicted[intent] > 0 {
			score.Precision = float64(truePos[intent]) / float64(predicted[intent])
		}
		if support[intent] > 0 {
			score.Recall = float64(truePos[intent]) / float64(support[intent])
		}
		eval.Scores = append(eval.Scores, score)
	}
	return eval
}
