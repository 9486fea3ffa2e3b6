// cmd/tools/intent-trainer/main.go
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"botforge/internal/chatbot/intent"
	"botforge/internal/common/config"
)

func main() {
	configPath := flag.String("config", "", "Config file (defaults to configs/config.yaml lookup)")
	examplesPath := flag.String("examples", "", "Training examples YAML (defaults to intent.examples_path)")
	outPath := flag.String("out", "", "Artifact output path (defaults to intent.model_path)")
	kind := flag.String("model", intent.KindNaiveBayes, "Model kind: naive_bayes or nearest_centroid")
	alpha := flag.Float64("alpha", 1.0, "Additive smoothing for naive_bayes")
	holdout := flag.Int("holdout", 0, "Hold out every n-th example for evaluation (0 evaluates on the training set)")
	dryRun := flag.Bool("dry-run", false, "Train and evaluate without writing the artifact")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fail("Failed to load config: %v", err)
	}
	if *examplesPath == "" {
		*examplesPath = cfg.Intent.ExamplesPath
	}
	if *outPath == "" {
		*outPath = cfg.Intent.ModelPath
	}

	examples, err := intent.LoadExamples(*examplesPath)
	if err != nil {
		fail("Failed to load examples: %v", err)
	}
	if len(examples) == 0 {
		fail("No examples found in %s", *examplesPath)
	}

	train, eval := split(examples, *holdout)

	var model intent.TextModel
	switch *kind {
	case intent.KindNaiveBayes:
		model = intent.TrainNaiveBayes(train, *alpha)
	case intent.KindNearestCentroid:
		model = intent.TrainNearestCentroid(train)
	default:
		fail("Unknown model kind %q", *kind)
	}

	color.New(color.FgCyan).Printf("Trained %s on %d examples across %d intents\n",
		model.Kind(), len(train), len(model.Classes()))

	result := intent.Evaluate(func(text string) string {
		return model.Predict(intent.Features(text))
	}, eval)
	printEvaluation(result, len(eval))

	if *dryRun {
		color.New(color.FgYellow).Println("Dry run, artifact not written")
		return
	}
	if err := intent.WriteArtifact(*outPath, model); err != nil {
		fail("Failed to write artifact: %v", err)
	}
	color.New(color.FgGreen).Printf("Wrote %s\n", *outPath)
}

// split returns every n-th example as the evaluation set. n <= 1 evaluates on everything.
func split(examples []intent.Example, n int) (train, eval []intent.Example) {
	if n <= 1 {
		return examples, examples
	}
	for i, e := range examples {
		if (i+1)%n == 0 {
			eval = append(eval, e)
			continue
		}
		train = append(train, e)
	}
	if len(eval) == 0 {
		return examples, examples
	}
	return train, eval
}

func printEvaluation(result intent.Evaluation, n int) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Intent", "Support", "Precision", "Recall"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, s := range result.Scores {
		table.Append([]string{
			s.Intent,
			strconv.Itoa(s.Support),
			fmt.Sprintf("%.3f", s.Precision),
			fmt.Sprintf("%.3f", s.Recall),
		})
	}
	table.Render()

	accuracy := color.New(color.FgGreen)
	if result.Accuracy < 0.8 {
		accuracy = color.New(color.FgYellow)
	}
	accuracy.Printf("Accuracy %.3f over %d examples\n", result.Accuracy, n)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func fail(format string, args ...interface{}) {
	color.New(color.FgRed).Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
