// cmd/tools/precompute-intents/main.go
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/fatih/color"

	"botforge/internal/chatbot/intent"
	"botforge/internal/common/config"
)

func main() {
	configPath := flag.String("config", "", "Config file (defaults to configs/config.yaml lookup)")
	examplesPath := flag.String("examples", "", "Training examples YAML (defaults to intent.examples_path)")
	embeddingsPath := flag.String("embeddings", "", "Embeddings output (defaults to intent.embeddings_path)")
	labelsPath := flag.String("labels", "", "Labels output (defaults to intent.labels_path)")
	batchSize := flag.Int("batch", 64, "Examples encoded per request")
	timeout := flag.Duration("timeout", 10*time.Minute, "Overall encoding timeout")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fail("Failed to load config: %v", err)
	}
	if *examplesPath == "" {
		*examplesPath = cfg.Intent.ExamplesPath
	}
	if *embeddingsPath == "" {
		*embeddingsPath = cfg.Intent.EmbeddingsPath
	}
	if *labelsPath == "" {
		*labelsPath = cfg.Intent.LabelsPath
	}

	examples, err := intent.LoadExamples(*examplesPath)
	if err != nil {
		fail("Failed to load examples: %v", err)
	}
	if len(examples) == 0 {
		fail("No examples found in %s", *examplesPath)
	}

	encoder, err := intent.NewEncoder(cfg.Intent.Encoder)
	if err != nil {
		fail("Failed to create encoder: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	start := time.Now()
	corpus, err := intent.BuildCorpus(ctx, encoder, examples, *batchSize)
	if err != nil {
		fail("Failed to encode examples: %v", err)
	}
	if err := intent.WriteCorpus(corpus, *embeddingsPath, *labelsPath); err != nil {
		fail("Failed to write corpus: %v", err)
	}

	color.New(color.FgCyan).Printf("Encoded %d examples with %s (%d dimensions) in %s\n",
		corpus.Len(), encoder.Name(), corpus.Dimensions(), time.Since(start).Round(time.Millisecond))
	color.New(color.FgGreen).Printf("Wrote %s and %s\n", *embeddingsPath, *labelsPath)
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
