package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"supportrag/config"
	"supportrag/internal/adapter/embedding"
	"supportrag/internal/adapter/store"
	"supportrag/internal/domain"
	"supportrag/internal/port"
	"supportrag/internal/usecase"
)

func main() {
	dir := flag.String("dir", ".", "project directory holding the engine database")
	tenant := flag.String("tenant", "", "tenant id")
	query := flag.String("q", "", "query to test")
	topK := flag.Int("k", 5, "results per source")
	flag.Parse()

	if *query == "" || *tenant == "" {
		fmt.Println("Usage: go run ./cmd/benchmark -dir ./project -tenant acme -q \"query\"")
		fmt.Println("\nReports:")
		fmt.Println("  1. Per-source similarity of the best hits")
		fmt.Println("  2. Merged ranking under the tenant's weights")
		fmt.Println("  3. Draft confidence and its components")
		os.Exit(1)
	}

	if err := config.LoadEnv(*dir); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading .env: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.LoadFromDir(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	st, err := store.NewBoltStore(cfg.DBPath(*dir))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening engine store: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	embedder, err := setupEmbedding(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Embedding not available: %v\n", err)
		os.Exit(1)
	}

	engine, err := usecase.NewEngine(usecase.EngineDeps{
		Embedder:  embedder,
		Indexes:   st,
		Weights:   st,
		Approvals: st,
	}, benchmarkOptions(cfg))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building engine: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	fmt.Println("RETRIEVAL BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Model: %s (%s), dimension %d\n", cfg.Embedding.Model, cfg.Embedding.Provider, embedder.Dimension())
	fmt.Printf("Query: %q, tenant: %s\n", *query, *tenant)
	fmt.Println(strings.Repeat("-", 70))

	rc, err := engine.Retrieve(ctx, *tenant, *query, *topK)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Retrieve error: %v\n", err)
		os.Exit(1)
	}

	for _, src := range domain.AllSources {
		results := rc.For(src)
		fmt.Printf("\n%s: %d hits\n", src, len(results))
		for i, r := range results {
			fmt.Printf("  %d. [%s %.3f] %s\n", i+1, rating(r.RawScore), r.RawScore, r.SourceID)
			fmt.Printf("     %s\n", preview(r.Content))
		}
	}

	weights, err := engine.GetWeights(ctx, *tenant)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Weights error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println()
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("MERGED (weights %.2f/%.2f/%.2f/%.2f):\n", weights.GlobalKB, weights.TenantKB, weights.Examples, weights.Corrections)
	for i, r := range rc.Merged {
		fmt.Printf("  %d. %-10s %.3f (raw %.3f) %s\n", i+1, r.SourceType, r.Score, r.RawScore, r.SourceID)
	}

	conf := engine.ScoreConfidence(rc, *query)
	b := conf.Breakdown
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("QUALITY METRICS:\n")
	fmt.Printf("  Confidence:         %.1f (%s)\n", conf.Score, conf.Level)
	fmt.Printf("  Intent:             %s (%.2f)\n", b.DetectedIntent, b.IntentCertainty)
	fmt.Printf("  Example similarity: %.3f\n", b.ExampleSimilarity)
	fmt.Printf("  KB similarity:      %.3f\n", b.KBSimilarity)
	fmt.Printf("  Correction safety:  %.3f\n", b.CorrectionSafety)
}

func benchmarkOptions(cfg *config.Config) usecase.EngineOptions {
	opts := usecase.DefaultEngineOptions()
	if cfg.Retrieve.CorrectionsTopK > 0 {
		opts.CorrectionsTopK = cfg.Retrieve.CorrectionsTopK
	}
	return opts
}

func rating(similarity float64) string {
	switch {
	case similarity > 0.7:
		return "HIGH"
	case similarity > 0.5:
		return "GOOD"
	case similarity > 0.3:
		return "OK"
	}
	return "LOW"
}

func preview(text string) string {
	text = strings.ReplaceAll(text, "\n", " ")
	if r := []rune(text); len(r) > 150 {
		return string(r[:150]) + "..."
	}
	return text
}

func setupEmbedding(cfg *config.Config) (port.Embedder, error) {
	switch cfg.Embedding.Provider {
	case "hash":
		return embedding.NewHashEmbedder(cfg.Embedding.Dimension), nil
	case "openai":
		e, err := embedding.NewOpenAIEmbedder(embedding.OpenAIOptions{
			APIKeyEnv: cfg.Embedding.APIKeyEnv,
			Model:     cfg.Embedding.Model,
			BaseURL:   cfg.Embedding.BaseURL,
			Dimension: cfg.Embedding.Dimension,
			BatchSize: cfg.Embedding.BatchSize,
		})
		if err != nil {
			return nil, fmt.Errorf("embedder init failed: %w", err)
		}
		return e, nil
	}
	return nil, fmt.Errorf("unsupported provider: %s", cfg.Embedding.Provider)
}
