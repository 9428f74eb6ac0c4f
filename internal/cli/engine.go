package cli

import (
	"fmt"
	"time"

	"supportrag/config"
	"supportrag/internal/adapter/cache"
	"supportrag/internal/adapter/chunker"
	"supportrag/internal/adapter/embedding"
	"supportrag/internal/adapter/fs"
	"supportrag/internal/adapter/retriever"
	"supportrag/internal/adapter/store"
	"supportrag/internal/port"
	"supportrag/internal/usecase"
)

const retryBase = 500 * time.Millisecond

// openEngine opens the project database and wires an engine from the
// config. rewrite is set by commands that re-create indexes; they clear
// stale snapshots instead of only warning about them. Callers close the
// returned store.
func openEngine(rewrite bool) (*usecase.Engine, *store.BoltStore, error) {
	cfg := GetConfig()
	dir := GetRootDir()

	if err := cfg.EnsureDataDir(dir); err != nil {
		return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	st, err := store.NewBoltStore(cfg.DBPath(dir))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open engine store: %w", err)
	}

	if err := checkSchema(st, cfg, rewrite); err != nil {
		st.Close()
		return nil, nil, err
	}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	scorer, err := newScorer(cfg, embedder)
	if err != nil {
		st.Close()
		return nil, nil, err
	}

	walker := fs.NewWalker(cfg.Ingest.Includes, cfg.Ingest.Excludes)
	engine, err := usecase.NewEngine(usecase.EngineDeps{
		Embedder:  embedder,
		Indexes:   st,
		Weights:   st,
		Approvals: st,
		Scorer:    scorer,
		Walker:    walker,
		Reader:    walker,
		Chunker:   chunker.NewMarkdownChunker(cfg.Chunk.Size, cfg.Chunk.Overlap),
		Logger:    log,
	}, engineOptions(cfg))
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	return engine, st, nil
}

func engineOptions(cfg *config.Config) usecase.EngineOptions {
	return usecase.EngineOptions{
		Draft: usecase.DraftOptions{
			TopK:                cfg.Retrieve.TopK,
			CandidateMultiplier: cfg.Retrieve.CandidateMultiplier,
			RerankTopK:          cfg.Rerank.TopK,
			RerankThreshold:     cfg.Rerank.ScoreThreshold,
			Diversity:           cfg.Rerank.Diversity,
		},
		RerankDrafts:    cfg.Rerank.Enabled,
		CorrectionsTopK: cfg.Retrieve.CorrectionsTopK,
		WindowDays:      cfg.Tuning.WindowDays,
		MinConfidence:   cfg.Tuning.MinConfidence,
	}
}

// checkSchema records the schema version on first use and detects an
// embedding configuration change, which invalidates every stored vector.
func checkSchema(st *store.BoltStore, cfg *config.Config, rewrite bool) error {
	result, err := st.CheckMigration(cfg)
	if err != nil {
		return fmt.Errorf("failed to check migration: %w", err)
	}

	switch {
	case result.NeedsRebuild && rewrite:
		log.Warn("clearing stale indexes", "reason", result.Reason)
		if err := st.ClearIndexes(); err != nil {
			return fmt.Errorf("failed to clear indexes: %w", err)
		}
		log.Warn("re-ingest the knowledge bases and run rebuild for every tenant")
	case result.NeedsRebuild:
		log.Warn("indexes are stale, run ingest and rebuild", "reason", result.Reason)
		return nil
	case result.NeedsMigration:
		log.Info("running schema migration", "reason", result.Reason)
	default:
		return nil
	}

	if err := st.Migrate(cfg); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// newEmbedder builds the configured provider behind the retry and cache
// decorators.
func newEmbedder(cfg *config.Config) (port.Embedder, error) {
	var embedder port.Embedder
	switch cfg.Embedding.Provider {
	case "openai":
		e, err := embedding.NewOpenAIEmbedder(embedding.OpenAIOptions{
			APIKeyEnv: cfg.Embedding.APIKeyEnv,
			Model:     cfg.Embedding.Model,
			BaseURL:   cfg.Embedding.BaseURL,
			Dimension: cfg.Embedding.Dimension,
			BatchSize: cfg.Embedding.BatchSize,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create embedder: %w", err)
		}
		embedder = e
	case "hash":
		embedder = embedding.NewHashEmbedder(cfg.Embedding.Dimension)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Embedding.Provider)
	}

	if cfg.Embedding.MaxRetries > 0 {
		embedder = embedding.NewRetryingEmbedder(embedder, cfg.Embedding.MaxRetries, retryBase)
	}
	if cfg.Embedding.CacheSize > 0 {
		embedder = cache.NewEmbeddingCache(embedder, cfg.Embedding.CacheSize, cfg.Embedding.CacheTTL)
	}
	return embedder, nil
}

func newScorer(cfg *config.Config, embedder port.Embedder) (port.RelevanceScorer, error) {
	switch cfg.Rerank.Provider {
	case "cohere":
		s, err := retriever.NewCohereScorer(retriever.CohereOptions{
			APIKeyEnv: cfg.Rerank.APIKeyEnv,
			Model:     cfg.Rerank.Model,
			BaseURL:   cfg.Rerank.BaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create reranker: %w", err)
		}
		return s, nil
	case "term":
		return retriever.NewTermOverlapScorer(), nil
	case "cosine", "":
		return retriever.NewCosineScorer(embedder), nil
	}
	return nil, fmt.Errorf("unsupported rerank provider: %s", cfg.Rerank.Provider)
}
