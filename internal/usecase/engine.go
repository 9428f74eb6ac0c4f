package usecase

import (
	"context"
	"errors"

	"supportrag/internal/adapter/retriever"
	"supportrag/internal/adapter/vectorindex"
	"supportrag/internal/confidence"
	"supportrag/internal/domain"
	"supportrag/internal/editdiff"
	"supportrag/internal/logger"
	"supportrag/internal/port"
)

// EngineDeps are the collaborators of an Engine. Scorer, Walker, Reader and
// Chunker are optional.
type EngineDeps struct {
	Embedder  port.Embedder
	Indexes   port.IndexStore
	Weights   port.WeightStore
	Approvals port.ApprovalStore
	Scorer    port.RelevanceScorer
	Walker    port.FileWalker
	Reader    port.FileReader
	Chunker   port.Chunker
	Logger    logger.Logger
}

type EngineOptions struct {
	Draft           DraftOptions
	RerankDrafts    bool
	CorrectionsTopK int
	WindowDays      int
	MinConfidence   float64
}

func DefaultEngineOptions() EngineOptions {
	return EngineOptions{
		Draft:           DefaultDraftOptions(),
		CorrectionsTopK: retriever.DefaultCorrectionsTopK,
		WindowDays:      DefaultWindowDays,
		MinConfidence:   DefaultMinConfidence,
	}
}

// Engine wires retrieval, confidence and learning around one index registry.
type Engine struct {
	Registry   *vectorindex.Registry
	Weights    *WeightService
	Retriever  *retriever.UnifiedRetriever
	Reranker   *retriever.Reranker
	Confidence *confidence.Engine
	Learning   *LearningLoop
	Tuner      *WeightTuner
	Drafts     *DraftService
	Analytics  *Analytics
	// Ingest is nil unless Walker, Reader and Chunker are provided.
	Ingest *KBIngestor
}

func NewEngine(deps EngineDeps, opts EngineOptions) (*Engine, error) {
	if deps.Embedder == nil || deps.Indexes == nil || deps.Weights == nil || deps.Approvals == nil {
		return nil, errors.New("engine requires an embedder and index, weight and approval stores")
	}
	log := deps.Logger
	if log == nil {
		log = logger.Discard()
	}

	registry := vectorindex.NewRegistry(deps.Embedder, deps.Indexes, vectorindex.WithLogger(log))
	weights := NewWeightService(deps.Weights, log)
	unified, err := retriever.NewUnifiedRetriever(
		retriever.NewSourceSearchers(registry),
		weights,
		retriever.WithCorrectionsTopK(opts.CorrectionsTopK),
		retriever.WithRetrieverLogger(log),
	)
	if err != nil {
		return nil, err
	}

	scorer := deps.Scorer
	if scorer == nil {
		scorer = retriever.NewCosineScorer(deps.Embedder)
	}
	reranker := retriever.NewReranker(scorer)
	ce := confidence.NewEngine()

	var draftReranker *retriever.Reranker
	if opts.RerankDrafts {
		draftReranker = reranker
	}

	e := &Engine{
		Registry:   registry,
		Weights:    weights,
		Retriever:  unified,
		Reranker:   reranker,
		Confidence: ce,
		Learning:   NewLearningLoop(registry, deps.Approvals, log),
		Tuner:      NewWeightTuner(deps.Approvals, weights, log, WithWindowDays(opts.WindowDays), WithMinConfidence(opts.MinConfidence)),
		Drafts:     NewDraftService(unified, draftReranker, ce, opts.Draft, log),
		Analytics:  NewAnalytics(deps.Approvals),
	}
	if deps.Walker != nil && deps.Reader != nil && deps.Chunker != nil {
		e.Ingest = NewKBIngestor(registry, deps.Walker, deps.Reader, deps.Chunker, log)
	}
	return e, nil
}

func (e *Engine) Retrieve(ctx context.Context, tenantID, query string, topK int) (*domain.RetrievalContext, error) {
	return e.Retriever.Retrieve(ctx, tenantID, query, topK)
}

func (e *Engine) Rerank(ctx context.Context, query string, results []domain.RetrievalResult, topK int, threshold float64) ([]domain.RetrievalResult, error) {
	return e.Reranker.Rerank(ctx, query, results, topK, threshold)
}

func (e *Engine) RerankWithDiversity(ctx context.Context, query string, results []domain.RetrievalResult, topK int, threshold float64) ([]domain.RetrievalResult, error) {
	return e.Reranker.RerankWithDiversity(ctx, query, results, topK, threshold)
}

func (e *Engine) ScoreConfidence(rc *domain.RetrievalContext, ticketText string) domain.ConfidenceResult {
	return e.Confidence.Score(rc, ticketText)
}

func (e *Engine) AnalyzeEdit(original, edited string) domain.EditAnalysis {
	return editdiff.Analyze(original, edited)
}

func (e *Engine) PrepareDraft(ctx context.Context, tenantID string, ticket domain.Ticket) (*Draft, error) {
	return e.Drafts.PrepareDraft(ctx, tenantID, ticket)
}

func (e *Engine) OnApprove(ctx context.Context, tenantID string, ticket domain.Ticket, draft, final string, opts ...ApproveOption) (*ApprovalResult, error) {
	return e.Learning.OnApprove(ctx, tenantID, ticket, draft, final, opts...)
}

func (e *Engine) RebuildIndex(ctx context.Context, tenantID string, progress ProgressFunc) (*RebuildResult, error) {
	return e.Learning.Rebuild(ctx, tenantID, progress)
}

func (e *Engine) RecommendWeights(ctx context.Context, tenantID string, windowDays int) (domain.WeightRecommendation, error) {
	return e.Tuner.Recommend(ctx, tenantID, windowDays)
}

func (e *Engine) ApplyRecommendedWeights(ctx context.Context, tenantID string) (domain.ApplyResult, error) {
	return e.Tuner.Apply(ctx, tenantID)
}

func (e *Engine) GetWeights(ctx context.Context, tenantID string) (domain.SourceWeights, error) {
	return e.Weights.GetWeights(ctx, tenantID)
}

func (e *Engine) SetWeights(ctx context.Context, tenantID string, w domain.SourceWeights) (domain.SourceWeights, error) {
	return e.Weights.SetWeights(ctx, tenantID, w)
}
