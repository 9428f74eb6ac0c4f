package usecase

import (
	"context"

	"supportrag/internal/adapter/retriever"
	"supportrag/internal/confidence"
	"supportrag/internal/domain"
	"supportrag/internal/logger"
)

// DraftOptions tune retrieval for draft preparation.
type DraftOptions struct {
	TopK                int
	CandidateMultiplier int
	// RerankTopK and RerankThreshold apply only when a reranker is set.
	RerankTopK      int
	RerankThreshold float64
	Diversity       bool
}

func DefaultDraftOptions() DraftOptions {
	return DraftOptions{TopK: 5, CandidateMultiplier: 2, RerankTopK: 5}
}

// Draft is everything the reply generator needs for one ticket.
type Draft struct {
	Context        *domain.RetrievalContext `json:"context"`
	Confidence     domain.ConfidenceResult  `json:"confidence"`
	PromptContext  string                   `json:"prompt_context"`
	ContextSources []domain.ContextSource   `json:"context_sources"`
	Reranked       bool                     `json:"reranked"`
}

// DraftService prepares retrieval context and confidence for a ticket.
type DraftService struct {
	retriever  *retriever.UnifiedRetriever
	reranker   *retriever.Reranker
	confidence *confidence.Engine
	opts       DraftOptions
	log        logger.Logger
}

// NewDraftService builds the service. reranker may be nil.
func NewDraftService(r *retriever.UnifiedRetriever, reranker *retriever.Reranker, ce *confidence.Engine, opts DraftOptions, log logger.Logger) *DraftService {
	if log == nil {
		log = logger.Discard()
	}
	def := DefaultDraftOptions()
	if opts.TopK <= 0 {
		opts.TopK = def.TopK
	}
	if opts.CandidateMultiplier <= 0 {
		opts.CandidateMultiplier = def.CandidateMultiplier
	}
	if opts.RerankTopK <= 0 {
		opts.RerankTopK = opts.TopK
	}
	return &DraftService{retriever: r, reranker: reranker, confidence: ce, opts: opts, log: log}
}

// PrepareDraft retrieves context for the ticket, optionally reranks the
// merged list, and scores confidence. A failing reranker is logged and the
// merged list is used as retrieved.
func (s *DraftService) PrepareDraft(ctx context.Context, tenantID string, ticket domain.Ticket) (*Draft, error) {
	query := ticket.Subject + " " + ticket.Content
	rc, err := s.retriever.Retrieve(ctx, tenantID, query, s.opts.TopK*s.opts.CandidateMultiplier)
	if err != nil {
		return nil, err
	}

	draft := &Draft{Context: rc}
	if s.reranker != nil && len(rc.Merged) > 0 {
		var reranked []domain.RetrievalResult
		if s.opts.Diversity {
			reranked, err = s.reranker.RerankWithDiversity(ctx, query, rc.Merged, s.opts.RerankTopK, s.opts.RerankThreshold)
		} else {
			reranked, err = s.reranker.Rerank(ctx, query, rc.Merged, s.opts.RerankTopK, s.opts.RerankThreshold)
		}
		if err != nil {
			s.log.Warn("rerank failed, using merged results", "tenant", tenantID, "model", s.reranker.ModelName(), "error", err)
		} else {
			rc.Merged = reranked
			draft.Reranked = true
		}
	}
	if !draft.Reranked && len(rc.Merged) > s.opts.TopK {
		rc.Merged = rc.Merged[:s.opts.TopK]
	}

	draft.Confidence = s.confidence.Score(rc, query)
	draft.PromptContext = retriever.FormatForPrompt(rc)
	draft.ContextSources = rc.ContextSources()

	s.log.Debug("draft prepared", "tenant", tenantID, "ticket", ticket.ID,
		"confidence", draft.Confidence.Score, "intent", draft.Confidence.Breakdown.DetectedIntent)
	return draft, nil
}
