package retriever

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"
	"supportrag/internal/domain"
	"supportrag/internal/logger"
	"supportrag/internal/port"
)

// DefaultCorrectionsTopK caps correction hits; they warn rather than inform.
const DefaultCorrectionsTopK = 3

// WeightProvider returns the normalized source weights of a tenant.
type WeightProvider interface {
	GetWeights(ctx context.Context, tenantID string) (domain.SourceWeights, error)
}

// UnifiedRetriever fans a query out to the four source searchers and merges
// the results by tenant source weight.
type UnifiedRetriever struct {
	searchers       [domain.NumSources]port.SourceSearcher
	weights         WeightProvider
	correctionsTopK int
	log             logger.Logger
}

type UnifiedOption func(*UnifiedRetriever)

func WithCorrectionsTopK(k int) UnifiedOption {
	return func(r *UnifiedRetriever) {
		if k > 0 {
			r.correctionsTopK = k
		}
	}
}

func WithRetrieverLogger(l logger.Logger) UnifiedOption {
	return func(r *UnifiedRetriever) { r.log = l }
}

// NewUnifiedRetriever requires exactly one searcher per source type.
func NewUnifiedRetriever(searchers []port.SourceSearcher, weights WeightProvider, opts ...UnifiedOption) (*UnifiedRetriever, error) {
	r := &UnifiedRetriever{
		weights:         weights,
		correctionsTopK: DefaultCorrectionsTopK,
		log:             logger.Discard(),
	}
	for _, s := range searchers {
		src := s.Source()
		if !src.Valid() {
			return nil, fmt.Errorf("%w: %d", domain.ErrUnknownSourceType, uint8(src))
		}
		if r.searchers[src] != nil {
			return nil, fmt.Errorf("duplicate searcher for %s", src)
		}
		r.searchers[src] = s
	}
	for _, src := range domain.AllSources {
		if r.searchers[src] == nil {
			return nil, fmt.Errorf("missing searcher for %s", src)
		}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Retrieve returns the unweighted per-source results and the weighted merge
// truncated to topK.
func (r *UnifiedRetriever) Retrieve(ctx context.Context, tenantID, query string, topK int) (*domain.RetrievalContext, error) {
	out := &domain.RetrievalContext{Query: query}
	if topK <= 0 {
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, src := range domain.AllSources {
		k := topK
		if src == domain.SourceCorrection {
			k = r.correctionsTopK
		}
		g.Go(func() error {
			results, err := r.searchers[src].Search(gctx, tenantID, query, k)
			if err != nil {
				return err
			}
			out.Sources[src] = results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	weights, err := r.weights.GetWeights(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	out.Merged = Merge(out.Sources, weights, topK)
	r.log.Debug("retrieved context",
		"tenant", tenantID,
		"global_kb", len(out.Sources[domain.SourceGlobalKB]),
		"tenant_kb", len(out.Sources[domain.SourceTenantKB]),
		"examples", len(out.Sources[domain.SourceExample]),
		"corrections", len(out.Sources[domain.SourceCorrection]),
		"merged", len(out.Merged))
	return out, nil
}

// Merge scales each result by its source weight, sorts descending and keeps
// topK. Sources weighted zero are left out. Ties keep source order, then
// per-source rank.
func Merge(sources [domain.NumSources][]domain.RetrievalResult, weights domain.SourceWeights, topK int) []domain.RetrievalResult {
	var merged []domain.RetrievalResult
	for _, src := range domain.AllSources {
		w := weights.Get(src)
		if w == 0 {
			continue
		}
		for _, res := range sources[src] {
			res.Score = res.RawScore * w
			merged = append(merged, res)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	if len(merged) > topK {
		merged = merged[:topK]
	}
	return merged
}
