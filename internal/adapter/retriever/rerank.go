package retriever

import (
	"context"
	"fmt"
	"sort"

	"supportrag/internal/domain"
	"supportrag/internal/port"
)

// Reranker rescores retrieval results with a second relevance function.
type Reranker struct {
	scorer port.RelevanceScorer
}

func NewReranker(scorer port.RelevanceScorer) *Reranker {
	return &Reranker{scorer: scorer}
}

func (r *Reranker) ModelName() string {
	return r.scorer.ModelName()
}

// Rerank replaces each result's Score with its relevance to query, drops
// results below threshold, sorts descending and keeps topK. RawScore keeps
// the retrieval similarity. A non-positive topK keeps every result.
func (r *Reranker) Rerank(ctx context.Context, query string, results []domain.RetrievalResult, topK int, threshold float64) ([]domain.RetrievalResult, error) {
	ranked, err := r.rank(ctx, query, results, threshold)
	if err != nil {
		return nil, err
	}
	if topK > 0 && len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked, nil
}

// RerankWithDiversity ranks like Rerank, then picks results so that the first
// topK-2 picks come from distinct source types where possible. Once that
// budget is spent, or no unseen source remains, picks follow rank order.
// A non-positive topK keeps every result, as in Rerank.
func (r *Reranker) RerankWithDiversity(ctx context.Context, query string, results []domain.RetrievalResult, topK int, threshold float64) ([]domain.RetrievalResult, error) {
	ranked, err := r.rank(ctx, query, results, threshold)
	if err != nil {
		return nil, err
	}
	return diversify(ranked, topK), nil
}

func (r *Reranker) rank(ctx context.Context, query string, results []domain.RetrievalResult, threshold float64) ([]domain.RetrievalResult, error) {
	if len(results) == 0 {
		return nil, nil
	}
	texts := make([]string, len(results))
	for i, res := range results {
		texts[i] = res.Content
	}
	scores, err := r.scorer.Score(ctx, query, texts)
	if err != nil {
		return nil, err
	}
	if len(scores) != len(results) {
		return nil, fmt.Errorf("%s returned %d scores for %d candidates", r.scorer.ModelName(), len(scores), len(results))
	}

	ranked := make([]domain.RetrievalResult, 0, len(results))
	for i, res := range results {
		if scores[i] < threshold {
			continue
		}
		res.Score = scores[i]
		ranked = append(ranked, res)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked, nil
}

func diversify(ranked []domain.RetrievalResult, topK int) []domain.RetrievalResult {
	if len(ranked) == 0 {
		return nil
	}
	if topK <= 0 {
		topK = len(ranked)
	}
	var seen [domain.NumSources]bool
	selected := make([]domain.RetrievalResult, 0, min(topK, len(ranked)))
	taken := make([]bool, len(ranked))

	for i, res := range ranked {
		if len(selected) >= topK {
			break
		}
		src := res.SourceType
		unseen := src.Valid() && !seen[src]
		if unseen || len(selected) >= topK-2 {
			selected = append(selected, res)
			taken[i] = true
			if src.Valid() {
				seen[src] = true
			}
		}
	}
	for i, res := range ranked {
		if len(selected) >= topK {
			break
		}
		if !taken[i] {
			selected = append(selected, res)
		}
	}
	return selected
}
