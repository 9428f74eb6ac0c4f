package retriever

import (
	"context"
	"fmt"
	"math"

	"supportrag/internal/domain"
	"supportrag/internal/port"
)

// CosineScorer re-embeds the query and candidates and compares them directly.
type CosineScorer struct {
	embedder port.Embedder
}

func NewCosineScorer(embedder port.Embedder) *CosineScorer {
	return &CosineScorer{embedder: embedder}
}

func (s *CosineScorer) Score(ctx context.Context, query string, candidates []string) ([]float64, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	texts := make([]string, 0, len(candidates)+1)
	texts = append(texts, query)
	texts = append(texts, candidates...)

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, &domain.EmbeddingProviderError{Op: "rerank", Err: err}
	}
	if len(vectors) != len(texts) {
		return nil, &domain.EmbeddingProviderError{Op: "rerank",
			Err: fmt.Errorf("got %d vectors for %d texts", len(vectors), len(texts))}
	}
	q := vectors[0]
	scores := make([]float64, len(candidates))
	for i := range candidates {
		scores[i] = cosine(q, vectors[i+1])
	}
	return scores, nil
}

func (s *CosineScorer) ModelName() string {
	return "cosine:" + s.embedder.ModelName()
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
