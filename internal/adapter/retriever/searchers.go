package retriever

import (
	"context"
	"fmt"

	"supportrag/internal/adapter/vectorindex"
	"supportrag/internal/domain"
	"supportrag/internal/port"
)

// IndexSearcher queries the VectorIndex of one source type.
type IndexSearcher struct {
	source    domain.SourceType
	registry  *vectorindex.Registry
	threshold float64
}

func NewGlobalKBSearcher(reg *vectorindex.Registry) *IndexSearcher {
	return &IndexSearcher{source: domain.SourceGlobalKB, registry: reg}
}

func NewTenantKBSearcher(reg *vectorindex.Registry) *IndexSearcher {
	return &IndexSearcher{source: domain.SourceTenantKB, registry: reg}
}

func NewExampleSearcher(reg *vectorindex.Registry) *IndexSearcher {
	return &IndexSearcher{source: domain.SourceExample, registry: reg}
}

func NewCorrectionSearcher(reg *vectorindex.Registry) *IndexSearcher {
	return &IndexSearcher{source: domain.SourceCorrection, registry: reg}
}

// NewSourceSearchers returns one searcher per source type.
func NewSourceSearchers(reg *vectorindex.Registry) []port.SourceSearcher {
	return []port.SourceSearcher{
		NewGlobalKBSearcher(reg),
		NewTenantKBSearcher(reg),
		NewExampleSearcher(reg),
		NewCorrectionSearcher(reg),
	}
}

func (s *IndexSearcher) Source() domain.SourceType {
	return s.source
}

func (s *IndexSearcher) Search(ctx context.Context, tenantID, query string, topK int) ([]domain.RetrievalResult, error) {
	idx, err := s.registry.Get(ctx, tenantID, s.source)
	if err != nil {
		return nil, err
	}
	hits, err := idx.Search(ctx, query, topK, s.threshold)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", s.source, err)
	}

	results := make([]domain.RetrievalResult, len(hits))
	for i, h := range hits {
		sourceID := h.Metadata["source"]
		if sourceID == "" {
			sourceID = fmt.Sprintf("%s:%d", s.source, h.Position)
		}
		results[i] = domain.RetrievalResult{
			Content:    h.Content,
			Score:      h.Score,
			RawScore:   h.Score,
			SourceID:   sourceID,
			SourceType: s.source,
			Metadata:   h.Metadata,
		}
	}
	return results, nil
}
