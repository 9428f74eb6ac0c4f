package port

import (
	"context"

	"supportrag/internal/domain"
)

// SourceSearcher queries the index of one source type and returns
// unweighted results.
type SourceSearcher interface {
	Source() domain.SourceType
	Search(ctx context.Context, tenantID, query string, topK int) ([]domain.RetrievalResult, error)
}
