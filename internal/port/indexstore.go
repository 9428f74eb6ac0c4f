package port

import (
	"context"
	"time"

	"supportrag/internal/domain"
)

// IndexStore persists VectorIndex snapshots. SaveIndex must replace the
// previous snapshot atomically: a reader sees either the old or the new one.
type IndexStore interface {
	LoadIndex(ctx context.Context, id domain.IndexIdentity) ([]domain.IndexEntry, error)
	SaveIndex(ctx context.Context, id domain.IndexIdentity, entries []domain.IndexEntry) error
}

// WeightStore persists per-tenant source weights.
type WeightStore interface {
	// GetWeights returns found=false when the tenant has no stored weights.
	GetWeights(ctx context.Context, tenantID string) (w domain.SourceWeights, found bool, err error)
	PutWeights(ctx context.Context, tenantID string, w domain.SourceWeights) error
}

// ApprovalStore persists the approval history used for learning and tuning.
type ApprovalStore interface {
	PutApproval(ctx context.Context, a domain.Approval) error
	// ListApprovals returns approvals created at or after since, oldest first.
	// A zero since returns the full history.
	ListApprovals(ctx context.Context, tenantID string, since time.Time) ([]domain.Approval, error)
}
