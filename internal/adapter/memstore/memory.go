package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"supportrag/internal/domain"
)

// MemoryStore implements the index, weight and approval store ports in
// memory. Used by tests and dry runs.
type MemoryStore struct {
	mu        sync.RWMutex
	indexes   map[string][]domain.IndexEntry
	weights   map[string]domain.SourceWeights
	approvals map[string][]domain.Approval
	saveErr   error
	saves     int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		indexes:   make(map[string][]domain.IndexEntry),
		weights:   make(map[string]domain.SourceWeights),
		approvals: make(map[string][]domain.Approval),
	}
}

// SetSaveError makes every following SaveIndex fail with err until reset with nil.
func (s *MemoryStore) SetSaveError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveErr = err
}

// Saves returns how many snapshots were written successfully.
func (s *MemoryStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

func (s *MemoryStore) LoadIndex(ctx context.Context, id domain.IndexIdentity) ([]domain.IndexEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneEntries(s.indexes[id.Key()]), nil
}

func (s *MemoryStore) SaveIndex(ctx context.Context, id domain.IndexIdentity, entries []domain.IndexEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.indexes[id.Key()] = cloneEntries(entries)
	s.saves++
	return nil
}

func (s *MemoryStore) GetWeights(ctx context.Context, tenantID string) (domain.SourceWeights, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.SourceWeights{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.weights[tenantID]
	return w, ok, nil
}

func (s *MemoryStore) PutWeights(ctx context.Context, tenantID string, w domain.SourceWeights) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.weights[tenantID] = w
	return nil
}

func (s *MemoryStore) PutApproval(ctx context.Context, a domain.Approval) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	list := append(s.approvals[a.TenantID], a)
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	s.approvals[a.TenantID] = list
	return nil
}

func (s *MemoryStore) ListApprovals(ctx context.Context, tenantID string, since time.Time) ([]domain.Approval, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Approval
	for _, a := range s.approvals[tenantID] {
		if !since.IsZero() && a.CreatedAt.Before(since) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func cloneEntries(in []domain.IndexEntry) []domain.IndexEntry {
	if in == nil {
		return nil
	}
	out := make([]domain.IndexEntry, len(in))
	copy(out, in)
	return out
}
