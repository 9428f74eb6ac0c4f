package vectorindex

import (
	"context"
	"sort"
	"sync"

	"supportrag/internal/domain"
	"supportrag/internal/logger"
	"supportrag/internal/port"
)

// Registry owns the VectorIndex instances of a process, one per identity.
// Each index is loaded from the store on first access and then shared.
type Registry struct {
	embedder port.Embedder
	store    port.IndexStore
	log      logger.Logger

	mu    sync.Mutex
	slots map[domain.IndexIdentity]*slot
}

type slot struct {
	ready chan struct{}
	index *VectorIndex
	err   error
}

type Option func(*Registry)

func WithLogger(l logger.Logger) Option {
	return func(r *Registry) { r.log = l }
}

func NewRegistry(embedder port.Embedder, store port.IndexStore, opts ...Option) *Registry {
	r := &Registry{
		embedder: embedder,
		store:    store,
		log:      logger.Discard(),
		slots:    make(map[domain.IndexIdentity]*slot),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the index for (tenantID, source), loading it if needed.
// tenantID is ignored for the global KB.
func (r *Registry) Get(ctx context.Context, tenantID string, source domain.SourceType) (*VectorIndex, error) {
	id, err := domain.NewIndexIdentity(tenantID, source)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	s, ok := r.slots[id]
	if !ok {
		s = &slot{ready: make(chan struct{})}
		r.slots[id] = s
		r.mu.Unlock()

		idx := newVectorIndex(id, r.embedder, r.store, r.log)
		if err := idx.load(ctx); err != nil {
			s.err = err
			r.mu.Lock()
			delete(r.slots, id)
			r.mu.Unlock()
			r.log.Warn("failed to load index", "index", id.Key(), "error", err)
		} else {
			s.index = idx
			r.log.Debug("loaded index", "index", id.Key(), "entries", len(idx.entries))
		}
		close(s.ready)
		return s.index, s.err
	}
	r.mu.Unlock()

	select {
	case <-s.ready:
		return s.index, s.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Loaded lists the identities currently held in memory.
func (r *Registry) Loaded() []domain.IndexIdentity {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]domain.IndexIdentity, 0, len(r.slots))
	for id, s := range r.slots {
		select {
		case <-s.ready:
			if s.err == nil {
				ids = append(ids, id)
			}
		default:
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Key() < ids[j].Key() })
	return ids
}

// Embedder returns the embedder shared by all indexes.
func (r *Registry) Embedder() port.Embedder {
	return r.embedder
}
