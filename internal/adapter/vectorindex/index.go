package vectorindex

import (
	"context"
	"fmt"
	"maps"
	"math"
	"sort"
	"sync"

	"supportrag/internal/domain"
	"supportrag/internal/logger"
	"supportrag/internal/port"
)

// normEpsilon keeps normalization finite for zero vectors.
const normEpsilon = 1e-9

// Hit is one search result. Position is the entry's insertion index.
type Hit struct {
	Position int
	Content  string
	Metadata map[string]string
	Score    float64
}

// VectorIndex stores the entries of one (tenant, source) pair and answers
// exhaustive cosine-similarity queries. Writers are serialized by mu and
// every write persists the full snapshot before the in-memory state changes.
type VectorIndex struct {
	id       domain.IndexIdentity
	embedder port.Embedder
	store    port.IndexStore
	log      logger.Logger

	mu        sync.RWMutex
	entries   []domain.IndexEntry
	normed    [][]float32 // L2-normalized copies of entries[i].Vector
	dimension int
}

func newVectorIndex(id domain.IndexIdentity, embedder port.Embedder, store port.IndexStore, log logger.Logger) *VectorIndex {
	return &VectorIndex{id: id, embedder: embedder, store: store, log: log.With("index", id.Key())}
}

func (x *VectorIndex) Identity() domain.IndexIdentity {
	return x.id
}

// load reads the persisted snapshot. Only called before the index is shared.
func (x *VectorIndex) load(ctx context.Context) error {
	entries, err := x.store.LoadIndex(ctx, x.id)
	if err != nil {
		return &domain.StorageError{Op: "load", Key: x.id.Key(), Err: err}
	}
	dim := 0
	normed := make([][]float32, len(entries))
	for i, e := range entries {
		if dim == 0 {
			dim = len(e.Vector)
		} else if len(e.Vector) != dim {
			return &domain.StorageError{Op: "load", Key: x.id.Key(),
				Err: fmt.Errorf("%w: entry %d has %d, expected %d", domain.ErrDimensionMismatch, i, len(e.Vector), dim)}
		}
		normed[i] = normalize(e.Vector)
	}
	x.entries, x.normed, x.dimension = entries, normed, dim
	return nil
}

// Add embeds texts and appends them with their metadata. metadata may be nil
// or must have one element per text.
func (x *VectorIndex) Add(ctx context.Context, texts []string, metadata []map[string]string) error {
	if len(texts) == 0 {
		return nil
	}
	if metadata != nil && len(metadata) != len(texts) {
		return fmt.Errorf("add to %s: %d texts but %d metadata maps", x.id.Key(), len(texts), len(metadata))
	}

	vectors, err := x.embed(ctx, "add", texts)
	if err != nil {
		return err
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	return x.commit(ctx, len(x.entries), texts, metadata, vectors)
}

// Replace swaps the whole index for texts. The write lock is held across
// embedding and persistence so readers never see a partial rebuild.
func (x *VectorIndex) Replace(ctx context.Context, texts []string, metadata []map[string]string) error {
	if metadata != nil && len(metadata) != len(texts) {
		return fmt.Errorf("replace %s: %d texts but %d metadata maps", x.id.Key(), len(texts), len(metadata))
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	var vectors [][]float32
	if len(texts) > 0 {
		var err error
		if vectors, err = x.embed(ctx, "replace", texts); err != nil {
			return err
		}
	}
	return x.commit(ctx, 0, texts, metadata, vectors)
}

// Clear drops every entry and persists the empty index.
func (x *VectorIndex) Clear(ctx context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.commit(ctx, 0, nil, nil, nil)
}

// commit keeps entries[:keep], appends the new ones, persists, then swaps
// the in-memory state. Caller holds the write lock.
func (x *VectorIndex) commit(ctx context.Context, keep int, texts []string, metadata []map[string]string, vectors [][]float32) error {
	dim := x.dimension
	if keep == 0 {
		dim = 0
	}
	for i, v := range vectors {
		if dim == 0 {
			dim = len(v)
		}
		if len(v) != dim {
			return fmt.Errorf("%s: %w: vector %d has %d, expected %d", x.id.Key(), domain.ErrDimensionMismatch, i, len(v), dim)
		}
	}

	next := make([]domain.IndexEntry, keep, keep+len(texts))
	copy(next, x.entries[:keep])
	nextNormed := make([][]float32, keep, keep+len(texts))
	copy(nextNormed, x.normed[:keep])
	for i, text := range texts {
		var meta map[string]string
		if metadata != nil {
			meta = maps.Clone(metadata[i])
		}
		next = append(next, domain.IndexEntry{Content: text, Metadata: meta, Vector: vectors[i]})
		nextNormed = append(nextNormed, normalize(vectors[i]))
	}

	if err := x.store.SaveIndex(ctx, x.id, next); err != nil {
		x.log.Error("failed to persist index", "entries", len(next), "error", err)
		return &domain.StorageError{Op: "save", Key: x.id.Key(), Err: err}
	}

	x.entries, x.normed = next, nextNormed
	if len(next) == 0 {
		x.dimension = 0
	} else {
		x.dimension = dim
	}
	return nil
}

func (x *VectorIndex) embed(ctx context.Context, op string, texts []string) ([][]float32, error) {
	vectors, err := x.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, &domain.EmbeddingProviderError{Op: op, Err: err}
	}
	if len(vectors) != len(texts) {
		return nil, &domain.EmbeddingProviderError{Op: op,
			Err: fmt.Errorf("got %d vectors for %d texts", len(vectors), len(texts))}
	}
	return vectors, nil
}

// Search returns the topK entries most similar to query with score >= threshold.
// Ties keep insertion order.
func (x *VectorIndex) Search(ctx context.Context, query string, topK int, threshold float64) ([]Hit, error) {
	if topK <= 0 || x.Count() == 0 {
		return nil, nil
	}

	vectors, err := x.embed(ctx, "search", []string{query})
	if err != nil {
		return nil, err
	}
	q := normalize(vectors[0])

	x.mu.RLock()
	defer x.mu.RUnlock()

	if len(x.entries) == 0 {
		return nil, nil
	}
	if len(q) != x.dimension {
		return nil, fmt.Errorf("%s: %w: query has %d, expected %d", x.id.Key(), domain.ErrDimensionMismatch, len(q), x.dimension)
	}

	type scored struct {
		pos   int
		score float64
	}
	// Brute force: every entry is scored.
	scores := make([]scored, 0, len(x.normed))
	for i, v := range x.normed {
		s := dot(q, v)
		if s < threshold {
			continue
		}
		scores = append(scores, scored{pos: i, score: math.Min(s, 1)})
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].score > scores[j].score
	})
	if topK > len(scores) {
		topK = len(scores)
	}

	hits := make([]Hit, topK)
	for i := 0; i < topK; i++ {
		e := x.entries[scores[i].pos]
		hits[i] = Hit{
			Position: scores[i].pos,
			Content:  e.Content,
			Metadata: maps.Clone(e.Metadata),
			Score:    scores[i].score,
		}
	}
	return hits, nil
}

// Count returns the number of entries.
func (x *VectorIndex) Count() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	norm := math.Sqrt(sum) + normEpsilon
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(float64(f) / norm)
	}
	return out
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}
