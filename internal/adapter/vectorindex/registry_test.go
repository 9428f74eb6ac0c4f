package vectorindex

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"supportrag/internal/adapter/embedding"
	"supportrag/internal/adapter/memstore"
	"supportrag/internal/domain"
)

func TestRegistryCachesPerIdentity(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(embedding.NewHashEmbedder(16), memstore.NewMemoryStore())

	a, err := reg.Get(ctx, "t1", domain.SourceExample)
	require.NoError(t, err)
	b, err := reg.Get(ctx, "t1", domain.SourceExample)
	require.NoError(t, err)
	assert.Same(t, a, b)

	c, err := reg.Get(ctx, "t1", domain.SourceCorrection)
	require.NoError(t, err)
	assert.NotSame(t, a, c)

	g1, err := reg.Get(ctx, "t1", domain.SourceGlobalKB)
	require.NoError(t, err)
	g2, err := reg.Get(ctx, "t2", domain.SourceGlobalKB)
	require.NoError(t, err)
	assert.Same(t, g1, g2, "global KB is shared across tenants")

	_, err = reg.Get(ctx, "", domain.SourceTenantKB)
	assert.Error(t, err)
	_, err = reg.Get(ctx, "t1", domain.SourceType(9))
	assert.ErrorIs(t, err, domain.ErrUnknownSourceType)

	assert.Len(t, reg.Loaded(), 3)
}

func TestRegistryLoadsPersistedState(t *testing.T) {
	ctx := context.Background()
	st := memstore.NewMemoryStore()
	emb := embedding.NewHashEmbedder(64)

	idx, err := NewRegistry(emb, st).Get(ctx, "t1", domain.SourceTenantKB)
	require.NoError(t, err)
	require.NoError(t, idx.Add(ctx, []string{"reset your password", "pay your invoice"}, nil))

	reloaded, err := NewRegistry(emb, st).Get(ctx, "t1", domain.SourceTenantKB)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.Count())

	hits, err := reloaded.Search(ctx, "pay your invoice", 1, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "pay your invoice", hits[0].Content)
}

type failingLoadStore struct {
	*memstore.MemoryStore
	mu    sync.Mutex
	fails int
}

func (s *failingLoadStore) LoadIndex(ctx context.Context, id domain.IndexIdentity) ([]domain.IndexEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fails > 0 {
		s.fails--
		return nil, errors.New("io error")
	}
	return s.MemoryStore.LoadIndex(ctx, id)
}

func TestRegistryRetriesFailedLoad(t *testing.T) {
	ctx := context.Background()
	st := &failingLoadStore{MemoryStore: memstore.NewMemoryStore(), fails: 1}
	reg := NewRegistry(embedding.NewHashEmbedder(16), st)

	_, err := reg.Get(ctx, "t1", domain.SourceExample)
	var storageErr *domain.StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Empty(t, reg.Loaded())

	idx, err := reg.Get(ctx, "t1", domain.SourceExample)
	require.NoError(t, err)
	assert.NotNil(t, idx)
}

func TestRegistryConcurrentGet(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(embedding.NewHashEmbedder(16), memstore.NewMemoryStore())

	var wg sync.WaitGroup
	got := make([]*VectorIndex, 16)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			idx, err := reg.Get(ctx, "t1", domain.SourceExample)
			assert.NoError(t, err)
			got[i] = idx
		}(i)
	}
	wg.Wait()
	for _, idx := range got {
		assert.Same(t, got[0], idx)
	}
}
