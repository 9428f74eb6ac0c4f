package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"supportrag/internal/adapter/embedding"
	"supportrag/internal/adapter/memstore"
	"supportrag/internal/domain"
)

// tableEmbedder returns fixed vectors per text and counts calls.
type tableEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   atomic.Int32
}

func (e *tableEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls.Add(1)
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, ok := e.vectors[t]
		if !ok {
			return nil, fmt.Errorf("no vector for %q", t)
		}
		out[i] = v
	}
	return out, nil
}

func (e *tableEmbedder) Dimension() int    { return 2 }
func (e *tableEmbedder) ModelName() string { return "table" }

func newTestIndex(t *testing.T, emb *tableEmbedder) (*VectorIndex, *memstore.MemoryStore) {
	t.Helper()
	st := memstore.NewMemoryStore()
	idx, err := NewRegistry(emb, st).Get(context.Background(), "t1", domain.SourceExample)
	require.NoError(t, err)
	return idx, st
}

func TestSearchVerbatimTextIsTopHit(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(embedding.NewHashEmbedder(256), memstore.NewMemoryStore())
	idx, err := reg.Get(ctx, "t1", domain.SourceTenantKB)
	require.NoError(t, err)

	texts := []string{
		"To reset your email password open the webmail settings page",
		"Invoices are issued on the first day of every billing cycle",
		"SSL certificates renew automatically thirty days before expiry",
		"Point your domain nameservers at ns1 and ns2 to use our DNS",
		"FTP uploads require an account created in the file manager",
	}
	require.NoError(t, idx.Add(ctx, texts, nil))
	assert.Equal(t, len(texts), idx.Count())

	for _, text := range texts {
		hits, err := idx.Search(ctx, text, 3, 0)
		require.NoError(t, err)
		require.NotEmpty(t, hits)
		assert.Equal(t, text, hits[0].Content)
		assert.InDelta(t, 1.0, hits[0].Score, 1e-5)
		for i := 1; i < len(hits); i++ {
			assert.LessOrEqual(t, hits[i].Score, hits[i-1].Score)
		}
	}
}

func TestSearchTiesKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	emb := &tableEmbedder{vectors: map[string][]float32{
		"first":  {1, 1},
		"second": {1, 1},
		"third":  {1, 1},
		"other":  {1, 0},
		"query":  {1, 1},
	}}
	idx, _ := newTestIndex(t, emb)
	require.NoError(t, idx.Add(ctx, []string{"other", "first", "second", "third"}, nil))

	hits, err := idx.Search(ctx, "query", 2, 0)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "first", hits[0].Content)
	assert.Equal(t, "second", hits[1].Content)
	assert.Equal(t, 1, hits[0].Position)
}

func TestSearchThresholdAndTopK(t *testing.T) {
	ctx := context.Background()
	emb := &tableEmbedder{vectors: map[string][]float32{
		"same":     {1, 0},
		"close":    {0.9, 0.1},
		"far":      {0, 1},
		"opposite": {-1, 0},
		"query":    {1, 0},
	}}
	idx, _ := newTestIndex(t, emb)
	require.NoError(t, idx.Add(ctx, []string{"far", "opposite", "close", "same"}, []map[string]string{
		{"source": "far"}, {"source": "opposite"}, {"source": "close"}, {"source": "same"},
	}))

	hits, err := idx.Search(ctx, "query", 10, 0)
	require.NoError(t, err)
	require.Len(t, hits, 3, "negative similarity is below the default threshold")
	assert.Equal(t, []string{"same", "close", "far"}, []string{hits[0].Content, hits[1].Content, hits[2].Content})
	assert.Equal(t, "close", hits[1].Metadata["source"])

	hits, err = idx.Search(ctx, "query", 10, 0.5)
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	hits, err = idx.Search(ctx, "query", 1, 0)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	hits, err = idx.Search(ctx, "query", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchEmptyIndexSkipsEmbedding(t *testing.T) {
	emb := &tableEmbedder{}
	idx, _ := newTestIndex(t, emb)

	hits, err := idx.Search(context.Background(), "anything", 5, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.Equal(t, int32(0), emb.calls.Load())

	require.NoError(t, idx.Add(context.Background(), nil, nil))
	assert.Equal(t, int32(0), emb.calls.Load())
}

func TestAddRollsBackOnStorageFailure(t *testing.T) {
	ctx := context.Background()
	emb := &tableEmbedder{vectors: map[string][]float32{"a": {1, 0}, "b": {0, 1}}}
	idx, st := newTestIndex(t, emb)
	require.NoError(t, idx.Add(ctx, []string{"a"}, nil))

	st.SetSaveError(errors.New("disk full"))
	err := idx.Add(ctx, []string{"b"}, nil)
	var storageErr *domain.StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "tenant/t1/example", storageErr.Key)
	assert.Equal(t, 1, idx.Count())

	err = idx.Clear(ctx)
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, 1, idx.Count())

	st.SetSaveError(nil)
	persisted, err := st.LoadIndex(ctx, idx.Identity())
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Equal(t, "a", persisted[0].Content)
}

func TestEmbeddingFailureIsSurfaced(t *testing.T) {
	ctx := context.Background()
	emb := &tableEmbedder{vectors: map[string][]float32{"a": {1, 0}}}
	idx, _ := newTestIndex(t, emb)
	require.NoError(t, idx.Add(ctx, []string{"a"}, nil))

	emb.err = errors.New("provider down")
	var provErr *domain.EmbeddingProviderError
	require.ErrorAs(t, idx.Add(ctx, []string{"a"}, nil), &provErr)
	_, err := idx.Search(ctx, "a", 1, 0)
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, "search", provErr.Op)
	assert.Equal(t, int32(3), emb.calls.Load(), "no retries inside the index")
}

func TestDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	emb := &tableEmbedder{vectors: map[string][]float32{"a": {1, 0}, "wide": {1, 0, 0}}}
	idx, _ := newTestIndex(t, emb)
	require.NoError(t, idx.Add(ctx, []string{"a"}, nil))

	assert.ErrorIs(t, idx.Add(ctx, []string{"wide"}, nil), domain.ErrDimensionMismatch)
	_, err := idx.Search(ctx, "wide", 1, 0)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	require.NoError(t, idx.Replace(ctx, []string{"wide"}, nil), "replace may change dimension")
	assert.Equal(t, 1, idx.Count())
}

func TestMetadataLengthMismatch(t *testing.T) {
	emb := &tableEmbedder{vectors: map[string][]float32{"a": {1, 0}}}
	idx, _ := newTestIndex(t, emb)
	assert.Error(t, idx.Add(context.Background(), []string{"a"}, []map[string]string{{}, {}}))
	assert.Equal(t, int32(0), emb.calls.Load())
}

func TestClearAndReplace(t *testing.T) {
	ctx := context.Background()
	emb := &tableEmbedder{vectors: map[string][]float32{"a": {1, 0}, "b": {0, 1}, "c": {1, 1}}}
	idx, st := newTestIndex(t, emb)

	require.NoError(t, idx.Add(ctx, []string{"a", "b"}, nil))
	require.NoError(t, idx.Replace(ctx, []string{"c"}, []map[string]string{{"k": "v"}}))
	assert.Equal(t, 1, idx.Count())

	persisted, err := st.LoadIndex(ctx, idx.Identity())
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Equal(t, "v", persisted[0].Metadata["k"])

	require.NoError(t, idx.Clear(ctx))
	assert.Equal(t, 0, idx.Count())
	persisted, err = st.LoadIndex(ctx, idx.Identity())
	require.NoError(t, err)
	assert.Empty(t, persisted)
}

func TestConcurrentAddsAreSerialized(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(embedding.NewHashEmbedder(32), memstore.NewMemoryStore())
	idx, err := reg.Get(ctx, "t1", domain.SourceExample)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, idx.Add(ctx, []string{fmt.Sprintf("text %d", i)}, nil))
			_, err := idx.Search(ctx, "text", 3, 0)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 20, idx.Count())
}
