package retriever

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"supportrag/internal/adapter/embedding"
	"supportrag/internal/adapter/memstore"
	"supportrag/internal/adapter/vectorindex"
	"supportrag/internal/domain"
	"supportrag/internal/port"
)

var (
	_ port.SourceSearcher = (*IndexSearcher)(nil)
	_ WeightProvider      = staticWeights{}
)

type staticWeights domain.SourceWeights

func (w staticWeights) GetWeights(context.Context, string) (domain.SourceWeights, error) {
	return domain.SourceWeights(w), nil
}

func newTestRegistry(t *testing.T) *vectorindex.Registry {
	t.Helper()
	return vectorindex.NewRegistry(embedding.NewHashEmbedder(256), memstore.NewMemoryStore())
}

func seed(t *testing.T, reg *vectorindex.Registry, tenant string, src domain.SourceType, texts ...string) {
	t.Helper()
	idx, err := reg.Get(context.Background(), tenant, src)
	require.NoError(t, err)
	meta := make([]map[string]string, len(texts))
	for i := range texts {
		meta[i] = map[string]string{"source": fmt.Sprintf("%s_%d", src, i)}
	}
	require.NoError(t, idx.Add(context.Background(), texts, meta))
}

func TestIndexSearcher(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)
	seed(t, reg, "t1", domain.SourceTenantKB, "How to renew an invoice", "Reset your email password")

	idx, err := reg.Get(ctx, "t1", domain.SourceExample)
	require.NoError(t, err)
	require.NoError(t, idx.Add(ctx, []string{"Reset your email password"}, nil))

	results, err := NewTenantKBSearcher(reg).Search(ctx, "t1", "Reset your email password", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "tenant_kb_1", results[0].SourceID)
	assert.Equal(t, domain.SourceTenantKB, results[0].SourceType)
	assert.Equal(t, results[0].RawScore, results[0].Score)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)

	results, err = NewExampleSearcher(reg).Search(ctx, "t1", "Reset your email password", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "example:0", results[0].SourceID)

	results, err = NewTenantKBSearcher(reg).Search(ctx, "t2", "Reset your email password", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestUnifiedRetrieverZeroWeightExcludesSource(t *testing.T) {
	reg := newTestRegistry(t)
	query := "website shows internal server error"
	seed(t, reg, "", domain.SourceGlobalKB, query, "internal server error after upgrade")
	seed(t, reg, "t1", domain.SourceTenantKB, query)
	seed(t, reg, "t1", domain.SourceExample, query)
	seed(t, reg, "t1", domain.SourceCorrection, query)

	r, err := NewUnifiedRetriever(NewSourceSearchers(reg), staticWeights{GlobalKB: 1})
	require.NoError(t, err)

	rc, err := r.Retrieve(context.Background(), "t1", query, 5)
	require.NoError(t, err)
	require.NotEmpty(t, rc.Merged)
	for _, res := range rc.Merged {
		assert.Equal(t, domain.SourceGlobalKB, res.SourceType)
	}
	assert.NotEmpty(t, rc.For(domain.SourceTenantKB), "per-source lists stay unweighted")
	assert.NotEmpty(t, rc.For(domain.SourceExample))
	assert.NotEmpty(t, rc.For(domain.SourceCorrection))
}

func TestUnifiedRetrieverLimitsCorrections(t *testing.T) {
	reg := newTestRegistry(t)
	var texts []string
	for i := range 6 {
		texts = append(texts, fmt.Sprintf("ssl certificate expired on domain number %d", i))
	}
	seed(t, reg, "t1", domain.SourceCorrection, texts...)
	seed(t, reg, "t1", domain.SourceExample, texts...)

	r, err := NewUnifiedRetriever(NewSourceSearchers(reg), staticWeights(domain.DefaultWeights()))
	require.NoError(t, err)

	rc, err := r.Retrieve(context.Background(), "t1", "ssl certificate expired on domain", 5)
	require.NoError(t, err)
	assert.Len(t, rc.For(domain.SourceCorrection), DefaultCorrectionsTopK)
	assert.Len(t, rc.For(domain.SourceExample), 5)
	assert.Len(t, rc.Merged, 5)
	for i := 1; i < len(rc.Merged); i++ {
		assert.GreaterOrEqual(t, rc.Merged[i-1].Score, rc.Merged[i].Score)
	}
}

func TestNewUnifiedRetrieverRequiresAllSources(t *testing.T) {
	reg := newTestRegistry(t)
	_, err := NewUnifiedRetriever(NewSourceSearchers(reg)[:3], staticWeights{})
	assert.Error(t, err)

	dup := append(NewSourceSearchers(reg), NewGlobalKBSearcher(reg))
	_, err = NewUnifiedRetriever(dup, staticWeights{})
	assert.Error(t, err)
}

func TestMerge(t *testing.T) {
	var sources [domain.NumSources][]domain.RetrievalResult
	sources[domain.SourceGlobalKB] = []domain.RetrievalResult{{Content: "g", RawScore: 0.9, SourceType: domain.SourceGlobalKB}}
	sources[domain.SourceTenantKB] = []domain.RetrievalResult{{Content: "t", RawScore: 0.5, SourceType: domain.SourceTenantKB}}
	sources[domain.SourceExample] = []domain.RetrievalResult{
		{Content: "e1", RawScore: 0.8, SourceType: domain.SourceExample},
		{Content: "e2", RawScore: 0.1, SourceType: domain.SourceExample},
	}

	merged := Merge(sources, domain.DefaultWeights(), 3)
	require.Len(t, merged, 3)
	assert.Equal(t, []string{"e1", "g", "t"}, []string{merged[0].Content, merged[1].Content, merged[2].Content})
	assert.InDelta(t, 0.28, merged[0].Score, 1e-9)
	assert.InDelta(t, 0.8, merged[0].RawScore, 1e-9)
	assert.Zero(t, sources[domain.SourceGlobalKB][0].Score, "inputs are not modified")

	ties := Merge(sources, domain.SourceWeights{GlobalKB: 0.5, TenantKB: 0.9}, 5)
	require.Len(t, ties, 2)
	assert.Equal(t, "g", ties[0].Content, "equal scores keep source order")
}

func TestFormatForPrompt(t *testing.T) {
	rc := &domain.RetrievalContext{}
	assert.Empty(t, FormatForPrompt(rc))

	for i := range 4 {
		rc.Sources[domain.SourceGlobalKB] = append(rc.Sources[domain.SourceGlobalKB], domain.RetrievalResult{Content: fmt.Sprintf("g%d", i)})
	}
	rc.Sources[domain.SourceExample] = []domain.RetrievalResult{{Content: "e0"}, {Content: "e1"}, {Content: "e2"}}

	want := "## Hosting Knowledge\ng0\n\ng1\n\ng2\n\n" +
		"## Similar Past Tickets (Approved Responses)\ne0\n\n---\n\ne1"
	assert.Equal(t, want, FormatForPrompt(rc))

	rc.Sources[domain.SourceCorrection] = []domain.RetrievalResult{{Content: "c0"}}
	assert.Contains(t, FormatForPrompt(rc), "\n\n## Corrections (Avoid These Mistakes)\nc0")
	assert.NotContains(t, FormatForPrompt(rc), "Company Knowledge")
}
