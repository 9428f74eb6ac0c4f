package retriever

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"supportrag/internal/adapter/embedding"
	"supportrag/internal/domain"
	"supportrag/internal/port"
)

var (
	_ port.RelevanceScorer = (*CohereScorer)(nil)
	_ port.RelevanceScorer = (*CosineScorer)(nil)
	_ port.RelevanceScorer = (*TermOverlapScorer)(nil)
)

// fixedScorer scores a candidate by looking its text up in a table.
type fixedScorer struct {
	scores map[string]float64
	err    error
}

func (s fixedScorer) Score(_ context.Context, _ string, candidates []string) ([]float64, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]float64, len(candidates))
	for i, c := range candidates {
		out[i] = s.scores[c]
	}
	return out, nil
}

func (s fixedScorer) ModelName() string { return "fixed" }

func result(content string, src domain.SourceType) domain.RetrievalResult {
	return domain.RetrievalResult{Content: content, SourceType: src, RawScore: 0.5, Score: 0.1}
}

func contents(results []domain.RetrievalResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Content
	}
	return out
}

func TestRerank(t *testing.T) {
	rr := NewReranker(fixedScorer{scores: map[string]float64{"a": 0.2, "b": 0.9, "c": 0.05, "d": 0.6}})
	in := []domain.RetrievalResult{
		result("a", domain.SourceGlobalKB),
		result("b", domain.SourceTenantKB),
		result("c", domain.SourceExample),
		result("d", domain.SourceExample),
	}

	out, err := rr.Rerank(context.Background(), "q", in, 2, 0.1)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "d"}, contents(out))
	assert.InDelta(t, 0.9, out[0].Score, 1e-9)
	assert.InDelta(t, 0.5, out[0].RawScore, 1e-9)

	out, err = rr.Rerank(context.Background(), "q", in, 10, 0.1)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "d", "a"}, contents(out))

	out, err = rr.Rerank(context.Background(), "q", nil, 3, 0)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRerankPropagatesScorerError(t *testing.T) {
	rr := NewReranker(fixedScorer{err: errors.New("down")})
	_, err := rr.Rerank(context.Background(), "q", []domain.RetrievalResult{result("a", domain.SourceGlobalKB)}, 1, 0)
	assert.Error(t, err)
}

func TestRerankWithDiversity(t *testing.T) {
	rr := NewReranker(fixedScorer{scores: map[string]float64{"A": 0.9, "B": 0.8, "C": 0.7, "D": 0.6, "E": 0.5}})
	in := []domain.RetrievalResult{
		result("A", domain.SourceGlobalKB),
		result("B", domain.SourceGlobalKB),
		result("C", domain.SourceTenantKB),
		result("D", domain.SourceExample),
		result("E", domain.SourceGlobalKB),
	}

	plain, err := rr.Rerank(context.Background(), "q", in, 4, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C", "D"}, contents(plain))

	diverse, err := rr.RerankWithDiversity(context.Background(), "q", in, 4, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C", "D", "E"}, contents(diverse))

	all, err := rr.RerankWithDiversity(context.Background(), "q", in, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, len(in), "non-positive topK keeps everything like Rerank")
	assert.Equal(t, []string{"A", "C", "D", "E", "B"}, contents(all))
}

func TestDiversifyBackfillsInRankOrder(t *testing.T) {
	ranked := []domain.RetrievalResult{
		result("A", domain.SourceExample),
		result("B", domain.SourceExample),
		result("C", domain.SourceExample),
		result("D", domain.SourceTenantKB),
	}
	assert.Equal(t, []string{"A", "D", "B", "C"}, contents(diversify(ranked, 4)))
	assert.Equal(t, []string{"A", "D", "B", "C"}, contents(diversify(ranked, 10)))
	// With topK 3 the distinct budget is one pick, then rank order.
	assert.Equal(t, []string{"A", "B", "C"}, contents(diversify(ranked, 3)))
	assert.Equal(t, []string{"A", "D", "B", "C"}, contents(diversify(ranked, 0)))
	assert.Empty(t, diversify(nil, 4))
}

func TestTermOverlapScorer(t *testing.T) {
	s := NewTermOverlapScorer()
	scores, err := s.Score(context.Background(), "Email bounced back", []string{
		"Your email bounced because of SPF",
		"DNS propagation takes time",
		"",
	})
	require.NoError(t, err)
	require.Len(t, scores, 3)
	assert.InDelta(t, 2.0/3.0, scores[0], 1e-9)
	assert.Zero(t, scores[1])
	assert.Zero(t, scores[2])

	scores, err = s.Score(context.Background(), "refunds", []string{"Refunding takes a week"})
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, scores)

	scores, err = s.Score(context.Background(), "?", []string{"anything"})
	require.NoError(t, err)
	assert.Equal(t, []float64{0}, scores)
}

func TestCosineScorer(t *testing.T) {
	s := NewCosineScorer(embedding.NewHashEmbedder(128))
	scores, err := s.Score(context.Background(), "mysql connection error", []string{"mysql connection error", "renew my plan"})
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.InDelta(t, 1.0, scores[0], 1e-6)
	assert.Less(t, scores[1], scores[0])
	assert.Equal(t, "cosine:hash", s.ModelName())
}

// shortEmbedder returns n vectors whatever the batch size.
type shortEmbedder struct{ n int }

func (e shortEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, e.n)
	for i := range out {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (shortEmbedder) Dimension() int    { return 2 }
func (shortEmbedder) ModelName() string { return "short" }

func TestCosineScorerRejectsWrongBatchSize(t *testing.T) {
	for _, n := range []int{1, 5} {
		s := NewCosineScorer(shortEmbedder{n: n})
		scores, err := s.Score(context.Background(), "query", []string{"a", "b"})
		var perr *domain.EmbeddingProviderError
		require.ErrorAs(t, err, &perr, "%d vectors", n)
		assert.Nil(t, scores)
	}

	r := NewReranker(NewCosineScorer(shortEmbedder{n: 1}))
	_, err := r.Rerank(context.Background(), "query", []domain.RetrievalResult{
		result("a", domain.SourceExample), result("b", domain.SourceTenantKB),
	}, 2, 0)
	assert.Error(t, err)
}

func TestCohereScorer(t *testing.T) {
	var got cohereRerankRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/rerank", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[{"index":1,"relevance_score":0.9},{"index":0,"relevance_score":0.2}]}`))
	}))
	defer srv.Close()

	t.Setenv("TEST_COHERE_KEY", "test-key")
	s, err := NewCohereScorer(CohereOptions{APIKeyEnv: "TEST_COHERE_KEY", BaseURL: srv.URL})
	require.NoError(t, err)

	scores, err := s.Score(context.Background(), "refund", []string{"dns", "billing refund policy"})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.2, 0.9}, scores)
	assert.Equal(t, "refund", got.Query)
	assert.Equal(t, defaultCohereModel, got.Model)
	assert.Len(t, got.Documents, 2)
}

func TestCohereScorerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message":"rate limited"}`))
	}))
	defer srv.Close()

	t.Setenv("TEST_COHERE_KEY", "test-key")
	s, err := NewCohereScorer(CohereOptions{APIKeyEnv: "TEST_COHERE_KEY", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = s.Score(context.Background(), "q", []string{"a"})
	var provErr *domain.EmbeddingProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Contains(t, err.Error(), "rate limited")

	t.Setenv("TEST_COHERE_MISSING", "")
	_, err = NewCohereScorer(CohereOptions{APIKeyEnv: "TEST_COHERE_MISSING"})
	var cfgErr *domain.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}
