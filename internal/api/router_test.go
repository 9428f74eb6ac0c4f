package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"supportrag/internal/adapter/embedding"
	"supportrag/internal/adapter/memstore"
	"supportrag/internal/domain"
	"supportrag/internal/usecase"
)

func newTestServer(t *testing.T) (*httptest.Server, *usecase.Engine) {
	t.Helper()
	st := memstore.NewMemoryStore()
	engine, err := usecase.NewEngine(usecase.EngineDeps{
		Embedder:  embedding.NewHashEmbedder(128),
		Indexes:   st,
		Weights:   st,
		Approvals: st,
	}, usecase.DefaultEngineOptions())
	require.NoError(t, err)

	srv := httptest.NewServer(NewRouter(engine, nil))
	t.Cleanup(srv.Close)
	return srv, engine
}

func do(t *testing.T, srv *httptest.Server, method, path string, body any) (int, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out bytes.Buffer
	_, err = out.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out.Bytes()
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	status, body := do(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestWeightsRoutes(t *testing.T) {
	srv, _ := newTestServer(t)

	status, body := do(t, srv, http.MethodGet, "/v1/tenants/acme/weights", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"global_kb":0.2,"tenant_kb":0.3,"examples":0.35,"corrections":0.15}`, string(body))

	status, body = do(t, srv, http.MethodPut, "/v1/tenants/acme/weights",
		map[string]float64{"global_kb": 1, "tenant_kb": 1, "examples": 1, "corrections": 1})
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"global_kb":0.25,"tenant_kb":0.25,"examples":0.25,"corrections":0.25}`, string(body))

	status, _ = do(t, srv, http.MethodPut, "/v1/tenants/acme/weights", map[string]float64{"global_kb": -1, "tenant_kb": 2})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = do(t, srv, http.MethodPost, "/v1/tenants/acme/weights/presets/nope", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = do(t, srv, http.MethodPost, "/v1/tenants/acme/weights/presets/safety_first", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"name":"safety_first"`)

	status, body = do(t, srv, http.MethodGet, "/v1/tenants/acme/weights/recommendation", nil)
	require.Equal(t, http.StatusOK, status)
	var rec domain.WeightRecommendation
	require.NoError(t, json.Unmarshal(body, &rec))
	assert.Equal(t, "Default - no data available", rec.Reasoning[domain.SourceCorrection])

	status, _ = do(t, srv, http.MethodGet, "/v1/tenants/acme/weights/recommendation?window_days=x", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = do(t, srv, http.MethodPost, "/v1/tenants/acme/weights/apply", nil)
	require.Equal(t, http.StatusOK, status)
	var applied domain.ApplyResult
	require.NoError(t, json.Unmarshal(body, &applied))
	assert.False(t, applied.Applied)
	require.NotNil(t, applied.Insufficient)
	assert.Contains(t, string(body), `"current_confidence":0`)
	assert.Contains(t, string(body), `"min_required":0.3`)
}

func TestApproveAndRetrieve(t *testing.T) {
	srv, engine := newTestServer(t)
	ctx := context.Background()

	idx, err := engine.Registry.Get(ctx, "", domain.SourceGlobalKB)
	require.NoError(t, err)
	require.NoError(t, idx.Add(ctx, []string{"Set your MX record to mail.example.com for email delivery."}, nil))

	ticket := domain.Ticket{ID: "T-1", Subject: "Email delivery", Content: "My email is not arriving, what MX record?"}
	status, body := do(t, srv, http.MethodPost, "/v1/tenants/acme/draft", map[string]any{"ticket": ticket})
	require.Equal(t, http.StatusOK, status, string(body))
	var draft struct {
		Confidence     domain.ConfidenceResult `json:"confidence"`
		PromptContext  string                  `json:"prompt_context"`
		ContextSources []domain.ContextSource  `json:"context_sources"`
	}
	require.NoError(t, json.Unmarshal(body, &draft))
	assert.Contains(t, draft.PromptContext, "## Hosting Knowledge")
	require.NotEmpty(t, draft.ContextSources)
	assert.Equal(t, domain.SourceGlobalKB, draft.ContextSources[0].Type)

	status, body = do(t, srv, http.MethodPost, "/v1/tenants/acme/approvals", map[string]any{
		"ticket":          ticket,
		"draft":           "Point your MX record to mail.example.com.",
		"final":           "Point your MX record to mail.example.com.\n",
		"confidence":      draft.Confidence,
		"context_sources": draft.ContextSources,
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	var approved struct {
		IndexedAs domain.SourceType `json:"indexed_as"`
		Analysis  domain.EditAnalysis
	}
	require.NoError(t, json.Unmarshal(body, &approved))
	assert.Equal(t, domain.SourceExample, approved.IndexedAs)
	assert.False(t, approved.Analysis.WasEdited)

	status, _ = do(t, srv, http.MethodPost, "/v1/tenants/acme/approvals", map[string]any{"ticket": ticket, "final": "  "})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = do(t, srv, http.MethodPost, "/v1/tenants/acme/retrieve", map[string]any{
		"query": "MX record email", "top_k": 3, "rerank": true, "diversity": true,
	})
	require.Equal(t, http.StatusOK, status, string(body))
	var retrieved struct {
		Context struct {
			Examples []domain.RetrievalResult `json:"examples"`
			Merged   []domain.RetrievalResult `json:"merged"`
		} `json:"context"`
	}
	require.NoError(t, json.Unmarshal(body, &retrieved))
	require.Len(t, retrieved.Context.Examples, 1)
	assert.Equal(t, "T-1", retrieved.Context.Examples[0].Metadata["ticket_id"])
	assert.NotEmpty(t, retrieved.Context.Merged)

	status, _ = do(t, srv, http.MethodPost, "/v1/tenants/acme/retrieve", map[string]any{"query": " "})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = do(t, srv, http.MethodPost, "/v1/tenants/acme/rebuild", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"examples":1,"corrections":0}`, string(body))

	status, body = do(t, srv, http.MethodGet, "/v1/tenants/acme/stats", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"total":1`)
}

func TestAnalyzeEditRoute(t *testing.T) {
	srv, _ := newTestServer(t)

	status, body := do(t, srv, http.MethodPost, "/v1/edits/analyze", map[string]string{
		"original": "Your refund has been processed.",
		"edited":   "Sorry, unfortunately refunds are only possible within 30 days of purchase.",
	})
	require.Equal(t, http.StatusOK, status)
	var res struct {
		domain.EditAnalysis
		Summary string `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(body, &res))
	assert.True(t, res.IsSignificantEdit)
	assert.NotEmpty(t, res.DiffLines)
	assert.Contains(t, res.Summary, "Added apology/empathy")

	status, _ = do(t, srv, http.MethodPost, "/v1/edits/analyze", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}
