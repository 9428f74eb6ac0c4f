package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"supportrag/internal/domain"
	"supportrag/internal/editdiff"
	"supportrag/internal/logger"
	"supportrag/internal/usecase"
)

// Handler serves the engine operations.
type Handler struct {
	engine *usecase.Engine
	log    logger.Logger
}

type retrieveRequest struct {
	Query     string  `json:"query"`
	TopK      int     `json:"top_k"`
	Rerank    bool    `json:"rerank"`
	Diversity bool    `json:"diversity"`
	Threshold float64 `json:"threshold"`
}

type retrieveResponse struct {
	Context    *domain.RetrievalContext `json:"context"`
	Confidence domain.ConfidenceResult  `json:"confidence"`
}

type draftRequest struct {
	Ticket domain.Ticket `json:"ticket"`
}

type approveRequest struct {
	Ticket         domain.Ticket            `json:"ticket"`
	Draft          string                   `json:"draft"`
	Final          string                   `json:"final"`
	Confidence     *domain.ConfidenceResult `json:"confidence,omitempty"`
	ContextSources []domain.ContextSource   `json:"context_sources,omitempty"`
}

type analyzeRequest struct {
	Original string `json:"original"`
	Edited   string `json:"edited"`
}

type analyzeResponse struct {
	domain.EditAnalysis
	Summary string `json:"summary,omitempty"`
}

type statsResponse struct {
	Edits      usecase.EditMetrics     `json:"edits"`
	Confidence []usecase.LevelAccuracy `json:"confidence"`
	Intents    []usecase.IntentStats   `json:"intents"`
}

func (h *Handler) Retrieve(w http.ResponseWriter, r *http.Request) {
	var req retrieveRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	if req.TopK <= 0 {
		req.TopK = usecase.DefaultDraftOptions().TopK
	}

	ctx := r.Context()
	tenantID := chi.URLParam(r, "tenantID")
	rc, err := h.engine.Retrieve(ctx, tenantID, req.Query, req.TopK)
	if err != nil {
		h.fail(w, "retrieve", err)
		return
	}
	if req.Rerank && len(rc.Merged) > 0 {
		rerank := h.engine.Rerank
		if req.Diversity {
			rerank = h.engine.RerankWithDiversity
		}
		merged, err := rerank(ctx, req.Query, rc.Merged, req.TopK, req.Threshold)
		if err != nil {
			h.fail(w, "rerank", err)
			return
		}
		rc.Merged = merged
	}
	writeJSON(w, http.StatusOK, retrieveResponse{Context: rc, Confidence: h.engine.ScoreConfidence(rc, req.Query)})
}

func (h *Handler) Draft(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Ticket.Subject+req.Ticket.Content) == "" {
		writeError(w, http.StatusBadRequest, "ticket subject or content is required")
		return
	}
	draft, err := h.engine.PrepareDraft(r.Context(), chi.URLParam(r, "tenantID"), req.Ticket)
	if err != nil {
		h.fail(w, "draft", err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	var req approveRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Final) == "" {
		writeError(w, http.StatusBadRequest, "final reply is required")
		return
	}

	var opts []usecase.ApproveOption
	if req.Confidence != nil {
		opts = append(opts, usecase.WithConfidence(*req.Confidence))
	}
	if len(req.ContextSources) > 0 {
		opts = append(opts, usecase.WithContextSources(req.ContextSources))
	}
	res, err := h.engine.OnApprove(r.Context(), chi.URLParam(r, "tenantID"), req.Ticket, req.Draft, req.Final, opts...)
	if err != nil {
		h.fail(w, "approve", err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) Rebuild(w http.ResponseWriter, r *http.Request) {
	res, err := h.engine.RebuildIndex(r.Context(), chi.URLParam(r, "tenantID"), nil)
	if err != nil {
		h.fail(w, "rebuild", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) GetWeights(w http.ResponseWriter, r *http.Request) {
	weights, err := h.engine.GetWeights(r.Context(), chi.URLParam(r, "tenantID"))
	if err != nil {
		h.fail(w, "get weights", err)
		return
	}
	writeJSON(w, http.StatusOK, weights)
}

func (h *Handler) SetWeights(w http.ResponseWriter, r *http.Request) {
	var req domain.SourceWeights
	if !decode(w, r, &req) {
		return
	}
	weights, err := h.engine.SetWeights(r.Context(), chi.URLParam(r, "tenantID"), req)
	if err != nil {
		h.fail(w, "set weights", err)
		return
	}
	writeJSON(w, http.StatusOK, weights)
}

func (h *Handler) RecommendWeights(w http.ResponseWriter, r *http.Request) {
	days := 0
	if v := r.URL.Query().Get("window_days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "window_days must be a positive integer")
			return
		}
		days = n
	}
	rec, err := h.engine.RecommendWeights(r.Context(), chi.URLParam(r, "tenantID"), days)
	if err != nil {
		h.fail(w, "recommend weights", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) ApplyWeights(w http.ResponseWriter, r *http.Request) {
	res, err := h.engine.ApplyRecommendedWeights(r.Context(), chi.URLParam(r, "tenantID"))
	if err != nil {
		h.fail(w, "apply weights", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) ApplyPreset(w http.ResponseWriter, r *http.Request) {
	p, err := h.engine.Weights.ApplyPreset(r.Context(), chi.URLParam(r, "tenantID"), chi.URLParam(r, "preset"))
	if err != nil {
		h.fail(w, "apply preset", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) ListPresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Weights.Presets())
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := chi.URLParam(r, "tenantID")
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))

	var out statsResponse
	var err error
	if out.Edits, err = h.engine.Analytics.EditMetrics(ctx, tenantID, days); err != nil {
		h.fail(w, "stats", err)
		return
	}
	if out.Confidence, err = h.engine.Analytics.ConfidenceAccuracy(ctx, tenantID, days); err != nil {
		h.fail(w, "stats", err)
		return
	}
	if out.Intents, err = h.engine.Analytics.IntentPerformance(ctx, tenantID, days); err != nil {
		h.fail(w, "stats", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) AnalyzeEdit(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !decode(w, r, &req) {
		return
	}
	a := h.engine.AnalyzeEdit(req.Original, req.Edited)
	res := analyzeResponse{EditAnalysis: a}
	if a.IsSignificantEdit {
		res.Summary = editdiff.Summarize(req.Original, req.Edited, a)
	}
	writeJSON(w, http.StatusOK, res)
}

// fail maps engine errors to status codes. Provider failures are upstream
// errors, bad weights and presets are the caller's.
func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	var providerErr *domain.EmbeddingProviderError
	var storageErr *domain.StorageError
	switch {
	case errors.Is(err, domain.ErrInvalidWeights), errors.Is(err, domain.ErrUnknownSourceType):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnknownPreset):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &providerErr):
		h.log.Warn(op+" failed", "error", err)
		writeError(w, http.StatusBadGateway, "embedding provider unavailable")
	case errors.As(err, &storageErr):
		h.log.Error(op+" failed", "error", err)
		writeError(w, http.StatusInternalServerError, "storage failure")
	default:
		h.log.Error(op+" failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
