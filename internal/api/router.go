package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"supportrag/internal/logger"
	"supportrag/internal/usecase"
)

// NewRouter exposes the engine over HTTP. Tenant-scoped routes live under
// /v1/tenants/{tenantID}.
func NewRouter(engine *usecase.Engine, log logger.Logger) *chi.Mux {
	if log == nil {
		log = logger.Discard()
	}
	h := &Handler{engine: engine, log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/edits/analyze", h.AnalyzeEdit)
		r.Get("/presets", h.ListPresets)

		r.Route("/tenants/{tenantID}", func(r chi.Router) {
			r.Post("/retrieve", h.Retrieve)
			r.Post("/draft", h.Draft)
			r.Post("/approvals", h.Approve)
			r.Post("/rebuild", h.Rebuild)
			r.Get("/stats", h.Stats)

			r.Route("/weights", func(r chi.Router) {
				r.Get("/", h.GetWeights)
				r.Put("/", h.SetWeights)
				r.Get("/recommendation", h.RecommendWeights)
				r.Post("/apply", h.ApplyWeights)
				r.Post("/presets/{preset}", h.ApplyPreset)
			})
		})
	})
	return r
}

func requestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()))
		})
	}
}
