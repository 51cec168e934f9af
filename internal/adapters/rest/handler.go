// Package rest exposes the analysis service over HTTP.
package rest

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ewilliams-labs/rubato/backend/internal/core/services"
)

// Handler manages the HTTP interface for the analysis service.
type Handler struct {
	svc    *services.Orchestrator
	logger *zap.Logger
	router *http.ServeMux
}

// NewHandler initializes the HTTP adapter and sets up routes.
func NewHandler(svc *services.Orchestrator, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		svc:    svc,
		logger: logger,
		router: http.NewServeMux(),
	}
	h.routes()
	return h
}

// ServeHTTP satisfies the http.Handler interface.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// routes defines the mapping between URLs and methods.
func (h *Handler) routes() {
	h.router.HandleFunc("GET /health", h.HealthCheck)
	h.router.HandleFunc("POST /analyses", h.SubmitAnalysis)
	h.router.HandleFunc("GET /analyses/{id}", h.GetAnalysis)
	h.router.HandleFunc("POST /comparisons", h.Compare)
}

// HealthCheck is a simple endpoint to verify the API is running.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
