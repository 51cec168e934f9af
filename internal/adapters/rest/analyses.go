package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/ewilliams-labs/rubato/backend/internal/core/domain"
	"github.com/ewilliams-labs/rubato/backend/internal/core/services"
)

// maxUploadBytes caps a single recording upload.
const maxUploadBytes = 50 << 20

type submitAnalysisResponse struct {
	JobID string `json:"job_id"`
}

type analysisStatusResponse struct {
	JobID  string          `json:"job_id"`
	Status string          `json:"status"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// SubmitAnalysis handles POST /analyses.
func (h *Handler) SubmitAnalysis(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(header.Filename)), ".")
	if format != "wav" && format != "mp3" {
		writeError(w, http.StatusBadRequest, "unsupported file type, expected .wav or .mp3")
		return
	}

	jobID, err := h.svc.SubmitAnalysis(r.Context(), file, format)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, services.ErrQueueFull):
			writeError(w, http.StatusServiceUnavailable, "server busy, try again later")
		default:
			h.logger.Error("submit analysis failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	w.Header().Set("Location", "/analyses/"+jobID)
	writeJSON(w, http.StatusAccepted, submitAnalysisResponse{JobID: jobID})
}

// GetAnalysis handles GET /analyses/{id}.
func (h *Handler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	job, err := h.svc.GetJob(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "analysis job not found")
			return
		}
		h.logger.Error("get analysis failed", zap.String("job_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, analysisStatusResponse{
		JobID:  job.ID,
		Status: job.Status,
		Result: job.Result,
		Error:  job.Error,
	})
}
