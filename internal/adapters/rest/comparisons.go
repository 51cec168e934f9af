package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ewilliams-labs/rubato/backend/internal/core/domain"
	"github.com/ewilliams-labs/rubato/backend/internal/core/services"
)

type compareRequest struct {
	StudentJobID   string `json:"student_job_id"`
	ReferenceJobID string `json:"reference_job_id"`
}

// Compare handles POST /comparisons.
func (h *Handler) Compare(w http.ResponseWriter, r *http.Request) {
	if !isJSONContentType(r) {
		writeError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return
	}

	var req compareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.StudentJobID == "" || req.ReferenceJobID == "" {
		writeError(w, http.StatusBadRequest, "student_job_id and reference_job_id are required")
		return
	}

	resp, err := h.svc.Compare(r.Context(), req.StudentJobID, req.ReferenceJobID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, services.ErrJobNotReady):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("comparison failed",
				zap.String("student_job_id", req.StudentJobID),
				zap.String("reference_job_id", req.ReferenceJobID),
				zap.Error(err),
			)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
