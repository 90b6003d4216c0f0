package handlers

import (
	"net/http"

	"github.com/rachelandtim/wedding-api/internal/http/response"
	"github.com/rachelandtim/wedding-api/pkg/logger"
)

// GetCounter handles GET /v1/counter.
func (h *Handlers) GetCounter(w http.ResponseWriter, r *http.Request) {
	count, err := h.counterRepo.Get(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to read visitor count", "error", err)
		response.InternalError(w, "Something went wrong. Please try again.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"count": count})
}

// IncrementCounter handles POST /v1/counter.
func (h *Handlers) IncrementCounter(w http.ResponseWriter, r *http.Request) {
	count, err := h.counterRepo.Increment(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to increment visitor count", "error", err)
		response.InternalError(w, "Something went wrong. Please try again.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"count": count})
}
