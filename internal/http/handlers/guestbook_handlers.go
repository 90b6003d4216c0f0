package handlers

import (
	"net/http"

	"github.com/rachelandtim/wedding-api/internal/domain"
	"github.com/rachelandtim/wedding-api/internal/http/response"
	"github.com/rachelandtim/wedding-api/pkg/logger"
)

// ListGuestbook handles GET /v1/guestbook with page/limit pagination.
func (h *Handlers) ListGuestbook(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	entries, total, err := h.guestbookService.List(r.Context(), limit, offset)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to list guestbook", "error", err)
		response.InternalError(w, "Something went wrong. Please try again.")
		return
	}
	if entries == nil {
		entries = []domain.GuestbookEntry{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries":  entries,
		"total":    total,
		"has_more": offset+len(entries) < total,
	})
}

// CreateGuestbookEntry handles POST /v1/guestbook.
func (h *Handlers) CreateGuestbookEntry(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateGuestbookEntryRequest
	if !decodeJSON(r, &req) {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	req.Normalize()
	if err := req.Validate(); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	entry, err := h.guestbookService.Create(r.Context(), &req)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to create guestbook entry", "error", err)
		response.InternalError(w, "Something went wrong. Please try again.")
		return
	}

	writeJSON(w, http.StatusCreated, entry)
}

// GuestbookStats handles GET /v1/guestbook/stats.
func (h *Handlers) GuestbookStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.guestbookService.Stats(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to load guestbook stats", "error", err)
		response.InternalError(w, "Something went wrong. Please try again.")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
