package handlers

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/rachelandtim/wedding-api/internal/http/response"
	"github.com/rachelandtim/wedding-api/pkg/logger"
)

// SearchGuests handles GET /v1/guests/search, the public invite-list
// lookup behind the RSVP form. Tightly rate limited; it exposes nothing
// beyond what the form needs to pre-fill.
func (h *Handlers) SearchGuests(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if utf8.RuneCountInString(query) < 2 {
		response.BadRequest(w, "Search query must be at least 2 characters")
		return
	}

	match, err := h.guestRepo.FindMatch(r.Context(), query)
	if err != nil {
		logger.ErrorContext(r.Context(), "Guest search failed", "error", err)
		response.InternalError(w, "Something went wrong. Please try again.")
		return
	}
	if match == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"found": false})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"found": true,
		"guest": match,
	})
}
