package handlers

import (
	"errors"
	"net/http"

	"github.com/rachelandtim/wedding-api/internal/domain"
	"github.com/rachelandtim/wedding-api/internal/http/response"
	"github.com/rachelandtim/wedding-api/internal/service"
	"github.com/rachelandtim/wedding-api/internal/utils"
	"github.com/rachelandtim/wedding-api/pkg/logger"
)

// CreateRSVP handles POST /v1/rsvp.
func (h *Handlers) CreateRSVP(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateRSVPRequest
	if !decodeJSON(r, &req) {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	req.Normalize()
	if err := req.Validate(); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	rsvp, err := h.rsvpService.Create(r.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrDuplicateRSVP) {
			response.WriteError(w, http.StatusConflict, service.ErrDuplicateRSVP.Error(), response.CodeEmailExists)
			return
		}
		logger.ErrorContext(r.Context(), "Failed to create RSVP", "error", err)
		response.InternalError(w, "Something went wrong. Please try again.")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "RSVP received",
		"rsvp":    rsvp.Summary(),
	})
}

// LookupRSVP handles GET /v1/rsvp/lookup. It backs the "already
// responded?" check on the RSVP form, hence found:false instead of 404.
func (h *Handlers) LookupRSVP(w http.ResponseWriter, r *http.Request) {
	email := utils.NormalizeEmail(r.URL.Query().Get("email"))
	if email == "" {
		response.BadRequest(w, "Missing email")
		return
	}
	if !domain.IsValidEmail(email) {
		response.BadRequest(w, "Invalid email format")
		return
	}

	rsvp, err := h.rsvpService.FindByEmail(r.Context(), email)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to look up RSVP", "error", err)
		response.InternalError(w, "Something went wrong. Please try again.")
		return
	}
	if rsvp == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"found": false})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"found": true,
		"rsvp":  rsvp,
	})
}
