package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/alexedwards/argon2id"
	"github.com/go-chi/chi/v5"

	"github.com/rachelandtim/wedding-api/internal/domain"
	"github.com/rachelandtim/wedding-api/internal/http/response"
	"github.com/rachelandtim/wedding-api/internal/platform/auth"
	"github.com/rachelandtim/wedding-api/internal/repo/postgres"
	"github.com/rachelandtim/wedding-api/pkg/logger"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AdminLogin handles POST /v1/admin/login.
func (h *Handlers) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(r, &req) {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	if h.config.Admin.PasswordHash == "" {
		logger.WarnContext(r.Context(), "Admin login attempted but no password hash configured")
		response.Unauthorized(w, "Invalid credentials")
		return
	}

	match, err := argon2id.ComparePasswordAndHash(req.Password, h.config.Admin.PasswordHash)
	if err != nil {
		logger.ErrorContext(r.Context(), "Password comparison failed", "error", err)
		response.Unauthorized(w, "Invalid credentials")
		return
	}
	if req.Username != h.config.Admin.Username || !match {
		response.Unauthorized(w, "Invalid credentials")
		return
	}

	token, err := auth.NewAdminToken(req.Username, h.config.Admin.JWTSecret, h.config.Admin.SessionTTL)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to mint admin token", "error", err)
		response.InternalError(w, "Something went wrong. Please try again.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":      token,
		"expires_in": int64(h.config.Admin.SessionTTL.Seconds()),
	})
}

// ListGuests handles GET /v1/admin/guests.
func (h *Handlers) ListGuests(w http.ResponseWriter, r *http.Request) {
	guests, err := h.guestRepo.List(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to list guests", "error", err)
		response.InternalError(w, "Something went wrong. Please try again.")
		return
	}
	if guests == nil {
		guests = []domain.Guest{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"guests": guests})
}

// CreateGuest handles POST /v1/admin/guests.
func (h *Handlers) CreateGuest(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateGuestRequest
	if !decodeJSON(r, &req) {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	req.Normalize()
	if err := req.Validate(); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	guest, err := h.guestRepo.Create(r.Context(), &req)
	if err != nil {
		if errors.Is(err, postgres.ErrDuplicateEmail) {
			response.WriteError(w, http.StatusConflict, "A guest with this email already exists", response.CodeEmailExists)
			return
		}
		logger.ErrorContext(r.Context(), "Failed to create guest", "error", err)
		response.InternalError(w, "Something went wrong. Please try again.")
		return
	}

	writeJSON(w, http.StatusCreated, guest)
}

// UpdateGuest handles PUT /v1/admin/guests/{id}.
func (h *Handlers) UpdateGuest(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid guest id")
		return
	}

	var req domain.UpdateGuestRequest
	if !decodeJSON(r, &req) {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	req.Normalize()
	if err := req.Validate(); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	guest, err := h.guestRepo.Update(r.Context(), id, &req)
	if err != nil {
		if errors.Is(err, postgres.ErrDuplicateEmail) {
			response.WriteError(w, http.StatusConflict, "A guest with this email already exists", response.CodeEmailExists)
			return
		}
		logger.ErrorContext(r.Context(), "Failed to update guest", "error", err)
		response.InternalError(w, "Something went wrong. Please try again.")
		return
	}
	if guest == nil {
		response.NotFound(w, "Guest not found")
		return
	}

	writeJSON(w, http.StatusOK, guest)
}

// DeleteGuest handles DELETE /v1/admin/guests/{id}. Linked RSVPs are
// kept, with their guest link cleared by the schema.
func (h *Handlers) DeleteGuest(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid guest id")
		return
	}

	deleted, err := h.guestRepo.Delete(r.Context(), id)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to delete guest", "error", err)
		response.InternalError(w, "Something went wrong. Please try again.")
		return
	}
	if !deleted {
		response.NotFound(w, "Guest not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Guest deleted"})
}

// ListRSVPs handles GET /v1/admin/rsvps.
func (h *Handlers) ListRSVPs(w http.ResponseWriter, r *http.Request) {
	rsvps, err := h.rsvpService.List(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to list RSVPs", "error", err)
		response.InternalError(w, "Something went wrong. Please try again.")
		return
	}
	if rsvps == nil {
		rsvps = []domain.RSVP{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"rsvps": rsvps})
}
