package handlers

import (
	"errors"
	"net/http"

	"github.com/rachelandtim/wedding-api/internal/domain"
	"github.com/rachelandtim/wedding-api/internal/http/response"
	"github.com/rachelandtim/wedding-api/internal/service"
	"github.com/rachelandtim/wedding-api/pkg/logger"
)

// The response body is the same whether or not an RSVP exists for the
// address, so the endpoint cannot be used to probe the guest list.
const modifyRequestMessage = "If an RSVP exists for this email, a modification link has been sent."

// RequestModification handles POST /v1/rsvp/modify-request.
func (h *Handlers) RequestModification(w http.ResponseWriter, r *http.Request) {
	var req domain.ModifyRequest
	if !decodeJSON(r, &req) {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	req.Normalize()
	if err := req.Validate(); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	if err := h.modifyService.RequestLink(r.Context(), &req, getClientIP(r), r.UserAgent()); err != nil {
		logger.ErrorContext(r.Context(), "Failed to handle modification request", "error", err)
		response.InternalError(w, "Something went wrong. Please try again.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": modifyRequestMessage})
}

// VerifyToken handles GET /v1/rsvp/verify-token. It never consumes the
// token, so the edit form can call it on load and again on focus.
func (h *Handlers) VerifyToken(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		response.BadRequest(w, "Missing token")
		return
	}
	if !domain.IsValidTokenFormat(token) {
		response.BadRequest(w, "Invalid token format")
		return
	}

	rsvp, err := h.modifyService.Verify(r.Context(), token)
	if err != nil {
		h.writeModifyError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"valid": true,
		"rsvp":  rsvp,
	})
}

// UpdateRSVP handles PUT /v1/rsvp, the token-gated update.
func (h *Handlers) UpdateRSVP(w http.ResponseWriter, r *http.Request) {
	var req domain.RedeemRequest
	if !decodeJSON(r, &req) {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	req.Normalize()
	if req.Token == "" {
		response.BadRequest(w, "Missing token")
		return
	}
	if !domain.IsValidTokenFormat(req.Token) {
		response.BadRequest(w, "Invalid token format")
		return
	}
	if err := req.RSVPPatch.Validate(); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	rsvp, err := h.modifyService.Redeem(r.Context(), &req)
	if err != nil {
		h.writeModifyError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "RSVP updated",
		"rsvp":    rsvp.Summary(),
	})
}

func (h *Handlers) writeModifyError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidToken):
		response.WriteError(w, http.StatusUnauthorized, "Invalid or expired modification link", response.CodeInvalidToken)
	case errors.Is(err, service.ErrRSVPNotFound):
		response.NotFound(w, "No RSVP found for this link")
	case errors.Is(err, service.ErrEmailMismatch):
		response.Forbidden(w, "Email does not match this modification link")
	default:
		logger.ErrorContext(r.Context(), "Modification flow failed", "error", err)
		response.InternalError(w, "Something went wrong. Please try again.")
	}
}
