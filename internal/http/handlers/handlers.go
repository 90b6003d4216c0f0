package handlers

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/rachelandtim/wedding-api/internal/http/response"
	"github.com/rachelandtim/wedding-api/internal/platform/auth"
	"github.com/rachelandtim/wedding-api/internal/ratelimit"
	"github.com/rachelandtim/wedding-api/internal/repo/postgres"
	"github.com/rachelandtim/wedding-api/internal/service"
	"github.com/rachelandtim/wedding-api/pkg/config"
	"github.com/rachelandtim/wedding-api/pkg/logger"
)

type claimsKey struct{}

type Handlers struct {
	modifyService    service.ModifyService
	rsvpService      service.RSVPService
	guestbookService service.GuestbookService
	guestRepo        postgres.GuestRepository
	scoreRepo        postgres.ScoreRepository
	counterRepo      postgres.CounterRepository
	config           *config.Config
}

func New(
	modifyService service.ModifyService,
	rsvpService service.RSVPService,
	guestbookService service.GuestbookService,
	guestRepo postgres.GuestRepository,
	scoreRepo postgres.ScoreRepository,
	counterRepo postgres.CounterRepository,
	cfg *config.Config,
) *Handlers {
	return &Handlers{
		modifyService:    modifyService,
		rsvpService:      rsvpService,
		guestbookService: guestbookService,
		guestRepo:        guestRepo,
		scoreRepo:        scoreRepo,
		counterRepo:      counterRepo,
		config:           cfg,
	}
}

// RequireAdmin guards the admin surface with a bearer JWT.
func (h *Handlers) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			response.Unauthorized(w, "Missing or invalid authorization header")
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := auth.Parse(token, h.config.Admin.JWTSecret)
		if err != nil {
			response.WriteError(w, http.StatusUnauthorized, "Invalid token", response.CodeInvalidToken)
			return
		}
		if claims.Role != auth.RoleAdmin {
			response.Forbidden(w, "Insufficient permissions")
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RateLimit applies a per-client-IP limiter to a route group. Limiter
// errors fail open.
func RateLimit(limiter ratelimit.Limiter, scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := scope + ":" + getClientIP(r)

			allowed, err := limiter.Allow(r.Context(), key)
			if err != nil {
				logger.ErrorContext(r.Context(), "Rate limit check failed", "error", err, "scope", scope)
			} else if !allowed {
				response.RateLimit(w, "Too many requests. Please try again later.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func getClaims(r *http.Request) *auth.Claims {
	if claims, ok := r.Context().Value(claimsKey{}).(*auth.Claims); ok {
		return claims
	}
	return nil
}

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func decodeJSON(r *http.Request, dst interface{}) bool {
	return json.NewDecoder(r.Body).Decode(dst) == nil
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit = 10
	offset = 0

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 50 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 1 {
			offset = (n - 1) * limit
		}
	}

	return limit, offset
}
