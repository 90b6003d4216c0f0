package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rachelandtim/wedding-api/internal/domain"
	"github.com/rachelandtim/wedding-api/internal/platform/mailer"
	"github.com/rachelandtim/wedding-api/internal/repo/postgres"
	"github.com/rachelandtim/wedding-api/pkg/config"
	"github.com/rachelandtim/wedding-api/pkg/events"
	"github.com/rachelandtim/wedding-api/pkg/logger"
)

// ModifyService implements the magic-link flow: a guest asks for a link,
// opens it (verify), and submits changes through it (redeem).
type ModifyService interface {
	// RequestLink mints and emails a modification link when an RSVP exists
	// for the address. It reports success either way so callers cannot
	// probe which emails have responded.
	RequestLink(ctx context.Context, req *domain.ModifyRequest, clientIP, userAgent string) error

	// Verify checks a token without consuming it and returns the RSVP it
	// unlocks, for prefilling the edit form. Safe to call repeatedly.
	Verify(ctx context.Context, token string) (*domain.RSVP, error)

	// Redeem consumes the token and applies the update in one shot.
	Redeem(ctx context.Context, req *domain.RedeemRequest) (*domain.RSVP, error)
}

type modifyService struct {
	tokenRepo postgres.TokenRepository
	rsvpRepo  postgres.RSVPRepository
	mailer    mailer.Service
	eventBus  events.EventBus
	config    *config.Config
}

func NewModifyService(
	tokenRepo postgres.TokenRepository,
	rsvpRepo postgres.RSVPRepository,
	m mailer.Service,
	eventBus events.EventBus,
	cfg *config.Config,
) ModifyService {
	return &modifyService{
		tokenRepo: tokenRepo,
		rsvpRepo:  rsvpRepo,
		mailer:    m,
		eventBus:  eventBus,
		config:    cfg,
	}
}

func (s *modifyService) RequestLink(ctx context.Context, req *domain.ModifyRequest, clientIP, userAgent string) error {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	rsvp, err := s.rsvpRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		return fmt.Errorf("failed to look up rsvp: %w", err)
	}
	if rsvp == nil {
		// Same outcome as success from the caller's side.
		logger.DebugContext(ctx, "Modification link requested for unknown email", "email", req.Email)
		return nil
	}

	value, err := domain.NewTokenString()
	if err != nil {
		return err
	}

	token := &domain.ModificationToken{
		// Always the stored address, never the request's casing.
		Email:     rsvp.GuestEmail,
		Token:     value,
		ExpiresAt: time.Now().Add(s.config.Site.TokenTTL),
	}
	if clientIP != "" {
		token.IPAddress = &clientIP
	}
	if userAgent != "" {
		token.UserAgent = &userAgent
	}

	if err := s.tokenRepo.Create(ctx, token); err != nil {
		return fmt.Errorf("failed to store modification token: %w", err)
	}

	link := fmt.Sprintf("%s/rsvp/modify?token=%s", s.config.Site.BaseURL, value)
	if err := mailer.SendMagicLink(s.mailer, rsvp.GuestEmail, rsvp.GuestName, link); err != nil {
		// Token exists and the guest can retry after the rate limit window.
		logger.ErrorContext(ctx, "Failed to send modification link", "error", err, "email", rsvp.GuestEmail)
	}

	s.publish(ctx, events.ModifyTokenIssued, events.ModifyTokenIssuedEvent{
		Email:     rsvp.GuestEmail,
		ExpiresAt: token.ExpiresAt,
		IssuedAt:  time.Now(),
	})

	return nil
}

func (s *modifyService) Verify(ctx context.Context, token string) (*domain.RSVP, error) {
	t, err := s.lookupUsable(ctx, token)
	if err != nil {
		return nil, err
	}

	rsvp, err := s.rsvpRepo.FindByEmail(ctx, t.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to load rsvp: %w", err)
	}
	if rsvp == nil {
		return nil, ErrRSVPNotFound
	}
	return rsvp, nil
}

func (s *modifyService) Redeem(ctx context.Context, req *domain.RedeemRequest) (*domain.RSVP, error) {
	req.Normalize()

	t, err := s.lookupUsable(ctx, req.Token)
	if err != nil {
		return nil, err
	}

	// Identity binding: a body email must name the address the token is
	// bound to. The patch itself never carries an email.
	if req.Email != "" && req.Email != t.Email {
		return nil, ErrEmailMismatch
	}

	if err := req.RSVPPatch.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	rsvp, err := s.rsvpRepo.RedeemAndUpdate(ctx, req.Token, req.RSVPPatch)
	if err != nil {
		switch {
		case errors.Is(err, postgres.ErrTokenNotRedeemable):
			// A concurrent redemption won, or the token aged out between
			// the precheck and the consume.
			return nil, ErrInvalidToken
		case errors.Is(err, postgres.ErrRSVPNotFound):
			return nil, ErrRSVPNotFound
		default:
			return nil, fmt.Errorf("failed to redeem token: %w", err)
		}
	}

	if err := mailer.SendRSVPConfirmation(s.mailer, rsvp.GuestEmail, rsvp.GuestName, rsvp.Attending, derefOr(rsvp.PlusOneName, "")); err != nil {
		logger.ErrorContext(ctx, "Failed to send update confirmation", "error", err, "email", rsvp.GuestEmail)
	}

	s.publish(ctx, events.RSVPUpdated, events.RSVPUpdatedEvent{
		RSVPID:     rsvp.ID,
		GuestEmail: rsvp.GuestEmail,
		Changes:    patchedFields(&req.RSVPPatch),
		UpdatedAt:  rsvp.UpdatedAt,
	})

	return rsvp, nil
}

// lookupUsable runs the shared verify sequence: format check before any
// store access, then the same rejection for unknown, used, and expired
// tokens.
func (s *modifyService) lookupUsable(ctx context.Context, token string) (*domain.ModificationToken, error) {
	if !domain.IsValidTokenFormat(token) {
		return nil, ErrInvalidToken
	}

	t, err := s.tokenRepo.FindByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}
	if t == nil || !t.Usable() {
		return nil, ErrInvalidToken
	}
	return t, nil
}

func (s *modifyService) publish(ctx context.Context, subject string, payload any) {
	if err := s.eventBus.Publish(ctx, subject, payload); err != nil {
		logger.ErrorContext(ctx, "Failed to publish event", "error", err, "subject", subject)
	}
}

func patchedFields(p *domain.RSVPPatch) []string {
	var fields []string
	if p.GuestName != nil {
		fields = append(fields, "guest_name")
	}
	if p.Attending != nil {
		fields = append(fields, "attending")
	}
	if p.PlusOne != nil {
		fields = append(fields, "plus_one")
	}
	if p.PlusOneName != nil {
		fields = append(fields, "plus_one_name")
	}
	if p.DietaryRestrictions != nil {
		fields = append(fields, "dietary_restrictions")
	}
	if p.SongRequests != nil {
		fields = append(fields, "song_requests")
	}
	if p.SpecialAccommodations != nil {
		fields = append(fields, "special_accommodations")
	}
	return fields
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
