package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rachelandtim/wedding-api/internal/domain"
	"github.com/rachelandtim/wedding-api/internal/platform/mailer"
	"github.com/rachelandtim/wedding-api/internal/repo/postgres"
	"github.com/rachelandtim/wedding-api/pkg/config"
	"github.com/rachelandtim/wedding-api/pkg/events"
	"github.com/rachelandtim/wedding-api/pkg/logger"
)

type RSVPService interface {
	Create(ctx context.Context, req *domain.CreateRSVPRequest) (*domain.RSVP, error)
	FindByEmail(ctx context.Context, email string) (*domain.RSVP, error)
	List(ctx context.Context) ([]domain.RSVP, error)
}

type rsvpService struct {
	rsvpRepo  postgres.RSVPRepository
	guestRepo postgres.GuestRepository
	mailer    mailer.Service
	eventBus  events.EventBus
	config    *config.Config
}

func NewRSVPService(
	rsvpRepo postgres.RSVPRepository,
	guestRepo postgres.GuestRepository,
	m mailer.Service,
	eventBus events.EventBus,
	cfg *config.Config,
) RSVPService {
	return &rsvpService{
		rsvpRepo:  rsvpRepo,
		guestRepo: guestRepo,
		mailer:    m,
		eventBus:  eventBus,
		config:    cfg,
	}
}

func (s *rsvpService) Create(ctx context.Context, req *domain.CreateRSVPRequest) (*domain.RSVP, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	// Link to the invite list when the email matches. Misses are fine,
	// uninvited plus-ones RSVP too.
	var guestID *int64
	guest, err := s.guestRepo.FindByEmail(ctx, req.GuestEmail)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to match invite list", "error", err, "email", req.GuestEmail)
	}
	if guest != nil {
		guestID = &guest.ID
	}

	rsvp, err := s.rsvpRepo.Create(ctx, req, guestID)
	if err != nil {
		if errors.Is(err, postgres.ErrDuplicateEmail) {
			return nil, ErrDuplicateRSVP
		}
		return nil, fmt.Errorf("failed to create rsvp: %w", err)
	}

	if err := mailer.SendRSVPConfirmation(s.mailer, rsvp.GuestEmail, rsvp.GuestName, rsvp.Attending, derefOr(rsvp.PlusOneName, "")); err != nil {
		logger.ErrorContext(ctx, "Failed to send rsvp confirmation", "error", err, "email", rsvp.GuestEmail)
	}
	if s.config.Email.AdminEmail != "" {
		if err := mailer.SendAdminRSVPNotification(s.mailer, s.config.Email.AdminEmail,
			rsvp.GuestName, rsvp.GuestEmail, rsvp.Attending, rsvp.NumberOfGuests, "received"); err != nil {
			logger.ErrorContext(ctx, "Failed to notify admin of rsvp", "error", err)
		}
	}

	if err := s.eventBus.Publish(ctx, events.RSVPCreated, events.RSVPCreatedEvent{
		RSVPID:         rsvp.ID,
		GuestName:      rsvp.GuestName,
		GuestEmail:     rsvp.GuestEmail,
		Attending:      rsvp.Attending,
		NumberOfGuests: rsvp.NumberOfGuests,
		CreatedAt:      rsvp.CreatedAt,
	}); err != nil {
		logger.ErrorContext(ctx, "Failed to publish event", "error", err, "subject", events.RSVPCreated)
	}

	return rsvp, nil
}

func (s *rsvpService) FindByEmail(ctx context.Context, email string) (*domain.RSVP, error) {
	return s.rsvpRepo.FindByEmail(ctx, email)
}

func (s *rsvpService) List(ctx context.Context) ([]domain.RSVP, error) {
	return s.rsvpRepo.List(ctx)
}
