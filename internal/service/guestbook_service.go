package service

import (
	"context"
	"fmt"

	"github.com/rachelandtim/wedding-api/internal/domain"
	"github.com/rachelandtim/wedding-api/internal/platform/mailer"
	"github.com/rachelandtim/wedding-api/internal/repo/postgres"
	"github.com/rachelandtim/wedding-api/pkg/config"
	"github.com/rachelandtim/wedding-api/pkg/events"
	"github.com/rachelandtim/wedding-api/pkg/logger"
)

type GuestbookService interface {
	Create(ctx context.Context, req *domain.CreateGuestbookEntryRequest) (*domain.GuestbookEntry, error)
	List(ctx context.Context, limit, offset int) ([]domain.GuestbookEntry, int, error)
	Stats(ctx context.Context) (*domain.GuestbookStats, error)
}

type guestbookService struct {
	repo     postgres.GuestbookRepository
	mailer   mailer.Service
	eventBus events.EventBus
	config   *config.Config
}

func NewGuestbookService(repo postgres.GuestbookRepository, m mailer.Service, eventBus events.EventBus, cfg *config.Config) GuestbookService {
	return &guestbookService{repo: repo, mailer: m, eventBus: eventBus, config: cfg}
}

func (s *guestbookService) Create(ctx context.Context, req *domain.CreateGuestbookEntryRequest) (*domain.GuestbookEntry, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	entry, err := s.repo.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create guestbook entry: %w", err)
	}

	if s.config.Email.AdminEmail != "" {
		location := ""
		if entry.Location != nil {
			location = *entry.Location
		}
		if err := mailer.SendGuestbookNotification(s.mailer, s.config.Email.AdminEmail, entry.Name, location, entry.Message); err != nil {
			logger.ErrorContext(ctx, "Failed to notify admin of guestbook entry", "error", err)
		}
	}

	if err := s.eventBus.Publish(ctx, events.GuestbookEntryCreated, events.GuestbookEntryCreatedEvent{
		EntryID:   entry.ID,
		Name:      entry.Name,
		CreatedAt: entry.CreatedAt,
	}); err != nil {
		logger.ErrorContext(ctx, "Failed to publish event", "error", err, "subject", events.GuestbookEntryCreated)
	}

	return entry, nil
}

func (s *guestbookService) List(ctx context.Context, limit, offset int) ([]domain.GuestbookEntry, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *guestbookService) Stats(ctx context.Context) (*domain.GuestbookStats, error) {
	return s.repo.Stats(ctx)
}
