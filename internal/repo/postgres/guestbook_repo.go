package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rachelandtim/wedding-api/internal/domain"
)

type GuestbookRepository interface {
	Create(ctx context.Context, req *domain.CreateGuestbookEntryRequest) (*domain.GuestbookEntry, error)
	List(ctx context.Context, limit, offset int) ([]domain.GuestbookEntry, int, error)
	Stats(ctx context.Context) (*domain.GuestbookStats, error)
}

type guestbookRepository struct {
	pool *pgxpool.Pool
}

func NewGuestbookRepository(pool *pgxpool.Pool) GuestbookRepository {
	return &guestbookRepository{pool: pool}
}

func (r *guestbookRepository) Create(ctx context.Context, req *domain.CreateGuestbookEntryRequest) (*domain.GuestbookEntry, error) {
	const q = `INSERT INTO guestbook_entries (name, message, location)
		VALUES ($1, $2, $3)
		RETURNING id, name, message, location, created_at`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var e domain.GuestbookEntry
	err := r.pool.QueryRow(ctx, q, req.Name, req.Message, req.Location).Scan(
		&e.ID, &e.Name, &e.Message, &e.Location, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *guestbookRepository) List(ctx context.Context, limit, offset int) ([]domain.GuestbookEntry, int, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM guestbook_entries`).Scan(&total); err != nil {
		return nil, 0, err
	}

	const q = `SELECT id, name, message, location, created_at
		FROM guestbook_entries
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []domain.GuestbookEntry
	for rows.Next() {
		var e domain.GuestbookEntry
		if err := rows.Scan(&e.ID, &e.Name, &e.Message, &e.Location, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

func (r *guestbookRepository) Stats(ctx context.Context) (*domain.GuestbookStats, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	stats := &domain.GuestbookStats{}

	const q = `SELECT count(*),
		count(DISTINCT lower(trim(location))) FILTER (WHERE location IS NOT NULL AND trim(location) <> '')
		FROM guestbook_entries`

	if err := r.pool.QueryRow(ctx, q).Scan(&stats.TotalEntries, &stats.CitiesCount); err != nil {
		return nil, err
	}

	// Emoji counting stays in Go; no sane SQL expression for it.
	rows, err := r.pool.Query(ctx, `SELECT message FROM guestbook_entries`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var msg string
		if err := rows.Scan(&msg); err != nil {
			return nil, err
		}
		stats.EmojiCount += domain.CountEmoji(msg)
	}
	return stats, rows.Err()
}
