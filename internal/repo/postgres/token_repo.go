package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rachelandtim/wedding-api/internal/domain"
)

type TokenRepository interface {
	Create(ctx context.Context, t *domain.ModificationToken) error
	FindByToken(ctx context.Context, token string) (*domain.ModificationToken, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

type tokenRepository struct {
	pool *pgxpool.Pool
}

func NewTokenRepository(pool *pgxpool.Pool) TokenRepository {
	return &tokenRepository{pool: pool}
}

func (r *tokenRepository) Create(ctx context.Context, t *domain.ModificationToken) error {
	const q = `
		INSERT INTO rsvp_modification_tokens (email, token, expires_at, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return r.pool.QueryRow(ctx, q,
		t.Email, t.Token, t.ExpiresAt, t.IPAddress, t.UserAgent,
	).Scan(&t.ID, &t.CreatedAt)
}

func (r *tokenRepository) FindByToken(ctx context.Context, token string) (*domain.ModificationToken, error) {
	const q = `
		SELECT id, email, token, expires_at, used, used_at, ip_address, user_agent, created_at
		FROM rsvp_modification_tokens
		WHERE token = $1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var t domain.ModificationToken
	err := r.pool.QueryRow(ctx, q, token).Scan(
		&t.ID, &t.Email, &t.Token, &t.ExpiresAt, &t.Used, &t.UsedAt,
		&t.IPAddress, &t.UserAgent, &t.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// DeleteExpired prunes dead tokens. Expiry is enforced at read time, so this
// is housekeeping only and can run on any cadence.
func (r *tokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	const q = `
		DELETE FROM rsvp_modification_tokens
		WHERE (used = true AND used_at < now() - interval '30 days')
		   OR (used = false AND expires_at < now() - interval '7 days')`

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected(), nil
}
