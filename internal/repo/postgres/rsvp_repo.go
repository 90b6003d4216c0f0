package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rachelandtim/wedding-api/internal/domain"
)

type RSVPRepository interface {
	Create(ctx context.Context, req *domain.CreateRSVPRequest, guestID *int64) (*domain.RSVP, error)
	FindByEmail(ctx context.Context, email string) (*domain.RSVP, error)
	List(ctx context.Context) ([]domain.RSVP, error)
	// RedeemAndUpdate consumes the token and applies the patch to the RSVP
	// stored under the token's bound email as one atomic unit. At most one
	// concurrent caller succeeds for a given token.
	RedeemAndUpdate(ctx context.Context, token string, patch domain.RSVPPatch) (*domain.RSVP, error)
}

type rsvpRepository struct {
	pool *pgxpool.Pool
}

func NewRSVPRepository(pool *pgxpool.Pool) RSVPRepository {
	return &rsvpRepository{pool: pool}
}

const rsvpCols = `id, guest_id, guest_name, guest_email, attending,
plus_one, plus_one_name, dietary_restrictions, song_requests,
special_accommodations, number_of_guests, created_at, updated_at`

func scanRSVP(row pgx.Row) (*domain.RSVP, error) {
	var r domain.RSVP
	err := row.Scan(
		&r.ID, &r.GuestID, &r.GuestName, &r.GuestEmail, &r.Attending,
		&r.PlusOne, &r.PlusOneName, &r.DietaryRestrictions, &r.SongRequests,
		&r.SpecialAccommodations, &r.NumberOfGuests, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *rsvpRepository) Create(ctx context.Context, req *domain.CreateRSVPRequest, guestID *int64) (*domain.RSVP, error) {
	const q = `INSERT INTO rsvps (
		guest_id, guest_name, guest_email, attending,
		plus_one, plus_one_name, dietary_restrictions, song_requests,
		special_accommodations, number_of_guests
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	RETURNING ` + rsvpCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rsvp, err := scanRSVP(r.pool.QueryRow(ctx, q,
		guestID, req.GuestName, req.GuestEmail, *req.Attending,
		req.PlusOne, req.PlusOneName, req.DietaryRestrictions, req.SongRequests,
		req.SpecialAccommodations, req.NumberOfGuests(),
	))
	if isUniqueViolation(err) {
		return nil, ErrDuplicateEmail
	}
	return rsvp, err
}

func (r *rsvpRepository) FindByEmail(ctx context.Context, email string) (*domain.RSVP, error) {
	const q = `SELECT ` + rsvpCols + ` FROM rsvps WHERE lower(guest_email)=lower($1)`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rsvp, err := scanRSVP(r.pool.QueryRow(ctx, q, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return rsvp, err
}

func (r *rsvpRepository) List(ctx context.Context) ([]domain.RSVP, error) {
	const q = `SELECT ` + rsvpCols + ` FROM rsvps ORDER BY created_at DESC`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rsvps []domain.RSVP
	for rows.Next() {
		rsvp, err := scanRSVP(rows)
		if err != nil {
			return nil, err
		}
		rsvps = append(rsvps, *rsvp)
	}
	return rsvps, rows.Err()
}

func (r *rsvpRepository) RedeemAndUpdate(ctx context.Context, token string, patch domain.RSVPPatch) (*domain.RSVP, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// Conditional consume: zero rows means some other redemption won, or
	// the token never existed, was used, or expired. Not distinguished.
	const consumeQ = `
		UPDATE rsvp_modification_tokens
		SET used = true, used_at = now()
		WHERE token = $1
		  AND used = false
		  AND expires_at > now()
		RETURNING email`

	var email string
	if err := tx.QueryRow(ctx, consumeQ, token).Scan(&email); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTokenNotRedeemable
		}
		return nil, err
	}

	const selectQ = `SELECT ` + rsvpCols + ` FROM rsvps WHERE lower(guest_email)=lower($1) FOR UPDATE`

	rsvp, err := scanRSVP(tx.QueryRow(ctx, selectQ, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Rolls back, leaving the token unconsumed.
			return nil, ErrRSVPNotFound
		}
		return nil, err
	}

	patch.Apply(rsvp)

	const updateQ = `
		UPDATE rsvps
		SET guest_name=$2, attending=$3, plus_one=$4, plus_one_name=$5,
		    dietary_restrictions=$6, song_requests=$7,
		    special_accommodations=$8, number_of_guests=$9, updated_at=now()
		WHERE id=$1
		RETURNING updated_at`

	if err := tx.QueryRow(ctx, updateQ,
		rsvp.ID, rsvp.GuestName, rsvp.Attending, rsvp.PlusOne, rsvp.PlusOneName,
		rsvp.DietaryRestrictions, rsvp.SongRequests,
		rsvp.SpecialAccommodations, rsvp.NumberOfGuests,
	).Scan(&rsvp.UpdatedAt); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return rsvp, nil
}
