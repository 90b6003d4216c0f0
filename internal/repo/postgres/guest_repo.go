package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rachelandtim/wedding-api/internal/domain"
)

type GuestRepository interface {
	Create(ctx context.Context, req *domain.CreateGuestRequest) (*domain.Guest, error)
	FindByID(ctx context.Context, id int64) (*domain.Guest, error)
	FindByEmail(ctx context.Context, email string) (*domain.Guest, error)
	List(ctx context.Context, search string) ([]domain.Guest, error)
	Update(ctx context.Context, id int64, req *domain.UpdateGuestRequest) (*domain.Guest, error)
	Delete(ctx context.Context, id int64) (bool, error)
	// FindMatch backs the public RSVP-form lookup: exact email or name
	// substring, with the latest RSVP summary when one exists.
	FindMatch(ctx context.Context, query string) (*domain.GuestMatch, error)
}

type guestRepository struct {
	pool *pgxpool.Pool
}

func NewGuestRepository(pool *pgxpool.Pool) GuestRepository {
	return &guestRepository{pool: pool}
}

const guestCols = `id, name, email, allow_plus_one, max_guests,
invitation_sent, invitation_sent_at, notes, created_at, updated_at`

func scanGuest(row pgx.Row) (*domain.Guest, error) {
	var g domain.Guest
	err := row.Scan(
		&g.ID, &g.Name, &g.Email, &g.AllowPlusOne, &g.MaxGuests,
		&g.InvitationSent, &g.InvitationSentAt, &g.Notes, &g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *guestRepository) Create(ctx context.Context, req *domain.CreateGuestRequest) (*domain.Guest, error) {
	const q = `INSERT INTO guests (name, email, allow_plus_one, max_guests, invitation_sent, invitation_sent_at, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING ` + guestCols

	var sentAt *time.Time
	if req.InvitationSent {
		now := time.Now()
		sentAt = &now
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	guest, err := scanGuest(r.pool.QueryRow(ctx, q,
		req.Name, req.Email, req.AllowPlusOne, req.MaxGuests,
		req.InvitationSent, sentAt, req.Notes,
	))
	if isUniqueViolation(err) {
		return nil, ErrDuplicateEmail
	}
	return guest, err
}

func (r *guestRepository) FindByID(ctx context.Context, id int64) (*domain.Guest, error) {
	const q = `SELECT ` + guestCols + ` FROM guests WHERE id=$1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	guest, err := scanGuest(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return guest, err
}

func (r *guestRepository) FindByEmail(ctx context.Context, email string) (*domain.Guest, error) {
	const q = `SELECT ` + guestCols + ` FROM guests WHERE lower(email)=lower($1)`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	guest, err := scanGuest(r.pool.QueryRow(ctx, q, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return guest, err
}

func (r *guestRepository) List(ctx context.Context, search string) ([]domain.Guest, error) {
	q := `SELECT ` + guestCols + ` FROM guests`
	args := []any{}
	if search != "" {
		q += ` WHERE name ILIKE '%' || $1 || '%' OR email ILIKE '%' || $1 || '%'`
		args = append(args, search)
	}
	q += ` ORDER BY name ASC`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var guests []domain.Guest
	for rows.Next() {
		g, err := scanGuest(rows)
		if err != nil {
			return nil, err
		}
		guests = append(guests, *g)
	}
	return guests, rows.Err()
}

func (r *guestRepository) Update(ctx context.Context, id int64, req *domain.UpdateGuestRequest) (*domain.Guest, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	existing, err := r.FindByID(ctx, id)
	if err != nil || existing == nil {
		return nil, err
	}

	if req.Name != nil {
		existing.Name = *req.Name
	}
	if req.Email != nil {
		existing.Email = *req.Email
	}
	if req.AllowPlusOne != nil {
		existing.AllowPlusOne = *req.AllowPlusOne
	}
	if req.MaxGuests != nil {
		existing.MaxGuests = *req.MaxGuests
	}
	if req.InvitationSent != nil {
		existing.InvitationSent = *req.InvitationSent
		if *req.InvitationSent && existing.InvitationSentAt == nil {
			now := time.Now()
			existing.InvitationSentAt = &now
		}
	}
	if req.Notes != nil {
		if *req.Notes == "" {
			existing.Notes = nil
		} else {
			existing.Notes = req.Notes
		}
	}

	const q = `UPDATE guests
		SET name=$2, email=$3, allow_plus_one=$4, max_guests=$5,
		    invitation_sent=$6, invitation_sent_at=$7, notes=$8, updated_at=now()
		WHERE id=$1
		RETURNING updated_at`

	err = r.pool.QueryRow(ctx, q,
		existing.ID, existing.Name, existing.Email, existing.AllowPlusOne,
		existing.MaxGuests, existing.InvitationSent, existing.InvitationSentAt,
		existing.Notes,
	).Scan(&existing.UpdatedAt)
	if isUniqueViolation(err) {
		return nil, ErrDuplicateEmail
	}
	if err != nil {
		return nil, err
	}
	return existing, nil
}

func (r *guestRepository) Delete(ctx context.Context, id int64) (bool, error) {
	const q = `DELETE FROM guests WHERE id=$1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

func (r *guestRepository) FindMatch(ctx context.Context, query string) (*domain.GuestMatch, error) {
	const q = `SELECT id, name, email, allow_plus_one, max_guests
		FROM guests
		WHERE lower(email) = lower($1) OR name ILIKE '%' || $1 || '%'
		ORDER BY (lower(email) = lower($1)) DESC, name ASC
		LIMIT 1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var m domain.GuestMatch
	err := r.pool.QueryRow(ctx, q, query).Scan(
		&m.ID, &m.Name, &m.Email, &m.AllowPlusOne, &m.MaxGuests,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	const rsvpQ = `SELECT id, guest_name, attending FROM rsvps
		WHERE guest_id = $1 OR lower(guest_email) = lower($2)
		ORDER BY created_at DESC
		LIMIT 1`

	var s domain.RSVPSummary
	err = r.pool.QueryRow(ctx, rsvpQ, m.ID, m.Email).Scan(&s.ID, &s.GuestName, &s.Attending)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err == nil {
		m.LatestRSVP = &s
	}
	return &m, nil
}
