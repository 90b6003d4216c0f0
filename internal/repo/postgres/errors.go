package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrTokenNotRedeemable covers not-found, already-used, and expired
	// tokens. Callers must not distinguish between them.
	ErrTokenNotRedeemable = errors.New("token invalid, used, or expired")

	// ErrRSVPNotFound is returned when a valid token points at an email
	// with no stored RSVP.
	ErrRSVPNotFound = errors.New("rsvp not found")

	// ErrDuplicateEmail is returned when a second record is created for an
	// email that already has one.
	ErrDuplicateEmail = errors.New("record already exists for this email")
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
