package service

import "errors"

// Outcome classes the handlers map onto HTTP statuses. Anything else
// coming out of a service is a 500.
var (
	// ErrInvalidToken covers malformed-but-plausible, unknown, already
	// used, and expired tokens alike. Callers cannot tell which.
	ErrInvalidToken = errors.New("invalid or expired modification link")

	// ErrRSVPNotFound means the token checked out but the RSVP it points
	// at no longer exists.
	ErrRSVPNotFound = errors.New("no RSVP found for this email")

	// ErrEmailMismatch means the request body named a different email
	// than the one the token is bound to.
	ErrEmailMismatch = errors.New("email does not match this modification link")

	// ErrDuplicateRSVP is returned when an email that already responded
	// tries to create a second RSVP.
	ErrDuplicateRSVP = errors.New("an RSVP already exists for this email; request a modification link to change it")
)
