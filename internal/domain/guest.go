package domain

import (
	"fmt"
	"time"

	"github.com/rachelandtim/wedding-api/internal/utils"
)

// Guest is an invite-list entry managed by the couple, distinct from the
// self-submitted RSVP it may later be linked to.
type Guest struct {
	ID               int64      `json:"id"`
	Name             string     `json:"name"`
	Email            string     `json:"email"`
	AllowPlusOne     bool       `json:"allow_plus_one"`
	MaxGuests        int        `json:"max_guests"`
	InvitationSent   bool       `json:"invitation_sent"`
	InvitationSentAt *time.Time `json:"invitation_sent_at,omitempty"`
	Notes            *string    `json:"notes,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

type CreateGuestRequest struct {
	Name           string  `json:"name"`
	Email          string  `json:"email"`
	AllowPlusOne   bool    `json:"allow_plus_one"`
	MaxGuests      int     `json:"max_guests"`
	InvitationSent bool    `json:"invitation_sent"`
	Notes          *string `json:"notes"`
}

func (r *CreateGuestRequest) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("name is required")
	}
	if r.Email == "" {
		return fmt.Errorf("email is required")
	}
	if !IsValidEmail(r.Email) {
		return fmt.Errorf("invalid email format")
	}
	if r.MaxGuests < 0 {
		return fmt.Errorf("max guests cannot be negative")
	}
	return nil
}

func (r *CreateGuestRequest) Normalize() {
	r.Name = utils.Sanitize(r.Name)
	r.Email = utils.NormalizeEmail(r.Email)
	r.Notes = sanitizeOptional(r.Notes)
	if r.MaxGuests == 0 {
		r.MaxGuests = 1
	}
}

type UpdateGuestRequest struct {
	Name           *string `json:"name"`
	Email          *string `json:"email"`
	AllowPlusOne   *bool   `json:"allow_plus_one"`
	MaxGuests      *int    `json:"max_guests"`
	InvitationSent *bool   `json:"invitation_sent"`
	Notes          *string `json:"notes"`
}

func (r *UpdateGuestRequest) Validate() error {
	if r.Name != nil && *r.Name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if r.Email != nil && !IsValidEmail(*r.Email) {
		return fmt.Errorf("invalid email format")
	}
	if r.MaxGuests != nil && *r.MaxGuests < 1 {
		return fmt.Errorf("max guests must be at least 1")
	}
	return nil
}

func (r *UpdateGuestRequest) Normalize() {
	r.Name = sanitizeOptional(r.Name)
	if r.Email != nil {
		e := utils.NormalizeEmail(*r.Email)
		r.Email = &e
	}
	r.Notes = sanitizeOptional(r.Notes)
}

// GuestMatch is the public search result used to pre-fill the RSVP form.
type GuestMatch struct {
	ID           int64        `json:"id"`
	Name         string       `json:"name"`
	Email        string       `json:"email"`
	AllowPlusOne bool         `json:"allow_plus_one"`
	MaxGuests    int          `json:"max_guests"`
	LatestRSVP   *RSVPSummary `json:"latest_rsvp,omitempty"`
}
