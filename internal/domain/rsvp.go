package domain

import (
	"fmt"
	"regexp"
	"time"

	"github.com/rachelandtim/wedding-api/internal/utils"
)

type RSVP struct {
	ID                    int64      `json:"id"`
	GuestID               *int64     `json:"guest_id,omitempty"`
	GuestName             string     `json:"guest_name"`
	GuestEmail            string     `json:"guest_email"`
	Attending             bool       `json:"attending"`
	PlusOne               bool       `json:"plus_one"`
	PlusOneName           *string    `json:"plus_one_name"`
	DietaryRestrictions   *string    `json:"dietary_restrictions"`
	SongRequests          *string    `json:"song_requests"`
	SpecialAccommodations *string    `json:"special_accommodations"`
	NumberOfGuests        int        `json:"number_of_guests"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// RSVPSummary is the trimmed shape returned after create/update.
type RSVPSummary struct {
	ID        int64  `json:"id"`
	GuestName string `json:"guest_name"`
	Attending bool   `json:"attending"`
}

func (r *RSVP) Summary() *RSVPSummary {
	return &RSVPSummary{
		ID:        r.ID,
		GuestName: r.GuestName,
		Attending: r.Attending,
	}
}

type CreateRSVPRequest struct {
	GuestName             string  `json:"guest_name"`
	GuestEmail            string  `json:"guest_email"`
	Attending             *bool   `json:"attending"`
	PlusOne               bool    `json:"plus_one"`
	PlusOneName           *string `json:"plus_one_name"`
	DietaryRestrictions   *string `json:"dietary_restrictions"`
	SongRequests          *string `json:"song_requests"`
	SpecialAccommodations *string `json:"special_accommodations"`
}

func (r *CreateRSVPRequest) Validate() error {
	if r.GuestName == "" {
		return fmt.Errorf("guest name is required")
	}
	if r.GuestEmail == "" {
		return fmt.Errorf("email is required")
	}
	if !IsValidEmail(r.GuestEmail) {
		return fmt.Errorf("invalid email format")
	}
	if r.Attending == nil {
		return fmt.Errorf("attending is required")
	}
	if r.PlusOne && (r.PlusOneName == nil || *r.PlusOneName == "") {
		return fmt.Errorf("plus-one name is required when bringing a plus-one")
	}
	return nil
}

func (r *CreateRSVPRequest) Normalize() {
	r.GuestName = utils.Sanitize(r.GuestName)
	r.GuestEmail = utils.NormalizeEmail(r.GuestEmail)
	r.PlusOneName = sanitizeOptional(r.PlusOneName)
	r.DietaryRestrictions = sanitizeOptional(r.DietaryRestrictions)
	r.SongRequests = sanitizeOptional(r.SongRequests)
	r.SpecialAccommodations = sanitizeOptional(r.SpecialAccommodations)
	if !r.PlusOne {
		r.PlusOneName = nil
	}
}

// NumberOfGuests is always derived from the plus-one flag.
func (r *CreateRSVPRequest) NumberOfGuests() int {
	if r.PlusOne {
		return 2
	}
	return 1
}

// RSVPPatch carries a partial update; nil fields keep their stored value.
type RSVPPatch struct {
	GuestName             *string `json:"guest_name"`
	Attending             *bool   `json:"attending"`
	PlusOne               *bool   `json:"plus_one"`
	PlusOneName           *string `json:"plus_one_name"`
	DietaryRestrictions   *string `json:"dietary_restrictions"`
	SongRequests          *string `json:"song_requests"`
	SpecialAccommodations *string `json:"special_accommodations"`
}

func (p *RSVPPatch) Validate() error {
	if p.GuestName != nil && *p.GuestName == "" {
		return fmt.Errorf("guest name cannot be empty")
	}
	if p.PlusOne != nil && *p.PlusOne && (p.PlusOneName == nil || *p.PlusOneName == "") {
		return fmt.Errorf("plus-one name is required when bringing a plus-one")
	}
	return nil
}

func (p *RSVPPatch) Normalize() {
	p.GuestName = sanitizeOptional(p.GuestName)
	p.PlusOneName = sanitizeOptional(p.PlusOneName)
	p.DietaryRestrictions = sanitizeOptional(p.DietaryRestrictions)
	p.SongRequests = sanitizeOptional(p.SongRequests)
	p.SpecialAccommodations = sanitizeOptional(p.SpecialAccommodations)
}

// Apply writes the present patch fields onto the record. The plus-one name
// and guest count are kept consistent with the plus-one flag no matter what
// the caller sent.
func (p *RSVPPatch) Apply(r *RSVP) {
	if p.GuestName != nil {
		r.GuestName = *p.GuestName
	}
	if p.Attending != nil {
		r.Attending = *p.Attending
	}
	if p.PlusOne != nil {
		r.PlusOne = *p.PlusOne
		r.PlusOneName = p.PlusOneName
	}
	if p.DietaryRestrictions != nil {
		r.DietaryRestrictions = emptyToNil(p.DietaryRestrictions)
	}
	if p.SongRequests != nil {
		r.SongRequests = emptyToNil(p.SongRequests)
	}
	if p.SpecialAccommodations != nil {
		r.SpecialAccommodations = emptyToNil(p.SpecialAccommodations)
	}

	if r.PlusOne {
		r.NumberOfGuests = 2
	} else {
		r.PlusOneName = nil
		r.NumberOfGuests = 1
	}
}

func sanitizeOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := utils.Sanitize(*s)
	return &v
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func IsValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}
