package domain

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/rachelandtim/wedding-api/internal/utils"
)

type GuestbookEntry struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Message   string    `json:"message"`
	Location  *string   `json:"location,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	GuestbookNameMin    = 2
	GuestbookNameMax    = 50
	GuestbookMessageMin = 5
	GuestbookMessageMax = 500
)

type CreateGuestbookEntryRequest struct {
	Name     string  `json:"name"`
	Message  string  `json:"message"`
	Location *string `json:"location"`
}

func (r *CreateGuestbookEntryRequest) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("name is required")
	}
	if r.Message == "" {
		return fmt.Errorf("message is required")
	}
	if utf8.RuneCountInString(r.Name) < GuestbookNameMin {
		return fmt.Errorf("name must be at least %d characters", GuestbookNameMin)
	}
	if utf8.RuneCountInString(r.Name) > GuestbookNameMax {
		return fmt.Errorf("name must be less than %d characters", GuestbookNameMax)
	}
	if utf8.RuneCountInString(r.Message) < GuestbookMessageMin {
		return fmt.Errorf("message must be at least %d characters", GuestbookMessageMin)
	}
	if utf8.RuneCountInString(r.Message) > GuestbookMessageMax {
		return fmt.Errorf("message must be less than %d characters", GuestbookMessageMax)
	}
	return nil
}

func (r *CreateGuestbookEntryRequest) Normalize() {
	r.Name = utils.Sanitize(r.Name)
	r.Message = utils.Sanitize(r.Message)
	r.Location = sanitizeOptional(r.Location)
	if r.Location != nil && *r.Location == "" {
		r.Location = nil
	}
}

// GuestbookStats summarizes the wall for the stats widget.
type GuestbookStats struct {
	TotalEntries int `json:"totalEntries"`
	CitiesCount  int `json:"citiesCount"`
	EmojiCount   int `json:"emojiCount"`
}

// CountEmoji counts runes in the common emoji blocks. Close enough for a
// vanity stat; deliberately not a full Unicode emoji property check.
func CountEmoji(s string) int {
	n := 0
	for _, r := range s {
		switch {
		case r >= 0x1F000 && r <= 0x1FAFF, // pictographs, symbols, emoticons
			r >= 0x2600 && r <= 0x27BF, // misc symbols and dingbats
			r >= 0x2300 && r <= 0x23FF, // misc technical
			r == 0x2B50, r == 0x2B55,
			r >= 0x2B05 && r <= 0x2B07,
			r == 0x2764:
			n++
		}
	}
	return n
}
