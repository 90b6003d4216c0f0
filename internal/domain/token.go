package domain

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rachelandtim/wedding-api/internal/utils"
)

// ModificationToken is a single-use capability that authorizes editing the
// RSVP stored under its bound email address.
type ModificationToken struct {
	ID        int64      `json:"id"`
	Email     string     `json:"email"`
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
	Used      bool       `json:"used"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	IPAddress *string    `json:"-"`
	UserAgent *string    `json:"-"`
	CreatedAt time.Time  `json:"created_at"`
}

const (
	// TokenTTL bounds how long a modification link stays redeemable.
	TokenTTL = 15 * time.Minute

	tokenBytes = 32
)

// 64 lowercase hex characters, 256 bits of entropy.
var tokenRegex = regexp.MustCompile(`^[a-f0-9]{64}$`)

// NewTokenString draws a fresh token value from crypto/rand.
func NewTokenString() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// IsValidTokenFormat reports whether s looks like a token we could have
// issued. Checked before any store lookup.
func IsValidTokenFormat(s string) bool {
	return tokenRegex.MatchString(s)
}

func (t *ModificationToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

func (t *ModificationToken) IsUsed() bool {
	return t.Used
}

// Usable reports whether the token still grants the edit capability.
func (t *ModificationToken) Usable() bool {
	return !t.IsUsed() && !t.IsExpired()
}

type ModifyRequest struct {
	Email string `json:"email"`
}

func (r *ModifyRequest) Validate() error {
	if r.Email == "" {
		return fmt.Errorf("email is required")
	}
	if !IsValidEmail(r.Email) {
		return fmt.Errorf("invalid email format")
	}
	return nil
}

func (r *ModifyRequest) Normalize() {
	r.Email = utils.NormalizeEmail(r.Email)
}

// RedeemRequest is the token-gated update submitted from the edit form. The
// email, when present, must match the token's bound address.
type RedeemRequest struct {
	Token string `json:"token"`
	Email string `json:"email"`
	RSVPPatch
}

func (r *RedeemRequest) Normalize() {
	r.Token = strings.ToLower(strings.TrimSpace(r.Token))
	r.Email = utils.NormalizeEmail(r.Email)
	r.RSVPPatch.Normalize()
}
