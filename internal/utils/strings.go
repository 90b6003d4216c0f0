package utils

import "strings"

var htmlReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
	"/", "&#x2F;",
)

// Sanitize escapes HTML-significant characters in user-supplied text.
func Sanitize(s string) string {
	return htmlReplacer.Replace(strings.TrimSpace(s))
}

// NormalizeString trims whitespace from string input
func NormalizeString(s string) string {
	return strings.TrimSpace(s)
}

// NormalizeEmail normalizes email addresses (lowercase and trim)
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
