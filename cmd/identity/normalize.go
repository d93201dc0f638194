package identity

import "strings"

// NormalizeEmail performs case-insensitive canonicalization.
// Emails are unique per account under this normalized form.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
