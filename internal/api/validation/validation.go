package validation

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	// emailRegex validates email format
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

	// nifRegex validates an organization tax identifier: an optional prefix
	// plus at least six alphanumeric characters.
	nifRegex = regexp.MustCompile(`^[A-Z]{0,4}-?[A-Za-z0-9\-]{6,40}$`)
)

// IsValidEmail checks if the string is a valid email format
func IsValidEmail(email string) bool {
	if len(email) > 254 {
		return false
	}
	return emailRegex.MatchString(email)
}

// IsValidTaxID checks if the string looks like an organization tax
// identifier (NIF)
func IsValidTaxID(nif string) bool {
	return nifRegex.MatchString(nif)
}

// SanitizeString removes potentially dangerous characters for display
func SanitizeString(s string) string {
	// Remove null bytes
	s = strings.ReplaceAll(s, "\x00", "")

	// Remove control characters except newlines and tabs
	var result strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' || !unicode.IsControl(r) {
			result.WriteRune(r)
		}
	}

	return result.String()
}
