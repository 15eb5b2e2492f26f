// Package normalize trims and canonicalizes user-entered identifiers before
// they are stored or compared.
package normalize

import "strings"

// Email lowercases and trims an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims surrounding whitespace and collapses inner runs of spaces.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Login canonicalizes a GitHub login. GitHub logins are case-insensitive.
func Login(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// BusinessUnit trims a business-unit label; empty input stays empty so
// callers can apply their own default.
func BusinessUnit(s string) string {
	return Name(s)
}

// Status lowercases and trims a billing status.
func Status(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
