package auth

import "strings"

// Identity is what an OAuth provider asserts about a user: facts only,
// no linking or session decisions.
type Identity struct {
	Provider       string // "google", "keycloak"
	ProviderUserID string // provider-scoped subject
	Email          string
	EmailVerified  bool
}

// NormalizeEmail lowercases and trims an address for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
