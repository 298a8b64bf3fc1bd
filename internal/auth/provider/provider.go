package provider

import (
	"context"

	"storefront/internal/auth"
)

// OAuthProvider is implemented by every external login provider.
// Implementations return identity facts only and must not create users,
// link accounts or touch sessions.
type OAuthProvider interface {
	// Name is the provider identifier used in routes ("google", "keycloak").
	Name() string

	// AuthCodeURL returns the authorization URL; state and PKCE come from the caller.
	AuthCodeURL(state string, codeChallenge string) string

	ExchangeCode(
		ctx context.Context,
		code string,
		codeVerifier string,
	) (*auth.Identity, error)
}
