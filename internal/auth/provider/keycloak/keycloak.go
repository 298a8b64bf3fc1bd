package keycloak

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"storefront/internal/auth/provider"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

const providerName = "keycloak"

// New initializes a Keycloak provider using discovery.
// issuer is the realm issuer URL as seen from this service, e.g.
// http://keycloak:8080/realms/storefront; publicBaseURL is the Keycloak
// origin as seen from the browser, used for the authorization redirect.
func New(
	ctx context.Context,
	issuer string,
	clientID string,
	redirectURL string,
	publicBaseURL string,
) (*provider.OIDC, error) {

	if issuer == "" || clientID == "" || redirectURL == "" || publicBaseURL == "" {
		return nil, errors.New("keycloak oauth config missing required fields")
	}

	oidcProvider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to init keycloak oidc provider: %w", err)
	}

	authURL, err := PublicAuthURL(issuer, publicBaseURL)
	if err != nil {
		return nil, err
	}

	ep := oidcProvider.Endpoint()
	ep.AuthURL = authURL

	return provider.NewOIDC(
		providerName,
		&oauth2.Config{
			ClientID:    clientID,
			RedirectURL: redirectURL,
			Endpoint:    ep,
			Scopes:      []string{oidc.ScopeOpenID, "email", "profile"},
		},
		oidcProvider.Verifier(&oidc.Config{ClientID: clientID}),
	), nil
}

// PublicAuthURL rebases the realm's authorization endpoint onto the
// browser-facing origin.
func PublicAuthURL(issuer, publicBaseURL string) (string, error) {
	u, err := url.Parse(issuer)
	if err != nil {
		return "", fmt.Errorf("keycloak: invalid issuer: %w", err)
	}
	if !strings.Contains(u.Path, "/realms/") {
		return "", fmt.Errorf("keycloak: issuer %q has no realm path", issuer)
	}
	realm := strings.TrimRight(u.Path, "/")
	return strings.TrimRight(publicBaseURL, "/") + realm + "/protocol/openid-connect/auth", nil
}
