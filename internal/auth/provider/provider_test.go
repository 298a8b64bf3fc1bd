package provider

import (
	"context"
	"testing"

	"storefront/internal/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type stubProvider struct{ name string }

func (s stubProvider) Name() string { return s.name }
func (s stubProvider) AuthCodeURL(string, string) string { return "https://idp/" + s.name }
func (s stubProvider) ExchangeCode(context.Context, string, string) (*auth.Identity, error) {
	return &auth.Identity{Provider: s.name}, nil
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(stubProvider{"keycloak"}, nil, stubProvider{"google"})

	assert.Equal(t, []string{"google", "keycloak"}, r.Names())

	p, err := r.Get("google")
	require.NoError(t, err)
	assert.Equal(t, "google", p.Name())

	_, err = r.Get("github")
	assert.ErrorContains(t, err, "unknown oauth provider")
}

func TestIdentityFromClaims(t *testing.T) {
	id, err := identityFromClaims("google", "sub-1", " Ada@Example.COM ", true)
	require.NoError(t, err)
	assert.Equal(t, &auth.Identity{
		Provider:       "google",
		ProviderUserID: "sub-1",
		Email:          "ada@example.com",
		EmailVerified:  true,
	}, id)

	_, err = identityFromClaims("google", "", "a@b.c", true)
	assert.Error(t, err)
	_, err = identityFromClaims("google", "sub", "", true)
	assert.Error(t, err)
}

func TestAuthCodeURLCarriesPKCE(t *testing.T) {
	p := NewOIDC("test", &oauth2.Config{
		ClientID:    "client",
		RedirectURL: "http://app/cb",
		Endpoint:    oauth2.Endpoint{AuthURL: "https://idp/auth", TokenURL: "https://idp/token"},
	}, nil)

	u := p.AuthCodeURL("state-1", "challenge-1")
	assert.Contains(t, u, "state=state-1")
	assert.Contains(t, u, "code_challenge=challenge-1")
	assert.Contains(t, u, "code_challenge_method=S256")
	assert.Equal(t, "test", p.Name())
}
