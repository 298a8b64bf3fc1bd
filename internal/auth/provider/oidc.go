package provider

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/auth"
	"storefront/internal/logger"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// OIDC is an authorization-code + PKCE provider backed by OIDC discovery.
// google and keycloak differ only in how they build it.
type OIDC struct {
	name        string
	oauthConfig *oauth2.Config
	verifier    *oidc.IDTokenVerifier
}

// NewOIDC wires an oauth2 config to a discovered provider's verifier.
func NewOIDC(name string, cfg *oauth2.Config, verifier *oidc.IDTokenVerifier) *OIDC {
	return &OIDC{name: name, oauthConfig: cfg, verifier: verifier}
}

func (p *OIDC) Name() string {
	return p.name
}

// AuthCodeURL builds the authorization URL with PKCE parameters.
func (p *OIDC) AuthCodeURL(state string, codeChallenge string) string {
	return p.oauthConfig.AuthCodeURL(
		state,
		oauth2.AccessTypeOnline,
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

// ExchangeCode redeems the code, verifies the id_token and returns the
// asserted identity.
func (p *OIDC) ExchangeCode(
	ctx context.Context,
	code string,
	codeVerifier string,
) (*auth.Identity, error) {

	token, err := p.oauthConfig.Exchange(
		ctx,
		code,
		oauth2.SetAuthURLParam("code_verifier", codeVerifier),
	)
	if err != nil {
		return nil, fmt.Errorf("%s token exchange failed: %w", p.name, err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, fmt.Errorf("%s did not return id_token", p.name)
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("%s id_token verification failed: %w", p.name, err)
	}

	var claims struct {
		Subject       string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%s id_token claims parse failed: %w", p.name, err)
	}

	identity, err := identityFromClaims(p.name, claims.Subject, claims.Email, claims.EmailVerified)
	if err != nil {
		return nil, err
	}

	logger.Info("oidc identity verified", map[string]any{
		"provider":       p.name,
		"issuer":         idToken.Issuer,
		"email_verified": claims.EmailVerified,
		"expiry_unix":    idToken.Expiry.Unix(),
	})

	return identity, nil
}

func identityFromClaims(provider, subject, email string, verified bool) (*auth.Identity, error) {
	if subject == "" || email == "" {
		return nil, errors.New(provider + " id_token missing required claims")
	}
	return &auth.Identity{
		Provider:       provider,
		ProviderUserID: subject,
		Email:          auth.NormalizeEmail(email),
		EmailVerified:  verified,
	}, nil
}
