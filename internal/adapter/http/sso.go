package adapthttp

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// SSOProvider drives an external login. Authenticate redeems the callback
// code and returns the account name to log in as.
type SSOProvider interface {
	AuthCodeURL(state string) string
	Authenticate(ctx context.Context, code string) (string, error)
}

// OIDCConfig holds the settings for an OpenID Connect provider.
type OIDCConfig struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// OIDCProvider is an SSOProvider backed by an OpenID Connect issuer.
type OIDCProvider struct {
	oauth2   oauth2.Config
	verifier *oidc.IDTokenVerifier
}

var _ SSOProvider = (*OIDCProvider)(nil)

// NewOIDCProvider discovers the issuer's endpoints.
func NewOIDCProvider(ctx context.Context, cfg OIDCConfig) (*OIDCProvider, error) {
	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery: %w", err)
	}
	return &OIDCProvider{
		oauth2: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
	}, nil
}

func (p *OIDCProvider) AuthCodeURL(state string) string {
	return p.oauth2.AuthCodeURL(state)
}

// Authenticate exchanges code, verifies the ID token and returns its email
// claim when the issuer marks it verified, otherwise the subject.
func (p *OIDCProvider) Authenticate(ctx context.Context, code string) (string, error) {
	token, err := p.oauth2.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("exchange token: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return "", errors.New("no id_token in token response")
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return "", fmt.Errorf("verify id_token: %w", err)
	}

	var claims idClaims
	if err := idToken.Claims(&claims); err != nil {
		return "", fmt.Errorf("parse claims: %w", err)
	}
	return claims.username()
}

type idClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Sub           string `json:"sub"`
}

// username picks the verified email, falling back to the subject.
func (c idClaims) username() (string, error) {
	if c.Email != "" && c.EmailVerified {
		return c.Email, nil
	}
	if c.Sub == "" {
		return "", errors.New("id_token has neither a verified email nor a subject")
	}
	return c.Sub, nil
}
