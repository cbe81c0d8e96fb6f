// Package social implements the browser-facing OAuth flows that feed the
// social login service with verified external identities.
package social

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// GoogleIssuer is the OIDC issuer used for discovery.
const GoogleIssuer = "https://accounts.google.com"

const defaultExchangeTimeout = 10 * time.Second

// GoogleConfig configures the Google OAuth flow.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	HTTPClient   *http.Client
	Timeout      time.Duration
}

// Identity is the verified external identity extracted from an ID token.
type Identity struct {
	Provider      string
	Subject       string
	Email         string
	EmailVerified bool
	FirstName     string
	LastName      string
	DisplayName   string
}

type verifiedClaims struct {
	Subject       string
	Nonce         string
	Email         string
	EmailVerified bool
	GivenName     string
	FamilyName    string
	Name          string
}

type idTokenVerifier interface {
	verify(ctx context.Context, rawIDToken string) (*verifiedClaims, error)
}

// GoogleProvider drives the authorization-code flow against Google and
// verifies the returned ID token.
type GoogleProvider struct {
	oauthConfig *oauth2.Config
	verifier    idTokenVerifier
	timeout     time.Duration
}

// NewGoogleProvider performs OIDC discovery eagerly so misconfiguration
// surfaces at startup.
func NewGoogleProvider(ctx context.Context, cfg GoogleConfig) (*GoogleProvider, error) {
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, errors.New("google provider: client id is required")
	}
	if strings.TrimSpace(cfg.ClientSecret) == "" {
		return nil, errors.New("google provider: client secret is required")
	}
	if strings.TrimSpace(cfg.RedirectURL) == "" {
		return nil, errors.New("google provider: redirect url is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultExchangeTimeout
	}

	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.HTTPClient != nil {
		ctx = oidc.ClientContext(ctx, cfg.HTTPClient)
	}

	discoveryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	issuer, err := oidc.NewProvider(discoveryCtx, GoogleIssuer)
	if err != nil {
		return nil, fmt.Errorf("google provider: discovery failed: %w", err)
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "profile", "email"}
	}

	return &GoogleProvider{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     issuer.Endpoint(),
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
		},
		verifier: &oidcVerifier{inner: issuer.Verifier(&oidc.Config{ClientID: cfg.ClientID})},
		timeout:  timeout,
	}, nil
}

// AuthURL builds the consent-screen redirect for the supplied state and nonce.
func (p *GoogleProvider) AuthURL(state, nonce string) string {
	return p.oauthConfig.AuthCodeURL(state, oauth2.SetAuthURLParam("nonce", nonce))
}

// Exchange swaps the authorization code for tokens and returns the verified
// identity embedded in the ID token.
func (p *GoogleProvider) Exchange(ctx context.Context, code, expectedNonce string) (*Identity, error) {
	if code == "" {
		return nil, errors.New("google provider: authorization code missing")
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	token, err := p.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("google provider: exchange failed: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, errors.New("google provider: id token missing")
	}

	claims, err := p.verifier.verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("google provider: verify id token: %w", err)
	}
	if expectedNonce != "" && claims.Nonce != expectedNonce {
		return nil, errors.New("google provider: nonce mismatch")
	}

	return &Identity{
		Provider:      "google",
		Subject:       claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		FirstName:     claims.GivenName,
		LastName:      claims.FamilyName,
		DisplayName:   claims.Name,
	}, nil
}

type oidcVerifier struct {
	inner *oidc.IDTokenVerifier
}

func (v *oidcVerifier) verify(ctx context.Context, rawIDToken string) (*verifiedClaims, error) {
	idToken, err := v.inner.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		GivenName     string `json:"given_name"`
		FamilyName    string `json:"family_name"`
		Name          string `json:"name"`
	}
	if err := idToken.Claims(&payload); err != nil {
		return nil, fmt.Errorf("decode claims: %w", err)
	}

	return &verifiedClaims{
		Subject:       idToken.Subject,
		Nonce:         idToken.Nonce,
		Email:         payload.Email,
		EmailVerified: payload.EmailVerified,
		GivenName:     payload.GivenName,
		FamilyName:    payload.FamilyName,
		Name:          payload.Name,
	}, nil
}
