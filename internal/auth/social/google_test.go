package social

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type fakeVerifier struct {
	claims *verifiedClaims
	err    error
}

func (f *fakeVerifier) verify(ctx context.Context, raw string) (*verifiedClaims, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.claims, nil
}

func newTestProvider(t *testing.T, tokenResponse map[string]any, verifier idTokenVerifier) *GoogleProvider {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(tokenResponse)
	}))
	t.Cleanup(server.Close)

	return &GoogleProvider{
		oauthConfig: &oauth2.Config{
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			RedirectURL:  "https://app.example.com/callback",
			Endpoint: oauth2.Endpoint{
				AuthURL:  server.URL + "/auth",
				TokenURL: server.URL + "/token",
			},
			Scopes: []string{"openid", "email"},
		},
		verifier: verifier,
		timeout:  5 * time.Second,
	}
}

func TestGoogleAuthURL(t *testing.T) {
	provider := newTestProvider(t, nil, nil)

	raw := provider.AuthURL("state-1", "nonce-1")

	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	require.Equal(t, "state-1", parsed.Query().Get("state"))
	require.Equal(t, "nonce-1", parsed.Query().Get("nonce"))
	require.Equal(t, "client-id", parsed.Query().Get("client_id"))
}

func TestGoogleExchange(t *testing.T) {
	verifier := &fakeVerifier{claims: &verifiedClaims{
		Subject:       "google-sub-1",
		Nonce:         "nonce-1",
		Email:         "alice@example.com",
		EmailVerified: true,
		GivenName:     "Alice",
		FamilyName:    "Hart",
		Name:          "Alice Hart",
	}}

	provider := newTestProvider(t, map[string]any{
		"access_token": "at",
		"token_type":   "Bearer",
		"id_token":     "raw-id-token",
	}, verifier)

	identity, err := provider.Exchange(context.Background(), "auth-code", "nonce-1")
	require.NoError(t, err)

	require.Equal(t, "google", identity.Provider)
	require.Equal(t, "google-sub-1", identity.Subject)
	require.Equal(t, "alice@example.com", identity.Email)
	require.True(t, identity.EmailVerified)
	require.Equal(t, "Alice", identity.FirstName)
	require.Equal(t, "Hart", identity.LastName)
	require.Equal(t, "Alice Hart", identity.DisplayName)
}

func TestGoogleExchangeNonceMismatch(t *testing.T) {
	verifier := &fakeVerifier{claims: &verifiedClaims{Subject: "s", Nonce: "other"}}

	provider := newTestProvider(t, map[string]any{
		"access_token": "at",
		"token_type":   "Bearer",
		"id_token":     "raw-id-token",
	}, verifier)

	_, err := provider.Exchange(context.Background(), "auth-code", "nonce-1")
	require.ErrorContains(t, err, "nonce mismatch")
}

func TestGoogleExchangeMissingIDToken(t *testing.T) {
	provider := newTestProvider(t, map[string]any{
		"access_token": "at",
		"token_type":   "Bearer",
	}, &fakeVerifier{})

	_, err := provider.Exchange(context.Background(), "auth-code", "")
	require.ErrorContains(t, err, "id token missing")
}

func TestGoogleExchangeVerifierFailure(t *testing.T) {
	provider := newTestProvider(t, map[string]any{
		"access_token": "at",
		"token_type":   "Bearer",
		"id_token":     "raw-id-token",
	}, &fakeVerifier{err: errors.New("bad signature")})

	_, err := provider.Exchange(context.Background(), "auth-code", "")
	require.ErrorContains(t, err, "verify id token")
}

func TestGoogleExchangeRequiresCode(t *testing.T) {
	provider := newTestProvider(t, nil, &fakeVerifier{})

	_, err := provider.Exchange(context.Background(), "", "")
	require.Error(t, err)
}

func TestNewGoogleProviderValidation(t *testing.T) {
	_, err := NewGoogleProvider(context.Background(), GoogleConfig{ClientSecret: "s", RedirectURL: "r"})
	require.Error(t, err)

	_, err = NewGoogleProvider(context.Background(), GoogleConfig{ClientID: "c", RedirectURL: "r"})
	require.Error(t, err)

	_, err = NewGoogleProvider(context.Background(), GoogleConfig{ClientID: "c", ClientSecret: "s"})
	require.Error(t, err)
}
