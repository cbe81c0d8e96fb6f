package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cultach/cultach-api/internal/auth/social"
	"github.com/cultach/cultach-api/internal/services"
	"github.com/cultach/cultach-api/pkg/crypto"
	"github.com/cultach/cultach-api/pkg/errors"
	"github.com/cultach/cultach-api/pkg/response"
)

const (
	stateCookie = "oauth_state"
	nonceCookie = "oauth_nonce"

	// oauthCookieMaxAge bounds how long a pending OAuth round-trip stays valid.
	oauthCookieMaxAge = 600
)

// identityProvider is the slice of the Google provider the handler needs.
// Narrowing the dependency keeps the callback testable without live OIDC.
type identityProvider interface {
	AuthURL(state, nonce string) string
	Exchange(ctx context.Context, code, expectedNonce string) (*social.Identity, error)
}

// SocialHandler drives the OAuth authorization-code flow and hands the
// verified identity to the social login service.
type SocialHandler struct {
	provider identityProvider
	social   *services.SocialService
}

func NewSocialHandler(provider identityProvider, socialSvc *services.SocialService) *SocialHandler {
	return &SocialHandler{provider: provider, social: socialSvc}
}

// GET /api/social/google/login
//
// Issues fresh state and nonce values, pins them to the client in short-lived
// cookies and redirects to the consent screen.
func (h *SocialHandler) GoogleLogin(c *gin.Context) {
	state, err := crypto.GenerateToken(16)
	if err != nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}
	nonce, err := crypto.GenerateToken(16)
	if err != nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookie, state, oauthCookieMaxAge, "/", "", false, true)
	c.SetCookie(nonceCookie, nonce, oauthCookieMaxAge, "/", "", false, true)

	c.Redirect(http.StatusFound, h.provider.AuthURL(state, nonce))
}

// GET /api/social/google/callback
func (h *SocialHandler) GoogleCallback(c *gin.Context) {
	state, err := c.Cookie(stateCookie)
	if err != nil || state == "" || c.Query("state") != state {
		response.Error(c, errors.ErrTokenInvalid.WithMessage("OAuth state mismatch"))
		return
	}
	nonce, err := c.Cookie(nonceCookie)
	if err != nil || nonce == "" {
		response.Error(c, errors.ErrTokenInvalid.WithMessage("OAuth nonce missing"))
		return
	}

	// The round trip is complete; the cookies must not be replayable.
	c.SetCookie(stateCookie, "", -1, "/", "", false, true)
	c.SetCookie(nonceCookie, "", -1, "/", "", false, true)

	code := c.Query("code")
	if code == "" {
		response.Error(c, errors.NewBadRequest("authorization code missing"))
		return
	}

	identity, err := h.provider.Exchange(requestContext(c), code, nonce)
	if err != nil {
		response.Error(c, errors.ErrInvalidCredentials)
		return
	}
	if !identity.EmailVerified {
		response.Error(c, errors.ErrInvalidCredentials.WithMessage("Email address is not verified with the provider"))
		return
	}

	pair, err := h.social.SocialLogin(requestContext(c), services.SocialLoginInput{
		Provider:    identity.Provider,
		ExternalID:  identity.Subject,
		Email:       identity.Email,
		DisplayName: identity.DisplayName,
		FirstName:   identity.FirstName,
		LastName:    identity.LastName,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, pair)
}
