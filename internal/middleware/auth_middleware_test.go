package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	iauth "github.com/cultach/cultach-api/internal/auth"
	"github.com/cultach/cultach-api/internal/database/testutil"
	"github.com/cultach/cultach-api/internal/models"
)

func newAuthTestRouter(t *testing.T, tokens *iauth.TokenService, extra ...gin.HandlerFunc) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	handlers := append([]gin.HandlerFunc{Auth(tokens)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		require.True(t, ok)
		c.String(http.StatusOK, claims.Subject)
	})
	r.GET("/protected", handlers...)
	return r
}

func TestAuthAcceptsValidToken(t *testing.T) {
	tokens, err := iauth.NewTokenService(iauth.TokenConfig{Secret: "secret"})
	require.NoError(t, err)

	token, err := tokens.GenerateAccessToken("alice", "user-1")
	require.NoError(t, err)

	r := newAuthTestRouter(t, tokens)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "alice", w.Body.String())
}

func TestAuthRejectsMissingHeader(t *testing.T) {
	tokens, err := iauth.NewTokenService(iauth.TokenConfig{Secret: "secret"})
	require.NoError(t, err)

	r := newAuthTestRouter(t, tokens)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))

	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "Could not validate user")
}

func TestAuthRejectsRefreshToken(t *testing.T) {
	tokens, err := iauth.NewTokenService(iauth.TokenConfig{Secret: "secret"})
	require.NoError(t, err)

	refresh, err := tokens.GenerateRefreshToken("alice", "user-1")
	require.NoError(t, err)

	r := newAuthTestRouter(t, tokens)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+refresh)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
}

func TestLoadUser(t *testing.T) {
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t)
	user := &models.User{Username: "alice", Email: "alice@example.com", IsVerified: true}
	require.NoError(t, db.Create(user).Error)

	tokens, err := iauth.NewTokenService(iauth.TokenConfig{Secret: "secret"})
	require.NoError(t, err)

	r := gin.New()
	r.GET("/me", Auth(tokens), LoadUser(db), func(c *gin.Context) {
		current, ok := UserFrom(c)
		require.True(t, ok)
		c.String(http.StatusOK, current.Email)
	})

	token, err := tokens.GenerateAccessToken("alice", user.ID)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "alice@example.com", w.Body.String())
}

func TestLoadUserVanishedAccount(t *testing.T) {
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t)

	tokens, err := iauth.NewTokenService(iauth.TokenConfig{Secret: "secret"})
	require.NoError(t, err)

	r := gin.New()
	r.GET("/me", Auth(tokens), LoadUser(db), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	token, err := tokens.GenerateAccessToken("ghost", "deleted-id")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}
