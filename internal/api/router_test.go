package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/cultach/cultach-api/internal/api"
	"github.com/cultach/cultach-api/internal/handlers/testutil"
)

func TestRouterRejectsMissingDependencies(t *testing.T) {
	gin.SetMode(gin.TestMode)

	_, err := api.NewRouter(api.Dependencies{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "database handle")
}

func TestHealthEndpoint(t *testing.T) {
	env := testutil.NewEnv(t)

	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.Equal(t, true, payload["success"])
}

func TestMetricsEndpoint(t *testing.T) {
	env := testutil.NewEnv(t)

	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "go_goroutines")
}

func TestUnknownRouteReturnsEnvelope(t *testing.T) {
	env := testutil.NewEnv(t)

	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/nope", nil))

	require.Equal(t, http.StatusNotFound, w.Code)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.Equal(t, false, payload["success"])
}

func TestSecurityHeadersApplied(t *testing.T) {
	env := testutil.NewEnv(t)

	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}
