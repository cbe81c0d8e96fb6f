package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cultach/cultach-api/internal/api"
	iauth "github.com/cultach/cultach-api/internal/auth"
	"github.com/cultach/cultach-api/internal/cache"
	sharedtestutil "github.com/cultach/cultach-api/internal/database/testutil"
	"github.com/cultach/cultach-api/internal/middleware"
	"github.com/cultach/cultach-api/internal/models"
	"github.com/cultach/cultach-api/internal/services"
	"github.com/cultach/cultach-api/pkg/crypto"
	"github.com/cultach/cultach-api/pkg/mail"
	"github.com/cultach/cultach-api/pkg/response"
)

// Env encapsulates a fully-wired API instance backed by an in-memory database
// for handler tests.
type Env struct {
	T        *testing.T
	DB       *gorm.DB
	Router   *gin.Engine
	Tokens   *iauth.TokenService
	Actions  *iauth.ActionTokenService
	Accounts *services.AccountService
	Mailer   *RecordingMailer
}

// RecordingMailer captures outbound messages instead of delivering them.
type RecordingMailer struct {
	mu       sync.Mutex
	Err      error
	Messages []mail.Message
}

func (m *RecordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Messages = append(m.Messages, msg)
	return nil
}

// Sent returns a copy of the captured messages.
func (m *RecordingMailer) Sent() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]mail.Message, len(m.Messages))
	copy(out, m.Messages)
	return out
}

// NewEnv provisions a fresh handler test environment with migrations applied.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t)

	tokens, err := iauth.NewTokenService(iauth.TokenConfig{
		Secret: "test-suite-super-secret-key-32-bytes!!",
		Issuer: "test-suite",
	})
	require.NoError(t, err)

	actions, err := iauth.NewActionTokenService("test-suite-action-secret", nil)
	require.NoError(t, err)

	mailer := &RecordingMailer{}

	accounts, err := services.NewAccountService(db, tokens, actions, mailer,
		services.WithAccountBaseURL("https://cultach.test"))
	require.NoError(t, err)

	events, err := services.NewEventService(db)
	require.NoError(t, err)

	eventCache, err := services.NewEventCacheService(cache.NewDatabaseStore(db), events)
	require.NoError(t, err)

	venues, err := services.NewVenueService(db)
	require.NoError(t, err)

	rooms, err := services.NewChatRoomService(db)
	require.NoError(t, err)

	social, err := services.NewSocialService(db, tokens)
	require.NoError(t, err)

	router, err := api.NewRouter(api.Dependencies{
		DB:         db,
		Tokens:     tokens,
		Accounts:   accounts,
		Events:     events,
		EventCache: eventCache,
		Venues:     venues,
		ChatRooms:  rooms,
		Social:     social,
		RateStore:  middleware.NewMemoryRateStore(),
	})
	require.NoError(t, err)

	return &Env{
		T:        t,
		DB:       db,
		Router:   router,
		Tokens:   tokens,
		Actions:  actions,
		Accounts: accounts,
		Mailer:   mailer,
	}
}

// CreateUser inserts a verified user with a random username suffix and
// returns the record. Mutators can flip the organizer or admin flags.
func (e *Env) CreateUser(password string, mutate ...func(*models.User)) *models.User {
	e.T.Helper()

	username := "user-" + uuid.NewString()[:8]
	hashed, err := crypto.HashPassword(password)
	require.NoError(e.T, err)

	user := &models.User{
		Username:   username,
		Email:      username + "@example.com",
		Password:   hashed,
		IsVerified: true,
	}
	for _, fn := range mutate {
		fn(user)
	}

	require.NoError(e.T, e.DB.Create(user).Error)
	return user
}

// AccessToken issues a bearer token for the given user.
func (e *Env) AccessToken(user *models.User) string {
	e.T.Helper()

	token, err := e.Tokens.GenerateAccessToken(user.Username, user.ID)
	require.NoError(e.T, err)
	return token
}

// CreateVenue inserts a venue with a random name suffix.
func (e *Env) CreateVenue(mutate ...func(*models.Venue)) *models.Venue {
	e.T.Helper()

	venue := &models.Venue{
		Name:        "Venue " + uuid.NewString()[:8],
		Description: "A place to be",
		VenueType:   "bar",
		Lat:         "41.9981",
		Lng:         "21.4254",
	}
	for _, fn := range mutate {
		fn(venue)
	}

	require.NoError(e.T, e.DB.Create(venue).Error)
	return venue
}

// CreateEvent inserts an event at the given venue owned by organizer.
func (e *Env) CreateEvent(venue *models.Venue, organizer *models.User, mutate ...func(*models.Event)) *models.Event {
	e.T.Helper()

	event := &models.Event{
		Title:           "Event " + uuid.NewString()[:8],
		Description:     "Something is happening",
		Date:            time.Now().Add(48 * time.Hour),
		VenueID:         venue.ID,
		OrganizerID:     organizer.ID,
		EventType:       "concert",
		PosterImageLink: "https://img.cultach.test/poster.png",
		Lat:             venue.Lat,
		Lng:             venue.Lng,
	}
	for _, fn := range mutate {
		fn(event)
	}

	require.NoError(e.T, e.DB.Create(event).Error)
	return event
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, applying JSON
// encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

// Login authenticates through the token endpoint and returns the issued pair.
func (e *Env) Login(username, password string) services.TokenPair {
	e.T.Helper()

	w := e.Request(http.MethodPost, "/api/auth/token", map[string]string{
		"username": username,
		"password": password,
	}, "")
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())

	resp := DecodeResponse(e.T, w)
	require.True(e.T, resp.Success, w.Body.String())

	var pair services.TokenPair
	DecodeInto(e.T, resp.Data, &pair)
	require.NotEmpty(e.T, pair.AccessToken)
	require.NotEmpty(e.T, pair.RefreshToken)
	require.Equal(e.T, "bearer", pair.TokenType)
	return pair
}
