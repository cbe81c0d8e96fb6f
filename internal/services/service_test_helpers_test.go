package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cultach/cultach-api/internal/auth"
	"github.com/cultach/cultach-api/internal/database/testutil"
	"github.com/cultach/cultach-api/internal/models"
	"github.com/cultach/cultach-api/pkg/crypto"
	"github.com/cultach/cultach-api/pkg/mail"
)

type fakeMailer struct {
	mu       sync.Mutex
	err      error
	messages []mail.Message
}

func (m *fakeMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, msg)
	return nil
}

func (m *fakeMailer) sent() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]mail.Message, len(m.messages))
	copy(out, m.messages)
	return out
}

type accountFixture struct {
	db      *gorm.DB
	svc     *AccountService
	tokens  *auth.TokenService
	actions *auth.ActionTokenService
	mailer  *fakeMailer
	clock   *time.Time
}

func newAccountFixture(t *testing.T) *accountFixture {
	t.Helper()

	db := testutil.MustOpenTestDB(t)

	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return current }

	tokens, err := auth.NewTokenService(auth.TokenConfig{Secret: "jwt-secret", Issuer: "cultach", Clock: clock})
	require.NoError(t, err)

	actions, err := auth.NewActionTokenService("action-secret", clock)
	require.NoError(t, err)

	mailer := &fakeMailer{}

	svc, err := NewAccountService(db, tokens, actions, mailer,
		WithAccountBaseURL("https://cultach.example.com"),
		WithAccountClock(clock),
	)
	require.NoError(t, err)

	return &accountFixture{db: db, svc: svc, tokens: tokens, actions: actions, mailer: mailer, clock: &current}
}

func seedUser(t *testing.T, db *gorm.DB, username, email, password string, mutate ...func(*models.User)) *models.User {
	t.Helper()

	hashed, err := crypto.HashPassword(password)
	require.NoError(t, err)

	user := &models.User{
		Username:   username,
		Email:      email,
		Password:   hashed,
		Provider:   models.ProviderLocal,
		IsVerified: true,
	}
	for _, fn := range mutate {
		fn(user)
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedVenue(t *testing.T, db *gorm.DB, name string) *models.Venue {
	t.Helper()

	venue := &models.Venue{
		Name:        name,
		Description: "A test venue",
		VenueType:   "theatre",
		Lat:         "44.8176",
		Lng:         "20.4569",
	}
	require.NoError(t, db.Create(venue).Error)
	return venue
}

func seedEvent(t *testing.T, db *gorm.DB, venue *models.Venue, organizer *models.User, title string, likes int) *models.Event {
	t.Helper()

	event := &models.Event{
		Title:           title,
		Description:     "A test event",
		Date:            time.Date(2027, 6, 1, 0, 0, 0, 0, time.UTC),
		VenueID:         venue.ID,
		OrganizerID:     organizer.ID,
		EventType:       "concert",
		PosterImageLink: "https://images.example.com/poster.png",
		NumLikes:        likes,
		Lat:             venue.Lat,
		Lng:             venue.Lng,
	}
	require.NoError(t, db.Create(event).Error)
	return event
}
