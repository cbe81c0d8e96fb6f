package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cultach/cultach-api/internal/database/testutil"
	"github.com/cultach/cultach-api/internal/models"
	apperrors "github.com/cultach/cultach-api/pkg/errors"
)

func newEventFixture(t *testing.T) (*gorm.DB, *EventService, *models.User, *models.Venue) {
	t.Helper()

	db := testutil.MustOpenTestDB(t)

	svc, err := NewEventService(db)
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	organizer := seedUser(t, db, "organizer", "org@example.com", "Str0ng!pass", func(u *models.User) {
		u.IsOrganizer = true
	})
	venue := seedVenue(t, db, "City Theatre")

	return db, svc, organizer, venue
}

func validEventInput(venueID string) CreateEventInput {
	return CreateEventInput{
		Title:           "Spring Concert",
		Description:     "An evening of strings",
		Date:            time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		VenueID:         venueID,
		EventType:       "concert",
		PosterImageLink: "https://images.example.com/poster.png",
		Start:           "19:30",
		Finish:          "22:00",
	}
}

func TestEventCreate(t *testing.T) {
	_, svc, organizer, venue := newEventFixture(t)

	event, err := svc.Create(context.Background(), organizer, validEventInput(venue.ID))
	require.NoError(t, err)
	require.Equal(t, organizer.ID, event.OrganizerID)
	require.Equal(t, venue.ID, event.VenueID)
	require.Equal(t, venue.Lat, event.Lat, "coordinates copied from venue")
	require.NotEmpty(t, event.ID)
}

func TestEventCreateRequiresOrganizer(t *testing.T) {
	db, svc, _, venue := newEventFixture(t)

	plain := seedUser(t, db, "plain", "plain@example.com", "Str0ng!pass")

	_, err := svc.Create(context.Background(), plain, validEventInput(venue.ID))
	require.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestEventCreateValidations(t *testing.T) {
	_, svc, organizer, venue := newEventFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*CreateEventInput)
	}{
		{"missing title", func(in *CreateEventInput) { in.Title = " " }},
		{"unknown type", func(in *CreateEventInput) { in.EventType = "rave" }},
		{"past date", func(in *CreateEventInput) { in.Date = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC) }},
		{"missing poster", func(in *CreateEventInput) { in.PosterImageLink = "" }},
		{"bad start", func(in *CreateEventInput) { in.Start = "late" }},
		{"start after finish", func(in *CreateEventInput) { in.Start = "23:00"; in.Finish = "21:00" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validEventInput(venue.ID)
			tt.mutate(&input)
			_, err := svc.Create(ctx, organizer, input)
			require.ErrorIs(t, err, apperrors.ErrBadRequest)
		})
	}
}

func TestEventCreateUnknownVenue(t *testing.T) {
	_, svc, organizer, _ := newEventFixture(t)

	_, err := svc.Create(context.Background(), organizer, validEventInput("missing-venue"))
	require.ErrorIs(t, err, ErrVenueNotFound)
}

func TestEventListOrderedByLikes(t *testing.T) {
	db, svc, organizer, venue := newEventFixture(t)

	seedEvent(t, db, venue, organizer, "Popular", 9)
	seedEvent(t, db, venue, organizer, "Quiet", 0)
	seedEvent(t, db, venue, organizer, "Middling", 4)

	events, err := svc.ListOrderedByLikes(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 3)
	require.Equal(t, "Quiet", events[0].Title)
	require.Equal(t, "Popular", events[2].Title)
}

func TestEventLikeUnlike(t *testing.T) {
	db, svc, organizer, venue := newEventFixture(t)
	ctx := context.Background()

	event := seedEvent(t, db, venue, organizer, "Concert", 0)
	fan := seedUser(t, db, "fan", "fan@example.com", "Str0ng!pass")

	require.NoError(t, svc.Like(ctx, fan.ID, event.ID))
	require.ErrorIs(t, svc.Like(ctx, fan.ID, event.ID), apperrors.ErrBadRequest)

	fresh, err := svc.Get(ctx, event.ID)
	require.NoError(t, err)
	require.Equal(t, 1, fresh.NumLikes)

	require.NoError(t, svc.Unlike(ctx, fan.ID, event.ID))
	require.ErrorIs(t, svc.Unlike(ctx, fan.ID, event.ID), apperrors.ErrBadRequest)

	fresh, err = svc.Get(ctx, event.ID)
	require.NoError(t, err)
	require.Equal(t, 0, fresh.NumLikes)
}

func TestEventUnlikeClampsAtZero(t *testing.T) {
	db, svc, organizer, venue := newEventFixture(t)
	ctx := context.Background()

	event := seedEvent(t, db, venue, organizer, "Concert", 0)
	fan := seedUser(t, db, "fan", "fan@example.com", "Str0ng!pass")

	// Counter already drifted below the row count.
	require.NoError(t, db.Create(&models.EventLike{
		LikeFields: models.LikeFields{OwnerID: fan.ID},
		EventID:    event.ID,
	}).Error)

	require.NoError(t, svc.Unlike(ctx, fan.ID, event.ID))

	fresh, err := svc.Get(ctx, event.ID)
	require.NoError(t, err)
	require.Equal(t, 0, fresh.NumLikes)
}

func TestEventConcurrentLikesKeepOneRowPerUser(t *testing.T) {
	db, svc, organizer, venue := newEventFixture(t)
	ctx := context.Background()

	event := seedEvent(t, db, venue, organizer, "Concert", 0)

	const fans = 8
	users := make([]*models.User, fans)
	for i := range users {
		users[i] = seedUser(t, db,
			fmt.Sprintf("fan%d", i),
			fmt.Sprintf("fan%d@example.com", i),
			"Str0ng!pass")
	}

	errs := make(chan error, fans)
	var wg sync.WaitGroup
	for _, fan := range users {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			errs <- svc.Like(ctx, userID, event.ID)
		}(fan.ID)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	// One like row per user survives the race. The counter itself may
	// drift under concurrency; only the rows are authoritative.
	var rows int64
	require.NoError(t, db.Model(&models.EventLike{}).
		Where("event_id = ?", event.ID).Count(&rows).Error)
	require.EqualValues(t, fans, rows)
}

func TestEventFavorites(t *testing.T) {
	db, svc, organizer, venue := newEventFixture(t)
	ctx := context.Background()

	liked := seedEvent(t, db, venue, organizer, "Liked", 0)
	seedEvent(t, db, venue, organizer, "Ignored", 0)
	fan := seedUser(t, db, "fan", "fan@example.com", "Str0ng!pass")

	require.NoError(t, svc.Like(ctx, fan.ID, liked.ID))

	favorites, err := svc.Favorites(ctx, fan.ID)
	require.NoError(t, err)
	require.Len(t, favorites, 1)
	require.Equal(t, "Liked", favorites[0].Event.Title)
	require.Equal(t, venue.Lat, favorites[0].VenueLat)
	require.Equal(t, venue.Lng, favorites[0].VenueLng)
}

func TestEventSearch(t *testing.T) {
	db, svc, organizer, venue := newEventFixture(t)
	ctx := context.Background()

	seedEvent(t, db, venue, organizer, "Jazz Evening", 0)
	event := seedEvent(t, db, venue, organizer, "Quiet Night", 0)
	require.NoError(t, db.Model(event).Update("description", "an evening of jazz standards").Error)

	results, err := svc.Search(ctx, "jazz")
	require.NoError(t, err)
	require.Len(t, results, 2, "matches title and description")

	results, err = svc.Search(ctx, "opera")
	require.NoError(t, err)
	require.Empty(t, results)

	results, err = svc.Search(ctx, "  ")
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestEventSearchLimit(t *testing.T) {
	db, svc, organizer, venue := newEventFixture(t)

	for i := 0; i < 15; i++ {
		seedEvent(t, db, venue, organizer, fmt.Sprintf("Jazz Night %02d", i), 0)
	}

	results, err := svc.Search(context.Background(), "Jazz")
	require.NoError(t, err)
	require.Len(t, results, searchResultLimit)
}

func TestEventComments(t *testing.T) {
	db, svc, organizer, venue := newEventFixture(t)
	ctx := context.Background()

	event := seedEvent(t, db, venue, organizer, "Concert", 0)
	fan := seedUser(t, db, "fan", "fan@example.com", "Str0ng!pass")

	comment, err := svc.AddComment(ctx, fan.ID, event.ID, "can't wait")
	require.NoError(t, err)

	_, err = svc.AddComment(ctx, fan.ID, event.ID, "   ")
	require.ErrorIs(t, err, apperrors.ErrBadRequest)

	comments, err := svc.ListComments(ctx, event.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	require.Equal(t, "can't wait", comments[0].Content)

	fetched, err := svc.GetComment(ctx, comment.ID)
	require.NoError(t, err)
	require.Equal(t, fan.ID, fetched.OwnerID)

	// Only the owner or an admin may delete.
	require.ErrorIs(t, svc.DeleteComment(ctx, organizer, comment.ID), apperrors.ErrForbidden)
	require.NoError(t, svc.DeleteComment(ctx, fan, comment.ID))

	_, err = svc.GetComment(ctx, comment.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestEventUpdateAndDelete(t *testing.T) {
	db, svc, organizer, venue := newEventFixture(t)
	ctx := context.Background()

	event := seedEvent(t, db, venue, organizer, "Concert", 0)
	stranger := seedUser(t, db, "stranger", "s@example.com", "Str0ng!pass", func(u *models.User) {
		u.IsOrganizer = true
	})

	newTitle := "Concert (rescheduled)"
	_, err := svc.Update(ctx, stranger, event.ID, UpdateEventInput{Title: &newTitle})
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	updated, err := svc.Update(ctx, organizer, event.ID, UpdateEventInput{Title: &newTitle})
	require.NoError(t, err)
	require.Equal(t, newTitle, updated.Title)

	require.ErrorIs(t, svc.Delete(ctx, stranger, event.ID), apperrors.ErrForbidden)
	require.NoError(t, svc.Delete(ctx, organizer, event.ID))

	_, err = svc.Get(ctx, event.ID)
	require.ErrorIs(t, err, ErrEventNotFound)
}
