package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/cultach/cultach-api/internal/models"
	apperrors "github.com/cultach/cultach-api/pkg/errors"
)

const searchResultLimit = 10

// ErrEventNotFound indicates the requested event does not exist.
var ErrEventNotFound = apperrors.New("EVENT_NOT_FOUND", "Event not found", 404)

// CreateEventInput describes the fields accepted when creating an event.
type CreateEventInput struct {
	Title           string
	Description     string
	Date            time.Time
	VenueID         string
	EventType       string
	PosterImageLink string
	Start           string
	Finish          string
	Lat             string
	Lng             string
}

// UpdateEventInput enumerates mutable event attributes.
type UpdateEventInput struct {
	Title           *string
	Description     *string
	Date            *time.Time
	EventType       *string
	PosterImageLink *string
	Start           *string
	Finish          *string
}

// FavoriteEvent pairs a liked event with its venue coordinates.
type FavoriteEvent struct {
	Event    models.Event `json:"event"`
	VenueLat string       `json:"venue_lat"`
	VenueLng string       `json:"venue_lng"`
}

// EventService manages the event lifecycle plus likes and comments.
type EventService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewEventService constructs an EventService.
func NewEventService(db *gorm.DB) (*EventService, error) {
	if db == nil {
		return nil, errors.New("event service: db is required")
	}
	return &EventService{db: db, now: time.Now}, nil
}

// Create persists a new event for an organizer account.
func (s *EventService) Create(ctx context.Context, actor *models.User, input CreateEventInput) (*models.Event, error) {
	ctx = ensureContext(ctx)

	if actor == nil || !actor.IsOrganizer {
		return nil, apperrors.ErrForbidden.WithMessage("Only organizers can create events")
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewBadRequest("title is required")
	}
	if !containsString(models.EventTypes, input.EventType) {
		return nil, apperrors.NewBadRequest("unknown event type")
	}
	if input.Date.Before(s.now().Truncate(24 * time.Hour)) {
		return nil, apperrors.NewBadRequest("event date cannot be in the past")
	}
	if strings.TrimSpace(input.PosterImageLink) == "" {
		return nil, apperrors.NewBadRequest("poster image link is required")
	}

	start, err := parseClock(input.Start)
	if err != nil {
		return nil, apperrors.NewBadRequest("invalid start time")
	}
	finish, err := parseClock(input.Finish)
	if err != nil {
		return nil, apperrors.NewBadRequest("invalid finish time")
	}
	if int64(start) > int64(finish) {
		return nil, apperrors.NewBadRequest("start time must not be after finish time")
	}

	var venue models.Venue
	err = s.db.WithContext(ctx).Where("id = ?", input.VenueID).First(&venue).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrVenueNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("event service: fetch venue: %w", err)
	}

	event := &models.Event{
		Title:           title,
		Description:     strings.TrimSpace(input.Description),
		Date:            input.Date,
		VenueID:         venue.ID,
		OrganizerID:     actor.ID,
		EventType:       input.EventType,
		PosterImageLink: strings.TrimSpace(input.PosterImageLink),
		Start:           start,
		Finish:          finish,
		Lat:             venue.Lat,
		Lng:             venue.Lng,
	}

	if err := s.db.WithContext(ctx).Create(event).Error; err != nil {
		return nil, fmt.Errorf("event service: create event: %w", err)
	}
	return event, nil
}

// Update modifies an event owned by the actor.
func (s *EventService) Update(ctx context.Context, actor *models.User, eventID string, input UpdateEventInput) (*models.Event, error) {
	ctx = ensureContext(ctx)

	event, err := s.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if actor == nil || (event.OrganizerID != actor.ID && !actor.IsAdmin) {
		return nil, apperrors.ErrForbidden
	}

	if input.Title != nil {
		event.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		event.Description = strings.TrimSpace(*input.Description)
	}
	if input.Date != nil {
		if input.Date.Before(s.now().Truncate(24 * time.Hour)) {
			return nil, apperrors.NewBadRequest("event date cannot be in the past")
		}
		event.Date = *input.Date
	}
	if input.EventType != nil {
		if !containsString(models.EventTypes, *input.EventType) {
			return nil, apperrors.NewBadRequest("unknown event type")
		}
		event.EventType = *input.EventType
	}
	if input.PosterImageLink != nil {
		event.PosterImageLink = strings.TrimSpace(*input.PosterImageLink)
	}
	if input.Start != nil {
		start, err := parseClock(*input.Start)
		if err != nil {
			return nil, apperrors.NewBadRequest("invalid start time")
		}
		event.Start = start
	}
	if input.Finish != nil {
		finish, err := parseClock(*input.Finish)
		if err != nil {
			return nil, apperrors.NewBadRequest("invalid finish time")
		}
		event.Finish = finish
	}
	if int64(event.Start) > int64(event.Finish) {
		return nil, apperrors.NewBadRequest("start time must not be after finish time")
	}

	if err := s.db.WithContext(ctx).Save(event).Error; err != nil {
		return nil, fmt.Errorf("event service: update event: %w", err)
	}
	return event, nil
}

// Delete removes an event owned by the actor.
func (s *EventService) Delete(ctx context.Context, actor *models.User, eventID string) error {
	ctx = ensureContext(ctx)

	event, err := s.Get(ctx, eventID)
	if err != nil {
		return err
	}
	if actor == nil || (event.OrganizerID != actor.ID && !actor.IsAdmin) {
		return apperrors.ErrForbidden
	}

	return s.db.WithContext(ctx).Delete(&models.Event{}, "id = ?", event.ID).Error
}

// Get fetches a single event with its venue attached.
func (s *EventService) Get(ctx context.Context, eventID string) (*models.Event, error) {
	ctx = ensureContext(ctx)

	var event models.Event
	err := s.db.WithContext(ctx).Preload("Venue").Where("id = ?", eventID).First(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("event service: fetch event: %w", err)
	}
	return &event, nil
}

// ListOrderedByLikes returns every event, least liked first. It backs the
// event listing cache.
func (s *EventService) ListOrderedByLikes(ctx context.Context) ([]models.Event, error) {
	ctx = ensureContext(ctx)

	var events []models.Event
	if err := s.db.WithContext(ctx).Order("num_likes asc").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("event service: list events: %w", err)
	}
	return events, nil
}

// Favorites returns the events a user has liked, each with venue coordinates.
func (s *EventService) Favorites(ctx context.Context, userID string) ([]FavoriteEvent, error) {
	ctx = ensureContext(ctx)

	var likes []models.EventLike
	if err := s.db.WithContext(ctx).Where("owner_id = ?", userID).Find(&likes).Error; err != nil {
		return nil, fmt.Errorf("event service: list likes: %w", err)
	}
	if len(likes) == 0 {
		return []FavoriteEvent{}, nil
	}

	ids := make([]string, 0, len(likes))
	for _, like := range likes {
		ids = append(ids, like.EventID)
	}

	var events []models.Event
	if err := s.db.WithContext(ctx).Preload("Venue").Where("id IN ?", ids).Find(&events).Error; err != nil {
		return nil, fmt.Errorf("event service: list favorites: %w", err)
	}

	favorites := make([]FavoriteEvent, 0, len(events))
	for _, event := range events {
		fav := FavoriteEvent{Event: event}
		if event.Venue != nil {
			fav.VenueLat = event.Venue.Lat
			fav.VenueLng = event.Venue.Lng
		}
		favorites = append(favorites, fav)
	}
	return favorites, nil
}

// Like records a like and bumps the denormalised counter. The counter update
// is read-modify-write without locking; drift under concurrency is accepted.
func (s *EventService) Like(ctx context.Context, userID, eventID string) error {
	ctx = ensureContext(ctx)

	event, err := s.Get(ctx, eventID)
	if err != nil {
		return err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.EventLike{}).
		Where("owner_id = ? AND event_id = ?", userID, eventID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("event service: check like: %w", err)
	}
	if count > 0 {
		return apperrors.NewBadRequest("event already liked")
	}

	like := &models.EventLike{
		LikeFields: models.LikeFields{OwnerID: userID},
		EventID:    eventID,
	}
	if err := s.db.WithContext(ctx).Create(like).Error; err != nil {
		return fmt.Errorf("event service: create like: %w", err)
	}

	return s.db.WithContext(ctx).Model(&models.Event{}).
		Where("id = ?", eventID).
		Update("num_likes", event.NumLikes+1).Error
}

// Unlike removes a like and decrements the counter, clamping at zero.
func (s *EventService) Unlike(ctx context.Context, userID, eventID string) error {
	ctx = ensureContext(ctx)

	event, err := s.Get(ctx, eventID)
	if err != nil {
		return err
	}

	result := s.db.WithContext(ctx).
		Where("owner_id = ? AND event_id = ?", userID, eventID).
		Delete(&models.EventLike{})
	if result.Error != nil {
		return fmt.Errorf("event service: delete like: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NewBadRequest("event not liked")
	}

	next := event.NumLikes - 1
	if next < 0 {
		next = 0
	}
	return s.db.WithContext(ctx).Model(&models.Event{}).
		Where("id = ?", eventID).
		Update("num_likes", next).Error
}

// Search matches the query as a substring of title or description, capped at
// ten results.
func (s *EventService) Search(ctx context.Context, query string) ([]models.Event, error) {
	ctx = ensureContext(ctx)

	query = strings.TrimSpace(query)
	if query == "" {
		return []models.Event{}, nil
	}

	pattern := "%" + query + "%"
	var events []models.Event
	err := s.db.WithContext(ctx).
		Where("title LIKE ? OR description LIKE ?", pattern, pattern).
		Limit(searchResultLimit).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("event service: search events: %w", err)
	}
	return events, nil
}

// AddComment attaches a comment to an event.
func (s *EventService) AddComment(ctx context.Context, userID, eventID, content string) (*models.EventComment, error) {
	ctx = ensureContext(ctx)

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewBadRequest("comment content is required")
	}
	if _, err := s.Get(ctx, eventID); err != nil {
		return nil, err
	}

	comment := &models.EventComment{
		CommentFields: models.CommentFields{OwnerID: userID, Content: content},
		EventID:       eventID,
	}
	if err := s.db.WithContext(ctx).Create(comment).Error; err != nil {
		return nil, fmt.Errorf("event service: create comment: %w", err)
	}
	return comment, nil
}

// ListComments returns every comment on an event, oldest first.
func (s *EventService) ListComments(ctx context.Context, eventID string) ([]models.EventComment, error) {
	ctx = ensureContext(ctx)

	var comments []models.EventComment
	err := s.db.WithContext(ctx).
		Preload("Owner").
		Where("event_id = ?", eventID).
		Order("created_at asc").
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("event service: list comments: %w", err)
	}
	return comments, nil
}

// GetComment fetches a single comment.
func (s *EventService) GetComment(ctx context.Context, commentID string) (*models.EventComment, error) {
	ctx = ensureContext(ctx)

	var comment models.EventComment
	err := s.db.WithContext(ctx).Preload("Owner").Where("id = ?", commentID).First(&comment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound.WithMessage("Comment not found")
	}
	if err != nil {
		return nil, fmt.Errorf("event service: fetch comment: %w", err)
	}
	return &comment, nil
}

// DeleteComment removes a comment owned by the actor (admins may remove any).
func (s *EventService) DeleteComment(ctx context.Context, actor *models.User, commentID string) error {
	ctx = ensureContext(ctx)

	comment, err := s.GetComment(ctx, commentID)
	if err != nil {
		return err
	}
	if actor == nil || (comment.OwnerID != actor.ID && !actor.IsAdmin) {
		return apperrors.ErrForbidden
	}

	return s.db.WithContext(ctx).Delete(&models.EventComment{}, "id = ?", comment.ID).Error
}

// parseClock accepts wall-clock times like "19:30" or "19:30:00".
func parseClock(value string) (datatypes.Time, error) {
	value = strings.TrimSpace(value)
	layout := "15:04:05"
	if len(value) == len("15:04") {
		layout = "15:04"
	}
	parsed, err := time.Parse(layout, value)
	if err != nil {
		return datatypes.Time(0), err
	}
	return datatypes.NewTime(parsed.Hour(), parsed.Minute(), parsed.Second(), 0), nil
}
