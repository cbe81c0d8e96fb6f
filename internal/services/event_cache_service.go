package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cultach/cultach-api/internal/cache"
	"github.com/cultach/cultach-api/internal/models"
	"github.com/cultach/cultach-api/pkg/logger"
	"github.com/cultach/cultach-api/pkg/metrics"
)

// eventCacheKey is the single cache entry holding the whole event listing.
const eventCacheKey = "events"

// EventSummary is the fixed projection stored in the event listing cache.
type EventSummary struct {
	ID              string    `json:"id"`
	Date            time.Time `json:"date"`
	OrganizerID     string    `json:"organizer_id"`
	PosterImageLink string    `json:"poster_image_link"`
	NumLikes        int       `json:"num_likes"`
	Start           string    `json:"start"`
	Finish          string    `json:"finish"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	VenueID         string    `json:"venue_id"`
	EventType       string    `json:"event_type"`
	CreatedAt       time.Time `json:"created_at"`
	Lat             string    `json:"lat"`
	Lng             string    `json:"lng"`
}

// EventSource supplies the authoritative event listing on a cache miss.
type EventSource interface {
	ListOrderedByLikes(ctx context.Context) ([]models.Event, error)
}

// EventCacheService is a read-through cache over the full event listing.
// The entry is wholesale-replaced and stored without expiry, so readers see
// either a fully fresh or a fully stale list, never a mix. Likes and comments
// do not invalidate it; staleness is accepted until the key is evicted.
type EventCacheService struct {
	store  cache.Store
	source EventSource
}

// NewEventCacheService constructs an EventCacheService.
func NewEventCacheService(store cache.Store, source EventSource) (*EventCacheService, error) {
	if store == nil {
		return nil, errors.New("event cache: store is required")
	}
	if source == nil {
		return nil, errors.New("event cache: source is required")
	}
	return &EventCacheService{store: store, source: source}, nil
}

// List returns the cached event listing, rebuilding it from the source on any
// miss. A malformed cache entry counts as a miss, never as an error.
func (s *EventCacheService) List(ctx context.Context) ([]EventSummary, error) {
	ctx = ensureContext(ctx)

	raw, ok, err := s.store.Get(ctx, eventCacheKey)
	if err != nil {
		logger.Warn("event cache read failed", zap.Error(err))
	} else if ok {
		var cached []EventSummary
		if decodeErr := json.Unmarshal(raw, &cached); decodeErr == nil {
			metrics.EventCacheLookups.WithLabelValues("hit").Inc()
			return cached, nil
		}
		logger.Warn("discarding malformed event cache entry")
	}

	metrics.EventCacheLookups.WithLabelValues("miss").Inc()

	events, err := s.source.ListOrderedByLikes(ctx)
	if err != nil {
		return nil, fmt.Errorf("event cache: query events: %w", err)
	}

	summaries := make([]EventSummary, 0, len(events))
	for i := range events {
		summaries = append(summaries, summarize(&events[i]))
	}

	encoded, err := json.Marshal(summaries)
	if err != nil {
		return nil, fmt.Errorf("event cache: encode listing: %w", err)
	}
	if err := s.store.Set(ctx, eventCacheKey, encoded, 0); err != nil {
		// Serving fresh rows matters more than populating the cache.
		logger.Warn("event cache write failed", zap.Error(err))
	}

	return summaries, nil
}

// Evict drops the cached listing so the next read rebuilds it.
func (s *EventCacheService) Evict(ctx context.Context) error {
	return s.store.Delete(ensureContext(ctx), eventCacheKey)
}

func summarize(event *models.Event) EventSummary {
	return EventSummary{
		ID:              event.ID,
		Date:            event.Date,
		OrganizerID:     event.OrganizerID,
		PosterImageLink: event.PosterImageLink,
		NumLikes:        event.NumLikes,
		Start:           event.Start.String(),
		Finish:          event.Finish.String(),
		Title:           event.Title,
		Description:     event.Description,
		VenueID:         event.VenueID,
		EventType:       event.EventType,
		CreatedAt:       event.CreatedAt,
		Lat:             event.Lat,
		Lng:             event.Lng,
	}
}
