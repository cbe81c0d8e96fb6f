package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cultach/cultach-api/internal/models"
)

type memoryStore struct {
	values map[string][]byte
	ttls   map[string]time.Duration
	getErr error
	setErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *memoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	value, ok := m.values[key]
	return value, ok, nil
}

func (m *memoryStore) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.values, key)
		delete(m.ttls, key)
	}
	return nil
}

func (m *memoryStore) IncrementWithTTL(_ context.Context, _ string, window time.Duration) (int64, time.Duration, error) {
	return 1, window, nil
}

type countingSource struct {
	events []models.Event
	calls  int
	err    error
}

func (c *countingSource) ListOrderedByLikes(_ context.Context) ([]models.Event, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.events, nil
}

func sampleEvents() []models.Event {
	return []models.Event{
		{
			BaseModel:       models.BaseModel{ID: "ev-1"},
			Title:           "Quiet Concert",
			Description:     "strings only",
			NumLikes:        1,
			VenueID:         "venue-1",
			OrganizerID:     "org-1",
			EventType:       "concert",
			PosterImageLink: "https://img/1.png",
			Lat:             "44.8",
			Lng:             "20.4",
		},
		{
			BaseModel:   models.BaseModel{ID: "ev-2"},
			Title:       "Loud Concert",
			NumLikes:    7,
			VenueID:     "venue-2",
			OrganizerID: "org-1",
			EventType:   "concert",
		},
	}
}

func TestEventCacheMissPopulatesWithoutExpiry(t *testing.T) {
	store := newMemoryStore()
	source := &countingSource{events: sampleEvents()}

	svc, err := NewEventCacheService(store, source)
	require.NoError(t, err)

	listing, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, listing, 2)
	require.Equal(t, "ev-1", listing[0].ID)
	require.Equal(t, 1, source.calls)

	require.Contains(t, store.values, "events")
	require.Equal(t, time.Duration(0), store.ttls["events"], "listing cached without expiry")
}

func TestEventCacheHitSkipsSource(t *testing.T) {
	store := newMemoryStore()
	source := &countingSource{events: sampleEvents()}

	svc, err := NewEventCacheService(store, source)
	require.NoError(t, err)

	ctx := context.Background()

	_, err = svc.List(ctx)
	require.NoError(t, err)

	listing, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, listing, 2)
	require.Equal(t, 1, source.calls, "second read served from cache")
}

func TestEventCacheMalformedEntryIsAMiss(t *testing.T) {
	store := newMemoryStore()
	store.values["events"] = []byte("{not json")
	source := &countingSource{events: sampleEvents()}

	svc, err := NewEventCacheService(store, source)
	require.NoError(t, err)

	listing, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, listing, 2)
	require.Equal(t, 1, source.calls)
}

func TestEventCacheStoreReadFailureFallsThrough(t *testing.T) {
	store := newMemoryStore()
	store.getErr = errors.New("redis gone")
	source := &countingSource{events: sampleEvents()}

	svc, err := NewEventCacheService(store, source)
	require.NoError(t, err)

	listing, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, listing, 2)
}

func TestEventCacheWriteFailureStillServesRows(t *testing.T) {
	store := newMemoryStore()
	store.setErr = errors.New("redis gone")
	source := &countingSource{events: sampleEvents()}

	svc, err := NewEventCacheService(store, source)
	require.NoError(t, err)

	listing, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, listing, 2)
}

func TestEventCacheSourceFailure(t *testing.T) {
	store := newMemoryStore()
	source := &countingSource{err: errors.New("db down")}

	svc, err := NewEventCacheService(store, source)
	require.NoError(t, err)

	_, err = svc.List(context.Background())
	require.Error(t, err)
}

func TestEventCacheEvict(t *testing.T) {
	store := newMemoryStore()
	source := &countingSource{events: sampleEvents()}

	svc, err := NewEventCacheService(store, source)
	require.NoError(t, err)

	ctx := context.Background()

	_, err = svc.List(ctx)
	require.NoError(t, err)
	require.NoError(t, svc.Evict(ctx))

	_, err = svc.List(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, source.calls, "eviction forces a rebuild")
}
