package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cultach/cultach-api/internal/database/testutil"
	"github.com/cultach/cultach-api/internal/models"
)

func TestCleanupCacheEntries(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	now := time.Now()
	require.NoError(t, db.Create(&models.CacheEntry{
		Key:       "stale",
		Value:     []byte("x"),
		ExpiresAt: now.Add(-time.Minute),
	}).Error)
	require.NoError(t, db.Create(&models.CacheEntry{
		Key:       "fresh",
		Value:     []byte("y"),
		ExpiresAt: now.Add(time.Hour),
	}).Error)
	require.NoError(t, db.Create(&models.CacheEntry{
		Key:   "forever",
		Value: []byte("z"),
	}).Error)

	cleaner, err := NewCleaner(db)
	require.NoError(t, err)

	removed, err := cleaner.CleanupCacheEntries(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	var keys []string
	require.NoError(t, db.Model(&models.CacheEntry{}).Order("key").Pluck("key", &keys).Error)
	require.Equal(t, []string{"forever", "fresh"}, keys)
}

func TestCleanupUnverifiedAccounts(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	now := time.Now()
	cleaner, err := NewCleaner(db,
		WithUnverifiedRetentionDays(7),
		WithNow(func() time.Time { return now }),
	)
	require.NoError(t, err)

	stale := &models.User{Username: "stale", Email: "stale@example.com", Password: "x"}
	require.NoError(t, db.Create(stale).Error)
	require.NoError(t, db.Model(stale).UpdateColumn("created_at", now.AddDate(0, 0, -10)).Error)

	recent := &models.User{Username: "recent", Email: "recent@example.com", Password: "x"}
	require.NoError(t, db.Create(recent).Error)

	verified := &models.User{Username: "done", Email: "done@example.com", Password: "x", IsVerified: true}
	require.NoError(t, db.Create(verified).Error)
	require.NoError(t, db.Model(verified).UpdateColumn("created_at", now.AddDate(0, 0, -30)).Error)

	social := &models.User{
		Username: "ext", Email: "ext@example.com", Password: "x",
		Provider: models.ProviderGoogle, IsVerified: false,
	}
	require.NoError(t, db.Create(social).Error)
	require.NoError(t, db.Model(social).UpdateColumn("created_at", now.AddDate(0, 0, -30)).Error)

	removed, err := cleaner.CleanupUnverifiedAccounts(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	var usernames []string
	require.NoError(t, db.Model(&models.User{}).Order("username").Pluck("username", &usernames).Error)
	require.Equal(t, []string{"done", "ext", "recent"}, usernames)
}

func TestRunOnceAggregatesJobs(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	require.NoError(t, db.Create(&models.CacheEntry{
		Key:       "stale",
		Value:     []byte("x"),
		ExpiresAt: time.Now().Add(-time.Minute),
	}).Error)

	cleaner, err := NewCleaner(db)
	require.NoError(t, err)
	require.NoError(t, cleaner.RunOnce(context.Background()))

	var count int64
	require.NoError(t, db.Model(&models.CacheEntry{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestCleanerStartAndStop(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	cleaner, err := NewCleaner(db)
	require.NoError(t, err)
	require.NoError(t, cleaner.Start())

	ctx := cleaner.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop in time")
	}
}
