package maintenance

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cultach/cultach-api/internal/models"
	"github.com/cultach/cultach-api/pkg/logger"
)

const (
	defaultUnverifiedRetentionDays = 7
	defaultCacheSpec               = "@hourly"
	defaultAccountSpec             = "@daily"
)

// Cleaner coordinates background maintenance: purging expired cache entries
// and removing accounts that never completed email verification.
type Cleaner struct {
	db        *gorm.DB
	cron      *cron.Cron
	now       func() time.Time
	log       *zap.Logger
	retention int

	cacheSchedule   string
	accountSchedule string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for cleanup comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithUnverifiedRetentionDays adjusts how long unverified accounts are kept.
// Zero or negative disables the account purge.
func WithUnverifiedRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		cleaner.retention = days
	}
}

// WithCacheSchedule overrides the cron specification for cache entry cleanup.
func WithCacheSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.cacheSchedule = spec
		}
	}
}

// WithAccountSchedule overrides the cron specification for account cleanup.
func WithAccountSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.accountSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults.
func NewCleaner(db *gorm.DB, opts ...Option) (*Cleaner, error) {
	if db == nil {
		return nil, errors.New("maintenance: db is required")
	}

	cleaner := &Cleaner{
		db:              db,
		now:             time.Now,
		retention:       defaultUnverifiedRetentionDays,
		cacheSchedule:   defaultCacheSpec,
		accountSchedule: defaultAccountSpec,
		log:             logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner, nil
}

// Start registers the cleanup jobs with the cron scheduler and launches it.
func (c *Cleaner) Start() error {
	if _, err := c.cron.AddFunc(c.cacheSchedule, func() {
		if _, err := c.CleanupCacheEntries(context.Background()); err != nil {
			c.log.Warn("cache entry cleanup failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	if c.retention > 0 {
		if _, err := c.cron.AddFunc(c.accountSchedule, func() {
			if _, err := c.CleanupUnverifiedAccounts(context.Background()); err != nil {
				c.log.Warn("unverified account cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all configured cleanup routines sequentially. Primarily
// used in tests and during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if _, err := c.CleanupCacheEntries(ctx); err != nil {
		errs = multierr.Append(errs, err)
	}

	if c.retention > 0 {
		if _, err := c.CleanupUnverifiedAccounts(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}

// CleanupCacheEntries removes cache rows whose expiry has passed. Entries
// with a zero expiry never expire and are left alone.
func (c *Cleaner) CleanupCacheEntries(ctx context.Context) (int64, error) {
	result := c.db.WithContext(ctx).
		Where("expires_at != ? AND expires_at < ?", time.Time{}, c.now()).
		Delete(&models.CacheEntry{})
	if result.Error != nil {
		return 0, result.Error
	}

	if result.RowsAffected > 0 {
		c.log.Info("purged expired cache entries", zap.Int64("count", result.RowsAffected))
	}
	return result.RowsAffected, nil
}

// CleanupUnverifiedAccounts deletes local accounts that never verified their
// email within the retention window. Social accounts are created verified so
// they are never affected.
func (c *Cleaner) CleanupUnverifiedAccounts(ctx context.Context) (int64, error) {
	cutoff := c.now().AddDate(0, 0, -c.retention)

	result := c.db.WithContext(ctx).
		Where("is_verified = ? AND provider = ? AND created_at < ?", false, models.ProviderLocal, cutoff).
		Delete(&models.User{})
	if result.Error != nil {
		return 0, result.Error
	}

	if result.RowsAffected > 0 {
		c.log.Info("purged unverified accounts", zap.Int64("count", result.RowsAffected))
	}
	return result.RowsAffected, nil
}
