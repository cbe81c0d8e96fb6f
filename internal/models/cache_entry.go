package models

import "time"

// CacheEntry backs the database cache store used when Redis is unavailable.
// A zero ExpiresAt marks an entry that never expires; the maintenance sweep
// only removes rows whose deadline has passed.
type CacheEntry struct {
	Key       string    `gorm:"primaryKey;size:256"`
	Value     []byte    `gorm:"type:blob"`
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
