package database

import (
	"gorm.io/gorm"

	"github.com/cultach/cultach-api/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Venue{},
		&models.Event{},
		&models.EventComment{},
		&models.VenueComment{},
		&models.EventLike{},
		&models.VenueLike{},
		&models.ChatRoom{},
		&models.CacheEntry{},
	)
}
