package models

import (
	"time"

	"gorm.io/datatypes"
)

// EventTypes enumerates the accepted event categories.
var EventTypes = []string{
	"theatre", "concert", "exhibition", "book_fare",
	"seminar", "festival", "dance", "comedy", "film",
}

// Event is a scheduled happening at a venue, owned by an organizer account.
type Event struct {
	BaseModel

	Title       string `gorm:"size:127;not null" json:"title"`
	Description string `gorm:"size:511;not null" json:"description"`

	Date time.Time `gorm:"not null" json:"date"`

	VenueID string `gorm:"type:uuid;not null;index" json:"venue_id"`
	Venue   *Venue `json:"venue,omitempty"`

	OrganizerID string `gorm:"type:uuid;not null;index" json:"organizer_id"`
	Organizer   *User  `json:"organizer,omitempty"`

	EventType string `gorm:"size:63" json:"event_type"`

	PosterImageLink string `gorm:"size:511" json:"poster_image_link"`

	// NumLikes is denormalised from event_likes rows; see EventLike.
	NumLikes int `gorm:"not null;default:0" json:"num_likes"`

	Start  datatypes.Time `json:"start"`
	Finish datatypes.Time `json:"finish"`

	Lat string `gorm:"size:257;not null" json:"lat"`
	Lng string `gorm:"size:257;not null" json:"lng"`

	Comments []EventComment `gorm:"foreignKey:EventID" json:"comments,omitempty"`
}
