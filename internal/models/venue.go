package models

import "gorm.io/datatypes"

// VenueTypes enumerates the accepted venue categories.
var VenueTypes = []string{
	"museum", "theatre", "library", "cinema",
	"comedy_club", "monument", "cultural_space",
}

// Venue is a physical location hosting events.
type Venue struct {
	BaseModel

	Name        string `gorm:"uniqueIndex;size:127;not null" json:"name"`
	Description string `gorm:"size:511;not null" json:"description"`

	VenueType string `gorm:"size:63" json:"venue_type"`

	Lat string `gorm:"size:257;not null" json:"lat"`
	Lng string `gorm:"size:257;not null" json:"lng"`

	// NumLikes is denormalised from venue_likes rows; concurrent toggles can
	// make it drift from the row count (accepted, see VenueLike).
	NumLikes int `gorm:"not null;default:0" json:"num_likes"`

	Image1Link string `gorm:"size:511" json:"image_1_link"`
	Image2Link string `gorm:"size:511" json:"image_2_link"`
	Image3Link string `gorm:"size:511" json:"image_3_link"`

	WorkHoursOpen  datatypes.Time `json:"work_hours_open"`
	WorkHoursClose datatypes.Time `json:"work_hours_close"`

	Events   []Event        `gorm:"foreignKey:VenueID" json:"events,omitempty"`
	Comments []VenueComment `gorm:"foreignKey:VenueID" json:"comments,omitempty"`
}
