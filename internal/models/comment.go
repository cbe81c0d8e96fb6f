package models

// CommentFields is the value object shared by both comment families. The
// original schema synthesised these columns through declarative mixins; here
// each concrete type embeds the shared fields instead.
type CommentFields struct {
	BaseModel

	OwnerID string `gorm:"type:uuid;not null;index" json:"owner_id"`
	Owner   *User  `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`

	Content string `gorm:"size:255;not null" json:"content"`
}

// EventComment is a user comment attached to an event.
type EventComment struct {
	CommentFields

	EventID string `gorm:"type:uuid;not null;index" json:"event"`
}

// VenueComment is a user comment attached to a venue.
type VenueComment struct {
	CommentFields

	VenueID string `gorm:"type:uuid;not null;index" json:"venue"`
}
