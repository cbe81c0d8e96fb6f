package models

// LikeFields is the value object shared by both like families.
//
// The denormalised num_likes counters on Event and Venue are maintained with
// a plain read-modify-write, not an atomic increment or row lock; under
// concurrent toggles the counter can drift from the like-row count. The like
// rows themselves are the source of truth.
type LikeFields struct {
	BaseModel

	OwnerID string `gorm:"type:uuid;not null;index" json:"owner_id"`
	Owner   *User  `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
}

// EventLike marks that a user liked an event. One row per (event, owner),
// enforced by the service layer rather than a constraint.
type EventLike struct {
	LikeFields

	EventID string `gorm:"type:uuid;not null;index" json:"event"`
}

// VenueLike marks that a user liked a venue. One row per (venue, owner),
// enforced by the service layer rather than a constraint.
type VenueLike struct {
	LikeFields

	VenueID string `gorm:"type:uuid;not null;index" json:"venue"`
}
