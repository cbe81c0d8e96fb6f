package models

// MaxChatRoomCapacity caps the size of any venue chat room.
const MaxChatRoomCapacity = 50

// ChatRoom stores venue chat-room metadata. Real-time messaging is handled
// outside this service; only room bookkeeping lives here.
type ChatRoom struct {
	BaseModel

	VenueID string `gorm:"type:uuid;not null;index" json:"venue_id"`
	Venue   *Venue `json:"venue,omitempty"`

	Name string `gorm:"uniqueIndex;size:255;not null" json:"name"`

	MaxCapacity     int `gorm:"not null;default:50" json:"max_capacity"`
	CurrentCapacity int `gorm:"default:0" json:"current_capacity"`

	// Status marks whether the room is currently open.
	Status bool `gorm:"default:false" json:"status"`
}
