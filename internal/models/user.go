package models

// Sign-in provider tags stored on user records.
const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"
)

// User describes platform accounts, both locally registered and social.
type User struct {
	BaseModel

	Username string `gorm:"uniqueIndex;size:63;not null" json:"username"`
	Email    string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	// Password holds the bcrypt digest. Social accounts store a digest of a
	// deterministically derived secret, never a user-chosen password.
	Password string `gorm:"size:127" json:"-"`

	FirstName string `gorm:"size:63" json:"first_name"`
	LastName  string `gorm:"size:63" json:"last_name"`

	// SocialID is the provider-issued subject for social accounts.
	SocialID *string `gorm:"uniqueIndex;size:255" json:"-"`
	Provider string  `gorm:"size:63;default:local" json:"provider"`

	IsOrganizer bool `gorm:"default:false" json:"is_organizer"`
	IsAdmin     bool `gorm:"default:false" json:"is_admin"`

	// IsVerified transitions false to true exactly once via email
	// confirmation. Social accounts are created verified.
	IsVerified bool `gorm:"default:false;not null" json:"is_verified"`
}
