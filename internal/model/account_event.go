package model

import "time"

const (
	EventAccountRegistered   = "account.registered"
	EventAccountUpdated      = "account.updated"
	EventAccountDeleted      = "account.deleted"
	EventProfileImageUpdated = "account.profile_image_uploaded"
)

// AccountEvent is an audit record of an account lifecycle change.
type AccountEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Type      string    `gorm:"size:64;not null;index" json:"type"`
	Email     string    `gorm:"size:255;not null" json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
