package model

import "time"

// User is a registered account. UpdatedAt stays nil until the first update.
type User struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	Email          string     `gorm:"type:varchar(255) COLLATE utf8mb4_bin;not null;uniqueIndex" json:"email"`
	Username       string     `gorm:"type:varchar(50) COLLATE utf8mb4_bin;not null;uniqueIndex" json:"username"`
	FullName       *string    `gorm:"size:255" json:"full_name"`
	HashedPassword string     `gorm:"size:255;not null" json:"-"`
	IsActive       bool       `gorm:"not null" json:"is_active"`
	IsSuperuser    bool       `gorm:"not null" json:"is_superuser"`
	ProfileImage   *string    `gorm:"size:512" json:"profile_image"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      *time.Time `gorm:"autoUpdateTime:false" json:"updated_at"`
}

// UserUpdate carries the mutable account fields; nil means unchanged.
type UserUpdate struct {
	Email        *string
	Username     *string
	FullName     *string
	ProfileImage *string
	IsActive     *bool
}

func (u UserUpdate) Empty() bool {
	return u.Email == nil && u.Username == nil && u.FullName == nil && u.ProfileImage == nil && u.IsActive == nil
}
