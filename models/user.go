package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// User represents a platform account. Passwords are stored as bcrypt hashes only.
type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Username     string         `gorm:"size:64;uniqueIndex;not null" json:"username"`
	Email        string         `gorm:"size:255" json:"email"`
	PasswordHash string         `gorm:"size:255" json:"-"`
	FirstName    string         `gorm:"size:64" json:"first_name"`
	LastName     string         `gorm:"size:64" json:"last_name"`
	AvatarURL    string         `gorm:"size:512" json:"avatar_url"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

const fallbackDisplayName = "site user"

// DisplayName is the public name shown on comments. Accounts without a
// usable first/last name fall back to a neutral label instead of leaking
// the username.
func (u *User) DisplayName() string {
	full := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if len(full) > 1 {
		return full
	}
	return fallbackDisplayName
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return nil
}
