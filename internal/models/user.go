package models

import (
	"crypto/md5"
	"fmt"
	"strings"
	"time"
)

// User represents an authenticated account. Identity comes from the external
// OAuth provider; Sub is the provider's stable subject identifier.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Sub       string    `gorm:"uniqueIndex;size:255;not null" json:"-"`
	Email     string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Username  string    `gorm:"uniqueIndex;size:30;not null" json:"username"`
	FirstName string    `gorm:"size:50" json:"first_name"`
	LastName  string    `gorm:"size:50" json:"last_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }

// FullName returns the user's display name.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// AvatarURL returns a gravatar link derived from the user's email.
func (u *User) AvatarURL(size int) string {
	digest := md5.Sum([]byte(strings.ToLower(u.Email)))
	return fmt.Sprintf("https://www.gravatar.com/avatar/%x?d=identicon&s=%d", digest, size)
}
