package models

import (
	"encoding/json"
	"time"
)

// Notification is a persisted event addressed to one user. TargetID says what
// the notification is about (a project for invitations) and drives the
// replace-on-repeat rule for invitation notifications.
type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"index;size:50;not null" json:"name"`
	TargetID  *uint     `json:"target_id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Payload   string    `gorm:"type:text" json:"-"`
	IsRead    bool      `gorm:"not null;default:false" json:"is_read"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }

// Data decodes the JSON payload.
func (n *Notification) Data() (map[string]interface{}, error) {
	data := make(map[string]interface{})
	if n.Payload == "" {
		return data, nil
	}
	if err := json.Unmarshal([]byte(n.Payload), &data); err != nil {
		return nil, err
	}
	return data, nil
}
