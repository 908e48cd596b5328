package models

import "time"

// Comment is an append-only note on an issue. Only the author or an issue
// manager may delete one.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Text      string    `gorm:"size:1000;not null" json:"text"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	IssueID   uint      `gorm:"index;not null" json:"issue_id"`
	Issue     *Issue    `gorm:"foreignKey:IssueID" json:"issue,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (Comment) TableName() string { return "comments" }
