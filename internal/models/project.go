package models

import "time"

// Project groups issues and members. Every project has exactly one Admin
// membership, created together with the project itself.
type Project struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:80;not null" json:"title"`
	Description string    `gorm:"size:200;not null" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Project) TableName() string { return "projects" }
