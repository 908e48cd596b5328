package models

import "time"

// IssueStatus is the closed set of lifecycle states.
type IssueStatus string

const (
	StatusOpen       IssueStatus = "Open"
	StatusInProgress IssueStatus = "In Progress"
	StatusResolved   IssueStatus = "Resolved"
	StatusClosed     IssueStatus = "Closed"
)

// IssuePriority is the closed set of priority levels.
type IssuePriority string

const (
	PriorityHigh   IssuePriority = "High"
	PriorityMedium IssuePriority = "Medium"
	PriorityLow    IssuePriority = "Low"
)

// ParsePriority validates a priority string. Unrecognized values are rejected
// at the boundary instead of being stored as-is.
func ParsePriority(s string) (IssuePriority, bool) {
	switch IssuePriority(s) {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return IssuePriority(s), true
	}
	return "", false
}

// Rank returns the sort ordinal of a priority, highest first.
func (p IssuePriority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	}
	return 3
}

// Issue is a tracked unit of work inside a project. Priority and assignee
// stay null until the issue is assigned and moves to In Progress.
type Issue struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Title       string         `gorm:"size:80;not null" json:"title"`
	Description string         `gorm:"size:200;not null" json:"description"`
	Status      IssueStatus    `gorm:"size:20;not null;default:Open" json:"status"`
	Priority    *IssuePriority `gorm:"size:10" json:"priority"`
	CreatorID   uint           `gorm:"index;not null" json:"creator_id"`
	Creator     *User          `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	AssigneeID  *uint          `gorm:"index" json:"assignee_id"`
	Assignee    *User          `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty"`
	ProjectID   uint           `gorm:"index;not null" json:"project_id"`
	Project     *Project       `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	ResolvedAt  *time.Time     `json:"resolved_at"`
	ClosedAt    *time.Time     `json:"closed_at"`
}

func (Issue) TableName() string { return "issues" }
