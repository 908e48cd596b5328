package models

import "time"

// Membership binds a user to a project with a single role.
// Unique on (project, user): a user holds at most one role per project.
type Membership struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProjectID uint      `gorm:"uniqueIndex:idx_membership_project_user;not null" json:"project_id"`
	Project   *Project  `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	UserID    uint      `gorm:"uniqueIndex:idx_membership_project_user;not null" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	RoleID    uint      `gorm:"index;not null" json:"role_id"`
	Role      *Role     `gorm:"foreignKey:RoleID" json:"role,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (Membership) TableName() string { return "memberships" }

// Can reports whether the membership's role grants the permission.
func (m *Membership) Can(p Permission) bool {
	return m.Role != nil && m.Role.HasPermission(p)
}
