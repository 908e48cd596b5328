package models

import (
	"sort"

	"gorm.io/gorm"
)

// Permission is a single capability bit. Each value is a distinct power of
// two so any combination of permissions is uniquely representable and can be
// tested with a bitwise AND.
type Permission int

const (
	PermissionReadProject Permission = 1 << iota
	PermissionManageProject
	PermissionQuitProject
	PermissionManageIssues
)

// Role names. Every membership carries exactly one of these.
const (
	RoleAdmin     = "Admin"
	RoleReviewer  = "Reviewer"
	RoleDeveloper = "Developer"
)

// Role is a named bundle of permissions stored as a bitmask.
type Role struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"uniqueIndex;size:20;not null" json:"name"`
	Permissions int    `gorm:"not null" json:"permissions"`
}

func (Role) TableName() string { return "roles" }

// HasPermission reports whether every bit of p is set on the role.
func (r *Role) HasPermission(p Permission) bool {
	return r.Permissions&int(p) == int(p)
}

// AddPermission sets the bits of p. Adding an already-present bit is a no-op.
func (r *Role) AddPermission(p Permission) {
	r.Permissions |= int(p)
}

// RemovePermission clears the bits of p.
func (r *Role) RemovePermission(p Permission) {
	r.Permissions &^= int(p)
}

// ResetPermissions clears the whole bitmask.
func (r *Role) ResetPermissions() {
	r.Permissions = 0
}

// DefaultRolePermissions is the seed table mapping role names to their
// permission sets. Admins manage the project and its issues but cannot quit
// their own project; that keeps the one-admin-per-project invariant intact.
var DefaultRolePermissions = map[string][]Permission{
	RoleAdmin:     {PermissionReadProject, PermissionManageProject, PermissionManageIssues},
	RoleReviewer:  {PermissionReadProject, PermissionQuitProject, PermissionManageIssues},
	RoleDeveloper: {PermissionReadProject, PermissionQuitProject},
}

// SeedRoles upserts the given role/permission table. Existing roles keep their
// ids and have their bitmask converged to the configured value, so re-running
// the seed never duplicates rows.
func SeedRoles(db *gorm.DB, table map[string][]Permission) error {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		var role Role
		if err := db.Where("name = ?", name).First(&role).Error; err != nil {
			if err != gorm.ErrRecordNotFound {
				return err
			}
			role = Role{Name: name}
		}
		role.ResetPermissions()
		for _, p := range table[name] {
			role.AddPermission(p)
		}
		if err := db.Save(&role).Error; err != nil {
			return err
		}
	}
	return nil
}
