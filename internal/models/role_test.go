package models

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestPermissionBits(t *testing.T) {
	if PermissionReadProject != 1 {
		t.Errorf("READ_PROJECT = %d, expected 1", PermissionReadProject)
	}
	if PermissionManageProject != 2 {
		t.Errorf("MANAGE_PROJECT = %d, expected 2", PermissionManageProject)
	}
	if PermissionQuitProject != 4 {
		t.Errorf("QUIT_PROJECT = %d, expected 4", PermissionQuitProject)
	}
	if PermissionManageIssues != 8 {
		t.Errorf("MANAGE_ISSUES = %d, expected 8", PermissionManageIssues)
	}
}

func TestRolePermissionOps(t *testing.T) {
	role := &Role{Name: "Tester"}

	role.AddPermission(PermissionReadProject)
	role.AddPermission(PermissionManageIssues)
	if !role.HasPermission(PermissionReadProject) {
		t.Error("role should have READ_PROJECT")
	}
	if !role.HasPermission(PermissionManageIssues) {
		t.Error("role should have MANAGE_ISSUES")
	}
	if role.HasPermission(PermissionManageProject) {
		t.Error("role should not have MANAGE_PROJECT")
	}

	// Adding twice is idempotent.
	role.AddPermission(PermissionReadProject)
	if role.Permissions != int(PermissionReadProject|PermissionManageIssues) {
		t.Errorf("permissions = %d after duplicate add", role.Permissions)
	}

	role.RemovePermission(PermissionManageIssues)
	if role.HasPermission(PermissionManageIssues) {
		t.Error("MANAGE_ISSUES should be removed")
	}
	// Removing an absent permission changes nothing.
	role.RemovePermission(PermissionManageIssues)
	if role.Permissions != int(PermissionReadProject) {
		t.Errorf("permissions = %d after duplicate remove", role.Permissions)
	}

	role.ResetPermissions()
	if role.Permissions != 0 {
		t.Errorf("permissions = %d after reset, expected 0", role.Permissions)
	}
}

func TestDefaultRolePermissions(t *testing.T) {
	cases := []struct {
		role string
		has  []Permission
		not  []Permission
	}{
		{RoleAdmin,
			[]Permission{PermissionReadProject, PermissionManageProject, PermissionManageIssues},
			[]Permission{PermissionQuitProject}},
		{RoleReviewer,
			[]Permission{PermissionReadProject, PermissionQuitProject, PermissionManageIssues},
			[]Permission{PermissionManageProject}},
		{RoleDeveloper,
			[]Permission{PermissionReadProject, PermissionQuitProject},
			[]Permission{PermissionManageProject, PermissionManageIssues}},
	}
	for _, tc := range cases {
		perms, ok := DefaultRolePermissions[tc.role]
		if !ok {
			t.Fatalf("no default permissions for %s", tc.role)
		}
		role := &Role{Name: tc.role}
		for _, p := range perms {
			role.AddPermission(p)
		}
		for _, p := range tc.has {
			if !role.HasPermission(p) {
				t.Errorf("%s should have permission %d", tc.role, p)
			}
		}
		for _, p := range tc.not {
			if role.HasPermission(p) {
				t.Errorf("%s should not have permission %d", tc.role, p)
			}
		}
	}
}

func openRoleTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	// Each pooled connection would get its own in-memory database; pin one.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&Role{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func TestSeedRoles_Idempotent(t *testing.T) {
	db := openRoleTestDB(t)

	if err := SeedRoles(db, DefaultRolePermissions); err != nil {
		t.Fatalf("first seed failed: %v", err)
	}
	if err := SeedRoles(db, DefaultRolePermissions); err != nil {
		t.Fatalf("second seed failed: %v", err)
	}

	var count int64
	db.Model(&Role{}).Count(&count)
	if count != 3 {
		t.Errorf("expected 3 roles after reseeding, got %d", count)
	}

	var reviewer Role
	if err := db.Where("name = ?", RoleReviewer).First(&reviewer).Error; err != nil {
		t.Fatalf("failed to load Reviewer: %v", err)
	}
	if !reviewer.HasPermission(PermissionManageIssues) {
		t.Error("reseeding should preserve the Reviewer's permissions")
	}
}

func TestSeedRoles_RepairsDriftedPermissions(t *testing.T) {
	db := openRoleTestDB(t)

	if err := SeedRoles(db, DefaultRolePermissions); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	// Simulate drift: someone granted the Developer management bits.
	db.Model(&Role{}).Where("name = ?", RoleDeveloper).
		Update("permissions", int(PermissionReadProject|PermissionManageProject))

	if err := SeedRoles(db, DefaultRolePermissions); err != nil {
		t.Fatalf("reseed failed: %v", err)
	}
	var developer Role
	db.Where("name = ?", RoleDeveloper).First(&developer)
	if developer.HasPermission(PermissionManageProject) {
		t.Error("reseeding should reset drifted permissions")
	}
	if !developer.HasPermission(PermissionQuitProject) {
		t.Error("reseeding should restore missing permissions")
	}
}
