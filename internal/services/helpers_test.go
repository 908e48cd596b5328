package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/issueless/issueless/internal/config"
	"github.com/issueless/issueless/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
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

	err = db.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.Project{},
		&models.Membership{},
		&models.Issue{},
		&models.Comment{},
		&models.File{},
		&models.Notification{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	if err := models.SeedRoles(db, models.DefaultRolePermissions); err != nil {
		t.Fatalf("failed to seed roles: %v", err)
	}
	return db
}

func testLimits() config.LimitsConfig {
	return config.LimitsConfig{
		MaxProjectsPerUser:        8,
		MaxMembersPerProject:      30,
		MaxNotificationsPerUser:   50,
		NotificationRetentionDays: 30,
	}
}

// testEnv wires the service graph the way bootstrap does, minus HTTP.
type testEnv struct {
	db            *gorm.DB
	notifications *NotificationService
	projects      *ProjectService
	issues        *IssueService
	comments      *CommentService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := setupTestDB(t)
	storage, err := NewFileStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create file storage: %v", err)
	}

	limits := testLimits()
	notifications := NewNotificationService(db, limits)
	return &testEnv{
		db:            db,
		notifications: notifications,
		projects:      NewProjectService(db, limits, notifications, storage),
		issues:        NewIssueService(db, notifications, storage),
		comments:      NewCommentService(db, notifications),
	}
}

var userSeq int

func createUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()

	userSeq++
	user := models.User{
		Sub:       fmt.Sprintf("sub-%s-%d", username, userSeq),
		Email:     fmt.Sprintf("%s%d@example.com", username, userSeq),
		Username:  fmt.Sprintf("%s%d", username, userSeq),
		FirstName: username,
		LastName:  "Test",
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return &user
}

// createProject makes a project with the given user as Admin, bypassing the
// service so tests can set up state independently of what they verify.
func createProject(t *testing.T, db *gorm.DB, admin *models.User, title string) *models.Project {
	t.Helper()

	project := models.Project{Title: title, Description: "a test project"}
	if err := db.Create(&project).Error; err != nil {
		t.Fatalf("failed to create project: %v", err)
	}
	addMember(t, db, admin, &project, models.RoleAdmin)
	return &project
}

func addMember(t *testing.T, db *gorm.DB, user *models.User, project *models.Project, roleName string) {
	t.Helper()

	var role models.Role
	if err := db.Where("name = ?", roleName).First(&role).Error; err != nil {
		t.Fatalf("failed to look up role %s: %v", roleName, err)
	}
	membership := models.Membership{
		UserID:    user.ID,
		ProjectID: project.ID,
		RoleID:    role.ID,
	}
	if err := db.Create(&membership).Error; err != nil {
		t.Fatalf("failed to add member: %v", err)
	}
}

func createIssue(t *testing.T, db *gorm.DB, creator *models.User, project *models.Project, status models.IssueStatus, assignee *models.User) *models.Issue {
	t.Helper()

	issue := models.Issue{
		Title:       "Sample issue",
		Description: "something broke",
		Status:      status,
		CreatorID:   creator.ID,
		ProjectID:   project.ID,
	}
	if assignee != nil {
		priority := models.PriorityMedium
		issue.AssigneeID = &assignee.ID
		issue.Priority = &priority
	}
	if err := db.Create(&issue).Error; err != nil {
		t.Fatalf("failed to create issue: %v", err)
	}
	return &issue
}

func assertValidationError(t *testing.T, err error, want string) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected validation error %q, got nil", want)
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T: %v", err, err)
	}
	if verr.Message != want {
		t.Errorf("validation message = %q, expected %q", verr.Message, want)
	}
}

func assertForbidden(t *testing.T, err error) {
	t.Helper()

	if err == nil {
		t.Fatal("expected forbidden error, got nil")
	}
	var ferr *ForbiddenError
	if !errors.As(err, &ferr) {
		t.Fatalf("expected ForbiddenError, got %T: %v", err, err)
	}
}

func assertConflict(t *testing.T, err error) {
	t.Helper()

	if err == nil {
		t.Fatal("expected conflict error, got nil")
	}
	var cerr *ConflictError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConflictError, got %T: %v", err, err)
	}
}

func assertNotFound(t *testing.T, err error) {
	t.Helper()

	if err == nil {
		t.Fatal("expected not found error, got nil")
	}
	var nerr *NotFoundError
	if !errors.As(err, &nerr) {
		t.Fatalf("expected NotFoundError, got %T: %v", err, err)
	}
}
