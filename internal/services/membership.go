package services

import (
	"errors"

	"github.com/issueless/issueless/internal/models"
	"gorm.io/gorm"
)

// The membership store: resolves (user, project) to a membership and gates
// every project- and issue-scoped operation. All functions take the caller's
// unit-of-work handle so guard checks run inside the caller's transaction.

// GetMembership returns the membership binding user to project, with the role
// preloaded, or nil when the user is not a member.
func GetMembership(db *gorm.DB, userID, projectID uint) (*models.Membership, error) {
	var membership models.Membership
	err := db.Preload("Role").
		Where("user_id = ? AND project_id = ?", userID, projectID).
		First(&membership).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &membership, nil
}

// RequirePermission resolves the caller's membership in a project and checks
// a permission. Fails with NotFoundError when the project does not exist and
// ForbiddenError when the caller is not a member or the role lacks the
// permission. The project is preloaded on the returned membership.
func RequirePermission(db *gorm.DB, userID, projectID uint, p models.Permission) (*models.Membership, error) {
	var project models.Project
	if err := db.First(&project, projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFound("project")
		}
		return nil, err
	}

	membership, err := GetMembership(db, userID, projectID)
	if err != nil {
		return nil, err
	}
	if membership == nil {
		return nil, NewForbidden("you are not a member of this project")
	}
	if !membership.Can(p) {
		return nil, NewForbidden("you do not have permission to perform this action")
	}

	membership.Project = &project
	return membership, nil
}

// requireIssue resolves the caller's membership and an issue, verifying that
// the issue belongs to the project in the request path.
func requireIssue(db *gorm.DB, userID, projectID, issueID uint) (*models.Membership, *models.Issue, error) {
	membership, err := RequirePermission(db, userID, projectID, models.PermissionReadProject)
	if err != nil {
		return nil, nil, err
	}

	var issue models.Issue
	if err := db.Preload("Creator").Preload("Assignee").First(&issue, issueID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, NewNotFound("issue")
		}
		return nil, nil, err
	}
	if issue.ProjectID != projectID {
		return nil, nil, NewValidation("The issue does not belong to this project.")
	}

	return membership, &issue, nil
}

// GetProjectAdmin returns the project's single Admin membership.
func GetProjectAdmin(db *gorm.DB, projectID uint) (*models.Membership, error) {
	var membership models.Membership
	err := db.Preload("User").
		Joins("JOIN roles ON roles.id = memberships.role_id").
		Where("memberships.project_id = ? AND roles.name = ?", projectID, models.RoleAdmin).
		First(&membership).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFound("project admin")
		}
		return nil, err
	}
	return &membership, nil
}

// ListMembers returns all memberships of a project ordered by join time.
// Requires READ_PROJECT.
func ListMembers(db *gorm.DB, userID, projectID uint) ([]models.Membership, error) {
	if _, err := RequirePermission(db, userID, projectID, models.PermissionReadProject); err != nil {
		return nil, err
	}

	var members []models.Membership
	err := db.Preload("User").Preload("Role").
		Where("project_id = ?", projectID).
		Order("created_at").
		Find(&members).Error
	return members, err
}

func countUserMemberships(db *gorm.DB, userID uint) (int64, error) {
	var count int64
	err := db.Model(&models.Membership{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

func countProjectMemberships(db *gorm.DB, projectID uint) (int64, error) {
	var count int64
	err := db.Model(&models.Membership{}).Where("project_id = ?", projectID).Count(&count).Error
	return count, err
}
