package services

import (
	"errors"
	"fmt"

	"github.com/issueless/issueless/internal/config"
	"github.com/issueless/issueless/internal/models"
	"github.com/issueless/issueless/pkg/logger"
	"gorm.io/gorm"
)

// ProjectService owns the membership lifecycle: project creation and
// deletion, invitations, joining, quitting, member removal and role changes.
// Every mutation runs inside one transaction so guard-check-then-mutate is
// not subject to a race.
type ProjectService struct {
	db            *gorm.DB
	limits        config.LimitsConfig
	notifications *NotificationService
	storage       *FileStorage
}

func NewProjectService(db *gorm.DB, limits config.LimitsConfig, notifications *NotificationService, storage *FileStorage) *ProjectService {
	return &ProjectService{db: db, limits: limits, notifications: notifications, storage: storage}
}

// Create makes a new project with the creator as its single Admin.
func (s *ProjectService) Create(creatorID uint, title, description string) (*models.Project, error) {
	if err := validateTitleDescription("project", title, description); err != nil {
		return nil, err
	}

	var project models.Project
	err := s.db.Transaction(func(tx *gorm.DB) error {
		count, err := countUserMemberships(tx, creatorID)
		if err != nil {
			return err
		}
		if count >= int64(s.limits.MaxProjectsPerUser) {
			return NewValidation(fmt.Sprintf(
				"You can only have %d or less projects. Please leave one existing project before you add any more.",
				s.limits.MaxProjectsPerUser))
		}

		var role models.Role
		if err := tx.Where("name = ?", models.RoleAdmin).First(&role).Error; err != nil {
			return err
		}

		project = models.Project{Title: title, Description: description}
		if err := tx.Create(&project).Error; err != nil {
			return err
		}

		membership := models.Membership{ProjectID: project.ID, UserID: creatorID, RoleID: role.ID}
		return tx.Create(&membership).Error
	})
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// Get returns the project together with the caller's membership.
// Requires READ_PROJECT.
func (s *ProjectService) Get(userID, projectID uint) (*models.Membership, error) {
	return RequirePermission(s.db, userID, projectID, models.PermissionReadProject)
}

// Edit updates the project's title and description. A no-op edit is rejected
// so it cannot produce spurious notification or audit churn.
func (s *ProjectService) Edit(actorID, projectID uint, title, description string) (*models.Project, error) {
	if err := validateTitleDescription("project", title, description); err != nil {
		return nil, err
	}

	var project *models.Project
	err := s.db.Transaction(func(tx *gorm.DB) error {
		membership, err := RequirePermission(tx, actorID, projectID, models.PermissionManageProject)
		if err != nil {
			return err
		}
		project = membership.Project
		if project.Title == title && project.Description == description {
			return NewValidation("No changes have been made.")
		}
		project.Title = title
		project.Description = description
		return tx.Save(project).Error
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}

// Delete removes the project with all its memberships and issues, notifying
// every remaining member except the actor.
func (s *ProjectService) Delete(actorID, projectID uint) error {
	var storeKeys []string
	err := s.db.Transaction(func(tx *gorm.DB) error {
		membership, err := RequirePermission(tx, actorID, projectID, models.PermissionManageProject)
		if err != nil {
			return err
		}
		project := membership.Project

		var members []models.Membership
		if err := tx.Where("project_id = ?", projectID).Find(&members).Error; err != nil {
			return err
		}
		for _, member := range members {
			if member.UserID == actorID {
				continue
			}
			if err := s.notifications.NotifyBasic(tx, member.UserID, KindProjectDeleted, project.Title); err != nil {
				return err
			}
		}

		var issueIDs []uint
		if err := tx.Model(&models.Issue{}).Where("project_id = ?", projectID).Pluck("id", &issueIDs).Error; err != nil {
			return err
		}
		if len(issueIDs) > 0 {
			if err := tx.Model(&models.File{}).Where("issue_id IN ?", issueIDs).Pluck("store_key", &storeKeys).Error; err != nil {
				return err
			}
			if err := tx.Where("issue_id IN ?", issueIDs).Delete(&models.Comment{}).Error; err != nil {
				return err
			}
			if err := tx.Where("issue_id IN ?", issueIDs).Delete(&models.File{}).Error; err != nil {
				return err
			}
			if err := tx.Where("project_id = ?", projectID).Delete(&models.Issue{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("project_id = ?", projectID).Delete(&models.Membership{}).Error; err != nil {
			return err
		}
		return tx.Delete(project).Error
	})
	if err != nil {
		return err
	}

	// Blob removal happens after commit; a leftover blob is harmless.
	for _, key := range storeKeys {
		if err := s.storage.Remove(key); err != nil {
			logger.Warn().Err(err).Str("key", key).Msg("failed to remove stored file")
		}
	}
	return nil
}

// Invite sends an invitation notification to a user identified by username or
// email. A repeat invitation to the same user replaces the pending one.
func (s *ProjectService) Invite(actorID, projectID uint, target, roleName string) (*models.User, error) {
	var user models.User
	var emailTask InvitationEmailTask
	err := s.db.Transaction(func(tx *gorm.DB) error {
		membership, err := RequirePermission(tx, actorID, projectID, models.PermissionManageProject)
		if err != nil {
			return err
		}
		project := membership.Project

		var role models.Role
		if err := tx.Where("name = ?", roleName).First(&role).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewValidation("Please provide a valid role.")
			}
			return err
		}
		if role.Name == models.RoleAdmin {
			return NewValidation("Please provide a valid role.")
		}

		if err := tx.Where("username = ? OR email = ?", target, target).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewNotFound("user")
			}
			return err
		}
		if user.ID == actorID {
			return NewValidation("You can not invite yourself to your project.")
		}

		existing, err := GetMembership(tx, user.ID, projectID)
		if err != nil {
			return err
		}
		if existing != nil {
			return NewValidation("User is already a member of the project.")
		}

		count, err := countProjectMemberships(tx, projectID)
		if err != nil {
			return err
		}
		if count >= int64(s.limits.MaxMembersPerProject) {
			return NewValidation(fmt.Sprintf(
				"You can only have %d or less members in one project.", s.limits.MaxMembersPerProject))
		}

		var inviter models.User
		if err := tx.First(&inviter, actorID).Error; err != nil {
			return err
		}

		data := map[string]interface{}{
			"roleName":     role.Name,
			"projectTitle": project.Title,
			"inviterName":  inviter.FullName(),
		}
		emailTask = InvitationEmailTask{
			Email:        user.Email,
			InviterName:  inviter.FullName(),
			ProjectTitle: project.Title,
			RoleName:     role.Name,
		}
		return s.notifications.Notify(tx, user.ID, KindInvitation, data, &projectID)
	})
	if err != nil {
		return nil, err
	}

	if queue := GetTaskQueue(); queue != nil {
		if err := queue.Enqueue(&emailTask); err != nil {
			logger.Warn().Err(err).Str("email", emailTask.Email).Msg("failed to enqueue invitation email")
		}
	}
	return &user, nil
}

// Join consumes a pending invitation and adds the user to the project with
// the role carried in the invitation payload. The project's Admin is
// notified.
func (s *ProjectService) Join(userID, projectID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		invitation, err := s.notifications.GetInvitation(tx, userID, projectID)
		if err != nil {
			return err
		}
		if invitation == nil {
			return NewForbidden("you have not been invited to this project")
		}

		var project models.Project
		if err := tx.First(&project, projectID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewValidation("The project has been removed.")
			}
			return err
		}

		userCount, err := countUserMemberships(tx, userID)
		if err != nil {
			return err
		}
		if userCount >= int64(s.limits.MaxProjectsPerUser) {
			return NewValidation(fmt.Sprintf(
				"You can only have %d or less projects. Please leave one existing project before you add any more.",
				s.limits.MaxProjectsPerUser))
		}
		memberCount, err := countProjectMemberships(tx, projectID)
		if err != nil {
			return err
		}
		if memberCount >= int64(s.limits.MaxMembersPerProject) {
			return NewValidation("The project does not have any remaining spot.")
		}

		data, err := invitation.Data()
		if err != nil {
			return err
		}
		roleName, _ := data["roleName"].(string)

		var role models.Role
		if err := tx.Where("name = ?", roleName).First(&role).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewValidation("The invitation is no longer valid.")
			}
			return err
		}

		membership := models.Membership{ProjectID: projectID, UserID: userID, RoleID: role.ID}
		if err := tx.Create(&membership).Error; err != nil {
			return translateDBError(err, "User is already a member of the project.")
		}
		if err := tx.Delete(invitation).Error; err != nil {
			return err
		}

		admin, err := GetProjectAdmin(tx, projectID)
		if err != nil {
			return err
		}
		return s.notifications.NotifyBasic(tx, admin.UserID, KindJoinProject, project.Title)
	})
}

// Quit removes the caller's own membership and notifies the Admin. Admins
// cannot quit their own project; their role lacks QUIT_PROJECT.
func (s *ProjectService) Quit(userID, projectID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		membership, err := RequirePermission(tx, userID, projectID, models.PermissionQuitProject)
		if err != nil {
			return err
		}
		if err := tx.Delete(&models.Membership{}, membership.ID).Error; err != nil {
			return err
		}
		admin, err := GetProjectAdmin(tx, projectID)
		if err != nil {
			return err
		}
		return s.notifications.NotifyBasic(tx, admin.UserID, KindQuitProject, membership.Project.Title)
	})
}

// RemoveMember deletes another user's membership and notifies them.
func (s *ProjectService) RemoveMember(actorID, projectID, targetUserID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		membership, err := RequirePermission(tx, actorID, projectID, models.PermissionManageProject)
		if err != nil {
			return err
		}
		project := membership.Project

		var target models.User
		if err := tx.First(&target, targetUserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewNotFound("user")
			}
			return err
		}

		targetMembership, err := GetMembership(tx, targetUserID, projectID)
		if err != nil {
			return err
		}
		if targetMembership == nil {
			return NewValidation("The user to be removed is not a member of the project.")
		}
		if targetUserID == actorID {
			return NewValidation("You can not remove yourself from the project.")
		}

		if err := tx.Delete(&models.Membership{}, targetMembership.ID).Error; err != nil {
			return err
		}
		return s.notifications.NotifyBasic(tx, targetUserID, KindUserRemoved, project.Title)
	})
}

// ChangeRole toggles a member between Reviewer and Developer. The Admin role
// is immutable through this path.
func (s *ProjectService) ChangeRole(actorID, projectID, targetUserID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := RequirePermission(tx, actorID, projectID, models.PermissionManageProject); err != nil {
			return err
		}

		var target models.User
		if err := tx.First(&target, targetUserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewNotFound("user")
			}
			return err
		}

		targetMembership, err := GetMembership(tx, targetUserID, projectID)
		if err != nil {
			return err
		}
		if targetMembership == nil {
			return NewValidation("User is not a member of the project.")
		}
		if targetUserID == actorID {
			return NewValidation("You can not assign yourself a new role.")
		}

		var newRoleName string
		switch targetMembership.Role.Name {
		case models.RoleReviewer:
			newRoleName = models.RoleDeveloper
		case models.RoleDeveloper:
			newRoleName = models.RoleReviewer
		default:
			return NewValidation("The admin's role can not be changed.")
		}

		var newRole models.Role
		if err := tx.Where("name = ?", newRoleName).First(&newRole).Error; err != nil {
			return err
		}
		return tx.Model(&models.Membership{ID: targetMembership.ID}).Update("role_id", newRole.ID).Error
	})
}

// UserSearchResult is one row of the invite dialog's user search.
type UserSearchResult struct {
	Fullname string `json:"fullname"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Avatar   string `json:"avatar"`
	Joined   bool   `json:"joined"`
}

// SearchUsers finds users by username, email or full name for the invite
// dialog, marking the ones already in the project. Requires MANAGE_PROJECT.
func (s *ProjectService) SearchUsers(actorID, projectID uint, term string) ([]UserSearchResult, error) {
	if _, err := RequirePermission(s.db, actorID, projectID, models.PermissionManageProject); err != nil {
		return nil, err
	}
	if term == "" {
		return []UserSearchResult{}, nil
	}

	pattern := "%" + term + "%"
	var users []models.User
	err := s.db.Where(
		"username LIKE ? OR email LIKE ? OR (first_name || ' ' || last_name) LIKE ?",
		pattern, pattern, pattern).
		Order("first_name, last_name").
		Limit(10).
		Find(&users).Error
	if err != nil {
		return nil, err
	}

	results := make([]UserSearchResult, 0, len(users))
	for _, user := range users {
		membership, err := GetMembership(s.db, user.ID, projectID)
		if err != nil {
			return nil, err
		}
		results = append(results, UserSearchResult{
			Fullname: user.FullName(),
			Username: user.Username,
			Email:    user.Email,
			Avatar:   user.AvatarURL(60),
			Joined:   membership != nil,
		})
	}
	return results, nil
}
