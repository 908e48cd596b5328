package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/issueless/issueless/internal/models"
	"github.com/issueless/issueless/pkg/logger"
	"gorm.io/gorm"
)

// IssueService is the issue state machine: Open → In Progress → Resolved or
// Closed, with restore paths back. Each transition checks its guards inside
// one transaction, mutates, then emits notifications through the dispatcher.
type IssueService struct {
	db            *gorm.DB
	notifications *NotificationService
	storage       *FileStorage
}

func NewIssueService(db *gorm.DB, notifications *NotificationService, storage *FileStorage) *IssueService {
	return &IssueService{db: db, notifications: notifications, storage: storage}
}

// Create opens a new issue. Any member with READ_PROJECT may create one;
// the project's Admins and Reviewers are notified.
func (s *IssueService) Create(creatorID, projectID uint, title, description string) (*models.Issue, error) {
	if err := validateTitleDescription("issue", title, description); err != nil {
		return nil, err
	}

	var issue models.Issue
	err := s.db.Transaction(func(tx *gorm.DB) error {
		membership, err := RequirePermission(tx, creatorID, projectID, models.PermissionReadProject)
		if err != nil {
			return err
		}

		issue = models.Issue{
			Title:       title,
			Description: description,
			Status:      models.StatusOpen,
			CreatorID:   creatorID,
			ProjectID:   projectID,
		}
		if err := tx.Create(&issue).Error; err != nil {
			return err
		}

		data := map[string]interface{}{
			"projectTitle": membership.Project.Title,
			"issueTitle":   issue.Title,
		}
		return s.notifications.NotifyAdminsAndReviewers(tx, projectID, creatorID, KindNewIssue, data, &issue.ID)
	})
	if err != nil {
		return nil, err
	}
	return &issue, nil
}

// EditRequest carries the fields of an edit. Priority and AssigneeID are
// required only while the issue is In Progress.
type EditRequest struct {
	Title       string
	Description string
	Priority    string
	AssigneeID  *uint
}

// Edit updates an issue's fields. Open issues may be edited by their creator
// or a MANAGE_ISSUES holder; In Progress issues only by a MANAGE_ISSUES
// holder, who then also supplies priority and assignee. Resubmitting
// identical fields is rejected.
func (s *IssueService) Edit(actorID, projectID, issueID uint, req EditRequest) (*models.Issue, error) {
	if err := validateTitleDescription("issue", req.Title, req.Description); err != nil {
		return nil, err
	}

	var issue *models.Issue
	err := s.db.Transaction(func(tx *gorm.DB) error {
		membership, found, err := requireIssue(tx, actorID, projectID, issueID)
		if err != nil {
			return err
		}
		issue = found

		switch issue.Status {
		case models.StatusOpen:
			if !membership.Can(models.PermissionManageIssues) && issue.CreatorID != actorID {
				return NewForbidden("only the creator or an issue manager can edit an open issue")
			}
			if issue.Title == req.Title && issue.Description == req.Description {
				return NewValidation("No changes have been made.")
			}
		case models.StatusInProgress:
			if !membership.Can(models.PermissionManageIssues) {
				return NewForbidden("only an issue manager can edit an issue in progress")
			}
			priority, ok := models.ParsePriority(req.Priority)
			if !ok {
				return NewValidation("Please provide a valid priority level.")
			}
			if req.AssigneeID == nil {
				return NewValidation("Please provide an assignee.")
			}
			assignee, err := s.requireProjectMember(tx, projectID, *req.AssigneeID)
			if err != nil {
				return err
			}
			samePriority := issue.Priority != nil && *issue.Priority == priority
			sameAssignee := issue.AssigneeID != nil && *issue.AssigneeID == assignee.ID
			if issue.Title == req.Title && issue.Description == req.Description && samePriority && sameAssignee {
				return NewValidation("No changes have been made.")
			}
			issue.Priority = &priority
			issue.AssigneeID = &assignee.ID
			issue.Assignee = assignee
		default:
			return NewValidation("A resolved or closed issue can not be edited.")
		}

		issue.Title = req.Title
		issue.Description = req.Description
		return tx.Save(issue).Error
	})
	if err != nil {
		return nil, err
	}
	return issue, nil
}

// Assign moves an Open issue to In Progress, setting priority and assignee.
// Re-assigning an already assigned issue is rejected.
func (s *IssueService) Assign(actorID, projectID, issueID uint, priorityName string, assigneeID uint) (*models.Issue, error) {
	var issue *models.Issue
	err := s.db.Transaction(func(tx *gorm.DB) error {
		membership, found, err := requireIssue(tx, actorID, projectID, issueID)
		if err != nil {
			return err
		}
		issue = found

		if issue.Status != models.StatusOpen {
			return NewValidation("Only an open issue can be assigned.")
		}
		if !membership.Can(models.PermissionManageIssues) {
			return NewForbidden("only an issue manager can assign an issue")
		}
		priority, ok := models.ParsePriority(priorityName)
		if !ok {
			return NewValidation("Please provide a valid priority level.")
		}
		assignee, err := s.requireProjectMember(tx, projectID, assigneeID)
		if err != nil {
			return err
		}
		if issue.AssigneeID != nil {
			return NewValidation(fmt.Sprintf(
				"The issue has already been assigned to %s.", issue.Assignee.FullName()))
		}

		issue.Status = models.StatusInProgress
		issue.Priority = &priority
		issue.AssigneeID = &assignee.ID
		issue.Assignee = assignee
		if err := tx.Save(issue).Error; err != nil {
			return err
		}

		if assignee.ID == actorID {
			return nil
		}
		data := map[string]interface{}{
			"projectTitle": membership.Project.Title,
			"issueTitle":   issue.Title,
			"priority":     string(priority),
		}
		return s.notifications.Notify(tx, assignee.ID, KindAssignIssue, data, &issue.ID)
	})
	if err != nil {
		return nil, err
	}
	return issue, nil
}

// Resolve marks an In Progress issue Resolved. Only the assignee may resolve:
// completion is self-reported, then reviewed. Admins and Reviewers are
// notified so they can verify and close or restore.
func (s *IssueService) Resolve(actorID, projectID, issueID uint) (*models.Issue, error) {
	var issue *models.Issue
	err := s.db.Transaction(func(tx *gorm.DB) error {
		membership, found, err := requireIssue(tx, actorID, projectID, issueID)
		if err != nil {
			return err
		}
		issue = found

		if issue.Status != models.StatusInProgress {
			return NewValidation("Only an issue in progress can be resolved.")
		}
		if issue.AssigneeID == nil || *issue.AssigneeID != actorID {
			return NewForbidden("only the assignee can resolve an issue")
		}

		now := time.Now()
		issue.Status = models.StatusResolved
		issue.ResolvedAt = &now
		if err := tx.Save(issue).Error; err != nil {
			return err
		}

		data := map[string]interface{}{
			"projectTitle": membership.Project.Title,
			"issueTitle":   issue.Title,
		}
		return s.notifications.NotifyAdminsAndReviewers(tx, projectID, actorID, KindMarkResolved, data, &issue.ID)
	})
	if err != nil {
		return nil, err
	}
	return issue, nil
}

// Close moves an Open or In Progress issue to Closed. MANAGE_ISSUES only;
// the creator and assignee are notified unless they are the actor.
func (s *IssueService) Close(actorID, projectID, issueID uint) (*models.Issue, error) {
	var issue *models.Issue
	err := s.db.Transaction(func(tx *gorm.DB) error {
		membership, found, err := requireIssue(tx, actorID, projectID, issueID)
		if err != nil {
			return err
		}
		issue = found

		if issue.Status != models.StatusOpen && issue.Status != models.StatusInProgress {
			return NewValidation("Only an open or in progress issue can be closed.")
		}
		if !membership.Can(models.PermissionManageIssues) {
			return NewForbidden("only an issue manager can close an issue")
		}

		now := time.Now()
		issue.Status = models.StatusClosed
		issue.ClosedAt = &now
		if err := tx.Save(issue).Error; err != nil {
			return err
		}

		data := map[string]interface{}{
			"projectTitle": membership.Project.Title,
			"issueTitle":   issue.Title,
		}
		return s.notifyInterestedParties(tx, issue, actorID, KindMarkClosed, data)
	})
	if err != nil {
		return nil, err
	}
	return issue, nil
}

// Restore brings a Resolved or Closed issue back: Resolved goes to
// In Progress; Closed goes to In Progress when assigned, otherwise Open.
// The resolution/closure timestamps are cleared.
func (s *IssueService) Restore(actorID, projectID, issueID uint) (*models.Issue, error) {
	var issue *models.Issue
	err := s.db.Transaction(func(tx *gorm.DB) error {
		membership, found, err := requireIssue(tx, actorID, projectID, issueID)
		if err != nil {
			return err
		}
		issue = found

		if issue.Status != models.StatusResolved && issue.Status != models.StatusClosed {
			return NewValidation("Only a resolved or closed issue can be restored.")
		}
		if !membership.Can(models.PermissionManageIssues) {
			return NewForbidden("only an issue manager can restore an issue")
		}

		if issue.AssigneeID != nil {
			issue.Status = models.StatusInProgress
		} else {
			issue.Status = models.StatusOpen
		}
		issue.ResolvedAt = nil
		issue.ClosedAt = nil
		if err := tx.Save(issue).Error; err != nil {
			return err
		}

		data := map[string]interface{}{
			"projectTitle": membership.Project.Title,
			"issueTitle":   issue.Title,
		}
		return s.notifyInterestedParties(tx, issue, actorID, KindMarkOpen, data)
	})
	if err != nil {
		return nil, err
	}
	return issue, nil
}

// Delete removes an issue with its comments and files. The creator may
// delete their own issue while it is still Open; otherwise MANAGE_ISSUES is
// required.
func (s *IssueService) Delete(actorID, projectID, issueID uint) error {
	var storeKeys []string
	err := s.db.Transaction(func(tx *gorm.DB) error {
		membership, issue, err := requireIssue(tx, actorID, projectID, issueID)
		if err != nil {
			return err
		}

		canManage := membership.Can(models.PermissionManageIssues)
		if issue.Status == models.StatusOpen {
			if !canManage && issue.CreatorID != actorID {
				return NewForbidden("only the creator or an issue manager can delete an open issue")
			}
		} else if !canManage {
			return NewForbidden("only an issue manager can delete this issue")
		}

		if err := tx.Model(&models.File{}).Where("issue_id = ?", issue.ID).Pluck("store_key", &storeKeys).Error; err != nil {
			return err
		}
		if err := tx.Where("issue_id = ?", issue.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("issue_id = ?", issue.ID).Delete(&models.File{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(issue).Error; err != nil {
			return err
		}

		data := map[string]interface{}{
			"projectTitle": membership.Project.Title,
			"issueTitle":   issue.Title,
		}
		return s.notifyInterestedParties(tx, issue, actorID, KindDeleteIssue, data)
	})
	if err != nil {
		return err
	}

	for _, key := range storeKeys {
		if err := s.storage.Remove(key); err != nil {
			logger.Warn().Err(err).Str("key", key).Msg("failed to remove stored file")
		}
	}
	return nil
}

// Get returns one issue for the detail view. Requires READ_PROJECT.
func (s *IssueService) Get(userID, projectID, issueID uint) (*models.Issue, error) {
	_, issue, err := requireIssue(s.db, userID, projectID, issueID)
	if err != nil {
		return nil, err
	}
	return issue, nil
}

// IssueBoard groups a project's issues by status for the project page.
// In Progress issues are ordered High → Medium → Low, then by age.
type IssueBoard struct {
	Open       []models.Issue `json:"open"`
	InProgress []models.Issue `json:"in_progress"`
	Resolved   []models.Issue `json:"resolved"`
	Closed     []models.Issue `json:"closed"`
}

// List returns the project's issue board. Requires READ_PROJECT.
func (s *IssueService) List(userID, projectID uint) (*IssueBoard, error) {
	if _, err := RequirePermission(s.db, userID, projectID, models.PermissionReadProject); err != nil {
		return nil, err
	}

	var issues []models.Issue
	err := s.db.Preload("Creator").Preload("Assignee").
		Where("project_id = ?", projectID).
		Order(priorityOrderExpr + ", created_at").
		Find(&issues).Error
	if err != nil {
		return nil, err
	}

	board := &IssueBoard{
		Open:       []models.Issue{},
		InProgress: []models.Issue{},
		Resolved:   []models.Issue{},
		Closed:     []models.Issue{},
	}
	for _, issue := range issues {
		switch issue.Status {
		case models.StatusOpen:
			board.Open = append(board.Open, issue)
		case models.StatusInProgress:
			board.InProgress = append(board.InProgress, issue)
		case models.StatusResolved:
			board.Resolved = append(board.Resolved, issue)
		case models.StatusClosed:
			board.Closed = append(board.Closed, issue)
		}
	}
	return board, nil
}

// priorityOrderExpr sorts High before Medium before Low; null priorities last.
const priorityOrderExpr = "CASE priority WHEN 'High' THEN 0 WHEN 'Medium' THEN 1 WHEN 'Low' THEN 2 ELSE 3 END"

// requireProjectMember checks that a user exists and belongs to the project.
func (s *IssueService) requireProjectMember(tx *gorm.DB, projectID, userID uint) (*models.User, error) {
	var user models.User
	if err := tx.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFound("user")
		}
		return nil, err
	}
	membership, err := GetMembership(tx, userID, projectID)
	if err != nil {
		return nil, err
	}
	if membership == nil {
		return nil, NewValidation("The user you chose is not a member of the project.")
	}
	return &user, nil
}

// notifyInterestedParties notifies the creator and assignee of an issue,
// skipping the acting user and duplicate recipients.
func (s *IssueService) notifyInterestedParties(tx *gorm.DB, issue *models.Issue, actorID uint, kind string, data map[string]interface{}) error {
	notified := map[uint]bool{actorID: true}
	if !notified[issue.CreatorID] {
		if err := s.notifications.Notify(tx, issue.CreatorID, kind, data, &issue.ID); err != nil {
			return err
		}
		notified[issue.CreatorID] = true
	}
	if issue.AssigneeID != nil && !notified[*issue.AssigneeID] {
		if err := s.notifications.Notify(tx, *issue.AssigneeID, kind, data, &issue.ID); err != nil {
			return err
		}
	}
	return nil
}
