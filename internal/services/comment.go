package services

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/issueless/issueless/internal/models"
	"gorm.io/gorm"
)

// CommentService manages the discussion thread of an issue. Comments only
// exist while an issue is actively worked on: the thread opens when the issue
// moves to In Progress.
type CommentService struct {
	db            *gorm.DB
	notifications *NotificationService
}

func NewCommentService(db *gorm.DB, notifications *NotificationService) *CommentService {
	return &CommentService{db: db, notifications: notifications}
}

// Add posts a comment on an In Progress issue. The commenter must be the
// issue's creator, its assignee, or hold MANAGE_ISSUES. Admins and Reviewers
// are notified, except the commenter.
func (s *CommentService) Add(actorID, projectID, issueID uint, text string) (*models.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, NewValidation("Please provide a comment.")
	}
	if utf8.RuneCountInString(text) > maxCommentLen {
		return nil, NewValidation("The comment must not exceed 1000 characters.")
	}

	var comment models.Comment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		membership, issue, err := requireIssue(tx, actorID, projectID, issueID)
		if err != nil {
			return err
		}

		if issue.Status != models.StatusInProgress {
			return NewValidation("Only an issue in progress can be commented on.")
		}
		if !canParticipate(membership, issue, actorID) {
			return NewForbidden("only the creator, the assignee or an issue manager can comment on this issue")
		}

		comment = models.Comment{
			Text:    text,
			UserID:  actorID,
			IssueID: issue.ID,
		}
		if err := tx.Create(&comment).Error; err != nil {
			return err
		}

		data := map[string]interface{}{
			"projectTitle": membership.Project.Title,
			"issueTitle":   issue.Title,
		}
		return s.notifications.NotifyAdminsAndReviewers(tx, projectID, actorID, KindNewComment, data, &issue.ID)
	})
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// Delete removes a comment. Only its author or a MANAGE_ISSUES holder may
// delete it.
func (s *CommentService) Delete(actorID, projectID, issueID, commentID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		membership, issue, err := requireIssue(tx, actorID, projectID, issueID)
		if err != nil {
			return err
		}

		var comment models.Comment
		if err := tx.First(&comment, commentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewNotFound("comment")
			}
			return err
		}
		if comment.IssueID != issue.ID {
			return NewValidation("The comment does not belong to this issue.")
		}
		if comment.UserID != actorID && !membership.Can(models.PermissionManageIssues) {
			return NewForbidden("only the author or an issue manager can delete a comment")
		}

		return tx.Delete(&comment).Error
	})
}

// List returns an issue's comments, oldest first. Requires READ_PROJECT.
func (s *CommentService) List(userID, projectID, issueID uint) ([]models.Comment, error) {
	if _, _, err := requireIssue(s.db, userID, projectID, issueID); err != nil {
		return nil, err
	}

	var comments []models.Comment
	err := s.db.Preload("User").
		Where("issue_id = ?", issueID).
		Order("created_at").
		Find(&comments).Error
	return comments, err
}

// canParticipate reports whether a member may post to an issue's thread or
// attach files to it.
func canParticipate(membership *models.Membership, issue *models.Issue, userID uint) bool {
	if membership.Can(models.PermissionManageIssues) {
		return true
	}
	if issue.CreatorID == userID {
		return true
	}
	return issue.AssigneeID != nil && *issue.AssigneeID == userID
}
