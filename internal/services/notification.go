package services

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/issueless/issueless/internal/config"
	"github.com/issueless/issueless/internal/models"
	"gorm.io/gorm"
)

// Notification kinds.
const (
	KindInvitation     = "invitation"
	KindJoinProject    = "join project"
	KindQuitProject    = "quit project"
	KindUserRemoved    = "user removed"
	KindProjectDeleted = "project deleted"
	KindNewIssue       = "new issue"
	KindNewComment     = "new comment"
	KindAssignIssue    = "assign issue"
	KindMarkResolved   = "mark resolved"
	KindMarkClosed     = "mark closed"
	KindMarkOpen       = "mark open"
	KindDeleteIssue    = "delete issue"
)

// NotificationService computes recipients and persists notification rows.
// It never commits: every method takes the caller's transaction handle so the
// cap-eviction bookkeeping lands in the same transaction as the insert.
type NotificationService struct {
	db     *gorm.DB
	limits config.LimitsConfig
}

func NewNotificationService(db *gorm.DB, limits config.LimitsConfig) *NotificationService {
	return &NotificationService{db: db, limits: limits}
}

// Notify inserts one notification for a user. Invitation notifications are
// unique per (user, target): a repeat invitation replaces the prior row.
// Inserting past the per-user cap evicts the oldest rows first.
func (s *NotificationService) Notify(tx *gorm.DB, userID uint, kind string, data map[string]interface{}, targetID *uint) error {
	if kind == KindInvitation && targetID != nil {
		err := tx.Where("user_id = ? AND name = ? AND target_id = ?", userID, kind, *targetID).
			Delete(&models.Notification{}).Error
		if err != nil {
			return err
		}
	}

	if err := s.evictOverCap(tx, userID); err != nil {
		return err
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}

	notification := models.Notification{
		Name:     kind,
		TargetID: targetID,
		UserID:   userID,
		Payload:  string(payload),
	}
	return tx.Create(&notification).Error
}

// NotifyBasic sends a notification whose payload is just the project title.
func (s *NotificationService) NotifyBasic(tx *gorm.DB, userID uint, kind, projectTitle string) error {
	return s.Notify(tx, userID, kind, map[string]interface{}{"projectTitle": projectTitle}, nil)
}

// NotifyAdminsAndReviewers fans a notification out to every Admin and
// Reviewer membership of a project, excluding the acting user.
func (s *NotificationService) NotifyAdminsAndReviewers(tx *gorm.DB, projectID, excludeUserID uint, kind string, data map[string]interface{}, targetID *uint) error {
	var members []models.Membership
	err := tx.Joins("JOIN roles ON roles.id = memberships.role_id").
		Where("memberships.project_id = ? AND roles.name IN ?", projectID, []string{models.RoleAdmin, models.RoleReviewer}).
		Find(&members).Error
	if err != nil {
		return err
	}

	for _, member := range members {
		if member.UserID == excludeUserID {
			continue
		}
		if err := s.Notify(tx, member.UserID, kind, data, targetID); err != nil {
			return err
		}
	}
	return nil
}

// evictOverCap deletes the oldest notifications so one more insert stays
// within the per-user cap.
func (s *NotificationService) evictOverCap(tx *gorm.DB, userID uint) error {
	limit := s.limits.MaxNotificationsPerUser
	if limit <= 0 {
		return nil
	}

	var count int64
	if err := tx.Model(&models.Notification{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return err
	}
	if count < int64(limit) {
		return nil
	}

	overflow := count - int64(limit) + 1
	var ids []uint
	err := tx.Model(&models.Notification{}).
		Where("user_id = ?", userID).
		Order("created_at").
		Limit(int(overflow)).
		Pluck("id", &ids).Error
	if err != nil {
		return err
	}
	return tx.Delete(&models.Notification{}, ids).Error
}

// GetInvitation returns the user's pending invitation to a project, or nil.
func (s *NotificationService) GetInvitation(db *gorm.DB, userID, projectID uint) (*models.Notification, error) {
	var notification models.Notification
	err := db.Where("user_id = ? AND name = ? AND target_id = ?", userID, KindInvitation, projectID).
		First(&notification).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &notification, nil
}

// List returns a user's notifications, newest first. When since is non-nil
// only notifications created after that unix timestamp are returned, oldest
// first, so pollers can append in order.
func (s *NotificationService) List(userID uint, since *float64) ([]models.Notification, error) {
	var notifications []models.Notification
	query := s.db.Where("user_id = ?", userID)
	if since != nil {
		sec, frac := int64(*since), *since-float64(int64(*since))
		cutoff := time.Unix(sec, int64(frac*float64(time.Second)))
		query = query.Where("created_at > ?", cutoff).Order("created_at")
	} else {
		query = query.Order("created_at DESC")
	}
	err := query.Find(&notifications).Error
	return notifications, err
}

// getOwned loads a notification and checks ownership.
func (s *NotificationService) getOwned(userID, id uint) (*models.Notification, error) {
	var notification models.Notification
	if err := s.db.First(&notification, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFound("notification")
		}
		return nil, err
	}
	if notification.UserID != userID {
		return nil, NewForbidden("the notification does not belong to you")
	}
	return &notification, nil
}

// MarkRead marks one notification as read. Marking an already-read
// notification is rejected.
func (s *NotificationService) MarkRead(userID, id uint) error {
	notification, err := s.getOwned(userID, id)
	if err != nil {
		return err
	}
	if notification.IsRead {
		return NewValidation("You have already marked this notification as read.")
	}
	return s.db.Model(notification).Update("is_read", true).Error
}

// MarkReadBefore marks all of the user's unread notifications created at or
// before the given unix timestamp as read.
func (s *NotificationService) MarkReadBefore(userID uint, before float64) error {
	sec, frac := int64(before), before-float64(int64(before))
	cutoff := time.Unix(sec, int64(frac*float64(time.Second)))
	return s.db.Model(&models.Notification{}).
		Where("user_id = ? AND created_at <= ? AND is_read = ?", userID, cutoff, false).
		Update("is_read", true).Error
}

// Delete removes one of the user's notifications.
func (s *NotificationService) Delete(userID, id uint) error {
	notification, err := s.getOwned(userID, id)
	if err != nil {
		return err
	}
	return s.db.Delete(notification).Error
}

// PurgeRead deletes read notifications older than the retention window.
// Returns the number of rows removed.
func (s *NotificationService) PurgeRead(retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	result := s.db.Where("is_read = ? AND created_at < ?", true, cutoff).
		Delete(&models.Notification{})
	return result.RowsAffected, result.Error
}
