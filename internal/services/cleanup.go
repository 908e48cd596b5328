package services

import (
	"log"

	"github.com/issueless/issueless/internal/config"
	"github.com/robfig/cron/v3"
)

// CleanupService purges stale read notifications on a schedule so the
// notifications table stays bounded.
type CleanupService struct {
	notifications *NotificationService
	limits        config.LimitsConfig
	cronScheduler *cron.Cron
}

func NewCleanupService(notifications *NotificationService, limits config.LimitsConfig) *CleanupService {
	return &CleanupService{
		notifications: notifications,
		limits:        limits,
	}
}

// StartScheduler runs the purge once a day, shortly after midnight.
func (s *CleanupService) StartScheduler() {
	s.cronScheduler = cron.New()

	_, err := s.cronScheduler.AddFunc("30 0 * * *", func() {
		s.RunOnce()
	})
	if err != nil {
		log.Printf("[Cleanup] Failed to add cron job: %v", err)
		return
	}

	s.cronScheduler.Start()
	log.Println("[Cleanup] Scheduler started")
}

func (s *CleanupService) StopScheduler() {
	if s.cronScheduler != nil {
		s.cronScheduler.Stop()
	}
}

// RunOnce removes read notifications older than the retention window.
func (s *CleanupService) RunOnce() {
	removed, err := s.notifications.PurgeRead(s.limits.NotificationRetentionDays)
	if err != nil {
		log.Printf("[Cleanup] Failed to purge notifications: %v", err)
		return
	}
	if removed > 0 {
		log.Printf("[Cleanup] Purged %d read notifications", removed)
	}
}
