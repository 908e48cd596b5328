package main

import (
	"context"

	"github.com/issueless/issueless/internal/config"
	"github.com/issueless/issueless/internal/handlers"
	"github.com/issueless/issueless/internal/models"
	"github.com/issueless/issueless/internal/services"
	"github.com/issueless/issueless/internal/utils"
	"github.com/issueless/issueless/pkg/logger"
)

// appServices holds all initialized services and handlers needed by the application.
type appServices struct {
	cfg            *config.Config
	cleanupService *services.CleanupService
	taskQueue      services.TaskQueue
	worker         *services.Worker

	authHandler         *handlers.AuthHandler
	dashboardHandler    *handlers.DashboardHandler
	projectHandler      *handlers.ProjectHandler
	memberHandler       *handlers.ProjectMemberHandler
	issueHandler        *handlers.IssueHandler
	commentHandler      *handlers.CommentHandler
	fileHandler         *handlers.FileHandler
	notificationHandler *handlers.NotificationHandler
}

// bootstrap initializes all application dependencies: database, services, schedulers.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)

	// Initialize database
	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto migrate database
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	// Seed roles
	if err := models.SeedDefaultData(); err != nil {
		logger.Warn().Err(err).Msg("Failed to seed default data")
	}

	db := models.GetDB()

	storage, err := services.NewFileStorage(cfg.Uploads.Dir)
	if err != nil {
		logger.Fatalf("Failed to initialize file storage: %v", err)
	}

	notificationService := services.NewNotificationService(db, cfg.Limits)
	projectService := services.NewProjectService(db, cfg.Limits, notificationService, storage)
	issueService := services.NewIssueService(db, notificationService, storage)
	commentService := services.NewCommentService(db, notificationService)
	fileService := services.NewFileService(db, storage, cfg.Uploads)
	emailService := services.NewEmailService(cfg.SMTP)

	// Purge read notifications past the retention window, daily
	cleanupService := services.NewCleanupService(notificationService, cfg.Limits)
	cleanupService.StartScheduler()

	// Initialize task queue (uses Redis if enabled, otherwise sync mode)
	sendInvitation := func(_ context.Context, task *services.InvitationEmailTask) error {
		return emailService.SendInvitation(task)
	}
	taskQueue := services.InitTaskQueue(cfg)
	if syncQueue, ok := taskQueue.(*services.SyncQueue); ok {
		syncQueue.SetProcessor(sendInvitation)
	}

	// Start async worker if Redis is enabled
	var worker *services.Worker
	if cfg.Redis.Enabled {
		worker = services.InitWorker(&cfg.Redis)
		if worker != nil {
			worker.SetProcessor(sendInvitation)
			worker.Start()
		}
	}

	return &appServices{
		cfg:            cfg,
		cleanupService: cleanupService,
		taskQueue:      taskQueue,
		worker:         worker,

		authHandler:         handlers.NewAuthHandler(db, cfg),
		dashboardHandler:    handlers.NewDashboardHandler(db),
		projectHandler:      handlers.NewProjectHandler(projectService),
		memberHandler:       handlers.NewProjectMemberHandler(db, projectService),
		issueHandler:        handlers.NewIssueHandler(issueService),
		commentHandler:      handlers.NewCommentHandler(commentService),
		fileHandler:         handlers.NewFileHandler(fileService),
		notificationHandler: handlers.NewNotificationHandler(notificationService),
	}
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	s.cleanupService.StopScheduler()
	logger.Info().Msg("Schedulers stopped")

	if s.worker != nil {
		s.worker.Stop()
	}
	if s.taskQueue != nil {
		s.taskQueue.Close()
	}
}
