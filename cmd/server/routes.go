package main

import (
	"github.com/gin-gonic/gin"
	"github.com/issueless/issueless/internal/middleware"
	"github.com/issueless/issueless/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	// Middleware
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS())
	r.Use(middleware.AuditLog())

	// Rate limiter for the auth endpoints
	authLimiter := middleware.NewRateLimiter(svc.cfg.Limits.AuthRequestsPerSecond, svc.cfg.Limits.AuthBurst)

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "service": "issueless"})
	})

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth", authLimiter.Middleware())
		{
			auth.GET("/login", svc.authHandler.Login)
			auth.GET("/callback", svc.authHandler.Callback)
		}

		// Protected routes
		protected := api.Group("")
		protected.Use(middleware.AuthRequired())
		{
			// Auth
			protected.GET("/auth/me", svc.authHandler.Me)

			// Dashboard
			protected.GET("/dashboard", svc.dashboardHandler.Get)

			// Projects
			protected.POST("/projects", svc.projectHandler.Create)
			protected.GET("/projects/:project_id", svc.projectHandler.Get)
			protected.PUT("/projects/:project_id", svc.projectHandler.Update)
			protected.DELETE("/projects/:project_id", svc.projectHandler.Delete)

			// Members
			protected.GET("/projects/:project_id/members", svc.memberHandler.List)
			protected.GET("/projects/:project_id/members/search", svc.memberHandler.SearchUsers)
			protected.POST("/projects/:project_id/members/invite", svc.memberHandler.Invite)
			protected.POST("/projects/:project_id/members/join", svc.memberHandler.Join)
			protected.POST("/projects/:project_id/members/quit", svc.memberHandler.Quit)
			protected.DELETE("/projects/:project_id/members/:user_id", svc.memberHandler.Remove)
			protected.PUT("/projects/:project_id/members/:user_id/role", svc.memberHandler.ChangeRole)

			// Issues
			protected.GET("/projects/:project_id/issues", svc.issueHandler.List)
			protected.POST("/projects/:project_id/issues", svc.issueHandler.Create)
			protected.GET("/projects/:project_id/issues/:issue_id", svc.issueHandler.Get)
			protected.PUT("/projects/:project_id/issues/:issue_id", svc.issueHandler.Update)
			protected.DELETE("/projects/:project_id/issues/:issue_id", svc.issueHandler.Delete)
			protected.POST("/projects/:project_id/issues/:issue_id/assign", svc.issueHandler.Assign)
			protected.POST("/projects/:project_id/issues/:issue_id/resolve", svc.issueHandler.Resolve)
			protected.POST("/projects/:project_id/issues/:issue_id/close", svc.issueHandler.Close)
			protected.POST("/projects/:project_id/issues/:issue_id/restore", svc.issueHandler.Restore)

			// Comments
			protected.GET("/projects/:project_id/issues/:issue_id/comments", svc.commentHandler.List)
			protected.POST("/projects/:project_id/issues/:issue_id/comments", svc.commentHandler.Create)
			protected.DELETE("/projects/:project_id/issues/:issue_id/comments/:comment_id", svc.commentHandler.Delete)

			// Files
			protected.GET("/projects/:project_id/issues/:issue_id/files", svc.fileHandler.List)
			protected.POST("/projects/:project_id/issues/:issue_id/files", svc.fileHandler.Upload)
			protected.GET("/projects/:project_id/issues/:issue_id/files/:file_id", svc.fileHandler.Download)
			protected.DELETE("/projects/:project_id/issues/:issue_id/files/:file_id", svc.fileHandler.Delete)

			// Notifications
			protected.GET("/notifications", svc.notificationHandler.List)
			protected.PUT("/notifications/read", svc.notificationHandler.MarkAllRead)
			protected.PUT("/notifications/:notification_id/read", svc.notificationHandler.MarkRead)
			protected.DELETE("/notifications/:notification_id", svc.notificationHandler.Delete)
		}
	}
}
