package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/issueless/issueless/internal/middleware"
	"github.com/issueless/issueless/internal/services"
	"github.com/issueless/issueless/pkg/response"
)

type NotificationHandler struct {
	notificationService *services.NotificationService
}

func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// List returns the caller's notifications, newest first. An optional
// ?since=<unix> returns only notifications created after that point, which
// the frontend uses for polling.
// GET /api/notifications
func (h *NotificationHandler) List(c *gin.Context) {
	var since *float64
	if raw := c.Query("since"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			response.BadRequest(c, "invalid since parameter")
			return
		}
		since = &v
	}

	notifications, err := h.notificationService.List(middleware.GetUserID(c), since)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, notifications)
}

// MarkRead marks one notification as read
// PUT /api/notifications/:notification_id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := paramUint(c, "notification_id")
	if !ok {
		return
	}

	if err := h.notificationService.MarkRead(middleware.GetUserID(c), id); err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, nil)
}

// MarkAllRead marks every notification created before the given point as read
// PUT /api/notifications/read?before=<unix>
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	raw := c.Query("before")
	if raw == "" {
		response.BadRequest(c, "missing before parameter")
		return
	}
	before, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		response.BadRequest(c, "invalid before parameter")
		return
	}

	if err := h.notificationService.MarkReadBefore(middleware.GetUserID(c), before); err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, nil)
}

// Delete removes one notification
// DELETE /api/notifications/:notification_id
func (h *NotificationHandler) Delete(c *gin.Context) {
	id, ok := paramUint(c, "notification_id")
	if !ok {
		return
	}

	if err := h.notificationService.Delete(middleware.GetUserID(c), id); err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, nil)
}
