package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/issueless/issueless/internal/middleware"
	"github.com/issueless/issueless/internal/services"
	"github.com/issueless/issueless/pkg/response"
	"gorm.io/gorm"
)

type DashboardHandler struct {
	dashboardService *services.DashboardService
}

func NewDashboardHandler(db *gorm.DB) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: services.NewDashboardService(db),
	}
}

// Get returns the caller's projects and assigned workload
// GET /api/dashboard
func (h *DashboardHandler) Get(c *gin.Context) {
	dashboard, err := h.dashboardService.Get(middleware.GetUserID(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, dashboard)
}
