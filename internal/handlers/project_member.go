package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/issueless/issueless/internal/middleware"
	"github.com/issueless/issueless/internal/services"
	"github.com/issueless/issueless/pkg/response"
	"gorm.io/gorm"
)

// ProjectMemberHandler covers the membership lifecycle endpoints of a
// project: invitations, joining, quitting, removal and role changes.
type ProjectMemberHandler struct {
	db             *gorm.DB
	projectService *services.ProjectService
}

func NewProjectMemberHandler(db *gorm.DB, projectService *services.ProjectService) *ProjectMemberHandler {
	return &ProjectMemberHandler{db: db, projectService: projectService}
}

// List returns the project's members
// GET /api/projects/:project_id/members
func (h *ProjectMemberHandler) List(c *gin.Context) {
	projectID, ok := paramUint(c, "project_id")
	if !ok {
		return
	}

	members, err := services.ListMembers(h.db, middleware.GetUserID(c), projectID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, members)
}

type inviteRequest struct {
	Target string `json:"target"`
	Role   string `json:"role"`
}

// Invite invites a user by username or email
// POST /api/projects/:project_id/members/invite
func (h *ProjectMemberHandler) Invite(c *gin.Context) {
	projectID, ok := paramUint(c, "project_id")
	if !ok {
		return
	}

	var req inviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.projectService.Invite(middleware.GetUserID(c), projectID, req.Target, req.Role)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, user)
}

// Join accepts a pending invitation
// POST /api/projects/:project_id/members/join
func (h *ProjectMemberHandler) Join(c *gin.Context) {
	projectID, ok := paramUint(c, "project_id")
	if !ok {
		return
	}

	if err := h.projectService.Join(middleware.GetUserID(c), projectID); err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, nil)
}

// Quit removes the caller from the project
// POST /api/projects/:project_id/members/quit
func (h *ProjectMemberHandler) Quit(c *gin.Context) {
	projectID, ok := paramUint(c, "project_id")
	if !ok {
		return
	}

	if err := h.projectService.Quit(middleware.GetUserID(c), projectID); err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, nil)
}

// Remove kicks a member out of the project
// DELETE /api/projects/:project_id/members/:user_id
func (h *ProjectMemberHandler) Remove(c *gin.Context) {
	projectID, ok := paramUint(c, "project_id")
	if !ok {
		return
	}
	userID, ok := paramUint(c, "user_id")
	if !ok {
		return
	}

	if err := h.projectService.RemoveMember(middleware.GetUserID(c), projectID, userID); err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, nil)
}

// ChangeRole toggles a member between Reviewer and Developer
// PUT /api/projects/:project_id/members/:user_id/role
func (h *ProjectMemberHandler) ChangeRole(c *gin.Context) {
	projectID, ok := paramUint(c, "project_id")
	if !ok {
		return
	}
	userID, ok := paramUint(c, "user_id")
	if !ok {
		return
	}

	if err := h.projectService.ChangeRole(middleware.GetUserID(c), projectID, userID); err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, nil)
}

// SearchUsers finds users to invite by name or email fragment
// GET /api/projects/:project_id/members/search?q=term
func (h *ProjectMemberHandler) SearchUsers(c *gin.Context) {
	projectID, ok := paramUint(c, "project_id")
	if !ok {
		return
	}

	results, err := h.projectService.SearchUsers(middleware.GetUserID(c), projectID, c.Query("q"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, results)
}
