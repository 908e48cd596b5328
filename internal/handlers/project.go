package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/issueless/issueless/internal/middleware"
	"github.com/issueless/issueless/internal/services"
	"github.com/issueless/issueless/pkg/response"
)

type ProjectHandler struct {
	projectService *services.ProjectService
}

func NewProjectHandler(projectService *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

type projectRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Create creates a new project with the caller as Admin
// POST /api/projects
func (h *ProjectHandler) Create(c *gin.Context) {
	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	project, err := h.projectService.Create(middleware.GetUserID(c), req.Title, req.Description)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Created(c, project)
}

// Get returns a project together with the caller's role in it
// GET /api/projects/:project_id
func (h *ProjectHandler) Get(c *gin.Context) {
	projectID, ok := paramUint(c, "project_id")
	if !ok {
		return
	}

	membership, err := h.projectService.Get(middleware.GetUserID(c), projectID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, gin.H{
		"project": membership.Project,
		"role":    membership.Role,
	})
}

// Update edits a project's title and description
// PUT /api/projects/:project_id
func (h *ProjectHandler) Update(c *gin.Context) {
	projectID, ok := paramUint(c, "project_id")
	if !ok {
		return
	}

	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	project, err := h.projectService.Edit(middleware.GetUserID(c), projectID, req.Title, req.Description)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, project)
}

// Delete removes a project and everything in it
// DELETE /api/projects/:project_id
func (h *ProjectHandler) Delete(c *gin.Context) {
	projectID, ok := paramUint(c, "project_id")
	if !ok {
		return
	}

	if err := h.projectService.Delete(middleware.GetUserID(c), projectID); err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, nil)
}
