package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/issueless/issueless/internal/middleware"
	"github.com/issueless/issueless/internal/models"
	"github.com/issueless/issueless/internal/services"
	"github.com/issueless/issueless/pkg/response"
)

type IssueHandler struct {
	issueService *services.IssueService
}

func NewIssueHandler(issueService *services.IssueService) *IssueHandler {
	return &IssueHandler{issueService: issueService}
}

type issueRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	AssigneeID  *uint  `json:"assignee_id"`
}

// List returns the project's issues grouped by status
// GET /api/projects/:project_id/issues
func (h *IssueHandler) List(c *gin.Context) {
	projectID, ok := paramUint(c, "project_id")
	if !ok {
		return
	}

	board, err := h.issueService.List(middleware.GetUserID(c), projectID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, board)
}

// Get returns one issue
// GET /api/projects/:project_id/issues/:issue_id
func (h *IssueHandler) Get(c *gin.Context) {
	projectID, issueID, ok := issueParams(c)
	if !ok {
		return
	}

	issue, err := h.issueService.Get(middleware.GetUserID(c), projectID, issueID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, issue)
}

// Create opens a new issue
// POST /api/projects/:project_id/issues
func (h *IssueHandler) Create(c *gin.Context) {
	projectID, ok := paramUint(c, "project_id")
	if !ok {
		return
	}

	var req issueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	issue, err := h.issueService.Create(middleware.GetUserID(c), projectID, req.Title, req.Description)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Created(c, issue)
}

// Update edits an issue
// PUT /api/projects/:project_id/issues/:issue_id
func (h *IssueHandler) Update(c *gin.Context) {
	projectID, issueID, ok := issueParams(c)
	if !ok {
		return
	}

	var req issueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	issue, err := h.issueService.Edit(middleware.GetUserID(c), projectID, issueID, services.EditRequest{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		AssigneeID:  req.AssigneeID,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, issue)
}

type assignRequest struct {
	Priority   string `json:"priority"`
	AssigneeID uint   `json:"assignee_id"`
}

// Assign moves an open issue into progress
// POST /api/projects/:project_id/issues/:issue_id/assign
func (h *IssueHandler) Assign(c *gin.Context) {
	projectID, issueID, ok := issueParams(c)
	if !ok {
		return
	}

	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	issue, err := h.issueService.Assign(middleware.GetUserID(c), projectID, issueID, req.Priority, req.AssigneeID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, issue)
}

// Resolve marks an issue resolved by its assignee
// POST /api/projects/:project_id/issues/:issue_id/resolve
func (h *IssueHandler) Resolve(c *gin.Context) {
	h.transition(c, h.issueService.Resolve)
}

// Close closes an issue
// POST /api/projects/:project_id/issues/:issue_id/close
func (h *IssueHandler) Close(c *gin.Context) {
	h.transition(c, h.issueService.Close)
}

// Restore reopens a resolved or closed issue
// POST /api/projects/:project_id/issues/:issue_id/restore
func (h *IssueHandler) Restore(c *gin.Context) {
	h.transition(c, h.issueService.Restore)
}

// Delete removes an issue with its comments and files
// DELETE /api/projects/:project_id/issues/:issue_id
func (h *IssueHandler) Delete(c *gin.Context) {
	projectID, issueID, ok := issueParams(c)
	if !ok {
		return
	}

	if err := h.issueService.Delete(middleware.GetUserID(c), projectID, issueID); err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, nil)
}

func (h *IssueHandler) transition(c *gin.Context, fn func(actorID, projectID, issueID uint) (*models.Issue, error)) {
	projectID, issueID, ok := issueParams(c)
	if !ok {
		return
	}

	issue, err := fn(middleware.GetUserID(c), projectID, issueID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, issue)
}

func issueParams(c *gin.Context) (projectID, issueID uint, ok bool) {
	projectID, ok = paramUint(c, "project_id")
	if !ok {
		return 0, 0, false
	}
	issueID, ok = paramUint(c, "issue_id")
	if !ok {
		return 0, 0, false
	}
	return projectID, issueID, true
}
