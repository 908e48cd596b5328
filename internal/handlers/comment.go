package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/issueless/issueless/internal/middleware"
	"github.com/issueless/issueless/internal/services"
	"github.com/issueless/issueless/pkg/response"
)

type CommentHandler struct {
	commentService *services.CommentService
}

func NewCommentHandler(commentService *services.CommentService) *CommentHandler {
	return &CommentHandler{commentService: commentService}
}

// List returns an issue's comments
// GET /api/projects/:project_id/issues/:issue_id/comments
func (h *CommentHandler) List(c *gin.Context) {
	projectID, issueID, ok := issueParams(c)
	if !ok {
		return
	}

	comments, err := h.commentService.List(middleware.GetUserID(c), projectID, issueID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, comments)
}

type commentRequest struct {
	Text string `json:"text"`
}

// Create posts a comment on an issue in progress
// POST /api/projects/:project_id/issues/:issue_id/comments
func (h *CommentHandler) Create(c *gin.Context) {
	projectID, issueID, ok := issueParams(c)
	if !ok {
		return
	}

	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	comment, err := h.commentService.Add(middleware.GetUserID(c), projectID, issueID, req.Text)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Created(c, comment)
}

// Delete removes a comment
// DELETE /api/projects/:project_id/issues/:issue_id/comments/:comment_id
func (h *CommentHandler) Delete(c *gin.Context) {
	projectID, issueID, ok := issueParams(c)
	if !ok {
		return
	}
	commentID, ok := paramUint(c, "comment_id")
	if !ok {
		return
	}

	if err := h.commentService.Delete(middleware.GetUserID(c), projectID, issueID, commentID); err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, nil)
}
