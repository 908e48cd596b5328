package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/issueless/issueless/internal/middleware"
	"github.com/issueless/issueless/internal/services"
	"github.com/issueless/issueless/pkg/logger"
	"github.com/issueless/issueless/pkg/response"
)

type FileHandler struct {
	fileService *services.FileService
}

func NewFileHandler(fileService *services.FileService) *FileHandler {
	return &FileHandler{fileService: fileService}
}

// List returns an issue's attachments
// GET /api/projects/:project_id/issues/:issue_id/files
func (h *FileHandler) List(c *gin.Context) {
	projectID, issueID, ok := issueParams(c)
	if !ok {
		return
	}

	files, err := h.fileService.List(middleware.GetUserID(c), projectID, issueID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, files)
}

// Upload attaches a file to an issue in progress
// POST /api/projects/:project_id/issues/:issue_id/files
func (h *FileHandler) Upload(c *gin.Context) {
	projectID, issueID, ok := issueParams(c)
	if !ok {
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "missing file field")
		return
	}
	src, err := header.Open()
	if err != nil {
		response.BadRequest(c, "failed to read upload")
		return
	}
	defer src.Close()

	file, err := h.fileService.Upload(middleware.GetUserID(c), projectID, issueID, header.Filename, src)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Created(c, file)
}

// Download streams a file's contents
// GET /api/projects/:project_id/issues/:issue_id/files/:file_id
func (h *FileHandler) Download(c *gin.Context) {
	projectID, issueID, ok := issueParams(c)
	if !ok {
		return
	}
	fileID, ok := paramUint(c, "file_id")
	if !ok {
		return
	}

	file, rc, err := h.fileService.Download(middleware.GetUserID(c), projectID, issueID, fileID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	defer rc.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Header("Content-Length", fmt.Sprintf("%d", file.Size))
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		logger.Warn().Err(err).Str("filename", file.Filename).Msg("download interrupted")
	}
}

// Delete removes an attachment
// DELETE /api/projects/:project_id/issues/:issue_id/files/:file_id
func (h *FileHandler) Delete(c *gin.Context) {
	projectID, issueID, ok := issueParams(c)
	if !ok {
		return
	}
	fileID, ok := paramUint(c, "file_id")
	if !ok {
		return
	}

	if err := h.fileService.Delete(middleware.GetUserID(c), projectID, issueID, fileID); err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, nil)
}
