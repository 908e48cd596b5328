package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/issueless/issueless/internal/services"
	"github.com/issueless/issueless/pkg/logger"
	"github.com/issueless/issueless/pkg/response"
)

// handleServiceError maps the service error taxonomy onto HTTP responses.
// Anything unclassified is a 500 and gets logged.
func handleServiceError(c *gin.Context, err error) {
	var notFound *services.NotFoundError
	var forbidden *services.ForbiddenError
	var validation *services.ValidationError
	var conflict *services.ConflictError

	switch {
	case errors.As(err, &notFound):
		response.NotFound(c, notFound.Error())
	case errors.As(err, &forbidden):
		response.Forbidden(c, forbidden.Error())
	case errors.As(err, &validation):
		response.Unprocessable(c, validation.Error())
	case errors.As(err, &conflict):
		response.Conflict(c, conflict.Error())
	default:
		logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		response.ServerError(c, "Internal server error")
	}
}

// paramUint parses a numeric path parameter. Returns ok=false after having
// written the 400 response.
func paramUint(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(v), true
}
