package handlers

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/issueless/issueless/internal/config"
	"github.com/issueless/issueless/internal/middleware"
	"github.com/issueless/issueless/internal/services"
	"github.com/issueless/issueless/pkg/response"
	"gorm.io/gorm"
)

const stateCookie = "oauth_state"

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(db *gorm.DB, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		authService: services.NewAuthService(db, cfg.OAuth, cfg.JWT),
	}
}

// Login redirects to the identity provider's consent page
// GET /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	state, err := randomState()
	if err != nil {
		response.ServerError(c, "failed to generate state")
		return
	}
	c.SetCookie(stateCookie, state, 600, "/", "", false, true)
	c.Redirect(http.StatusFound, h.authService.LoginURL(state))
}

// Callback completes the authorization-code flow and returns a session token
// GET /api/auth/callback
func (h *AuthHandler) Callback(c *gin.Context) {
	state := c.Query("state")
	expected, err := c.Cookie(stateCookie)
	if err != nil || state == "" || state != expected {
		response.BadRequest(c, "invalid state parameter")
		return
	}
	c.SetCookie(stateCookie, "", -1, "/", "", false, true)

	code := c.Query("code")
	if code == "" {
		response.BadRequest(c, "missing authorization code")
		return
	}

	token, user, err := h.authService.HandleCallback(c.Request.Context(), code)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, gin.H{
		"token": token,
		"user":  user,
	})
}

// Me returns the authenticated user's profile
// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.authService.GetUser(middleware.GetUserID(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, user)
}

func randomState() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
