package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"myapp-api/internal/app"
	"myapp-api/internal/transport/http/middleware"
	"myapp-api/internal/transport/http/response"
)

type AuthHandler struct {
	auth    *app.AuthService
	users   *app.UserService
	devMode bool
	logger  *slog.Logger
}

// TokenForm is the OAuth2 password grant form. username carries the email.
type TokenForm struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func NewAuthHandler(auth *app.AuthService, users *app.UserService, devMode bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, users: users, devMode: devMode, logger: logger}
}

// Token handles the form-encoded login used by OAuth2 clients.
func (h *AuthHandler) Token(c *gin.Context) {
	var form TokenForm
	if err := c.ShouldBind(&form); err != nil {
		bindingFailed(c, err)
		return
	}
	h.issue(c, form.Username, form.Password, true)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingFailed(c, err)
		return
	}
	h.issue(c, req.Email, req.Password, false)
}

func (h *AuthHandler) issue(c *gin.Context, email, password string, challenge bool) {
	result, err := h.auth.Login(c.Request.Context(), email, password)
	if err != nil {
		if !errors.Is(err, app.ErrInvalidCredentials) {
			writeError(c, h.logger, err)
			return
		}
		if challenge {
			response.Unauthorized(c, response.DetailBadLogin)
		} else {
			response.Detail(c, http.StatusUnauthorized, response.DetailBadLogin)
		}
		return
	}
	response.OK(c, TokenResponse{AccessToken: result.AccessToken, TokenType: result.TokenType})
}

func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Unauthorized(c, response.DetailNotAuthenticated)
		return
	}
	response.OK(c, user)
}

// CreateTestUser seeds the fixed development account. Outside dev mode the
// route answers 404.
func (h *AuthHandler) CreateTestUser(c *gin.Context) {
	if !h.devMode {
		response.Detail(c, http.StatusNotFound, "Not Found")
		return
	}
	user, err := h.users.SeedTestUser(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.OK(c, gin.H{
		"message": fmt.Sprintf("Test user created: %s", user.Email),
		"user_id": user.ID,
	})
}
