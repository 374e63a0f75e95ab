package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	DetailNotAuthenticated   = "Not authenticated"
	DetailInvalidCredentials = "Could not validate credentials"
	DetailInactiveUser       = "Inactive user"
	DetailBadLogin           = "Incorrect email or password"
	DetailUserNotFound       = "User not found"
	DetailForbidden          = "Not enough permissions"
	DetailInternal           = "Internal server error"
)

type DetailResponse struct {
	Detail string `json:"detail"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// Detail writes the error body every endpoint shares.
func Detail(c *gin.Context, status int, detail string) {
	c.JSON(status, DetailResponse{Detail: detail})
}

// Unauthorized writes a 401 carrying the bearer challenge header.
func Unauthorized(c *gin.Context, detail string) {
	c.Header("WWW-Authenticate", "Bearer")
	Detail(c, http.StatusUnauthorized, detail)
}

func Message(c *gin.Context, message string) {
	c.JSON(http.StatusOK, MessageResponse{Message: message})
}
