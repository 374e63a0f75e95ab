package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"myapp-api/internal/app"
	"myapp-api/internal/model"
	"myapp-api/internal/transport/http/response"
)

const ContextUserKey = "current_user"

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.User, error)
}

// AuthJWT resolves the bearer token to an active account and stores it
// under ContextUserKey.
func AuthJWT(auth Authenticator, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := BearerToken(c.GetHeader("Authorization"))
		if !ok {
			response.Unauthorized(c, response.DetailNotAuthenticated)
			c.Abort()
			return
		}

		user, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, app.ErrInvalidCredentials):
				response.Unauthorized(c, response.DetailInvalidCredentials)
			case errors.Is(err, app.ErrInactiveAccount):
				response.Detail(c, http.StatusBadRequest, response.DetailInactiveUser)
			default:
				logger.ErrorContext(c.Request.Context(), "authenticate request failed", "error", err)
				response.Detail(c, http.StatusInternalServerError, response.DetailInternal)
			}
			c.Abort()
			return
		}

		c.Set(ContextUserKey, user)
		c.Next()
	}
}

// BearerToken extracts the credentials of an "Authorization: Bearer <token>"
// header. The scheme is matched case-insensitively.
func BearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// CurrentUser returns the account stored by AuthJWT.
func CurrentUser(c *gin.Context) (*model.User, bool) {
	v, exists := c.Get(ContextUserKey)
	if !exists {
		return nil, false
	}
	user, ok := v.(*model.User)
	return user, ok && user != nil
}
