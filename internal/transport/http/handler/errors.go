package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"myapp-api/internal/app"
	"myapp-api/internal/transport/http/response"
	"myapp-api/internal/validation"
)

const (
	detailEmailTaken    = "Email already registered"
	detailUsernameTaken = "Username already taken"
	detailConflict      = "Email or username already registered"
	detailInvalidFile   = "Invalid file type. Only JPG, PNG, and GIF are allowed."
	detailFileTooLarge  = "File too large. Maximum size is 5MB."
	detailSaveFailed    = "Failed to save file"
)

// writeError maps account service errors to status codes and details.
// Anything unrecognised is logged and reported as a bare 500.
func writeError(c *gin.Context, logger *slog.Logger, err error) {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		response.Detail(c, http.StatusUnprocessableEntity, verr.Message)
	case errors.Is(err, app.ErrInvalidInput):
		response.Detail(c, http.StatusUnprocessableEntity, "Invalid request body")
	case errors.Is(err, app.ErrEmailExists):
		response.Detail(c, http.StatusBadRequest, detailEmailTaken)
	case errors.Is(err, app.ErrUsernameExists):
		response.Detail(c, http.StatusBadRequest, detailUsernameTaken)
	case errors.Is(err, app.ErrUniquenessConflict):
		response.Detail(c, http.StatusBadRequest, detailConflict)
	case errors.Is(err, app.ErrNotFound):
		response.Detail(c, http.StatusNotFound, response.DetailUserNotFound)
	case errors.Is(err, app.ErrForbidden):
		response.Detail(c, http.StatusForbidden, response.DetailForbidden)
	case errors.Is(err, app.ErrInvalidCredentials):
		response.Unauthorized(c, response.DetailInvalidCredentials)
	case errors.Is(err, app.ErrInactiveAccount):
		response.Detail(c, http.StatusBadRequest, response.DetailInactiveUser)
	case errors.Is(err, app.ErrInvalidFile):
		response.Detail(c, http.StatusBadRequest, detailInvalidFile)
	case errors.Is(err, app.ErrFileTooLarge):
		response.Detail(c, http.StatusBadRequest, detailFileTooLarge)
	case errors.Is(err, app.ErrBlobStore):
		logger.ErrorContext(c.Request.Context(), "save profile image failed", "error", err)
		response.Detail(c, http.StatusInternalServerError, detailSaveFailed)
	default:
		logger.ErrorContext(c.Request.Context(), "request failed",
			"route", c.FullPath(),
			"error", err,
		)
		response.Detail(c, http.StatusInternalServerError, response.DetailInternal)
	}
}

func bindingFailed(c *gin.Context, err error) {
	response.Detail(c, http.StatusUnprocessableEntity, validation.BindingMessage(err))
}
