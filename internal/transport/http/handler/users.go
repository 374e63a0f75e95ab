package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"myapp-api/internal/app"
	"myapp-api/internal/model"
	"myapp-api/internal/transport/http/middleware"
	"myapp-api/internal/transport/http/response"
)

type UserHandler struct {
	users  *app.UserService
	events *app.EventService
	logger *slog.Logger
}

type RegisterRequest struct {
	Email    string  `json:"email" binding:"required,email"`
	Username string  `json:"username" binding:"required,username"`
	FullName *string `json:"full_name"`
	Password string  `json:"password" binding:"required,password"`
}

type UpdateRequest struct {
	Email        *string `json:"email" binding:"omitempty,email"`
	Username     *string `json:"username" binding:"omitempty,username"`
	FullName     *string `json:"full_name"`
	ProfileImage *string `json:"profile_image"`
	IsActive     *bool   `json:"is_active"`
}

type ListQuery struct {
	Skip  int `form:"skip"`
	Limit int `form:"limit,default=100"`
}

type EventsQuery struct {
	Limit int `form:"limit"`
}

func NewUserHandler(users *app.UserService, events *app.EventService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, events: events, logger: logger}
}

func (h *UserHandler) Create(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingFailed(c, err)
		return
	}

	user, err := h.users.Register(c.Request.Context(), app.RegisterInput{
		Email:    req.Email,
		Username: req.Username,
		FullName: req.FullName,
		Password: req.Password,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.OK(c, user)
}

func (h *UserHandler) List(c *gin.Context) {
	var q ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindingFailed(c, err)
		return
	}

	users, err := h.users.List(c.Request.Context(), q.Skip, q.Limit)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if users == nil {
		users = []model.User{}
	}
	response.OK(c, users)
}

func (h *UserHandler) Get(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	user, err := h.users.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.OK(c, user)
}

func (h *UserHandler) Update(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingFailed(c, err)
		return
	}

	user, err := h.users.Update(c.Request.Context(), actor, id, model.UserUpdate{
		Email:        req.Email,
		Username:     req.Username,
		FullName:     req.FullName,
		ProfileImage: req.ProfileImage,
		IsActive:     req.IsActive,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.OK(c, user)
}

func (h *UserHandler) Delete(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}
	if err := h.users.Delete(c.Request.Context(), actor, id); err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.Message(c, "User deleted successfully")
}

func (h *UserHandler) UploadProfileImage(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		response.Detail(c, http.StatusUnprocessableEntity, "Field required: file")
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.logger.ErrorContext(c.Request.Context(), "open uploaded file failed", "error", err)
		response.Detail(c, http.StatusInternalServerError, detailSaveFailed)
		return
	}
	defer f.Close()

	result, err := h.users.UploadProfileImage(c.Request.Context(), actor, id, app.ProfileImageInput{
		Filename: fh.Filename,
		Size:     fh.Size,
		Body:     f,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.OK(c, gin.H{
		"message":   "Profile image uploaded successfully",
		"file_path": result.FilePath,
		"user":      result.User,
	})
}

// Events lists the audit trail of an account, newest first.
func (h *UserHandler) Events(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}
	var q EventsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindingFailed(c, err)
		return
	}
	events, err := h.events.History(c.Request.Context(), actor, id, q.Limit)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.OK(c, events)
}

func userID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 0)
	if err != nil || id == 0 {
		response.Detail(c, http.StatusUnprocessableEntity, "Invalid user id")
		return 0, false
	}
	return uint(id), true
}

func actorAndID(c *gin.Context) (*model.User, uint, bool) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		response.Unauthorized(c, response.DetailNotAuthenticated)
		return nil, 0, false
	}
	id, ok := userID(c)
	if !ok {
		return nil, 0, false
	}
	return actor, id, true
}
