package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"myapp-api/internal/model"
	"myapp-api/internal/repository"
	"myapp-api/internal/validation"
)

const (
	defaultListLimit = 100
	profileImageDir  = "profile_images"
)

var allowedImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

// AccountStore is the persistence contract for accounts. Lookups and Update
// return nil, nil when the account does not exist. Create and Update return
// repository.ErrDuplicate on a unique index violation.
type AccountStore interface {
	AccountLookup
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByID(ctx context.Context, id uint) (*model.User, error)
	List(ctx context.Context, offset, limit int) ([]model.User, error)
	Create(ctx context.Context, user *model.User) error
	Update(ctx context.Context, id uint, upd model.UserUpdate) (*model.User, error)
	Delete(ctx context.Context, id uint) (bool, error)
}

// BlobStore saves uploaded files and returns the path clients use to fetch
// them.
type BlobStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event model.AccountEvent) error
}

type UserService struct {
	store         AccountStore
	hasher        PasswordHasher
	blobs         BlobStore
	cache         AccountCache
	events        EventPublisher
	logger        *slog.Logger
	maxImageBytes int64
}

type RegisterInput struct {
	Email    string
	Username string
	FullName *string
	Password string
}

type ProfileImageInput struct {
	Filename string
	Size     int64
	Body     io.Reader
}

type ProfileImageResult struct {
	FilePath string
	User     *model.User
}

// NewUserService builds the account service. cache and events may be nil.
func NewUserService(
	store AccountStore,
	hasher PasswordHasher,
	blobs BlobStore,
	cache AccountCache,
	events EventPublisher,
	maxImageBytes int64,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		store:         store,
		hasher:        hasher,
		blobs:         blobs,
		cache:         cache,
		events:        events,
		logger:        logger,
		maxImageBytes: maxImageBytes,
	}
}

func (s *UserService) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	username := strings.TrimSpace(input.Username)
	if err := firstInvalid(
		validation.ValidateEmail(input.Email),
		validation.ValidateUsername(username),
		validation.ValidatePassword(input.Password),
	); err != nil {
		return nil, err
	}

	existing, err := s.store.GetByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailExists
	}
	existing, err = s.store.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUsernameExists
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:          input.Email,
		Username:       username,
		FullName:       input.FullName,
		HashedPassword: hash,
		IsActive:       true,
	}
	if err := s.store.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUniquenessConflict
		}
		return nil, err
	}

	s.publish(ctx, model.EventAccountRegistered, user)
	return user, nil
}

func (s *UserService) Get(ctx context.Context, id uint) (*model.User, error) {
	user, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

// List pages through accounts by id. A zero limit yields an empty page; a
// negative one, or one above 100, is read as 100.
func (s *UserService) List(ctx context.Context, skip, limit int) ([]model.User, error) {
	if skip < 0 {
		skip = 0
	}
	if limit == 0 {
		return []model.User{}, nil
	}
	if limit < 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}
	return s.store.List(ctx, skip, limit)
}

// Update changes the given fields of account id. Only the account itself or a
// superuser may do so.
func (s *UserService) Update(ctx context.Context, actor *model.User, id uint, upd model.UserUpdate) (*model.User, error) {
	if err := authorize(actor, id); err != nil {
		return nil, err
	}
	if upd.Username != nil {
		trimmed := strings.TrimSpace(*upd.Username)
		upd.Username = &trimmed
	}

	var checks []error
	if upd.Email != nil {
		checks = append(checks, validation.ValidateEmail(*upd.Email))
	}
	if upd.Username != nil {
		checks = append(checks, validation.ValidateUsername(*upd.Username))
	}
	if err := firstInvalid(checks...); err != nil {
		return nil, err
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUnique(ctx, current, upd); err != nil {
		return nil, err
	}

	updated, err := s.store.Update(ctx, id, upd)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUniquenessConflict
		}
		return nil, err
	}
	if updated == nil {
		return nil, ErrNotFound
	}

	s.invalidate(ctx, current.Email, updated.Email)
	s.publish(ctx, model.EventAccountUpdated, updated)
	return updated, nil
}

func (s *UserService) Delete(ctx context.Context, actor *model.User, id uint) error {
	if err := authorize(actor, id); err != nil {
		return err
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	deleted, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}

	s.invalidate(ctx, current.Email)
	s.publish(ctx, model.EventAccountDeleted, current)
	return nil
}

// UploadProfileImage stores a JPG, PNG or GIF under a random name and points
// the account's profile image at it.
func (s *UserService) UploadProfileImage(ctx context.Context, actor *model.User, id uint, input ProfileImageInput) (*ProfileImageResult, error) {
	if err := authorize(actor, id); err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(input.Filename))
	if !allowedImageExtensions[ext] {
		return nil, ErrInvalidFile
	}
	if input.Size > s.maxImageBytes {
		return nil, ErrFileTooLarge
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	key := profileImageDir + "/" + uuid.NewString() + ext
	body := io.LimitReader(input.Body, s.maxImageBytes+1)
	path, err := s.blobs.Put(ctx, key, body, input.Size, mime.TypeByExtension(ext))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBlobStore, err)
	}

	updated, err := s.store.Update(ctx, id, model.UserUpdate{ProfileImage: &path})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrNotFound
	}

	s.invalidate(ctx, updated.Email)
	s.publish(ctx, model.EventProfileImageUpdated, updated)
	return &ProfileImageResult{FilePath: path, User: updated}, nil
}

// SeedTestUser registers the fixed development account.
func (s *UserService) SeedTestUser(ctx context.Context) (*model.User, error) {
	fullName := "Test User"
	return s.Register(ctx, RegisterInput{
		Email:    "test@example.com",
		Username: "testuser",
		FullName: &fullName,
		Password: "password123",
	})
}

func (s *UserService) ensureUnique(ctx context.Context, current *model.User, upd model.UserUpdate) error {
	if upd.Email != nil && *upd.Email != current.Email {
		other, err := s.store.GetByEmail(ctx, *upd.Email)
		if err != nil {
			return err
		}
		if other != nil && other.ID != current.ID {
			return ErrEmailExists
		}
	}
	if upd.Username != nil && *upd.Username != current.Username {
		other, err := s.store.GetByUsername(ctx, *upd.Username)
		if err != nil {
			return err
		}
		if other != nil && other.ID != current.ID {
			return ErrUsernameExists
		}
	}
	return nil
}

func (s *UserService) invalidate(ctx context.Context, emails ...string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, emails...); err != nil {
		s.logger.WarnContext(ctx, "account cache invalidate failed", "error", err)
	}
}

func (s *UserService) publish(ctx context.Context, eventType string, user *model.User) {
	if s.events == nil {
		return
	}
	event := model.AccountEvent{
		UserID:    user.ID,
		Type:      eventType,
		Email:     user.Email,
		CreatedAt: time.Now(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "publish account event failed", "type", eventType, "user_id", user.ID, "error", err)
	}
}

func authorize(actor *model.User, id uint) error {
	if actor == nil {
		return ErrInvalidCredentials
	}
	if actor.ID != id && !actor.IsSuperuser {
		return ErrForbidden
	}
	return nil
}

func firstInvalid(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
	}
	return nil
}
