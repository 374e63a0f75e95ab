package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"myapp-api/internal/model"
)

// ErrDuplicate is returned when a write would violate a unique index.
var ErrDuplicate = errors.New("duplicate key")

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return fmt.Errorf("create user failed: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.first(ctx, "query user by username failed", "username = ?", username)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.first(ctx, "query user by email failed", "email = ?", email)
}

func (r *UserRepository) GetByID(ctx context.Context, id uint) (*model.User, error) {
	return r.first(ctx, "query user by id failed", "id = ?", id)
}

func (r *UserRepository) List(ctx context.Context, offset, limit int) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).Order("id ASC").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users failed: %w", err)
	}
	return users, nil
}

// Update applies the non-nil fields of upd and stamps updated_at. It returns
// nil, nil when no account has the given id.
func (r *UserRepository) Update(ctx context.Context, id uint, upd model.UserUpdate) (*model.User, error) {
	user, err := r.GetByID(ctx, id)
	if err != nil || user == nil {
		return nil, err
	}

	now := time.Now()
	values := map[string]interface{}{"updated_at": now}
	if upd.Email != nil {
		values["email"] = *upd.Email
		user.Email = *upd.Email
	}
	if upd.Username != nil {
		values["username"] = *upd.Username
		user.Username = *upd.Username
	}
	if upd.FullName != nil {
		values["full_name"] = *upd.FullName
		user.FullName = upd.FullName
	}
	if upd.ProfileImage != nil {
		values["profile_image"] = *upd.ProfileImage
		user.ProfileImage = upd.ProfileImage
	}
	if upd.IsActive != nil {
		values["is_active"] = *upd.IsActive
		user.IsActive = *upd.IsActive
	}
	user.UpdatedAt = &now

	if err := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(values).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("update user failed: %w", err)
	}
	return user, nil
}

// Delete removes the account and reports whether a row existed.
func (r *UserRepository) Delete(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.User{})
	if res.Error != nil {
		return false, fmt.Errorf("delete user failed: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *UserRepository) first(ctx context.Context, failure, query string, arg interface{}) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where(query, arg).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", failure, err)
	}
	return &user, nil
}
