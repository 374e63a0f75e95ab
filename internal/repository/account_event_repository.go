package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"myapp-api/internal/model"
)

type AccountEventRepository struct {
	db *gorm.DB
}

func NewAccountEventRepository(db *gorm.DB) *AccountEventRepository {
	return &AccountEventRepository{db: db}
}

func (r *AccountEventRepository) Create(ctx context.Context, event *model.AccountEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("create account event failed: %w", err)
	}
	return nil
}

func (r *AccountEventRepository) ListByUserID(ctx context.Context, userID uint, limit int) ([]model.AccountEvent, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}

	var events []model.AccountEvent
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Limit(limit).Find(&events).Error; err != nil {
		return nil, fmt.Errorf("list account events failed: %w", err)
	}
	return events, nil
}
