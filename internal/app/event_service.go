package app

import (
	"context"

	"myapp-api/internal/model"
)

// EventLog reads persisted account events, newest first.
type EventLog interface {
	ListByUserID(ctx context.Context, userID uint, limit int) ([]model.AccountEvent, error)
}

type EventService struct {
	log EventLog
}

func NewEventService(log EventLog) *EventService {
	return &EventService{log: log}
}

// History lists the audit trail of account id. The same rule as Update
// applies: the account itself or a superuser.
func (s *EventService) History(ctx context.Context, actor *model.User, id uint, limit int) ([]model.AccountEvent, error) {
	if err := authorize(actor, id); err != nil {
		return nil, err
	}
	events, err := s.log.ListByUserID(ctx, id, limit)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []model.AccountEvent{}
	}
	return events, nil
}
