package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"myapp-api/internal/model"
)

func TestAccountEventRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAccountEventRepository(db)

	mock.ExpectExec("INSERT INTO `account_events`").WillReturnResult(sqlmock.NewResult(3, 1))

	event := &model.AccountEvent{UserID: 1, Type: model.EventAccountRegistered, Email: "alice@example.com"}
	require.NoError(t, repo.Create(context.Background(), event))
	assert.Equal(t, uint(3), event.ID)
}

func TestAccountEventRepository_ListByUserID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAccountEventRepository(db)

	rows := sqlmock.NewRows([]string{"id", "user_id", "type", "email", "created_at"}).
		AddRow(2, 1, model.EventAccountUpdated, "alice@example.com", time.Now()).
		AddRow(1, 1, model.EventAccountRegistered, "alice@example.com", time.Now())
	mock.ExpectQuery("SELECT \\* FROM `account_events` WHERE user_id = \\?").WillReturnRows(rows)

	events, err := repo.ListByUserID(context.Background(), 1, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, model.EventAccountUpdated, events[0].Type)
}
