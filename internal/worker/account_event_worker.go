package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"myapp-api/internal/model"
	"myapp-api/internal/platform/rabbitmq"
)

var errInvalidEvent = errors.New("invalid account event")

type AccountEventStore interface {
	Create(ctx context.Context, event *model.AccountEvent) error
}

// AccountEventWorker drains the account event queue into the audit table.
type AccountEventWorker struct {
	conn      *amqp.Connection
	store     AccountEventStore
	queueName string
	logger    *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewAccountEventWorker(conn *amqp.Connection, store AccountEventStore, queueName string, logger *slog.Logger) *AccountEventWorker {
	return &AccountEventWorker{
		conn:      conn,
		store:     store,
		queueName: queueName,
		logger:    logger,
	}
}

func (w *AccountEventWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	if _, err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
	}
	if err := ch.Qos(16, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				if err := w.handle(workerCtx, d.Body); err != nil {
					w.logger.Error("account event dropped", "error", err)
					_ = d.Nack(false, false)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

func (w *AccountEventWorker) handle(ctx context.Context, body []byte) error {
	var event model.AccountEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("%w: %v", errInvalidEvent, err)
	}
	if event.UserID == 0 || event.Type == "" {
		return errInvalidEvent
	}
	event.ID = 0

	if err := w.store.Create(ctx, &event); err != nil {
		return err
	}
	return nil
}

func (w *AccountEventWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
