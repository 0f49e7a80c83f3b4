// Package worker records published goal lifecycle events into the
// audit table.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"risparmi/internal/amqp"
	"risparmi/internal/core"
)

// EventStore is the slice of the repository the worker needs.
type EventStore interface {
	InsertGoalEvent(ctx context.Context, ev core.GoalEvent) error
}

// EventWorker drains goal event messages from the queue into storage.
type EventWorker struct {
	client *amqp.Client
	store  EventStore
}

func NewEventWorker(client *amqp.Client, store EventStore) *EventWorker {
	return &EventWorker{client: client, store: store}
}

// Run consumes until ctx is done. Malformed messages are dropped by the
// client; storage failures are returned to the client so the message is
// requeued.
func (w *EventWorker) Run(ctx context.Context) error {
	return w.client.ConsumeGoalEvents(ctx, func(msg *amqp.GoalEventMessage) error {
		ev, err := eventFromMessage(msg)
		if err != nil {
			// Unrecordable payload; log and drop rather than requeue
			// forever.
			slog.ErrorContext(ctx, "Dropping malformed goal event",
				"goal_id", msg.GoalID, "event", msg.Event, "error", err)
			return nil
		}

		if err := w.store.InsertGoalEvent(ctx, ev); err != nil {
			return fmt.Errorf("record goal event: %w", err)
		}

		slog.InfoContext(ctx, "Goal event recorded",
			"goal_id", ev.GoalID,
			"event", ev.Event,
			"amount", ev.Amount)
		return nil
	})
}

func eventFromMessage(msg *amqp.GoalEventMessage) (core.GoalEvent, error) {
	goalID, err := uuid.Parse(msg.GoalID)
	if err != nil {
		return core.GoalEvent{}, fmt.Errorf("parse goal id: %w", err)
	}
	userID, err := uuid.Parse(msg.UserID)
	if err != nil {
		return core.GoalEvent{}, fmt.Errorf("parse user id: %w", err)
	}
	amount, err := decimal.NewFromString(msg.Amount)
	if err != nil {
		return core.GoalEvent{}, fmt.Errorf("parse amount: %w", err)
	}

	return core.GoalEvent{
		GoalID:     goalID,
		UserID:     userID,
		Event:      msg.Event,
		Amount:     amount,
		OccurredAt: msg.Timestamp,
	}, nil
}
