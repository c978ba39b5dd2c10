package main

import (
	"context"
	"fmt"

	"github.com/angelmondragon/assettrack-backend/pkg/db/models"
	"github.com/angelmondragon/assettrack-backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type dlqRequeuer interface {
	RequeueTx(tx *gorm.DB, eventID uuid.UUID) (*models.OutboxEvent, error)
}

// requeueDeadLetter puts one dead-lettered event back on the outbox so the
// next poll publishes it.
func requeueDeadLetter(ctx context.Context, db txRunner, dlq dlqRequeuer, logg *logger.Logger, rawID string) error {
	eventID, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("invalid event id %q: %w", rawID, err)
	}
	var event *models.OutboxEvent
	if err := db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		event, err = dlq.RequeueTx(tx, eventID)
		return err
	}); err != nil {
		return fmt.Errorf("requeue %s: %w", eventID, err)
	}
	logg.Info(logg.WithFields(ctx, map[string]any{
		"event_id":     event.ID.String(),
		"event_type":   event.EventType,
		"aggregate_id": event.AggregateID.String(),
	}), "dead-lettered event requeued")
	return nil
}
