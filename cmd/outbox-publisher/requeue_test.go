package main

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/assettrack-backend/pkg/db/models"
	"github.com/angelmondragon/assettrack-backend/pkg/enums"
	"github.com/angelmondragon/assettrack-backend/pkg/logger"
	"github.com/angelmondragon/assettrack-backend/pkg/outbox"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type inlineTx struct{}

func (inlineTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fakeRequeuer struct {
	calls []uuid.UUID
	err   error
}

func (f *fakeRequeuer) RequeueTx(tx *gorm.DB, eventID uuid.UUID) (*models.OutboxEvent, error) {
	f.calls = append(f.calls, eventID)
	if f.err != nil {
		return nil, f.err
	}
	return &models.OutboxEvent{ID: eventID, EventType: enums.EventItemStatusChanged, AggregateID: uuid.New()}, nil
}

func TestRequeueDeadLetter(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test"})
	id := uuid.New()
	dlq := &fakeRequeuer{}

	if err := requeueDeadLetter(context.Background(), inlineTx{}, dlq, logg, id.String()); err != nil {
		t.Fatalf("requeue: %v", err)
	}
	if len(dlq.calls) != 1 || dlq.calls[0] != id {
		t.Fatalf("expected requeue of %s, got %v", id, dlq.calls)
	}
}

func TestRequeueDeadLetterRejectsBadID(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test"})
	dlq := &fakeRequeuer{}
	if err := requeueDeadLetter(context.Background(), inlineTx{}, dlq, logg, "not-a-uuid"); err == nil {
		t.Fatal("expected error for malformed id")
	}
	if len(dlq.calls) != 0 {
		t.Fatal("repository must not be called")
	}
}

func TestRequeueDeadLetterPropagatesMissing(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test"})
	dlq := &fakeRequeuer{err: outbox.ErrNotDeadLettered}
	err := requeueDeadLetter(context.Background(), inlineTx{}, dlq, logg, uuid.NewString())
	if !errors.Is(err, outbox.ErrNotDeadLettered) {
		t.Fatalf("expected ErrNotDeadLettered, got %v", err)
	}
}
