package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/assettrack-backend/pkg/db"
	"github.com/angelmondragon/assettrack-backend/pkg/db/dbtest"
	"github.com/angelmondragon/assettrack-backend/pkg/db/models"
	"github.com/angelmondragon/assettrack-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func jsonEqual(t *testing.T, want, got []byte) bool {
	t.Helper()
	var w, g any
	if err := json.Unmarshal(want, &w); err != nil {
		t.Fatalf("decode want %s: %v", want, err)
	}
	if err := json.Unmarshal(got, &g); err != nil {
		t.Fatalf("decode got %s: %v", got, err)
	}
	return reflect.DeepEqual(w, g)
}

func TestServiceEmitWritesEnvelope(t *testing.T) {
	client := dbtest.Open(t)
	svc := NewService(NewRepository(client.DB()), nil)
	fixed := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	itemID := uuid.New()
	actorID := uuid.New()
	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventItemCreated,
			AggregateType: enums.AggregateItem,
			AggregateID:   itemID,
			Actor:         &ActorRef{UserID: actorID, Role: "Admin"},
			Data:          map[string]string{"serial_number": "SN-1"},
		})
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}

	var rows []models.OutboxEvent
	if err := client.DB().Find(&rows).Error; err != nil {
		t.Fatalf("load outbox: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].AggregateID != itemID || rows[0].PublishedAt != nil {
		t.Fatalf("unexpected row %+v", rows[0])
	}

	var envelope PayloadEnvelope
	if err := json.Unmarshal(rows[0].Payload, &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if envelope.Version != currentEnvelopeVersion {
		t.Fatalf("unexpected version %d", envelope.Version)
	}
	if !envelope.OccurredAt.Equal(fixed) {
		t.Fatalf("unexpected occurred at %v", envelope.OccurredAt)
	}
	if envelope.Actor == nil || envelope.Actor.UserID != actorID {
		t.Fatalf("unexpected actor %+v", envelope.Actor)
	}
	if !jsonEqual(t, []byte(`{"serial_number":"SN-1"}`), envelope.Data) {
		t.Fatalf("unexpected data %s", envelope.Data)
	}
}

func TestServiceEmitRollsBackWithTransaction(t *testing.T) {
	client := dbtest.Open(t)
	svc := NewService(NewRepository(client.DB()), nil)

	boom := errors.New("boom")
	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		if err := svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventDiscountCreated,
			AggregateType: enums.AggregateDiscount,
			AggregateID:   uuid.New(),
			Data:          struct{}{},
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	var count int64
	if err := client.DB().Model(&models.OutboxEvent{}).Count(&count).Error; err != nil {
		t.Fatalf("count outbox: %v", err)
	}
	if count != 0 {
		t.Fatalf("rolled back emit left %d rows", count)
	}
}

func TestServiceEmitValidatesEvent(t *testing.T) {
	client := dbtest.Open(t)
	svc := NewService(NewRepository(client.DB()), nil)

	cases := map[string]DomainEvent{
		"unknown event":     {EventType: "teleported", AggregateType: enums.AggregateItem, AggregateID: uuid.New()},
		"unknown aggregate": {EventType: enums.EventItemCreated, AggregateType: "warehouse", AggregateID: uuid.New()},
		"nil aggregate id":  {EventType: enums.EventItemCreated, AggregateType: enums.AggregateItem},
	}
	for name, event := range cases {
		t.Run(name, func(t *testing.T) {
			err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
				return svc.Emit(context.Background(), tx, event)
			})
			if err == nil {
				t.Fatal("expected emit error")
			}
		})
	}

	if err := svc.Emit(context.Background(), nil, DomainEvent{}); err == nil {
		t.Fatal("expected error without transaction")
	}
}

func TestRepositoryPublishLifecycle(t *testing.T) {
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())

	newRow := func() models.OutboxEvent {
		return models.OutboxEvent{
			EventType:     enums.EventItemCreated,
			AggregateType: enums.AggregateItem,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{"version":1}`),
		}
	}
	for i := 0; i < 3; i++ {
		if err := repo.Insert(client.DB(), newRow()); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	fetch := func() []models.OutboxEvent {
		t.Helper()
		var rows []models.OutboxEvent
		err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
			var err error
			rows, err = repo.FetchUnpublishedForPublish(tx, 10, 3)
			return err
		})
		if err != nil {
			t.Fatalf("fetch: %v", err)
		}
		return rows
	}

	rows := fetch()
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}

	if err := repo.MarkPublishedTx(client.DB(), rows[0].ID); err != nil {
		t.Fatalf("mark published: %v", err)
	}
	if err := repo.MarkFailedTx(client.DB(), rows[1].ID, errors.New("publish timeout")); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if err := repo.MarkTerminalTx(client.DB(), rows[2].ID, errors.New("bad payload"), 3); err != nil {
		t.Fatalf("mark terminal: %v", err)
	}

	pending, err := repo.CountPending(3)
	if err != nil || pending != 1 {
		t.Fatalf("expected 1 pending, got %d err %v", pending, err)
	}

	var failed models.OutboxEvent
	if err := client.DB().First(&failed, "id = ?", rows[1].ID).Error; err != nil {
		t.Fatalf("load failed row: %v", err)
	}
	if failed.AttemptCount != 1 {
		t.Fatalf("expected 1 attempt, got %d", failed.AttemptCount)
	}
	if failed.LastError == nil || *failed.LastError != "publish timeout" {
		t.Fatalf("unexpected last error %v", failed.LastError)
	}

	rows = fetch()
	if len(rows) != 1 || rows[0].ID != failed.ID {
		t.Fatalf("expected only the failed row to be retried, got %+v", rows)
	}
}

func parkedEvent(t *testing.T, client *db.Client) models.OutboxEvent {
	t.Helper()
	event := models.OutboxEvent{
		EventType:     enums.EventAssignmentReturned,
		AggregateType: enums.AggregateAssignment,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{"event_id":"x"}`),
		AttemptCount:  10,
	}
	if err := NewRepository(client.DB()).Insert(client.DB(), event); err != nil {
		t.Fatalf("insert: %v", err)
	}
	var stored models.OutboxEvent
	if err := client.DB().Where("aggregate_id = ?", event.AggregateID).First(&stored).Error; err != nil {
		t.Fatalf("load parked: %v", err)
	}
	return stored
}

func TestDLQRepositoryDeadLetterAndFind(t *testing.T) {
	client := dbtest.Open(t)
	repo := NewDLQRepository(client.DB())
	event := parkedEvent(t, client)

	long := errors.New(strings.Repeat("x", maxDLQErrorLen+50))
	if err := repo.DeadLetterTx(client.DB(), event, enums.OutboxDLQReasonMaxAttempts, long); err != nil {
		t.Fatalf("dead letter: %v", err)
	}

	found, err := repo.FindByEventID(context.Background(), event.ID)
	if err != nil || found == nil {
		t.Fatalf("find: %v err %v", found, err)
	}
	if found.AggregateID != event.AggregateID || found.AttemptCount != 10 {
		t.Fatalf("unexpected dlq row %+v", found)
	}
	if found.ErrorMessage == nil || len(*found.ErrorMessage) != maxDLQErrorLen {
		t.Fatalf("error message not truncated to %d", maxDLQErrorLen)
	}

	missing, err := repo.FindByEventID(context.Background(), uuid.New())
	if err != nil || missing != nil {
		t.Fatalf("expected nil for unknown event, got %v err %v", missing, err)
	}

	if err := repo.DeadLetterTx(nil, event, enums.OutboxDLQReasonMaxAttempts, long); err == nil {
		t.Fatal("expected error without transaction")
	}
	if err := repo.DeadLetterTx(client.DB(), event, enums.OutboxDLQErrorReason("bogus"), long); err == nil {
		t.Fatal("expected error for unknown reason")
	}
}

func TestDLQRepositoryRequeueResetsParkedRow(t *testing.T) {
	client := dbtest.Open(t)
	repo := NewDLQRepository(client.DB())
	event := parkedEvent(t, client)
	if err := repo.DeadLetterTx(client.DB(), event, enums.OutboxDLQReasonNonRetryable, errors.New("bad payload")); err != nil {
		t.Fatalf("dead letter: %v", err)
	}

	var requeued *models.OutboxEvent
	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		var err error
		requeued, err = repo.RequeueTx(tx, event.ID)
		return err
	})
	if err != nil {
		t.Fatalf("requeue: %v", err)
	}
	if requeued.ID != event.ID || requeued.AttemptCount != 0 || requeued.PublishedAt != nil {
		t.Fatalf("requeued row not reset: %+v", requeued)
	}

	found, err := repo.FindByEventID(context.Background(), event.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found != nil {
		t.Fatal("dlq row should be removed after requeue")
	}

	if _, err := repo.RequeueTx(client.DB(), event.ID); !errors.Is(err, ErrNotDeadLettered) {
		t.Fatalf("expected ErrNotDeadLettered, got %v", err)
	}
}

func TestDLQRepositoryRequeueRecreatesPrunedRow(t *testing.T) {
	client := dbtest.Open(t)
	repo := NewDLQRepository(client.DB())
	event := parkedEvent(t, client)
	if err := repo.DeadLetterTx(client.DB(), event, enums.OutboxDLQReasonMaxAttempts, errors.New("timeout")); err != nil {
		t.Fatalf("dead letter: %v", err)
	}
	if err := client.DB().Delete(&models.OutboxEvent{}, "id = ?", event.ID).Error; err != nil {
		t.Fatalf("prune: %v", err)
	}

	requeued, err := repo.RequeueTx(client.DB(), event.ID)
	if err != nil {
		t.Fatalf("requeue: %v", err)
	}
	if requeued.ID != event.ID || requeued.AggregateID != event.AggregateID {
		t.Fatalf("unexpected recreated row %+v", requeued)
	}
	if !jsonEqual(t, event.Payload, requeued.Payload) {
		t.Fatalf("payload changed: %s", requeued.Payload)
	}
}
