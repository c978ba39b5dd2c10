package outbox

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/assettrack-backend/pkg/db/models"
	"github.com/angelmondragon/assettrack-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const maxDLQErrorLen = 1024

// ErrNotDeadLettered is returned by RequeueTx for an event with no DLQ row.
var ErrNotDeadLettered = errors.New("event is not dead-lettered")

// DLQRepository keeps asset events the publisher gave up on, so an operator
// can inspect them and put them back on the outbox.
type DLQRepository struct {
	db *gorm.DB
}

func NewDLQRepository(db *gorm.DB) *DLQRepository {
	return &DLQRepository{db: db}
}

// DeadLetterTx records event as undeliverable for reason. The outbox row
// itself is parked separately by the caller in the same tx.
func (r *DLQRepository) DeadLetterTx(tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if !reason.IsValid() {
		return errors.New("unknown dead-letter reason " + string(reason))
	}
	entry := models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   reason,
		AttemptCount:  event.AttemptCount,
		FailedAt:      time.Now().UTC(),
	}
	if cause != nil {
		msg := cause.Error()
		if len(msg) > maxDLQErrorLen {
			msg = msg[:maxDLQErrorLen]
		}
		entry.ErrorMessage = &msg
	}
	return tx.Create(&entry).Error
}

// FindByEventID returns nil without error when the event was never
// dead-lettered.
func (r *DLQRepository) FindByEventID(ctx context.Context, eventID uuid.UUID) (*models.OutboxDLQ, error) {
	var dlq models.OutboxDLQ
	err := r.db.WithContext(ctx).Where("event_id = ?", eventID).First(&dlq).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &dlq, nil
}

// RequeueTx makes a dead-lettered event publishable again: the parked
// outbox row gets a fresh attempt budget (or is recreated from the DLQ copy
// if it was pruned) and the DLQ row is removed.
func (r *DLQRepository) RequeueTx(tx *gorm.DB, eventID uuid.UUID) (*models.OutboxEvent, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}
	var dlq models.OutboxDLQ
	if err := tx.Where("event_id = ?", eventID).First(&dlq).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotDeadLettered
		}
		return nil, err
	}

	res := tx.Model(&models.OutboxEvent{}).
		Where("id = ? AND published_at IS NULL", eventID).
		Updates(map[string]any{"attempt_count": 0, "last_error": nil})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		recreated := models.OutboxEvent{
			ID:            dlq.EventID,
			EventType:     dlq.EventType,
			AggregateType: dlq.AggregateType,
			AggregateID:   dlq.AggregateID,
			Payload:       dlq.Payload,
		}
		if err := tx.Create(&recreated).Error; err != nil {
			return nil, err
		}
	}

	if err := tx.Delete(&models.OutboxDLQ{}, "event_id = ?", eventID).Error; err != nil {
		return nil, err
	}

	var event models.OutboxEvent
	if err := tx.Where("id = ?", eventID).First(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}
