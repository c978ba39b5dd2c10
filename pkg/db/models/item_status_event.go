package models

import (
	"time"

	"github.com/angelmondragon/assettrack-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ItemStatusEvent is one append-only row of an item's status history.
// FromStatus is nil for the event written when the item is created.
type ItemStatusEvent struct {
	ID           uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	ItemID       uuid.UUID         `gorm:"column:item_id;type:uuid;not null;index"`
	FromStatus   *enums.ItemStatus `gorm:"column:from_status;type:item_status"`
	ToStatus     enums.ItemStatus  `gorm:"column:to_status;type:item_status;not null"`
	ChangedBy    uuid.UUID         `gorm:"column:changed_by;type:uuid;not null"`
	AssignmentID *uuid.UUID        `gorm:"column:assignment_id;type:uuid"`
	Note         string            `gorm:"column:note;not null"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime"`
}

func (ItemStatusEvent) TableName() string {
	return "item_status_events"
}

func (e *ItemStatusEvent) BeforeCreate(tx *gorm.DB) error {
	assignID(&e.ID)
	return nil
}
