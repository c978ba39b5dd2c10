package models

import (
	"time"

	"github.com/angelmondragon/assettrack-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaintenanceRequest is an issue reported against an item.
type MaintenanceRequest struct {
	ID          uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	ItemID      uuid.UUID                 `gorm:"column:item_id;type:uuid;not null;index"`
	RequestedBy uuid.UUID                 `gorm:"column:requested_by;type:uuid;not null;index"`
	Priority    enums.MaintenancePriority `gorm:"column:priority;type:maintenance_priority;not null"`
	Status      enums.MaintenanceStatus   `gorm:"column:status;type:maintenance_status;not null;index"`
	DueDate     *time.Time                `gorm:"column:due_date;type:date"`
	Notes       string                    `gorm:"column:notes;not null"`
	ResolvedAt  *time.Time                `gorm:"column:resolved_at"`
	CreatedAt   time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}

func (m *MaintenanceRequest) BeforeCreate(tx *gorm.DB) error {
	assignID(&m.ID)
	return nil
}
