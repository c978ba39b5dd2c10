package models

import (
	"time"

	"github.com/angelmondragon/assettrack-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Item is a tracked piece of equipment.
type Item struct {
	ID            uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Name          string           `gorm:"column:name;not null"`
	Category      string           `gorm:"column:category;not null;index"`
	Brand         string           `gorm:"column:brand;not null"`
	Model         string           `gorm:"column:model;not null"`
	SerialNumber  string           `gorm:"column:serial_number;not null"`
	Status        enums.ItemStatus `gorm:"column:status;type:item_status;not null;index"`
	Location      string           `gorm:"column:location;not null"`
	PurchaseDate  *time.Time       `gorm:"column:purchase_date;type:date"`
	PurchasePrice *decimal.Decimal `gorm:"column:purchase_price;type:numeric(12,2)"`
	Description   string           `gorm:"column:description;not null"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *Item) BeforeCreate(tx *gorm.DB) error {
	assignID(&i.ID)
	return nil
}
