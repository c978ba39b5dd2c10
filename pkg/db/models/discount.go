package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Discount is an immutable price snapshot granted to a principal for an item.
type Discount struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ItemID          uuid.UUID       `gorm:"column:item_id;type:uuid;not null;index"`
	UserID          uuid.UUID       `gorm:"column:user_id;type:uuid;not null;index"`
	DiscountDate    time.Time       `gorm:"column:discount_date;type:date;not null"`
	Day             int             `gorm:"column:day;not null"`
	Percent         int             `gorm:"column:percent;not null"`
	OriginalPrice   decimal.Decimal `gorm:"column:original_price;type:numeric(12,2);not null"`
	DiscountedPrice decimal.Decimal `gorm:"column:discounted_price;type:numeric(12,2);not null"`
	CreatedBy       uuid.UUID       `gorm:"column:created_by;type:uuid;not null"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (d *Discount) BeforeCreate(tx *gorm.DB) error {
	assignID(&d.ID)
	return nil
}
