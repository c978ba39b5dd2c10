package models

import (
	"time"

	"github.com/angelmondragon/assettrack-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Assignment records custody of one item by one principal. An assignment is
// open while ActualReturnDate is nil.
type Assignment struct {
	ID                 uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ItemID             uuid.UUID       `gorm:"column:item_id;type:uuid;not null;index"`
	EmployeeID         uuid.UUID       `gorm:"column:employee_id;type:uuid;not null;index"`
	AssignedBy         uuid.UUID       `gorm:"column:assigned_by;type:uuid;not null"`
	AssignmentDate     time.Time       `gorm:"column:assignment_date;type:date;not null"`
	ExpectedReturnDate *time.Time      `gorm:"column:expected_return_date;type:date"`
	ActualReturnDate   *time.Time      `gorm:"column:actual_return_date"`
	Condition          enums.Condition `gorm:"column:condition;type:item_condition;not null"`
	Notes              string          `gorm:"column:notes;not null"`
	CanceledAt         *time.Time      `gorm:"column:canceled_at"`
	CreatedAt          time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time       `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt          gorm.DeletedAt  `gorm:"column:deleted_at;index"`
}

// IsOpen reports whether the item is still in the employee's custody.
func (a *Assignment) IsOpen() bool {
	return a.ActualReturnDate == nil
}

func (a *Assignment) BeforeCreate(tx *gorm.DB) error {
	assignID(&a.ID)
	return nil
}
