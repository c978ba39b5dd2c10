package payloads

import (
	"time"

	"github.com/angelmondragon/assettrack-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemCreatedEvent announces a new item entering the registry.
type ItemCreatedEvent struct {
	ItemID       uuid.UUID        `json:"item_id"`
	SerialNumber string           `json:"serial_number"`
	Category     string           `json:"category"`
	Status       enums.ItemStatus `json:"status"`
}

// ItemStatusChangedEvent mirrors one row of the status history.
type ItemStatusChangedEvent struct {
	ItemID       uuid.UUID        `json:"item_id"`
	FromStatus   enums.ItemStatus `json:"from_status"`
	ToStatus     enums.ItemStatus `json:"to_status"`
	ChangedBy    uuid.UUID        `json:"changed_by"`
	AssignmentID *uuid.UUID       `json:"assignment_id,omitempty"`
	Note         string           `json:"note,omitempty"`
}

// AssignmentCreatedEvent is emitted when custody of an item starts.
type AssignmentCreatedEvent struct {
	AssignmentID       uuid.UUID       `json:"assignment_id"`
	ItemID             uuid.UUID       `json:"item_id"`
	EmployeeID         uuid.UUID       `json:"employee_id"`
	AssignmentDate     time.Time       `json:"assignment_date"`
	ExpectedReturnDate *time.Time      `json:"expected_return_date,omitempty"`
	Condition          enums.Condition `json:"condition"`
}

// AssignmentReturnedEvent is emitted when custody ends by return or
// cancellation.
type AssignmentReturnedEvent struct {
	AssignmentID uuid.UUID        `json:"assignment_id"`
	ItemID       uuid.UUID        `json:"item_id"`
	EmployeeID   uuid.UUID        `json:"employee_id"`
	ReturnedAt   time.Time        `json:"returned_at"`
	Condition    enums.Condition  `json:"condition"`
	ItemStatus   enums.ItemStatus `json:"item_status"`
	Canceled     bool             `json:"canceled"`
}

// MaintenanceReportedEvent is emitted when an issue is filed against an item.
type MaintenanceReportedEvent struct {
	RequestID   uuid.UUID                 `json:"request_id"`
	ItemID      uuid.UUID                 `json:"item_id"`
	RequestedBy uuid.UUID                 `json:"requested_by"`
	Priority    enums.MaintenancePriority `json:"priority"`
}

// MaintenanceStatusChangedEvent tracks triage progress.
type MaintenanceStatusChangedEvent struct {
	RequestID  uuid.UUID               `json:"request_id"`
	ItemID     uuid.UUID               `json:"item_id"`
	FromStatus enums.MaintenanceStatus `json:"from_status"`
	ToStatus   enums.MaintenanceStatus `json:"to_status"`
}

// DiscountCreatedEvent carries the immutable price snapshot.
type DiscountCreatedEvent struct {
	DiscountID      uuid.UUID       `json:"discount_id"`
	ItemID          uuid.UUID       `json:"item_id"`
	UserID          uuid.UUID       `json:"user_id"`
	Day             int             `json:"day"`
	Percent         int             `json:"percent"`
	OriginalPrice   decimal.Decimal `json:"original_price"`
	DiscountedPrice decimal.Decimal `json:"discounted_price"`
}
