package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateItem               OutboxAggregateType = "item"
	AggregateAssignment         OutboxAggregateType = "assignment"
	AggregateMaintenanceRequest OutboxAggregateType = "maintenance_request"
	AggregateDiscount           OutboxAggregateType = "discount"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateItem,
	AggregateAssignment,
	AggregateMaintenanceRequest,
	AggregateDiscount,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventItemCreated              OutboxEventType = "item_created"
	EventItemStatusChanged        OutboxEventType = "item_status_changed"
	EventAssignmentCreated        OutboxEventType = "assignment_created"
	EventAssignmentReturned       OutboxEventType = "assignment_returned"
	EventMaintenanceReported      OutboxEventType = "maintenance_reported"
	EventMaintenanceStatusChanged OutboxEventType = "maintenance_status_changed"
	EventDiscountCreated          OutboxEventType = "discount_created"
)

// OutboxEventTypes lists every lifecycle event the outbox can carry.
var OutboxEventTypes = []OutboxEventType{
	EventItemCreated,
	EventItemStatusChanged,
	EventAssignmentCreated,
	EventAssignmentReturned,
	EventMaintenanceReported,
	EventMaintenanceStatusChanged,
	EventDiscountCreated,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range OutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range OutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
