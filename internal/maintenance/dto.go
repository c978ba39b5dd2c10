package maintenance

import (
	"time"

	"github.com/angelmondragon/assettrack-backend/pkg/db/models"
	"github.com/angelmondragon/assettrack-backend/pkg/enums"
	"github.com/angelmondragon/assettrack-backend/pkg/types"
	"github.com/google/uuid"
)

// RequestDTO is the wire shape of a maintenance request.
type RequestDTO struct {
	ID          uuid.UUID                 `json:"id"`
	ItemID      uuid.UUID                 `json:"itemId"`
	RequestedBy uuid.UUID                 `json:"requestedBy"`
	Priority    enums.MaintenancePriority `json:"priority"`
	Status      enums.MaintenanceStatus   `json:"status"`
	DueDate     *types.Date               `json:"dueDate"`
	Notes       string                    `json:"notes"`
	ResolvedAt  *time.Time                `json:"resolvedAt,omitempty"`
	CreatedAt   time.Time                 `json:"createdAt"`
	UpdatedAt   time.Time                 `json:"updatedAt"`
}

// ReportRequest files an issue against an item.
type ReportRequest struct {
	ItemID   uuid.UUID `json:"itemId" validate:"required"`
	Priority string    `json:"priority" validate:"omitempty,priority"`
	Notes    string    `json:"notes"`
}

// UpdateRequest triages a request. ItemStatus moves the item when this
// update resolves the request, for example Under Repair back to Available.
type UpdateRequest struct {
	Status     *string                    `json:"status" validate:"omitempty,maintstatus"`
	DueDate    types.Nullable[types.Date] `json:"dueDate"`
	ItemStatus *string                    `json:"itemStatus" validate:"omitempty,itemstatus"`
}

// ListFilter narrows the triage queue.
type ListFilter struct {
	Status   *enums.MaintenanceStatus
	Priority *enums.MaintenancePriority
	ItemID   *uuid.UUID
}

func toDTO(m *models.MaintenanceRequest) RequestDTO {
	return RequestDTO{
		ID:          m.ID,
		ItemID:      m.ItemID,
		RequestedBy: m.RequestedBy,
		Priority:    m.Priority,
		Status:      m.Status,
		DueDate:     types.DatePtr(m.DueDate),
		Notes:       m.Notes,
		ResolvedAt:  m.ResolvedAt,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func toDTOs(rows []models.MaintenanceRequest) []RequestDTO {
	out := make([]RequestDTO, 0, len(rows))
	for i := range rows {
		out = append(out, toDTO(&rows[i]))
	}
	return out
}
