package items

import (
	"time"

	"github.com/angelmondragon/assettrack-backend/pkg/db/models"
	"github.com/angelmondragon/assettrack-backend/pkg/enums"
	"github.com/angelmondragon/assettrack-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemDTO is the wire shape of an item.
type ItemDTO struct {
	ID            uuid.UUID        `json:"id"`
	Name          string           `json:"name"`
	Category      string           `json:"category"`
	Brand         string           `json:"brand"`
	Model         string           `json:"model"`
	SerialNumber  string           `json:"serialNumber"`
	Status        enums.ItemStatus `json:"status"`
	Location      string           `json:"location"`
	PurchaseDate  *types.Date      `json:"purchaseDate"`
	PurchasePrice *decimal.Decimal `json:"purchasePrice"`
	Description   string           `json:"description"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// CreateItemRequest is the payload for registering an item. Status is
// optional and defaults to Available.
type CreateItemRequest struct {
	Name          string           `json:"name"`
	Category      string           `json:"category"`
	Brand         string           `json:"brand"`
	Model         string           `json:"model"`
	SerialNumber  string           `json:"serialNumber"`
	Status        string           `json:"status" validate:"omitempty,itemstatus"`
	Location      string           `json:"location"`
	PurchaseDate  *types.Date      `json:"purchaseDate"`
	PurchasePrice *decimal.Decimal `json:"purchasePrice"`
	Description   string           `json:"description"`
}

// UpdateItemRequest patches an item. Absent fields are left alone.
type UpdateItemRequest struct {
	Name          *string                         `json:"name"`
	Category      *string                         `json:"category"`
	Brand         *string                         `json:"brand"`
	Model         *string                         `json:"model"`
	SerialNumber  *string                         `json:"serialNumber"`
	Status        *string                         `json:"status" validate:"omitempty,itemstatus"`
	Location      *string                         `json:"location"`
	PurchaseDate  types.Nullable[types.Date]      `json:"purchaseDate"`
	PurchasePrice types.Nullable[decimal.Decimal] `json:"purchasePrice"`
	Description   *string                         `json:"description"`
	Note          string                          `json:"note"`
}

// ChangeStatusRequest moves an item to a new status with an optional note.
type ChangeStatusRequest struct {
	Status string `json:"status" validate:"required,itemstatus"`
	Note   string `json:"note"`
}

// ListFilter narrows the inventory listing.
type ListFilter struct {
	Query    string
	Category string
	Status   *enums.ItemStatus
	Limit    int
	Cursor   string
}

// ListResult is one page of the inventory listing.
type ListResult struct {
	Items      []ItemDTO `json:"items"`
	NextCursor string    `json:"nextCursor,omitempty"`
}

// StatusEventDTO is one entry of an item's status history.
type StatusEventDTO struct {
	ID           uuid.UUID         `json:"id"`
	ItemID       uuid.UUID         `json:"itemId"`
	FromStatus   *enums.ItemStatus `json:"fromStatus"`
	ToStatus     enums.ItemStatus  `json:"toStatus"`
	ChangedBy    uuid.UUID         `json:"changedBy"`
	AssignmentID *uuid.UUID        `json:"assignmentId,omitempty"`
	Note         string            `json:"note"`
	CreatedAt    time.Time         `json:"createdAt"`
}

// CategoryCount is one row of the per-category status breakdown.
type CategoryCount struct {
	Category string
	Status   enums.ItemStatus
	Count    int64
}

// FromModel maps an item row to its wire shape.
func FromModel(m *models.Item) *ItemDTO {
	if m == nil {
		return nil
	}
	return &ItemDTO{
		ID:            m.ID,
		Name:          m.Name,
		Category:      m.Category,
		Brand:         m.Brand,
		Model:         m.Model,
		SerialNumber:  m.SerialNumber,
		Status:        m.Status,
		Location:      m.Location,
		PurchaseDate:  types.DatePtr(m.PurchaseDate),
		PurchasePrice: m.PurchasePrice,
		Description:   m.Description,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func fromModels(rows []models.Item) []ItemDTO {
	out := make([]ItemDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}

func eventsFromModels(rows []models.ItemStatusEvent) []StatusEventDTO {
	out := make([]StatusEventDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, StatusEventDTO{
			ID:           row.ID,
			ItemID:       row.ItemID,
			FromStatus:   row.FromStatus,
			ToStatus:     row.ToStatus,
			ChangedBy:    row.ChangedBy,
			AssignmentID: row.AssignmentID,
			Note:         row.Note,
			CreatedAt:    row.CreatedAt,
		})
	}
	return out
}
