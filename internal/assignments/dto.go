package assignments

import (
	"time"

	"github.com/angelmondragon/assettrack-backend/pkg/db/models"
	"github.com/angelmondragon/assettrack-backend/pkg/enums"
	"github.com/angelmondragon/assettrack-backend/pkg/types"
	"github.com/google/uuid"
)

// AssignmentDTO is the wire shape of an assignment with its derived status.
type AssignmentDTO struct {
	ID                 uuid.UUID              `json:"id"`
	ItemID             uuid.UUID              `json:"itemId"`
	EmployeeID         uuid.UUID              `json:"employeeId"`
	AssignedBy         uuid.UUID              `json:"assignedBy"`
	AssignmentDate     types.Date             `json:"assignmentDate"`
	ExpectedReturnDate *types.Date            `json:"expectedReturnDate"`
	ActualReturnDate   *time.Time             `json:"actualReturnDate"`
	Condition          enums.Condition        `json:"condition"`
	Notes              string                 `json:"notes"`
	Status             enums.AssignmentStatus `json:"status"`
	CanceledAt         *time.Time             `json:"canceledAt,omitempty"`
	CreatedAt          time.Time              `json:"createdAt"`
	UpdatedAt          time.Time              `json:"updatedAt"`
}

// AssignRequest hands an available item to a principal. AssignmentDate
// defaults to today and Condition to Good.
type AssignRequest struct {
	ItemID             uuid.UUID   `json:"itemId" validate:"required"`
	EmployeeID         uuid.UUID   `json:"employeeId" validate:"required"`
	AssignmentDate     *types.Date `json:"assignmentDate"`
	ExpectedReturnDate *types.Date `json:"expectedReturnDate"`
	Condition          string      `json:"condition" validate:"omitempty,condition"`
	Notes              string      `json:"notes"`
}

// ReturnRequest closes an open assignment.
type ReturnRequest struct {
	Condition string  `json:"condition" validate:"omitempty,condition"`
	Notes     *string `json:"notes"`
}

// UpdateRequest patches an assignment. ItemID is accepted only so a change
// can be rejected explicitly.
type UpdateRequest struct {
	ItemID             *uuid.UUID                 `json:"itemId"`
	EmployeeID         *uuid.UUID                 `json:"employeeId"`
	AssignmentDate     *types.Date                `json:"assignmentDate"`
	ExpectedReturnDate types.Nullable[types.Date] `json:"expectedReturnDate"`
	Condition          *string                    `json:"condition" validate:"omitempty,condition"`
	Notes              *string                    `json:"notes"`
}

// ListFilter narrows the ledger listing.
type ListFilter struct {
	Status     *enums.AssignmentStatus
	ItemID     *uuid.UUID
	EmployeeID *uuid.UUID
}

func toDTO(a *models.Assignment, now time.Time) AssignmentDTO {
	return AssignmentDTO{
		ID:                 a.ID,
		ItemID:             a.ItemID,
		EmployeeID:         a.EmployeeID,
		AssignedBy:         a.AssignedBy,
		AssignmentDate:     types.NewDate(a.AssignmentDate),
		ExpectedReturnDate: types.DatePtr(a.ExpectedReturnDate),
		ActualReturnDate:   a.ActualReturnDate,
		Condition:          a.Condition,
		Notes:              a.Notes,
		Status:             DeriveStatus(a, now),
		CanceledAt:         a.CanceledAt,
		CreatedAt:          a.CreatedAt,
		UpdatedAt:          a.UpdatedAt,
	}
}

func toDTOs(rows []models.Assignment, now time.Time) []AssignmentDTO {
	out := make([]AssignmentDTO, 0, len(rows))
	for i := range rows {
		out = append(out, toDTO(&rows[i], now))
	}
	return out
}
