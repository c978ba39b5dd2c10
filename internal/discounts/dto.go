package discounts

import (
	"time"

	"github.com/angelmondragon/assettrack-backend/pkg/db/models"
	"github.com/angelmondragon/assettrack-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DiscountDTO is the wire shape of a granted discount.
type DiscountDTO struct {
	ID              uuid.UUID       `json:"id"`
	ItemID          uuid.UUID       `json:"itemId"`
	UserID          uuid.UUID       `json:"userId"`
	DiscountDate    types.Date      `json:"discountDate"`
	Day             int             `json:"day"`
	Percent         int             `json:"percent"`
	OriginalPrice   decimal.Decimal `json:"originalPrice"`
	DiscountedPrice decimal.Decimal `json:"discountedPrice"`
	CreatedBy       uuid.UUID       `json:"createdBy"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// AssignRequest grants a discount. Date is kept as a string so a malformed
// value reports INVALID_DATE. Percent is optional.
type AssignRequest struct {
	ItemID  uuid.UUID `json:"itemId" validate:"required"`
	UserID  uuid.UUID `json:"userId" validate:"required"`
	Date    string    `json:"date" validate:"required"`
	Percent *int      `json:"percent"`
}

func toDTO(d *models.Discount) DiscountDTO {
	return DiscountDTO{
		ID:              d.ID,
		ItemID:          d.ItemID,
		UserID:          d.UserID,
		DiscountDate:    types.NewDate(d.DiscountDate),
		Day:             d.Day,
		Percent:         d.Percent,
		OriginalPrice:   d.OriginalPrice,
		DiscountedPrice: d.DiscountedPrice,
		CreatedBy:       d.CreatedBy,
		CreatedAt:       d.CreatedAt,
	}
}

func toDTOs(rows []models.Discount) []DiscountDTO {
	out := make([]DiscountDTO, 0, len(rows))
	for i := range rows {
		out = append(out, toDTO(&rows[i]))
	}
	return out
}
