package discounts

import (
	"context"

	"github.com/angelmondragon/assettrack-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository owns the discounts table. Rows are never updated or deleted.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, d *models.Discount) error {
	return r.db.WithContext(ctx).Create(d).Error
}

// List returns discounts newest first, optionally for one principal.
func (r *Repository) List(ctx context.Context, userID *uuid.UUID) ([]models.Discount, error) {
	qb := r.db.WithContext(ctx).Model(&models.Discount{})
	if userID != nil {
		qb = qb.Where("user_id = ?", *userID)
	}
	var rows []models.Discount
	err := qb.Order("discount_date DESC").Order("created_at DESC").Find(&rows).Error
	return rows, err
}

// ReferencesItemTx reports whether any discount was granted on itemID.
func (r *Repository) ReferencesItemTx(ctx context.Context, tx *gorm.DB, itemID uuid.UUID) (bool, error) {
	var count int64
	err := r.WithTx(tx).db.WithContext(ctx).
		Model(&models.Discount{}).
		Where("item_id = ?", itemID).
		Count(&count).Error
	return count > 0, err
}
