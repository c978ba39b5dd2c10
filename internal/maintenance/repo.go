package maintenance

import (
	"context"

	"github.com/angelmondragon/assettrack-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository owns the maintenance_requests table.
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

func (r *Repository) Create(ctx context.Context, m *models.MaintenanceRequest) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.MaintenanceRequest, error) {
	var m models.MaintenanceRequest
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&models.MaintenanceRequest{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List returns requests newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter, requestedBy *uuid.UUID) ([]models.MaintenanceRequest, error) {
	qb := r.db.WithContext(ctx).Model(&models.MaintenanceRequest{})
	if requestedBy != nil {
		qb = qb.Where("requested_by = ?", *requestedBy)
	}
	if filter.Status != nil {
		qb = qb.Where("status = ?", *filter.Status)
	}
	if filter.Priority != nil {
		qb = qb.Where("priority = ?", *filter.Priority)
	}
	if filter.ItemID != nil {
		qb = qb.Where("item_id = ?", *filter.ItemID)
	}
	var rows []models.MaintenanceRequest
	err := qb.Order("created_at DESC").Find(&rows).Error
	return rows, err
}

// ReferencesItemTx reports whether any maintenance request names itemID.
func (r *Repository) ReferencesItemTx(ctx context.Context, tx *gorm.DB, itemID uuid.UUID) (bool, error) {
	var count int64
	err := r.WithTx(tx).db.WithContext(ctx).
		Model(&models.MaintenanceRequest{}).
		Where("item_id = ?", itemID).
		Count(&count).Error
	return count > 0, err
}
