package assignments

import (
	"context"
	"time"

	"github.com/angelmondragon/assettrack-backend/pkg/db/models"
	"github.com/angelmondragon/assettrack-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository owns the assignments table.
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

func (r *Repository) Create(ctx context.Context, a *models.Assignment) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Assignment, error) {
	var a models.Assignment
	if err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// Close sets the return fields while the assignment is still open. It
// reports false when another caller closed it first.
func (r *Repository) Close(ctx context.Context, id uuid.UUID, updates map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Assignment{}).
		Where("id = ? AND actual_return_date IS NULL", id).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&models.Assignment{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SoftDelete hides the row from reads; the audit trail keeps it.
func (r *Repository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.Assignment{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List returns assignments newest first. The derived status filter is
// evaluated against now.
func (r *Repository) List(ctx context.Context, filter ListFilter, now time.Time) ([]models.Assignment, error) {
	qb := r.db.WithContext(ctx).Model(&models.Assignment{})
	if filter.EmployeeID != nil {
		qb = qb.Where("employee_id = ?", *filter.EmployeeID)
	}
	if filter.ItemID != nil {
		qb = qb.Where("item_id = ?", *filter.ItemID)
	}
	if filter.Status != nil {
		qb = whereStatus(qb, *filter.Status, now)
	}
	var rows []models.Assignment
	err := qb.Order("assignment_date DESC").Order("created_at DESC").Find(&rows).Error
	return rows, err
}

// CountOpen splits open assignments into active and overdue at now.
// A nil employeeID counts every principal.
func (r *Repository) CountOpen(ctx context.Context, employeeID *uuid.UUID, now time.Time) (active, overdue int64, err error) {
	count := func(status enums.AssignmentStatus) (int64, error) {
		qb := r.db.WithContext(ctx).Model(&models.Assignment{})
		if employeeID != nil {
			qb = qb.Where("employee_id = ?", *employeeID)
		}
		var n int64
		err := whereStatus(qb, status, now).Count(&n).Error
		return n, err
	}
	if active, err = count(enums.AssignmentStatusActive); err != nil {
		return 0, 0, err
	}
	if overdue, err = count(enums.AssignmentStatusOverdue); err != nil {
		return 0, 0, err
	}
	return active, overdue, nil
}

func whereStatus(qb *gorm.DB, status enums.AssignmentStatus, now time.Time) *gorm.DB {
	switch status {
	case enums.AssignmentStatusReturned:
		return qb.Where("actual_return_date IS NOT NULL")
	case enums.AssignmentStatusOverdue:
		return qb.Where("actual_return_date IS NULL AND expected_return_date IS NOT NULL AND expected_return_date < ?", now)
	default:
		return qb.Where("actual_return_date IS NULL AND (expected_return_date IS NULL OR expected_return_date >= ?)", now)
	}
}

// HasOpenAssignmentTx reports whether an open assignment still holds itemID.
func (r *Repository) HasOpenAssignmentTx(ctx context.Context, tx *gorm.DB, itemID uuid.UUID) (bool, error) {
	var count int64
	err := r.WithTx(tx).db.WithContext(ctx).
		Model(&models.Assignment{}).
		Where("item_id = ? AND actual_return_date IS NULL", itemID).
		Count(&count).Error
	return count > 0, err
}

// ReferencesItemTx reports whether any assignment, soft-deleted ones
// included, was ever made for itemID.
func (r *Repository) ReferencesItemTx(ctx context.Context, tx *gorm.DB, itemID uuid.UUID) (bool, error) {
	var count int64
	err := r.WithTx(tx).db.WithContext(ctx).
		Unscoped().
		Model(&models.Assignment{}).
		Where("item_id = ?", itemID).
		Count(&count).Error
	return count > 0, err
}
