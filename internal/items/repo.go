package items

import (
	"context"
	"strings"

	"github.com/angelmondragon/assettrack-backend/pkg/db/models"
	"github.com/angelmondragon/assettrack-backend/pkg/enums"
	"github.com/angelmondragon/assettrack-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository owns the items and item_status_events tables.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds an item repository over db.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, item *models.Item) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	var item models.Item
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// FindBySerial matches the serial number case-insensitively.
func (r *Repository) FindBySerial(ctx context.Context, serial string) (*models.Item, error) {
	var item models.Item
	err := r.db.WithContext(ctx).
		Where("LOWER(serial_number) = ?", strings.ToLower(strings.TrimSpace(serial))).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Update writes descriptive columns. Status never goes through here.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	delete(updates, "status")
	res := r.db.WithContext(ctx).Model(&models.Item{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetStatusIf moves the item to status "to" only while it is still in
// "from". It reports whether the row changed.
func (r *Repository) SetStatusIf(ctx context.Context, id uuid.UUID, from, to enums.ItemStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Item{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *Repository) InsertEvent(ctx context.Context, event *models.ItemStatusEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// ListEvents returns the status history of an item, newest first.
func (r *Repository) ListEvents(ctx context.Context, itemID uuid.UUID) ([]models.ItemStatusEvent, error) {
	var rows []models.ItemStatusEvent
	err := r.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

// List returns one page ordered by creation time, newest first, plus the
// cursor for the next page.
func (r *Repository) List(ctx context.Context, filter ListFilter, cursor *pagination.Cursor) ([]models.Item, string, error) {
	qb := r.db.WithContext(ctx).Model(&models.Item{})

	if search := strings.TrimSpace(filter.Query); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		qb = qb.Where(
			"(LOWER(name) LIKE ? OR LOWER(serial_number) LIKE ? OR LOWER(brand) LIKE ? OR LOWER(model) LIKE ?)",
			pattern, pattern, pattern, pattern,
		)
	}
	if category := strings.TrimSpace(filter.Category); category != "" {
		qb = qb.Where("LOWER(category) = ?", strings.ToLower(category))
	}
	if filter.Status != nil {
		qb = qb.Where("status = ?", *filter.Status)
	}
	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Item
	err := qb.Order("created_at DESC").Order("id DESC").
		Limit(pagination.LimitWithBuffer(filter.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, "", err
	}

	rows, nextCursor := pagination.Trim(rows, filter.Limit, func(item models.Item) pagination.Cursor {
		return pagination.Cursor{CreatedAt: item.CreatedAt, ID: item.ID}
	})
	return rows, nextCursor, nil
}

// Categories returns the distinct categories in alphabetical order.
func (r *Repository) Categories(ctx context.Context) ([]string, error) {
	var out []string
	err := r.db.WithContext(ctx).
		Model(&models.Item{}).
		Distinct("category").
		Order("category ASC").
		Pluck("category", &out).Error
	return out, err
}

// CountByStatus returns the number of items in each status. Statuses with no
// items are absent from the map.
func (r *Repository) CountByStatus(ctx context.Context) (map[enums.ItemStatus]int64, error) {
	var rows []struct {
		Status enums.ItemStatus
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Item{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[enums.ItemStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}

// CountByCategory groups items by category and status.
func (r *Repository) CountByCategory(ctx context.Context) ([]CategoryCount, error) {
	var rows []CategoryCount
	err := r.db.WithContext(ctx).
		Model(&models.Item{}).
		Select("category, status, COUNT(*) AS count").
		Group("category, status").
		Order("category ASC").
		Scan(&rows).Error
	return rows, err
}

// Delete removes the item together with its status history.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).Where("item_id = ?", id).Delete(&models.ItemStatusEvent{}).Error; err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Delete(&models.Item{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
