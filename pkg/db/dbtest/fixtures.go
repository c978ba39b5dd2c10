package dbtest

import (
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/assettrack-backend/pkg/db"
	"github.com/angelmondragon/assettrack-backend/pkg/db/models"
	"github.com/angelmondragon/assettrack-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SeedUser inserts an active principal with the given role. The password hash
// is a placeholder that never verifies.
func SeedUser(t testing.TB, client *db.Client, role enums.Role) *models.User {
	t.Helper()
	handle := "u" + uuid.NewString()[:8]
	user := &models.User{
		Email:        handle + "@example.com",
		Username:     handle,
		PasswordHash: "unusable",
		DisplayName:  string(role) + " " + handle,
		Role:         role,
		IsActive:     true,
	}
	if err := client.DB().Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

// ItemOption customises SeedItem.
type ItemOption func(*models.Item)

// WithStatus sets the seeded item's status.
func WithStatus(status enums.ItemStatus) ItemOption {
	return func(i *models.Item) { i.Status = status }
}

// WithCategory sets the seeded item's category.
func WithCategory(category string) ItemOption {
	return func(i *models.Item) { i.Category = category }
}

// WithPrice sets the seeded item's purchase price.
func WithPrice(price string) ItemOption {
	return func(i *models.Item) {
		p := decimal.RequireFromString(price)
		i.PurchasePrice = &p
	}
}

// WithoutPrice clears the purchase price.
func WithoutPrice() ItemOption {
	return func(i *models.Item) { i.PurchasePrice = nil }
}

// SeedItem inserts an Available laptop priced at 1000 unless options say
// otherwise. No status history is written.
func SeedItem(t testing.TB, client *db.Client, opts ...ItemOption) *models.Item {
	t.Helper()
	price := decimal.NewFromInt(1000)
	purchased := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	item := &models.Item{
		Name:          "Laptop",
		Category:      "Computers",
		Brand:         "Lenovo",
		Model:         "T14",
		SerialNumber:  "SN-" + strings.ToUpper(uuid.NewString()[:8]),
		Status:        enums.ItemStatusAvailable,
		Location:      "HQ",
		PurchaseDate:  &purchased,
		PurchasePrice: &price,
	}
	for _, opt := range opts {
		opt(item)
	}
	if err := client.DB().Create(item).Error; err != nil {
		t.Fatalf("seed item: %v", err)
	}
	return item
}

// SeedAssignment inserts an open assignment dated 2025-03-01 in Good
// condition. The item status is not touched; seed the item as Assigned.
func SeedAssignment(t testing.TB, client *db.Client, itemID, employeeID, assignedBy uuid.UUID, expectedReturn *time.Time) *models.Assignment {
	t.Helper()
	assignment := &models.Assignment{
		ItemID:             itemID,
		EmployeeID:         employeeID,
		AssignedBy:         assignedBy,
		AssignmentDate:     time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		ExpectedReturnDate: expectedReturn,
		Condition:          enums.ConditionGood,
	}
	if err := client.DB().Create(assignment).Error; err != nil {
		t.Fatalf("seed assignment: %v", err)
	}
	return assignment
}
