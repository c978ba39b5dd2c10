package maintenance

import (
	"context"
	"testing"

	"github.com/angelmondragon/assettrack-backend/internal/items"
	"github.com/angelmondragon/assettrack-backend/pkg/db/dbtest"
	"github.com/angelmondragon/assettrack-backend/pkg/db/models"
	"github.com/angelmondragon/assettrack-backend/pkg/enums"
)

var _ items.ReferenceChecker = (*Repository)(nil)

func TestRepositoryReferencesItem(t *testing.T) {
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	ctx := context.Background()
	reporter := dbtest.SeedUser(t, client, enums.RoleEmployee)
	broken := dbtest.SeedItem(t, client)
	clean := dbtest.SeedItem(t, client)

	if err := repo.Create(ctx, &models.MaintenanceRequest{
		ItemID:      broken.ID,
		RequestedBy: reporter.ID,
		Priority:    enums.MaintenancePriorityHigh,
		Status:      enums.MaintenanceStatusResolved,
		Notes:       "fan noise",
	}); err != nil {
		t.Fatalf("create request: %v", err)
	}

	referenced, err := repo.ReferencesItemTx(ctx, client.DB(), broken.ID)
	if err != nil || !referenced {
		t.Fatalf("expected resolved request to reference item, got %v err %v", referenced, err)
	}
	referenced, err = repo.ReferencesItemTx(ctx, client.DB(), clean.ID)
	if err != nil || referenced {
		t.Fatalf("expected no reference, got %v err %v", referenced, err)
	}
}
