package assignments

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/assettrack-backend/internal/authz"
	"github.com/angelmondragon/assettrack-backend/internal/discounts"
	"github.com/angelmondragon/assettrack-backend/internal/items"
	"github.com/angelmondragon/assettrack-backend/internal/maintenance"
	"github.com/angelmondragon/assettrack-backend/internal/users"
	"github.com/angelmondragon/assettrack-backend/pkg/db"
	"github.com/angelmondragon/assettrack-backend/pkg/db/dbtest"
	"github.com/angelmondragon/assettrack-backend/pkg/db/models"
	"github.com/angelmondragon/assettrack-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/assettrack-backend/pkg/errors"
	"github.com/angelmondragon/assettrack-backend/pkg/outbox"
	"github.com/angelmondragon/assettrack-backend/pkg/types"
	"github.com/google/uuid"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	svc      Service
	items    items.Service
	client   *db.Client
	admin    *models.User
	employee *models.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	client := dbtest.Open(t)
	principals := users.NewRepository(client.DB())
	gate, err := authz.NewGate(authz.GateParams{Principals: principals})
	if err != nil {
		t.Fatalf("new gate: %v", err)
	}
	emitter := outbox.NewService(outbox.NewRepository(client.DB()), nil)
	itemSvc, err := items.NewService(items.ServiceParams{
		Repo:       items.NewRepository(client.DB()),
		DB:         client,
		Gate:       gate,
		Custody:    NewRepository(client.DB()),
		References: []items.ReferenceChecker{NewRepository(client.DB()), maintenance.NewRepository(client.DB()), discounts.NewRepository(client.DB())},
		Emitter:    emitter,
	})
	if err != nil {
		t.Fatalf("new item service: %v", err)
	}
	svc, err := NewService(ServiceParams{
		Repo:       NewRepository(client.DB()),
		DB:         client,
		Gate:       gate,
		Items:      itemSvc,
		Principals: principals,
		Emitter:    emitter,
		Clock:      func() time.Time { return testNow },
	})
	if err != nil {
		t.Fatalf("new assignment service: %v", err)
	}
	return &testEnv{
		svc:      svc,
		items:    itemSvc,
		client:   client,
		admin:    dbtest.SeedUser(t, client, enums.RoleAdmin),
		employee: dbtest.SeedUser(t, client, enums.RoleEmployee),
	}
}

func (e *testEnv) itemStatus(t *testing.T, id uuid.UUID) enums.ItemStatus {
	t.Helper()
	var item models.Item
	if err := e.client.DB().First(&item, "id = ?", id).Error; err != nil {
		t.Fatalf("load item: %v", err)
	}
	return item.Status
}

func (e *testEnv) statusEvents(t *testing.T, itemID uuid.UUID) []models.ItemStatusEvent {
	t.Helper()
	var rows []models.ItemStatusEvent
	if err := e.client.DB().Where("item_id = ?", itemID).Order("created_at ASC").Find(&rows).Error; err != nil {
		t.Fatalf("load history: %v", err)
	}
	return rows
}

func (e *testEnv) outboxCount(t *testing.T, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var count int64
	if err := e.client.DB().Model(&models.OutboxEvent{}).Where("event_type = ?", eventType).Count(&count).Error; err != nil {
		t.Fatalf("count outbox: %v", err)
	}
	return count
}

func (e *testEnv) assign(t *testing.T, itemID uuid.UUID, expected *types.Date) *AssignmentDTO {
	t.Helper()
	out, err := e.svc.Assign(context.Background(), e.admin.ID, AssignRequest{
		ItemID:             itemID,
		EmployeeID:         e.employee.ID,
		ExpectedReturnDate: expected,
	})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	return out
}

func date(y int, m time.Month, d int) *types.Date {
	v := types.NewDate(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
	return &v
}

func strPtr(v string) *string { return &v }

func TestAssignMovesItemToAssigned(t *testing.T) {
	env := newTestEnv(t)
	item := dbtest.SeedItem(t, env.client)

	out := env.assign(t, item.ID, date(2025, 7, 1))
	if out.Status != enums.AssignmentStatusActive || out.Condition != enums.ConditionGood {
		t.Fatalf("unexpected assignment status=%s condition=%s", out.Status, out.Condition)
	}
	if got := out.AssignmentDate.Format(types.DateLayout); got != "2025-06-15" {
		t.Fatalf("unexpected assignment date %s", got)
	}
	if out.AssignedBy != env.admin.ID {
		t.Fatalf("unexpected assigner %s", out.AssignedBy)
	}
	if got := env.itemStatus(t, item.ID); got != enums.ItemStatusAssigned {
		t.Fatalf("unexpected item status %s", got)
	}

	events := env.statusEvents(t, item.ID)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].AssignmentID == nil || *events[0].AssignmentID != out.ID {
		t.Fatalf("event not linked to assignment: %v", events[0].AssignmentID)
	}
	if got := env.outboxCount(t, enums.EventAssignmentCreated); got != 1 {
		t.Fatalf("expected 1 assignment event, got %d", got)
	}
	if got := env.outboxCount(t, enums.EventItemStatusChanged); got != 1 {
		t.Fatalf("expected 1 status event, got %d", got)
	}
}

func TestAssignRejectsUnavailableItem(t *testing.T) {
	env := newTestEnv(t)
	repair := dbtest.SeedItem(t, env.client, dbtest.WithStatus(enums.ItemStatusUnderRepair))

	_, err := env.svc.Assign(context.Background(), env.admin.ID, AssignRequest{ItemID: repair.ID, EmployeeID: env.employee.ID})
	if !pkgerrors.IsCode(err, pkgerrors.CodeItemNotAvailable) {
		t.Fatalf("expected item not available, got %v", err)
	}
	if got := env.itemStatus(t, repair.ID); got != enums.ItemStatusUnderRepair {
		t.Fatalf("unexpected item status %s", got)
	}
}

func TestAssignOpenAssignmentIndexBlocksSecondHolder(t *testing.T) {
	env := newTestEnv(t)
	item := dbtest.SeedItem(t, env.client)
	dbtest.SeedAssignment(t, env.client, item.ID, env.employee.ID, env.admin.ID, nil)

	_, err := env.svc.Assign(context.Background(), env.admin.ID, AssignRequest{ItemID: item.ID, EmployeeID: env.employee.ID})
	if !pkgerrors.IsCode(err, pkgerrors.CodeItemNotAvailable) {
		t.Fatalf("expected item not available, got %v", err)
	}
	if events := env.statusEvents(t, item.ID); len(events) != 0 {
		t.Fatalf("expected no events, got %d", len(events))
	}
}

func TestAssignConcurrentCallersOneWins(t *testing.T) {
	env := newTestEnv(t)
	item := dbtest.SeedItem(t, env.client)
	other := dbtest.SeedUser(t, env.client, enums.RoleEmployee)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, employeeID := range []uuid.UUID{env.employee.ID, other.ID} {
		wg.Add(1)
		go func(i int, employeeID uuid.UUID) {
			defer wg.Done()
			_, errs[i] = env.svc.Assign(context.Background(), env.admin.ID, AssignRequest{ItemID: item.ID, EmployeeID: employeeID})
		}(i, employeeID)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		if !pkgerrors.IsCode(err, pkgerrors.CodeItemNotAvailable) {
			t.Errorf("loser should see item not available, got %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one winner, got %d", succeeded)
	}

	var open int64
	if err := env.client.DB().Model(&models.Assignment{}).Where("item_id = ? AND actual_return_date IS NULL", item.ID).Count(&open).Error; err != nil {
		t.Fatalf("count open: %v", err)
	}
	if open != 1 {
		t.Fatalf("expected 1 open assignment, got %d", open)
	}
}

func TestAssignValidation(t *testing.T) {
	env := newTestEnv(t)
	item := dbtest.SeedItem(t, env.client)
	disabled := dbtest.SeedUser(t, env.client, enums.RoleEmployee)
	if err := env.client.DB().Model(&models.User{}).Where("id = ?", disabled.ID).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	cases := []struct {
		name  string
		actor uuid.UUID
		req   AssignRequest
		code  pkgerrors.Code
	}{
		{"employee actor", env.employee.ID, AssignRequest{ItemID: item.ID, EmployeeID: env.employee.ID}, pkgerrors.CodeUnauthorized},
		{"missing ids", env.admin.ID, AssignRequest{}, pkgerrors.CodeValidation},
		{"unknown employee", env.admin.ID, AssignRequest{ItemID: item.ID, EmployeeID: uuid.New()}, pkgerrors.CodeNotFound},
		{"disabled employee", env.admin.ID, AssignRequest{ItemID: item.ID, EmployeeID: disabled.ID}, pkgerrors.CodeValidation},
		{"unknown item", env.admin.ID, AssignRequest{ItemID: uuid.New(), EmployeeID: env.employee.ID}, pkgerrors.CodeNotFound},
		{"return before start", env.admin.ID, AssignRequest{
			ItemID:             item.ID,
			EmployeeID:         env.employee.ID,
			AssignmentDate:     date(2025, 6, 10),
			ExpectedReturnDate: date(2025, 6, 9),
		}, pkgerrors.CodeValidation},
		{"bad condition", env.admin.ID, AssignRequest{ItemID: item.ID, EmployeeID: env.employee.ID, Condition: "Broken"}, pkgerrors.CodeValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := env.svc.Assign(context.Background(), tc.actor, tc.req); !pkgerrors.IsCode(err, tc.code) {
				t.Fatalf("expected %s, got %v", tc.code, err)
			}
		})
	}
	if got := env.itemStatus(t, item.ID); got != enums.ItemStatusAvailable {
		t.Fatalf("rejected assignments moved the item to %s", got)
	}
}

func TestReturnAppliesConditionPolicy(t *testing.T) {
	cases := []struct {
		condition string
		want      enums.ItemStatus
	}{
		{"Excellent", enums.ItemStatusAvailable},
		{"Good", enums.ItemStatusAvailable},
		{"Fair", enums.ItemStatusUnderRepair},
		{"poor", enums.ItemStatusUnderRepair},
	}
	for _, tc := range cases {
		t.Run(tc.condition, func(t *testing.T) {
			env := newTestEnv(t)
			item := dbtest.SeedItem(t, env.client)
			assigned := env.assign(t, item.ID, nil)

			out, err := env.svc.Return(context.Background(), env.admin.ID, assigned.ID, ReturnRequest{
				Condition: tc.condition,
				Notes:     strPtr("back at desk"),
			})
			if err != nil {
				t.Fatalf("return: %v", err)
			}
			if out.Status != enums.AssignmentStatusReturned || out.ActualReturnDate == nil {
				t.Fatalf("assignment not returned: %+v", out)
			}
			if out.Notes != "back at desk" || out.CanceledAt != nil {
				t.Fatalf("unexpected return record %+v", out)
			}
			if got := env.itemStatus(t, item.ID); got != tc.want {
				t.Fatalf("expected item %s, got %s", tc.want, got)
			}
			if got := env.outboxCount(t, enums.EventAssignmentReturned); got != 1 {
				t.Fatalf("expected 1 returned event, got %d", got)
			}
		})
	}
}

func TestReturnTwiceFails(t *testing.T) {
	env := newTestEnv(t)
	item := dbtest.SeedItem(t, env.client)
	assigned := env.assign(t, item.ID, nil)
	ctx := context.Background()

	if _, err := env.svc.Return(ctx, env.admin.ID, assigned.ID, ReturnRequest{Condition: "Good"}); err != nil {
		t.Fatalf("return: %v", err)
	}
	if _, err := env.svc.Return(ctx, env.admin.ID, assigned.ID, ReturnRequest{Condition: "Poor"}); !pkgerrors.IsCode(err, pkgerrors.CodeAlreadyReturned) {
		t.Fatalf("expected already returned, got %v", err)
	}
	if got := env.itemStatus(t, item.ID); got != enums.ItemStatusAvailable {
		t.Fatalf("second return moved the item to %s", got)
	}

	if _, err := env.svc.Return(ctx, env.admin.ID, uuid.New(), ReturnRequest{}); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestOpenAssignmentBlocksManualStatusChange(t *testing.T) {
	env := newTestEnv(t)
	item := dbtest.SeedItem(t, env.client)
	assigned := env.assign(t, item.ID, nil)
	ctx := context.Background()

	_, err := env.items.ChangeStatus(ctx, env.admin.ID, item.ID, items.ChangeStatusRequest{Status: "Available"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition) {
		t.Fatalf("expected invalid transition while held, got %v", err)
	}

	if _, err := env.svc.Return(ctx, env.admin.ID, assigned.ID, ReturnRequest{Condition: "Good"}); err != nil {
		t.Fatalf("return: %v", err)
	}
	if _, err := env.items.ChangeStatus(ctx, env.admin.ID, item.ID, items.ChangeStatusRequest{Status: "Damaged"}); err != nil {
		t.Fatalf("change status after return: %v", err)
	}
}

func TestListAllFiltersByDerivedStatus(t *testing.T) {
	env := newTestEnv(t)
	overdue := env.assign(t, dbtest.SeedItem(t, env.client).ID, date(2025, 6, 1))
	active := env.assign(t, dbtest.SeedItem(t, env.client).ID, date(2025, 7, 1))
	returned := env.assign(t, dbtest.SeedItem(t, env.client).ID, nil)
	if _, err := env.svc.Return(context.Background(), env.admin.ID, returned.ID, ReturnRequest{}); err != nil {
		t.Fatalf("return: %v", err)
	}

	cases := map[enums.AssignmentStatus]uuid.UUID{
		enums.AssignmentStatusOverdue:  overdue.ID,
		enums.AssignmentStatusActive:   active.ID,
		enums.AssignmentStatusReturned: returned.ID,
	}
	for status, want := range cases {
		status := status
		rows, err := env.svc.ListAll(context.Background(), env.admin.ID, ListFilter{Status: &status})
		if err != nil {
			t.Fatalf("list %s: %v", status, err)
		}
		if len(rows) != 1 {
			t.Fatalf("status %s: expected 1 row, got %d", status, len(rows))
		}
		if rows[0].ID != want || rows[0].Status != status {
			t.Fatalf("status %s: unexpected row %+v", status, rows[0])
		}
	}

	all, err := env.svc.ListAll(context.Background(), env.admin.ID, ListFilter{EmployeeID: &env.employee.ID})
	if err != nil || len(all) != 3 {
		t.Fatalf("expected 3 rows for employee, got %d err %v", len(all), err)
	}
}

func TestUpdateRules(t *testing.T) {
	env := newTestEnv(t)
	item := dbtest.SeedItem(t, env.client)
	assigned := env.assign(t, item.ID, nil)
	other := dbtest.SeedUser(t, env.client, enums.RoleEmployee)
	ctx := context.Background()

	otherItem := uuid.New()
	if _, err := env.svc.Update(ctx, env.admin.ID, assigned.ID, UpdateRequest{ItemID: &otherItem}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("item swap: expected validation error, got %v", err)
	}

	updated, err := env.svc.Update(ctx, env.admin.ID, assigned.ID, UpdateRequest{
		EmployeeID:         &other.ID,
		ExpectedReturnDate: types.Of(*date(2025, 8, 1)),
		Condition:          strPtr("Excellent"),
		Notes:              strPtr("handed over"),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.EmployeeID != other.ID || updated.Condition != enums.ConditionExcellent {
		t.Fatalf("unexpected update %+v", updated)
	}
	if updated.ExpectedReturnDate == nil || updated.ExpectedReturnDate.Format(types.DateLayout) != "2025-08-01" {
		t.Fatalf("unexpected expected return %v", updated.ExpectedReturnDate)
	}

	if _, err := env.svc.Update(ctx, env.admin.ID, assigned.ID, UpdateRequest{ExpectedReturnDate: types.Of(*date(2025, 1, 1))}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("return before start: expected validation error, got %v", err)
	}

	if _, err := env.svc.Return(ctx, env.admin.ID, assigned.ID, ReturnRequest{}); err != nil {
		t.Fatalf("return: %v", err)
	}

	if _, err := env.svc.Update(ctx, env.admin.ID, assigned.ID, UpdateRequest{Condition: strPtr("Poor")}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("returned condition edit: expected validation error, got %v", err)
	}

	updated, err = env.svc.Update(ctx, env.admin.ID, assigned.ID, UpdateRequest{Notes: strPtr("audit note")})
	if err != nil {
		t.Fatalf("notes on returned: %v", err)
	}
	if updated.Notes != "audit note" {
		t.Fatalf("unexpected notes %q", updated.Notes)
	}
}

func TestDeleteCancelsOpenAssignment(t *testing.T) {
	env := newTestEnv(t)
	item := dbtest.SeedItem(t, env.client)
	assigned := env.assign(t, item.ID, nil)
	ctx := context.Background()

	if err := env.svc.Delete(ctx, env.admin.ID, assigned.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := env.itemStatus(t, item.ID); got != enums.ItemStatusAvailable {
		t.Fatalf("expected item released, got %s", got)
	}

	if _, err := env.svc.Get(ctx, env.admin.ID, assigned.ID); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	var stored models.Assignment
	if err := env.client.DB().Unscoped().First(&stored, "id = ?", assigned.ID).Error; err != nil {
		t.Fatalf("load canceled: %v", err)
	}
	if stored.ActualReturnDate == nil || stored.CanceledAt == nil || !stored.DeletedAt.Valid {
		t.Fatalf("cancellation not recorded: %+v", stored)
	}

	events := env.statusEvents(t, item.ID)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[1].Note != "assignment canceled" {
		t.Fatalf("unexpected note %q", events[1].Note)
	}
	if events[1].AssignmentID == nil || *events[1].AssignmentID != assigned.ID {
		t.Fatalf("cancel event not linked: %v", events[1].AssignmentID)
	}

	if err := env.items.Delete(ctx, env.admin.ID, item.ID); !pkgerrors.IsCode(err, pkgerrors.CodeReferentialConflict) {
		t.Fatalf("canceled assignment still references the item, got %v", err)
	}

	again := env.assign(t, item.ID, nil)
	if again.ID == assigned.ID {
		t.Fatal("expected a fresh assignment")
	}
}

func TestDeleteReturnedAssignmentKeepsItemStatus(t *testing.T) {
	env := newTestEnv(t)
	item := dbtest.SeedItem(t, env.client)
	assigned := env.assign(t, item.ID, nil)
	if _, err := env.svc.Return(context.Background(), env.admin.ID, assigned.ID, ReturnRequest{Condition: "Fair"}); err != nil {
		t.Fatalf("return: %v", err)
	}

	if err := env.svc.Delete(context.Background(), env.admin.ID, assigned.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := env.itemStatus(t, item.ID); got != enums.ItemStatusUnderRepair {
		t.Fatalf("expected Under Repair kept, got %s", got)
	}
}

func TestOwnershipChecks(t *testing.T) {
	env := newTestEnv(t)
	item := dbtest.SeedItem(t, env.client)
	assigned := env.assign(t, item.ID, nil)
	stranger := dbtest.SeedUser(t, env.client, enums.RoleEmployee)
	ctx := context.Background()

	mine, err := env.svc.ListForEmployee(ctx, env.employee.ID, env.employee.ID)
	if err != nil || len(mine) != 1 {
		t.Fatalf("expected 1 own assignment, got %d err %v", len(mine), err)
	}

	if _, err := env.svc.ListForEmployee(ctx, stranger.ID, env.employee.ID); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("stranger list: expected unauthorized, got %v", err)
	}

	theirs, err := env.svc.ListForEmployee(ctx, env.admin.ID, env.employee.ID)
	if err != nil || len(theirs) != 1 {
		t.Fatalf("admin list: expected 1 assignment, got %d err %v", len(theirs), err)
	}

	got, err := env.svc.Get(ctx, env.employee.ID, assigned.ID)
	if err != nil {
		t.Fatalf("get own: %v", err)
	}
	if got.ID != assigned.ID {
		t.Fatalf("unexpected assignment %s", got.ID)
	}

	if _, err := env.svc.Get(ctx, stranger.ID, assigned.ID); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("stranger get: expected unauthorized, got %v", err)
	}
	if _, err := env.svc.ListAll(ctx, env.employee.ID, ListFilter{}); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("employee list all: expected unauthorized, got %v", err)
	}
}
