package reports

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/assettrack-backend/internal/assignments"
	"github.com/angelmondragon/assettrack-backend/internal/authz"
	"github.com/angelmondragon/assettrack-backend/internal/items"
	"github.com/angelmondragon/assettrack-backend/internal/users"
	"github.com/angelmondragon/assettrack-backend/pkg/db"
	"github.com/angelmondragon/assettrack-backend/pkg/db/dbtest"
	"github.com/angelmondragon/assettrack-backend/pkg/db/models"
	"github.com/angelmondragon/assettrack-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/assettrack-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	svc      Service
	client   *db.Client
	admin    *models.User
	employee *models.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	client := dbtest.Open(t)
	principals := users.NewRepository(client.DB())
	gate, err := authz.NewGate(authz.GateParams{Principals: principals})
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{
		Gate:        gate,
		Items:       items.NewRepository(client.DB()),
		Assignments: assignments.NewRepository(client.DB()),
		Principals:  principals,
		Clock:       func() time.Time { return testNow },
	})
	require.NoError(t, err)
	return &testEnv{
		svc:      svc,
		client:   client,
		admin:    dbtest.SeedUser(t, client, enums.RoleAdmin),
		employee: dbtest.SeedUser(t, client, enums.RoleEmployee),
	}
}

func daysFromNow(days int) *time.Time {
	d := time.Date(testNow.Year(), testNow.Month(), testNow.Day()+days, 0, 0, 0, 0, time.UTC)
	return &d
}

// seedFleet creates two open assignments for the employee (one overdue) and
// one active assignment for another principal.
func (e *testEnv) seedFleet(t *testing.T) {
	t.Helper()
	other := dbtest.SeedUser(t, e.client, enums.RoleEmployee)

	overdue := dbtest.SeedItem(t, e.client, dbtest.WithStatus(enums.ItemStatusAssigned))
	dbtest.SeedAssignment(t, e.client, overdue.ID, e.employee.ID, e.admin.ID, daysFromNow(-10))
	active := dbtest.SeedItem(t, e.client, dbtest.WithStatus(enums.ItemStatusAssigned))
	dbtest.SeedAssignment(t, e.client, active.ID, e.employee.ID, e.admin.ID, daysFromNow(5))
	theirs := dbtest.SeedItem(t, e.client, dbtest.WithStatus(enums.ItemStatusAssigned), dbtest.WithCategory("Phones"))
	dbtest.SeedAssignment(t, e.client, theirs.ID, other.ID, e.admin.ID, nil)

	dbtest.SeedItem(t, e.client)
	dbtest.SeedItem(t, e.client, dbtest.WithStatus(enums.ItemStatusUnderRepair))
	dbtest.SeedItem(t, e.client, dbtest.WithStatus(enums.ItemStatusDisposed), dbtest.WithCategory("Phones"))
}

func TestOverviewForManager(t *testing.T) {
	env := newTestEnv(t)
	env.seedFleet(t)

	out, err := env.svc.Overview(context.Background(), env.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, ScopeAll, out.Scope)
	assert.Equal(t, int64(6), out.TotalItems)
	assert.Equal(t, int64(1), out.Available)
	assert.Equal(t, int64(3), out.Assigned)
	assert.Equal(t, int64(1), out.UnderRepair)
	assert.Equal(t, int64(0), out.Damaged)
	assert.Equal(t, int64(1), out.Disposed)
	assert.Equal(t, int64(2), out.ActiveAssignments)
	assert.Equal(t, int64(1), out.OverdueAssignments)
	require.NotNil(t, out.TotalPrincipals)
	assert.Equal(t, int64(3), *out.TotalPrincipals)
	assert.True(t, out.GeneratedAt.Equal(testNow))
}

func TestOverviewScopedForEmployee(t *testing.T) {
	env := newTestEnv(t)
	env.seedFleet(t)

	out, err := env.svc.Overview(context.Background(), env.employee.ID)
	require.NoError(t, err)
	assert.Equal(t, ScopeSelf, out.Scope)
	assert.Equal(t, int64(6), out.TotalItems)
	assert.Equal(t, int64(1), out.ActiveAssignments)
	assert.Equal(t, int64(1), out.OverdueAssignments)
	assert.Nil(t, out.TotalPrincipals)
}

func TestOverviewReflectsLatestState(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	before, err := env.svc.Overview(ctx, env.admin.ID)
	require.NoError(t, err)
	assert.Zero(t, before.TotalItems)

	dbtest.SeedItem(t, env.client)
	after, err := env.svc.Overview(ctx, env.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), after.TotalItems)
	assert.Equal(t, int64(1), after.Available)
}

func TestOverviewDeniesUnknownPrincipal(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.Overview(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized), "got %v", err)
}

func TestCategoryBreakdown(t *testing.T) {
	env := newTestEnv(t)
	env.seedFleet(t)

	out, err := env.svc.CategoryBreakdown(context.Background(), env.employee.ID)
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, "Computers", out[0].Category)
	assert.Equal(t, int64(4), out[0].Total)
	assert.Equal(t, int64(2), out[0].ByStatus[enums.ItemStatusAssigned])
	assert.Equal(t, int64(1), out[0].ByStatus[enums.ItemStatusUnderRepair])

	assert.Equal(t, "Phones", out[1].Category)
	assert.Equal(t, int64(2), out[1].Total)
	assert.Equal(t, int64(1), out[1].ByStatus[enums.ItemStatusDisposed])
}

type failingCounter struct{}

func (failingCounter) CountActive(context.Context) (int64, error) {
	return 0, errors.New("connection reset")
}

func TestOverviewSurfacesCountFailure(t *testing.T) {
	env := newTestEnv(t)
	principals := users.NewRepository(env.client.DB())
	gate, err := authz.NewGate(authz.GateParams{Principals: principals})
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{
		Gate:        gate,
		Items:       items.NewRepository(env.client.DB()),
		Assignments: assignments.NewRepository(env.client.DB()),
		Principals:  failingCounter{},
	})
	require.NoError(t, err)

	_, err = svc.Overview(context.Background(), env.admin.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInternal), "got %v", err)
}
