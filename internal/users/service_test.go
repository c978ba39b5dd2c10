package users

import (
	"context"
	"testing"

	"github.com/angelmondragon/assettrack-backend/internal/authz"
	"github.com/angelmondragon/assettrack-backend/pkg/config"
	"github.com/angelmondragon/assettrack-backend/pkg/db"
	"github.com/angelmondragon/assettrack-backend/pkg/db/dbtest"
	"github.com/angelmondragon/assettrack-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/assettrack-backend/pkg/errors"
	"github.com/angelmondragon/assettrack-backend/pkg/security"
	"github.com/angelmondragon/assettrack-backend/pkg/types"
	"github.com/google/uuid"
)

var testPasswordConfig = config.PasswordConfig{
	ArgonMemoryKB:    64,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
	MinLength:        8,
}

func newTestService(t *testing.T) (Service, *db.Client) {
	t.Helper()
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	gate, err := authz.NewGate(authz.GateParams{Principals: repo})
	if err != nil {
		t.Fatalf("new gate: %v", err)
	}
	svc, err := NewService(ServiceParams{Repo: repo, Gate: gate, PasswordConfig: testPasswordConfig})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, client
}

func strPtr(v string) *string { return &v }

func TestCreateByAdmin(t *testing.T) {
	svc, client := newTestService(t)
	admin := dbtest.SeedUser(t, client, enums.RoleAdmin)

	created, err := svc.Create(context.Background(), admin.ID, CreateUserRequest{
		FullName:   "  Jamie Rivera ",
		Email:      "Jamie@Example.com",
		Username:   "JRivera",
		Role:       "User",
		Department: strPtr("Finance"),
		EmployeeID: strPtr("E-100"),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.User.FullName != "Jamie Rivera" {
		t.Fatalf("unexpected full name %q", created.User.FullName)
	}
	if created.User.Email != "jamie@example.com" || created.User.Username != "jrivera" {
		t.Fatalf("identifiers not normalized: %q %q", created.User.Email, created.User.Username)
	}
	if created.User.Role != enums.RoleEmployee {
		t.Fatalf("legacy User role should map to Employee, got %s", created.User.Role)
	}
	if len(created.TemporaryPassword) != tempPasswordLength {
		t.Fatalf("unexpected temporary password length %d", len(created.TemporaryPassword))
	}

	stored, err := NewRepository(client.DB()).FindByID(context.Background(), created.User.ID)
	if err != nil {
		t.Fatalf("load user: %v", err)
	}
	ok, err := security.VerifyPassword(created.TemporaryPassword, stored.PasswordHash)
	if err != nil || !ok {
		t.Fatalf("temporary password mismatch ok=%v err=%v", ok, err)
	}
}

func TestCreateRejectsDuplicates(t *testing.T) {
	svc, client := newTestService(t)
	admin := dbtest.SeedUser(t, client, enums.RoleAdmin)

	req := CreateUserRequest{
		FullName: "Sam Lee",
		Email:    "sam@example.com",
		Username: "saml",
		Password: "long-enough-pw",
		Role:     "Employee",
	}
	if _, err := svc.Create(context.Background(), admin.ID, req); err != nil {
		t.Fatalf("create: %v", err)
	}

	dupEmail := req
	dupEmail.Username = "other"
	dupEmail.Email = "SAM@example.com"
	if _, err := svc.Create(context.Background(), admin.ID, dupEmail); !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("duplicate email: expected conflict, got %v", err)
	}

	dupUsername := req
	dupUsername.Email = "sam2@example.com"
	if _, err := svc.Create(context.Background(), admin.ID, dupUsername); !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("duplicate username: expected conflict, got %v", err)
	}
}

func TestCreateAggregatesValidationFailures(t *testing.T) {
	svc, client := newTestService(t)
	admin := dbtest.SeedUser(t, client, enums.RoleAdmin)

	_, err := svc.Create(context.Background(), admin.ID, CreateUserRequest{
		Email:    "not-an-email",
		Username: "has space",
		Password: "short",
		Role:     "Admin",
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	fields := pkgerrors.As(err).Details().(map[string]any)["fields"].([]string)
	if len(fields) != 4 {
		t.Fatalf("expected 4 field failures, got %v", fields)
	}
}

func TestCreateRequiresManageUsersBeforeValidation(t *testing.T) {
	svc, client := newTestService(t)
	employee := dbtest.SeedUser(t, client, enums.RoleEmployee)

	_, err := svc.Create(context.Background(), employee.ID, CreateUserRequest{})
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestListEmployeesOnlyActiveEmployees(t *testing.T) {
	svc, client := newTestService(t)
	admin := dbtest.SeedUser(t, client, enums.RoleAdmin)
	active := dbtest.SeedUser(t, client, enums.RoleEmployee)
	disabled := dbtest.SeedUser(t, client, enums.RoleEmployee)
	if err := svc.Disable(context.Background(), admin.ID, disabled.ID); err != nil {
		t.Fatalf("disable: %v", err)
	}

	employees, err := svc.ListEmployees(context.Background(), admin.ID)
	if err != nil {
		t.Fatalf("list employees: %v", err)
	}
	if len(employees) != 1 || employees[0].ID != active.ID {
		t.Fatalf("expected only the active employee, got %+v", employees)
	}

	if _, err := svc.ListEmployees(context.Background(), active.ID); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}

	all, err := svc.List(context.Background(), admin.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 principals, got %d", len(all))
	}
}

func TestUpdateSelfProfileWithoutManageUsers(t *testing.T) {
	svc, client := newTestService(t)
	employee := dbtest.SeedUser(t, client, enums.RoleEmployee)

	updated, err := svc.Update(context.Background(), employee.ID, employee.ID, UpdateUserRequest{
		FullName:   strPtr("Renamed"),
		Department: types.Of("Ops"),
	})
	if err != nil {
		t.Fatalf("update self: %v", err)
	}
	if updated.FullName != "Renamed" {
		t.Fatalf("unexpected full name %q", updated.FullName)
	}
	if updated.Department == nil || *updated.Department != "Ops" {
		t.Fatalf("unexpected department %v", updated.Department)
	}

	_, err = svc.Update(context.Background(), employee.ID, employee.ID, UpdateUserRequest{Role: strPtr("Admin")})
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("self promotion needs ManageUsers, got %v", err)
	}
}

func TestUpdateByAdmin(t *testing.T) {
	svc, client := newTestService(t)
	admin := dbtest.SeedUser(t, client, enums.RoleAdmin)
	employee := dbtest.SeedUser(t, client, enums.RoleEmployee)
	other := dbtest.SeedUser(t, client, enums.RoleEmployee)
	ctx := context.Background()

	updated, err := svc.Update(ctx, admin.ID, employee.ID, UpdateUserRequest{
		Role:       strPtr("Admin"),
		EmployeeID: types.Of("B-7"),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Role != enums.RoleAdmin {
		t.Fatalf("unexpected role %s", updated.Role)
	}

	if _, err := svc.Update(ctx, admin.ID, other.ID, UpdateUserRequest{EmployeeID: types.Of("B-7")}); !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("duplicate employee id: expected conflict, got %v", err)
	}
	if _, err := svc.Update(ctx, admin.ID, other.ID, UpdateUserRequest{Email: strPtr(employee.Email)}); !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("duplicate email: expected conflict, got %v", err)
	}

	cleared, err := svc.Update(ctx, admin.ID, employee.ID, UpdateUserRequest{EmployeeID: types.Null[string]()})
	if err != nil {
		t.Fatalf("clear employee id: %v", err)
	}
	if cleared.EmployeeID != nil {
		t.Fatalf("expected cleared employee id, got %v", *cleared.EmployeeID)
	}

	if _, err := svc.Update(ctx, admin.ID, admin.ID, UpdateUserRequest{Role: strPtr("Employee")}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("self demotion: expected validation error, got %v", err)
	}
	if _, err := svc.Update(ctx, admin.ID, uuid.New(), UpdateUserRequest{FullName: strPtr("x")}); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("missing user: expected not found, got %v", err)
	}
}

func TestDisable(t *testing.T) {
	svc, client := newTestService(t)
	admin := dbtest.SeedUser(t, client, enums.RoleAdmin)
	employee := dbtest.SeedUser(t, client, enums.RoleEmployee)
	ctx := context.Background()

	if err := svc.Disable(ctx, admin.ID, admin.ID); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("self disable: expected validation error, got %v", err)
	}
	if err := svc.Disable(ctx, admin.ID, uuid.New()); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("missing user: expected not found, got %v", err)
	}
	if err := svc.Disable(ctx, admin.ID, employee.ID); err != nil {
		t.Fatalf("disable: %v", err)
	}

	if _, err := svc.Me(ctx, employee.ID); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("a disabled principal is denied on the next call, got %v", err)
	}
}

func TestMeListsCapabilities(t *testing.T) {
	svc, client := newTestService(t)
	employee := dbtest.SeedUser(t, client, enums.RoleEmployee)

	me, err := svc.Me(context.Background(), employee.ID)
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if me.ID != employee.ID {
		t.Fatalf("unexpected id %s", me.ID)
	}
	want := map[enums.Capability]bool{
		enums.CapViewOwnAssignments: true,
		enums.CapReportIssue:        true,
		enums.CapViewReports:        true,
		enums.CapBrowseInventory:    true,
	}
	if len(me.Capabilities) != len(want) {
		t.Fatalf("expected %d capabilities, got %v", len(want), me.Capabilities)
	}
	for _, c := range me.Capabilities {
		if !want[c] {
			t.Fatalf("unexpected capability %s", c)
		}
	}
}
