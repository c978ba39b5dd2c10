package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/assettrack-backend/pkg/db/models"
	"github.com/angelmondragon/assettrack-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/assettrack-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type fakeResolver struct {
	users map[uuid.UUID]*models.User
	err   error
	calls int
}

func (f *fakeResolver) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	user, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *user
	return &copied, nil
}

type denial struct{ capability, reason string }

type fakeRecorder struct{ denials []denial }

func (f *fakeRecorder) IncDenied(capability, reason string) {
	f.denials = append(f.denials, denial{capability, reason})
}

func newGate(t *testing.T, users ...*models.User) (*Gate, *fakeResolver, *fakeRecorder) {
	t.Helper()
	resolver := &fakeResolver{users: map[uuid.UUID]*models.User{}}
	for _, u := range users {
		resolver.users[u.ID] = u
	}
	recorder := &fakeRecorder{}
	gate, err := NewGate(GateParams{Principals: resolver, Metrics: recorder})
	if err != nil {
		t.Fatalf("new gate: %v", err)
	}
	return gate, resolver, recorder
}

func user(role enums.Role, active bool) *models.User {
	return &models.User{ID: uuid.New(), Role: role, IsActive: active, DisplayName: "Pat"}
}

func TestAllowsPolicyTable(t *testing.T) {
	for _, c := range enums.AllCapabilities() {
		if !Allows(enums.RoleAdmin, c) {
			t.Errorf("admin should hold %s", c)
		}
	}

	employee := map[enums.Capability]bool{
		enums.CapViewOwnAssignments: true,
		enums.CapReportIssue:        true,
		enums.CapViewReports:        true,
		enums.CapBrowseInventory:    true,
	}
	for _, c := range enums.AllCapabilities() {
		if got := Allows(enums.RoleEmployee, c); got != employee[c] {
			t.Errorf("employee grant for %s: got %v, want %v", c, got, employee[c])
		}
	}

	if Allows(enums.Role("Guest"), enums.CapBrowseInventory) {
		t.Fatal("unknown role must hold nothing")
	}
	if Allows(enums.RoleAdmin, enums.Capability("launch_rockets")) {
		t.Fatal("unknown capability must be denied")
	}
	if got := len(CapabilitiesFor(enums.RoleEmployee)); got != 4 {
		t.Fatalf("expected 4 employee capabilities, got %d", got)
	}
}

func TestAuthorizeAllowsAdmin(t *testing.T) {
	admin := user(enums.RoleAdmin, true)
	gate, _, recorder := newGate(t, admin)

	principal, err := gate.Authorize(context.Background(), admin.ID, enums.CapManageInventory)
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if principal.ID != admin.ID || principal.Role != enums.RoleAdmin {
		t.Fatalf("unexpected principal %+v", principal)
	}
	if len(recorder.denials) != 0 {
		t.Fatalf("unexpected denials %v", recorder.denials)
	}
}

func TestAuthorizeDeniesEmployeeManageCapabilities(t *testing.T) {
	employee := user(enums.RoleEmployee, true)
	gate, _, recorder := newGate(t, employee)

	for _, c := range []enums.Capability{
		enums.CapManageInventory,
		enums.CapManageAssignments,
		enums.CapManageMaintenance,
		enums.CapManageDiscounts,
		enums.CapManageUsers,
	} {
		_, err := gate.Authorize(context.Background(), employee.ID, c)
		if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
			t.Fatalf("%s: expected unauthorized, got %v", c, err)
		}
		details := pkgerrors.As(err).Details().(map[string]any)
		if details["reason"] != ReasonMissingCapability {
			t.Fatalf("%s: unexpected reason %v", c, details["reason"])
		}
	}
	if len(recorder.denials) != 5 {
		t.Fatalf("expected 5 denials, got %d", len(recorder.denials))
	}
}

func TestAuthorizeFailsClosed(t *testing.T) {
	disabled := user(enums.RoleAdmin, false)
	oddRole := user(enums.Role("Owner"), true)
	gate, _, _ := newGate(t, disabled, oddRole)

	cases := map[string]struct {
		id     uuid.UUID
		reason string
	}{
		"nil principal":      {uuid.Nil, ReasonMissingPrincipal},
		"unknown principal":  {uuid.New(), ReasonUnknownPrincipal},
		"disabled principal": {disabled.ID, ReasonDisabled},
		"unknown role":       {oddRole.ID, ReasonUnknownRole},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := gate.Authorize(context.Background(), tc.id, enums.CapBrowseInventory)
			if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
				t.Fatalf("expected unauthorized, got %v", err)
			}
			if reason := pkgerrors.As(err).Details().(map[string]any)["reason"]; reason != tc.reason {
				t.Fatalf("expected reason %s, got %v", tc.reason, reason)
			}
		})
	}
}

func TestAuthorizeResolverErrorIsDependency(t *testing.T) {
	gate, resolver, _ := newGate(t)
	resolver.err = errors.New("connection refused")

	principal, err := gate.Authorize(context.Background(), uuid.New(), enums.CapBrowseInventory)
	if principal != nil {
		t.Fatalf("unexpected principal %+v", principal)
	}
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestAuthorizeNeverCachesGrants(t *testing.T) {
	admin := user(enums.RoleAdmin, true)
	gate, resolver, _ := newGate(t, admin)

	if _, err := gate.Authorize(context.Background(), admin.ID, enums.CapManageUsers); err != nil {
		t.Fatalf("authorize: %v", err)
	}

	resolver.users[admin.ID].Role = enums.RoleEmployee
	_, err := gate.Authorize(context.Background(), admin.ID, enums.CapManageUsers)
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("demotion must take effect on the next check, got %v", err)
	}

	resolver.users[admin.ID].IsActive = false
	_, err = gate.Authenticate(context.Background(), admin.ID)
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("disable must take effect on the next check, got %v", err)
	}
	if resolver.calls != 3 {
		t.Fatalf("expected 3 lookups, got %d", resolver.calls)
	}
}

func TestAuthorizeAny(t *testing.T) {
	employee := user(enums.RoleEmployee, true)
	gate, _, _ := newGate(t, employee)

	if _, err := gate.AuthorizeAny(context.Background(), employee.ID, enums.CapManageAssignments, enums.CapViewOwnAssignments); err != nil {
		t.Fatalf("expected one held capability to pass, got %v", err)
	}

	denied := [][]enums.Capability{
		{enums.CapManageAssignments, enums.CapManageDiscounts},
		nil,
		{enums.Capability("bogus")},
	}
	for _, caps := range denied {
		if _, err := gate.AuthorizeAny(context.Background(), employee.ID, caps...); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
			t.Errorf("%v: expected unauthorized, got %v", caps, err)
		}
	}
}

func TestNewGateRequiresResolver(t *testing.T) {
	if _, err := NewGate(GateParams{}); err == nil {
		t.Fatal("expected error without resolver")
	}
}
