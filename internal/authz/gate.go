package authz

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/assettrack-backend/pkg/db/models"
	"github.com/angelmondragon/assettrack-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/assettrack-backend/pkg/errors"
	"github.com/angelmondragon/assettrack-backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Denial reasons reported in error details and metrics.
const (
	ReasonMissingPrincipal  = "missing_principal"
	ReasonUnknownPrincipal  = "unknown_principal"
	ReasonDisabled          = "principal_disabled"
	ReasonUnknownRole       = "unknown_role"
	ReasonUnknownCapability = "unknown_capability"
	ReasonMissingCapability = "missing_capability"
)

// authenticatedLabel tags denials from Authenticate, which checks no capability.
const authenticatedLabel = "authenticated"

// Principal is the caller as resolved for one check.
type Principal struct {
	ID          uuid.UUID
	DisplayName string
	Email       string
	Role        enums.Role
	Department  *string
	IsActive    bool
}

// Can reports whether the principal's role holds capability.
func (p *Principal) Can(capability enums.Capability) bool {
	if p == nil {
		return false
	}
	return Allows(p.Role, capability)
}

// Authorizer is the contract the lifecycle services depend on.
type Authorizer interface {
	Authenticate(ctx context.Context, principalID uuid.UUID) (*Principal, error)
	Authorize(ctx context.Context, principalID uuid.UUID, capability enums.Capability) (*Principal, error)
	AuthorizeAny(ctx context.Context, principalID uuid.UUID, capabilities ...enums.Capability) (*Principal, error)
}

type principalResolver interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type denialRecorder interface {
	IncDenied(capability, reason string)
}

// GateParams wires the gate.
type GateParams struct {
	Principals principalResolver
	Metrics    denialRecorder
	Logger     *logger.Logger
}

// Gate decides allow or deny for a principal and capability. The principal is
// loaded on every call; no grant outlives the request that produced it.
type Gate struct {
	principals principalResolver
	metrics    denialRecorder
	logg       *logger.Logger
}

// NewGate builds a Gate.
func NewGate(params GateParams) (*Gate, error) {
	if params.Principals == nil {
		return nil, fmt.Errorf("principal resolver required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Gate{
		principals: params.Principals,
		metrics:    params.Metrics,
		logg:       logg,
	}, nil
}

// Authenticate resolves an active principal without checking a capability.
func (g *Gate) Authenticate(ctx context.Context, principalID uuid.UUID) (*Principal, error) {
	return g.resolve(ctx, principalID, authenticatedLabel)
}

// Authorize allows the call when the principal's role holds capability.
func (g *Gate) Authorize(ctx context.Context, principalID uuid.UUID, capability enums.Capability) (*Principal, error) {
	return g.AuthorizeAny(ctx, principalID, capability)
}

// AuthorizeAny allows the call when the role holds at least one of
// capabilities. An empty list always denies.
func (g *Gate) AuthorizeAny(ctx context.Context, principalID uuid.UUID, capabilities ...enums.Capability) (*Principal, error) {
	label := capabilityLabel(capabilities)
	for _, c := range capabilities {
		if !c.IsValid() {
			return nil, g.deny(ctx, principalID, label, ReasonUnknownCapability)
		}
	}
	if len(capabilities) == 0 {
		return nil, g.deny(ctx, principalID, label, ReasonUnknownCapability)
	}

	principal, err := g.resolve(ctx, principalID, label)
	if err != nil {
		return nil, err
	}
	for _, c := range capabilities {
		if principal.Can(c) {
			return principal, nil
		}
	}
	return nil, g.deny(ctx, principalID, label, ReasonMissingCapability)
}

func (g *Gate) resolve(ctx context.Context, principalID uuid.UUID, label string) (*Principal, error) {
	if principalID == uuid.Nil {
		return nil, g.deny(ctx, principalID, label, ReasonMissingPrincipal)
	}

	user, err := g.principals.FindByID(ctx, principalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, g.deny(ctx, principalID, label, ReasonUnknownPrincipal)
		}
		if g.metrics != nil {
			g.metrics.IncDenied(label, "resolver_error")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve principal")
	}
	if user == nil {
		return nil, g.deny(ctx, principalID, label, ReasonUnknownPrincipal)
	}
	if !user.IsActive {
		return nil, g.deny(ctx, principalID, label, ReasonDisabled)
	}
	if !user.Role.IsValid() {
		return nil, g.deny(ctx, principalID, label, ReasonUnknownRole)
	}

	return &Principal{
		ID:          user.ID,
		DisplayName: user.DisplayName,
		Email:       user.Email,
		Role:        user.Role,
		Department:  user.Department,
		IsActive:    user.IsActive,
	}, nil
}

func (g *Gate) deny(ctx context.Context, principalID uuid.UUID, capability, reason string) error {
	if g.metrics != nil {
		g.metrics.IncDenied(capability, reason)
	}
	logCtx := g.logg.WithFields(ctx, map[string]any{
		"principal_id": principalID.String(),
		"capability":   capability,
		"reason":       reason,
	})
	g.logg.Warn(logCtx, "authz.denied")

	return pkgerrors.New(pkgerrors.CodeUnauthorized, "operation not permitted").
		WithDetails(map[string]any{
			"capability": capability,
			"reason":     reason,
		})
}

func capabilityLabel(capabilities []enums.Capability) string {
	parts := make([]string, 0, len(capabilities))
	for _, c := range capabilities {
		parts = append(parts, string(c))
	}
	return strings.Join(parts, "|")
}
