package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/assettrack-backend/internal/authz"
	"github.com/angelmondragon/assettrack-backend/pkg/config"
	"github.com/angelmondragon/assettrack-backend/pkg/db"
	"github.com/angelmondragon/assettrack-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/assettrack-backend/pkg/errors"
	"github.com/angelmondragon/assettrack-backend/pkg/logger"
	"github.com/angelmondragon/assettrack-backend/pkg/security"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

const tempPasswordLength = 16

// Service manages the principal directory.
type Service interface {
	Create(ctx context.Context, actorID uuid.UUID, req CreateUserRequest) (*CreatedUser, error)
	List(ctx context.Context, actorID uuid.UUID) ([]UserDTO, error)
	ListEmployees(ctx context.Context, actorID uuid.UUID) ([]UserDTO, error)
	Update(ctx context.Context, actorID, userID uuid.UUID, req UpdateUserRequest) (*UserDTO, error)
	Disable(ctx context.Context, actorID, userID uuid.UUID) error
	Me(ctx context.Context, actorID uuid.UUID) (*MeDTO, error)
}

// ServiceParams wires the directory service.
type ServiceParams struct {
	Repo           *Repository
	Gate           authz.Authorizer
	PasswordConfig config.PasswordConfig
	Logger         *logger.Logger
}

type service struct {
	repo        *Repository
	gate        authz.Authorizer
	passwordCfg config.PasswordConfig
	logg        *logger.Logger
}

// NewService builds the directory service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if params.Gate == nil {
		return nil, fmt.Errorf("authorization gate required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:        params.Repo,
		gate:        params.Gate,
		passwordCfg: params.PasswordConfig,
		logg:        logg,
	}, nil
}

func (s *service) Create(ctx context.Context, actorID uuid.UUID, req CreateUserRequest) (*CreatedUser, error) {
	if _, err := s.gate.Authorize(ctx, actorID, enums.CapManageUsers); err != nil {
		return nil, err
	}

	role, err := enums.ParseRole(req.Role)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role")
	}

	password := req.Password
	generated := ""
	if strings.TrimSpace(password) == "" {
		generated, err = security.GenerateTempPassword(tempPasswordLength)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate password")
		}
		password = generated
	}

	user, err := Provision(ctx, s.repo, NewPrincipalInput{
		FullName:   req.FullName,
		Email:      req.Email,
		Username:   req.Username,
		Password:   password,
		Role:       role,
		Department: req.Department,
		EmployeeID: req.EmployeeID,
	}, s.passwordCfg)
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"actor_id": actorID.String(),
		"user_id":  user.ID.String(),
		"role":     user.Role,
	})
	s.logg.Info(logCtx, "user.created")

	return &CreatedUser{User: FromModel(user), TemporaryPassword: generated}, nil
}

func (s *service) List(ctx context.Context, actorID uuid.UUID) ([]UserDTO, error) {
	if _, err := s.gate.Authorize(ctx, actorID, enums.CapManageUsers); err != nil {
		return nil, err
	}
	rows, err := s.repo.List(ctx, ListFilter{})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list users")
	}
	return FromModels(rows), nil
}

func (s *service) ListEmployees(ctx context.Context, actorID uuid.UUID) ([]UserDTO, error) {
	if _, err := s.gate.AuthorizeAny(ctx, actorID,
		enums.CapManageUsers,
		enums.CapManageAssignments,
		enums.CapManageDiscounts,
	); err != nil {
		return nil, err
	}
	role := enums.RoleEmployee
	rows, err := s.repo.List(ctx, ListFilter{Role: &role, ActiveOnly: true})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list employees")
	}
	return FromModels(rows), nil
}

func (s *service) Update(ctx context.Context, actorID, userID uuid.UUID, req UpdateUserRequest) (*UserDTO, error) {
	if err := s.authorizeUpdate(ctx, actorID, userID, req); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, notFoundOrInternal(err, "user not found", "load user")
	}

	updates, email, employeeCode, err := s.buildUpdates(actorID, userID, req)
	if err != nil {
		return nil, err
	}
	if err := checkUnique(ctx, s.repo, existing.ID, email, nil, employeeCode); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, userID, updates); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "principal already exists")
		}
		return nil, notFoundOrInternal(err, "user not found", "update user")
	}

	updated, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload user")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"actor_id": actorID.String(),
		"user_id":  userID.String(),
	})
	s.logg.Info(logCtx, "user.updated")
	return FromModel(updated), nil
}

// authorizeUpdate lets a principal edit their own name and department; every
// other edit needs ManageUsers.
func (s *service) authorizeUpdate(ctx context.Context, actorID, userID uuid.UUID, req UpdateUserRequest) error {
	selfEdit := actorID == userID &&
		req.Email == nil &&
		req.Role == nil &&
		!req.EmployeeID.Set
	if selfEdit {
		_, err := s.gate.Authenticate(ctx, actorID)
		return err
	}
	_, err := s.gate.Authorize(ctx, actorID, enums.CapManageUsers)
	return err
}

func (s *service) buildUpdates(actorID, userID uuid.UUID, req UpdateUserRequest) (map[string]any, *string, *string, error) {
	updates := map[string]any{}
	var errs error
	var email, employeeCode *string

	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if name == "" {
			errs = multierr.Append(errs, errors.New("fullName cannot be blank"))
		} else {
			updates["display_name"] = name
		}
	}
	if req.Email != nil {
		normalized, err := normalizeEmail(*req.Email)
		if err != nil {
			errs = multierr.Append(errs, err)
		} else {
			email = &normalized
			updates["email"] = normalized
		}
	}
	if req.Role != nil {
		role, err := enums.ParseRole(*req.Role)
		switch {
		case err != nil:
			errs = multierr.Append(errs, err)
		case actorID == userID:
			errs = multierr.Append(errs, errors.New("cannot change your own role"))
		default:
			updates["role"] = role
		}
	}
	if req.Department.Set {
		updates["department"] = trimmedOrNil(req.Department.Value)
	}
	if req.EmployeeID.Set {
		employeeCode = trimmedOrNil(req.EmployeeID.Value)
		updates["employee_code"] = employeeCode
	}
	if errs != nil {
		return nil, nil, nil, pkgerrors.Validation(errs)
	}
	return updates, email, employeeCode, nil
}

func (s *service) Disable(ctx context.Context, actorID, userID uuid.UUID) error {
	if _, err := s.gate.Authorize(ctx, actorID, enums.CapManageUsers); err != nil {
		return err
	}
	if actorID == userID {
		return pkgerrors.New(pkgerrors.CodeValidation, "cannot disable your own account")
	}
	if err := s.repo.Update(ctx, userID, map[string]any{"is_active": false}); err != nil {
		return notFoundOrInternal(err, "user not found", "disable user")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"actor_id": actorID.String(),
		"user_id":  userID.String(),
	})
	s.logg.Info(logCtx, "user.disabled")
	return nil
}

func (s *service) Me(ctx context.Context, actorID uuid.UUID) (*MeDTO, error) {
	principal, err := s.gate.Authenticate(ctx, actorID)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.FindByID(ctx, principal.ID)
	if err != nil {
		return nil, notFoundOrInternal(err, "user not found", "load profile")
	}
	return &MeDTO{
		UserDTO:      *FromModel(user),
		Capabilities: authz.CapabilitiesFor(user.Role),
	}, nil
}

func notFoundOrInternal(err error, notFoundMsg, internalMsg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFoundMsg)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, internalMsg)
}
