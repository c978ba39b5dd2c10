package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/assettrack-backend/pkg/config"
	"github.com/angelmondragon/assettrack-backend/pkg/db"
	"github.com/angelmondragon/assettrack-backend/pkg/db/models"
	"github.com/angelmondragon/assettrack-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/assettrack-backend/pkg/errors"
	"github.com/angelmondragon/assettrack-backend/pkg/security"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

var fieldValidator = validator.New()

// NewPrincipalInput is the raw profile for a principal about to be created.
type NewPrincipalInput struct {
	FullName   string
	Email      string
	Username   string
	Password   string
	Role       enums.Role
	Department *string
	EmployeeID *string
}

// Provision validates the profile, enforces uniqueness of email, username and
// employee id, hashes the password and inserts the principal through repo.
// Public sign-up and admin creation both go through here.
func Provision(ctx context.Context, repo *Repository, in NewPrincipalInput, passwordCfg config.PasswordConfig) (*models.User, error) {
	dto, err := prepareCreate(in, passwordCfg)
	if err != nil {
		return nil, err
	}
	if err := checkUnique(ctx, repo, uuid.Nil, &dto.Email, &dto.Username, dto.EmployeeCode); err != nil {
		return nil, err
	}

	user, err := repo.Create(ctx, dto)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "principal already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
	}
	return user, nil
}

func prepareCreate(in NewPrincipalInput, passwordCfg config.PasswordConfig) (CreateUserDTO, error) {
	var errs error
	fullName := strings.TrimSpace(in.FullName)
	if fullName == "" {
		errs = multierr.Append(errs, errors.New("fullName is required"))
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		errs = multierr.Append(errs, err)
	}
	username, err := normalizeUsername(in.Username)
	if err != nil {
		errs = multierr.Append(errs, err)
	}
	if err := security.ValidatePassword(in.Password, passwordCfg); err != nil {
		errs = multierr.Append(errs, err)
	}
	if !in.Role.IsValid() {
		errs = multierr.Append(errs, fmt.Errorf("role %q is not supported", in.Role))
	}
	if errs != nil {
		return CreateUserDTO{}, pkgerrors.Validation(errs)
	}

	hash, err := security.HashPassword(in.Password, passwordCfg)
	if err != nil {
		return CreateUserDTO{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	active := true
	return CreateUserDTO{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		DisplayName:  fullName,
		Role:         in.Role,
		Department:   trimmedOrNil(in.Department),
		EmployeeCode: trimmedOrNil(in.EmployeeID),
		IsActive:     &active,
	}, nil
}

// checkUnique reports CONFLICT when another principal (other than self)
// already holds one of the provided identifiers. Nil identifiers are skipped.
func checkUnique(ctx context.Context, repo *Repository, self uuid.UUID, email, username, employeeCode *string) error {
	type identifier struct {
		field string
		value *string
		find  func(context.Context, string) (*models.User, error)
	}
	for _, p := range []identifier{
		{"email", email, repo.FindByEmail},
		{"username", username, repo.FindByUsername},
		{"employeeId", employeeCode, repo.FindByEmployeeCode},
	} {
		if p.value == nil || *p.value == "" {
			continue
		}
		existing, err := p.find(ctx, *p.value)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check "+p.field)
		}
		if existing.ID != self {
			return pkgerrors.New(pkgerrors.CodeConflict, p.field+" already registered").
				WithDetails(map[string]any{"field": p.field})
		}
	}
	return nil
}

func normalizeEmail(value string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(value))
	if email == "" {
		return "", errors.New("email is required")
	}
	if err := fieldValidator.Var(email, "email"); err != nil {
		return "", errors.New("email is invalid")
	}
	return email, nil
}

func normalizeUsername(value string) (string, error) {
	username := strings.ToLower(strings.TrimSpace(value))
	if username == "" {
		return "", errors.New("username is required")
	}
	if strings.ContainsAny(username, " \t@") {
		return "", errors.New("username cannot contain spaces or @")
	}
	return username, nil
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
