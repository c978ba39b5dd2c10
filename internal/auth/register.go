package auth

import (
	"context"

	"github.com/angelmondragon/assettrack-backend/internal/users"
	"github.com/angelmondragon/assettrack-backend/pkg/config"
	"github.com/angelmondragon/assettrack-backend/pkg/db"
	"github.com/angelmondragon/assettrack-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/assettrack-backend/pkg/errors"
	"gorm.io/gorm"
)

// RegisterRequest is the public sign-up payload. Sign-up always creates an
// Employee.
type RegisterRequest struct {
	FullName   string  `json:"fullName" validate:"required"`
	Email      string  `json:"email" validate:"required,email"`
	Username   string  `json:"username" validate:"required"`
	Password   string  `json:"password" validate:"required,min=8"`
	Department *string `json:"department,omitempty"`
	EmployeeID *string `json:"employeeId,omitempty"`
}

// RegisterService handles the sign-up transaction.
type RegisterService interface {
	Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error)
}

// RegisterServiceParams packages the dependencies for the registration flow.
type RegisterServiceParams struct {
	DB             *db.Client
	PasswordConfig config.PasswordConfig
}

type registerService struct {
	db          *db.Client
	passwordCfg config.PasswordConfig
	role        enums.Role
}

// NewRegisterService builds a registration service with the provided dependencies.
func NewRegisterService(params RegisterServiceParams) (RegisterService, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database client required")
	}
	return &registerService{
		db:          params.DB,
		passwordCfg: params.PasswordConfig,
		role:        enums.RoleEmployee,
	}, nil
}

func (s *registerService) Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error) {
	var created *users.UserDTO
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		user, err := users.Provision(ctx, users.NewRepository(tx), users.NewPrincipalInput{
			FullName:   req.FullName,
			Email:      req.Email,
			Username:   req.Username,
			Password:   req.Password,
			Role:       s.role,
			Department: req.Department,
			EmployeeID: req.EmployeeID,
		}, s.passwordCfg)
		if err != nil {
			return err
		}
		created = users.FromModel(user)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}
