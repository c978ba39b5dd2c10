package users

import (
	"context"

	"github.com/angelmondragon/assettrack-backend/pkg/config"
	"github.com/angelmondragon/assettrack-backend/pkg/db/models"
	"github.com/angelmondragon/assettrack-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/assettrack-backend/pkg/errors"
	"github.com/angelmondragon/assettrack-backend/pkg/security"
)

// BootstrapResult reports what BootstrapAdmin did.
type BootstrapResult struct {
	User *models.User
	// Created is false when an active Admin already existed.
	Created bool
	// GeneratedPassword is set only when no password was supplied.
	GeneratedPassword string
}

// BootstrapAdmin creates the first Admin so a fresh deployment can be
// administered. It does nothing once any active Admin exists.
func BootstrapAdmin(ctx context.Context, repo *Repository, in NewPrincipalInput, passwordCfg config.PasswordConfig) (BootstrapResult, error) {
	if repo == nil {
		return BootstrapResult{}, pkgerrors.New(pkgerrors.CodeInternal, "users repository required")
	}
	admins, err := repo.CountByRole(ctx, enums.RoleAdmin)
	if err != nil {
		return BootstrapResult{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count admins")
	}
	if admins > 0 {
		return BootstrapResult{}, nil
	}

	var generated string
	if in.Password == "" {
		generated, err = security.GenerateTempPassword(tempPasswordLength)
		if err != nil {
			return BootstrapResult{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate password")
		}
		in.Password = generated
	}
	in.Role = enums.RoleAdmin

	user, err := Provision(ctx, repo, in, passwordCfg)
	if err != nil {
		return BootstrapResult{}, err
	}
	return BootstrapResult{User: user, Created: true, GeneratedPassword: generated}, nil
}
