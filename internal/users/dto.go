package users

import (
	"time"

	"github.com/angelmondragon/assettrack-backend/pkg/db/models"
	"github.com/angelmondragon/assettrack-backend/pkg/enums"
	"github.com/angelmondragon/assettrack-backend/pkg/types"
	"github.com/google/uuid"
)

// UserDTO is the transport shape that omits credentials.
type UserDTO struct {
	ID          uuid.UUID  `json:"id"`
	FullName    string     `json:"fullName"`
	Email       string     `json:"email"`
	Username    string     `json:"username"`
	Role        enums.Role `json:"role"`
	Department  *string    `json:"department,omitempty"`
	EmployeeID  *string    `json:"employeeId,omitempty"`
	IsActive    bool       `json:"isActive"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// MeDTO adds the caller's current grants to the profile.
type MeDTO struct {
	UserDTO
	Capabilities []enums.Capability `json:"capabilities"`
}

// CreateUserDTO holds the data the repo needs to persist a principal.
type CreateUserDTO struct {
	Email        string
	Username     string
	PasswordHash string
	DisplayName  string
	Role         enums.Role
	Department   *string
	EmployeeCode *string
	IsActive     *bool
}

// CreateUserRequest is the admin payload for adding a principal. An empty
// password yields a generated temporary one.
type CreateUserRequest struct {
	FullName   string  `json:"fullName" validate:"required"`
	Email      string  `json:"email" validate:"required,email"`
	Username   string  `json:"username" validate:"required"`
	Password   string  `json:"password,omitempty"`
	Role       string  `json:"role" validate:"required,role"`
	Department *string `json:"department,omitempty"`
	EmployeeID *string `json:"employeeId,omitempty"`
}

// CreatedUser carries the new principal and, when one was generated, the
// temporary password to hand over.
type CreatedUser struct {
	User              *UserDTO `json:"user"`
	TemporaryPassword string   `json:"temporaryPassword,omitempty"`
}

// UpdateUserRequest patches a principal. Absent fields are left alone.
type UpdateUserRequest struct {
	FullName   *string                `json:"fullName,omitempty"`
	Email      *string                `json:"email,omitempty"`
	Role       *string                `json:"role,omitempty"`
	Department types.Nullable[string] `json:"department"`
	EmployeeID types.Nullable[string] `json:"employeeId"`
}

// ListFilter narrows a principal listing.
type ListFilter struct {
	Role       *enums.Role
	ActiveOnly bool
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:          u.ID,
		FullName:    u.DisplayName,
		Email:       u.Email,
		Username:    u.Username,
		Role:        u.Role,
		Department:  u.Department,
		EmployeeID:  u.EmployeeCode,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func FromModels(rows []models.User) []UserDTO {
	out := make([]UserDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}

func (c CreateUserDTO) ToModel() *models.User {
	isActive := true
	if c.IsActive != nil {
		isActive = *c.IsActive
	}
	role := c.Role
	if role == "" {
		role = enums.RoleEmployee
	}
	return &models.User{
		Email:        c.Email,
		Username:     c.Username,
		PasswordHash: c.PasswordHash,
		DisplayName:  c.DisplayName,
		Role:         role,
		Department:   c.Department,
		EmployeeCode: c.EmployeeCode,
		IsActive:     isActive,
	}
}
