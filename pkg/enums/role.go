package enums

import "fmt"

// Role is the principal's directory role.
type Role string

const (
	RoleAdmin    Role = "Admin"
	RoleEmployee Role = "Employee"
)

var validRoles = []Role{
	RoleAdmin,
	RoleEmployee,
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRole converts raw input into a Role. "User" is accepted as a legacy
// spelling of Employee.
func ParseRole(value string) (Role, error) {
	folded := foldToken(value)
	if folded == "user" {
		return RoleEmployee, nil
	}
	for _, candidate := range validRoles {
		if foldToken(string(candidate)) == folded {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}
