package enums

import "fmt"

// AssignmentStatus is derived from assignment dates and never stored.
type AssignmentStatus string

const (
	AssignmentStatusActive   AssignmentStatus = "Active"
	AssignmentStatusOverdue  AssignmentStatus = "Overdue"
	AssignmentStatusReturned AssignmentStatus = "Returned"
)

var validAssignmentStatuses = []AssignmentStatus{
	AssignmentStatusActive,
	AssignmentStatusOverdue,
	AssignmentStatusReturned,
}

func (s AssignmentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known AssignmentStatus.
func (s AssignmentStatus) IsValid() bool {
	for _, candidate := range validAssignmentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseAssignmentStatus converts raw input into an AssignmentStatus.
func ParseAssignmentStatus(value string) (AssignmentStatus, error) {
	folded := foldToken(value)
	for _, candidate := range validAssignmentStatuses {
		if foldToken(string(candidate)) == folded {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid assignment status %q", value)
}
