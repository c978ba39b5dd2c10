package enums

import "fmt"

// MaintenancePriority ranks a reported issue.
type MaintenancePriority string

const (
	MaintenancePriorityLow    MaintenancePriority = "Low"
	MaintenancePriorityMedium MaintenancePriority = "Medium"
	MaintenancePriorityHigh   MaintenancePriority = "High"
)

var validMaintenancePriorities = []MaintenancePriority{
	MaintenancePriorityLow,
	MaintenancePriorityMedium,
	MaintenancePriorityHigh,
}

func (p MaintenancePriority) String() string {
	return string(p)
}

// IsValid reports whether the value is a known MaintenancePriority.
func (p MaintenancePriority) IsValid() bool {
	for _, candidate := range validMaintenancePriorities {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseMaintenancePriority converts raw input into a MaintenancePriority.
func ParseMaintenancePriority(value string) (MaintenancePriority, error) {
	folded := foldToken(value)
	for _, candidate := range validMaintenancePriorities {
		if foldToken(string(candidate)) == folded {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid maintenance priority %q", value)
}

// MaintenanceStatus tracks a maintenance request through triage.
type MaintenanceStatus string

const (
	MaintenanceStatusOpen       MaintenanceStatus = "Open"
	MaintenanceStatusInProgress MaintenanceStatus = "In Progress"
	MaintenanceStatusResolved   MaintenanceStatus = "Resolved"
)

var validMaintenanceStatuses = []MaintenanceStatus{
	MaintenanceStatusOpen,
	MaintenanceStatusInProgress,
	MaintenanceStatusResolved,
}

// maintenanceTransitions lists the allowed forward moves.
var maintenanceTransitions = map[MaintenanceStatus][]MaintenanceStatus{
	MaintenanceStatusOpen:       {MaintenanceStatusInProgress, MaintenanceStatusResolved},
	MaintenanceStatusInProgress: {MaintenanceStatusResolved},
}

func (s MaintenanceStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known MaintenanceStatus.
func (s MaintenanceStatus) IsValid() bool {
	for _, candidate := range validMaintenanceStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s MaintenanceStatus) CanTransitionTo(next MaintenanceStatus) bool {
	for _, candidate := range maintenanceTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseMaintenanceStatus converts raw input into a MaintenanceStatus.
func ParseMaintenanceStatus(value string) (MaintenanceStatus, error) {
	folded := foldToken(value)
	for _, candidate := range validMaintenanceStatuses {
		if foldToken(string(candidate)) == folded {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid maintenance status %q", value)
}
