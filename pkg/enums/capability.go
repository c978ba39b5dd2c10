package enums

import "fmt"

// Capability names an operation family the authorization gate can grant.
type Capability string

const (
	CapManageInventory    Capability = "manage_inventory"
	CapManageUsers        Capability = "manage_users"
	CapManageAssignments  Capability = "manage_assignments"
	CapManageMaintenance  Capability = "manage_maintenance"
	CapManageDiscounts    Capability = "manage_discounts"
	CapViewOwnAssignments Capability = "view_own_assignments"
	CapReportIssue        Capability = "report_issue"
	CapViewReports        Capability = "view_reports"
	CapBrowseInventory    Capability = "browse_inventory"
)

var validCapabilities = []Capability{
	CapManageInventory,
	CapManageUsers,
	CapManageAssignments,
	CapManageMaintenance,
	CapManageDiscounts,
	CapViewOwnAssignments,
	CapReportIssue,
	CapViewReports,
	CapBrowseInventory,
}

// AllCapabilities returns a copy of every known capability.
func AllCapabilities() []Capability {
	out := make([]Capability, len(validCapabilities))
	copy(out, validCapabilities)
	return out
}

func (c Capability) String() string {
	return string(c)
}

// IsValid reports whether the value is a known Capability.
func (c Capability) IsValid() bool {
	for _, candidate := range validCapabilities {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCapability converts raw input into a Capability.
func ParseCapability(value string) (Capability, error) {
	for _, candidate := range validCapabilities {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid capability %q", value)
}
