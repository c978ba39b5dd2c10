package authz

import "github.com/angelmondragon/assettrack-backend/pkg/enums"

// policy is the single source of role grants. Adding a capability to a role
// is an edit here, never a new conditional at a call site.
var policy = map[enums.Role]map[enums.Capability]struct{}{
	enums.RoleAdmin: grant(enums.AllCapabilities()...),
	enums.RoleEmployee: grant(
		enums.CapViewOwnAssignments,
		enums.CapReportIssue,
		enums.CapViewReports,
		enums.CapBrowseInventory,
	),
}

func grant(caps ...enums.Capability) map[enums.Capability]struct{} {
	out := make(map[enums.Capability]struct{}, len(caps))
	for _, c := range caps {
		out[c] = struct{}{}
	}
	return out
}

// Allows reports whether role holds capability. Unknown roles and unknown
// capabilities are never allowed.
func Allows(role enums.Role, capability enums.Capability) bool {
	caps, ok := policy[role]
	if !ok {
		return false
	}
	_, ok = caps[capability]
	return ok
}

// CapabilitiesFor lists the grants of role in declaration order.
func CapabilitiesFor(role enums.Role) []enums.Capability {
	out := []enums.Capability{}
	for _, c := range enums.AllCapabilities() {
		if Allows(role, c) {
			out = append(out, c)
		}
	}
	return out
}
