package enums

import "fmt"

// ItemStatus tracks where an item is in its custody lifecycle.
type ItemStatus string

const (
	ItemStatusAvailable   ItemStatus = "Available"
	ItemStatusAssigned    ItemStatus = "Assigned"
	ItemStatusUnderRepair ItemStatus = "Under Repair"
	ItemStatusDamaged     ItemStatus = "Damaged"
	ItemStatusDisposed    ItemStatus = "Disposed"
)

var validItemStatuses = []ItemStatus{
	ItemStatusAvailable,
	ItemStatusAssigned,
	ItemStatusUnderRepair,
	ItemStatusDamaged,
	ItemStatusDisposed,
}

// ItemStatuses returns every status in display order.
func ItemStatuses() []ItemStatus {
	out := make([]ItemStatus, len(validItemStatuses))
	copy(out, validItemStatuses)
	return out
}

func (s ItemStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ItemStatus.
func (s ItemStatus) IsValid() bool {
	for _, candidate := range validItemStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition may leave the status.
func (s ItemStatus) IsTerminal() bool {
	return s == ItemStatusDisposed
}

// ParseItemStatus converts raw input into an ItemStatus. Matching ignores
// case and separators.
func ParseItemStatus(value string) (ItemStatus, error) {
	folded := foldToken(value)
	for _, candidate := range validItemStatuses {
		if foldToken(string(candidate)) == folded {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid item status %q", value)
}
