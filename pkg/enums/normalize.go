package enums

import "strings"

// foldToken lowercases value and strips separators so "Under Repair",
// "under_repair" and "UnderRepair" compare equal.
func foldToken(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range strings.ToLower(strings.TrimSpace(value)) {
		switch r {
		case ' ', '_', '-':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
