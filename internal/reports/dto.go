package reports

import (
	"time"

	"github.com/angelmondragon/assettrack-backend/pkg/enums"
)

const (
	ScopeAll  = "all"
	ScopeSelf = "self"
)

// Overview is the dashboard summary. TotalPrincipals is nil when the caller
// may not see the directory.
type Overview struct {
	TotalItems         int64     `json:"totalItems"`
	Available          int64     `json:"available"`
	Assigned           int64     `json:"assigned"`
	UnderRepair        int64     `json:"underRepair"`
	Damaged            int64     `json:"damaged"`
	Disposed           int64     `json:"disposed"`
	TotalPrincipals    *int64    `json:"totalPrincipals,omitempty"`
	ActiveAssignments  int64     `json:"activeAssignments"`
	OverdueAssignments int64     `json:"overdueAssignments"`
	Scope              string    `json:"scope"`
	GeneratedAt        time.Time `json:"generatedAt"`
}

// CategorySummary summarises one category.
type CategorySummary struct {
	Category string                     `json:"category"`
	Total    int64                      `json:"total"`
	ByStatus map[enums.ItemStatus]int64 `json:"byStatus"`
}
