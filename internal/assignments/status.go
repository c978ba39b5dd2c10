package assignments

import (
	"time"

	"github.com/angelmondragon/assettrack-backend/pkg/db/models"
	"github.com/angelmondragon/assettrack-backend/pkg/enums"
)

// DeriveStatus computes the assignment status at now. The status is never
// stored, so overdue assignments need no background job.
func DeriveStatus(a *models.Assignment, now time.Time) enums.AssignmentStatus {
	if a.ActualReturnDate != nil {
		return enums.AssignmentStatusReturned
	}
	if a.ExpectedReturnDate != nil && a.ExpectedReturnDate.Before(now) {
		return enums.AssignmentStatusOverdue
	}
	return enums.AssignmentStatusActive
}
