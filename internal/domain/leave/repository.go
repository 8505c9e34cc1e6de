package leave

import (
	"context"
	"time"
)

type LeaveRequestRepository interface {
	// ListApprovedOverlapping returns approved requests that intersect [start, end].
	ListApprovedOverlapping(ctx context.Context, companyID string, start, end time.Time) ([]LeaveRequest, error)
}
