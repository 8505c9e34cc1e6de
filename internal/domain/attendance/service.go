package attendance

import "context"

// Aggregator turns a period's attendance facts into normalized lines.
type Aggregator interface {
	Aggregate(ctx context.Context, req AggregateRequest) (AggregateResult, error)
}

type AttendanceService interface {
	Aggregator

	ClockIn(ctx context.Context, companyID string, req ClockInRequest) (StaffAttendance, error)
	ClockOut(ctx context.Context, companyID string, req ClockOutRequest) (StaffAttendance, error)
	RecordLocumStatus(ctx context.Context, companyID string, req RecordLocumStatusRequest) (LocumAttendance, error)
}
