package location

import (
	"context"
	"time"
)

type FactKind string

const (
	FactKindStaff FactKind = "staff"
	FactKindLocum FactKind = "locum"
)

type Service interface {
	Resolve(ctx context.Context, companyID string, worker WorkerRef, date time.Time) (Location, error)
	StampLocation(ctx context.Context, companyID string, worker WorkerRef, date time.Time, explicit *string) (string, error)
	Check(ctx context.Context, companyID string, worker WorkerRef, date time.Time, stored *string) (string, *LocationIssue, error)

	ListBookingCacheDrift(ctx context.Context, companyID string) ([]BookingDrift, error)
	RefreshBookingCache(ctx context.Context, companyID string) (int, error)
	RefreshAllBookingCaches(ctx context.Context) error
	RepairFactLocation(ctx context.Context, companyID string, actorID string, kind FactKind, factID string) (RepairResult, error)
}
