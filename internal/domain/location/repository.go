package location

import (
	"context"
	"time"
)

// ScheduleRepository reads the scheduling data the resolver depends on.
// All methods include companyID to keep reads tenant-scoped.
type ScheduleRepository interface {
	GetLocationByID(ctx context.Context, id string, companyID string) (Location, error)
	ListStaffBlocksOnDate(ctx context.Context, companyID string, employeeID string, date time.Time) ([]ScheduleBlock, error)
	ListAssignmentsInPeriod(ctx context.Context, companyID string, start, end time.Time) ([]Assignment, error)
	GetBookingWithBlock(ctx context.Context, bookingID string, companyID string) (BookingWithBlock, error)
	ListBookingsInPeriod(ctx context.Context, companyID string, start, end time.Time) ([]BookingWithBlock, error)

	// Cache maintenance
	ListBookingCacheDrift(ctx context.Context, companyID string) ([]BookingDrift, error)
	UpdateBookingCachedLocation(ctx context.Context, bookingID string, companyID string, locationID string) error
	ListCompaniesWithBookingDrift(ctx context.Context) ([]string, error)
}
