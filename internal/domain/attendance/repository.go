package attendance

import (
	"context"
	"time"
)

type AttendanceRepository interface {
	// Staff clock records
	ListStaffInPeriod(ctx context.Context, companyID string, start, end time.Time) ([]StaffAttendance, error)
	GetStaffByID(ctx context.Context, id string, companyID string) (StaffAttendance, error)
	GetStaffByEmployeeAndDate(ctx context.Context, companyID string, employeeID string, date time.Time) (StaffAttendance, error)
	CreateStaff(ctx context.Context, a StaffAttendance) (StaffAttendance, error)
	UpdateStaffClockOut(ctx context.Context, id string, companyID string, clockOut time.Time, status *string) (StaffAttendance, error)
	UpdateStaffLocation(ctx context.Context, id string, companyID string, locationID string) error

	// Locum presence records
	ListLocumInPeriod(ctx context.Context, companyID string, start, end time.Time) ([]LocumAttendance, error)
	GetLocumByID(ctx context.Context, id string, companyID string) (LocumAttendance, error)
	// UpsertLocum keeps one record per booking and date; a retry only updates status.
	UpsertLocum(ctx context.Context, a LocumAttendance) (LocumAttendance, error)
	UpdateLocumLocation(ctx context.Context, id string, companyID string, locationID string) error
}
