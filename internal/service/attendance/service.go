package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/leave"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/location"
)

// Config holds the normalization rules
type Config struct {
	PartialDayMinutes    int  // default: 240
	OpenSessionIsPartial bool // clock-in without clock-out counts as a partial day
	LeaveCountsWeekends  bool
}

type AttendanceServiceImpl struct {
	attendanceRepo attendance.AttendanceRepository
	scheduleRepo   location.ScheduleRepository
	leaveRepo      leave.LeaveRequestRepository
	employeeRepo   employee.EmployeeRepository
	locationSvc    location.Service
	config         Config
}

func NewAttendanceService(
	attendanceRepo attendance.AttendanceRepository,
	scheduleRepo location.ScheduleRepository,
	leaveRepo leave.LeaveRequestRepository,
	employeeRepo employee.EmployeeRepository,
	locationSvc location.Service,
	cfg Config,
) attendance.AttendanceService {
	if cfg.PartialDayMinutes == 0 {
		cfg.PartialDayMinutes = 240
	}
	return &AttendanceServiceImpl{
		attendanceRepo: attendanceRepo,
		scheduleRepo:   scheduleRepo,
		leaveRepo:      leaveRepo,
		employeeRepo:   employeeRepo,
		locationSvc:    locationSvc,
		config:         cfg,
	}
}

// ClockIn opens the staff attendance record for the day, stamped with the scheduled location.
func (s *AttendanceServiceImpl) ClockIn(ctx context.Context, companyID string, req attendance.ClockInRequest) (attendance.StaffAttendance, error) {
	if err := req.Validate(); err != nil {
		return attendance.StaffAttendance{}, err
	}
	date := attendance.DateOf(req.At)

	if _, err := s.employeeRepo.GetByID(ctx, req.EmployeeID, companyID); err != nil {
		return attendance.StaffAttendance{}, err
	}

	existing, err := s.attendanceRepo.GetStaffByEmployeeAndDate(ctx, companyID, req.EmployeeID, date)
	if err == nil {
		return attendance.StaffAttendance{}, fmt.Errorf("employee %s on %s (attendance %s): %w",
			req.EmployeeID, date.Format("2006-01-02"), existing.ID, attendance.ErrAlreadyCheckedIn)
	}
	if !errors.Is(err, attendance.ErrAttendanceNotFound) {
		return attendance.StaffAttendance{}, err
	}

	worker := location.WorkerRef{Type: location.WorkerTypeStaff, ID: req.EmployeeID}
	locationID, err := s.locationSvc.StampLocation(ctx, companyID, worker, date, req.LocationID)
	if err != nil {
		return attendance.StaffAttendance{}, err
	}

	clockIn := req.At
	created, err := s.attendanceRepo.CreateStaff(ctx, attendance.StaffAttendance{
		CompanyID:  companyID,
		EmployeeID: req.EmployeeID,
		Date:       date,
		ClockIn:    &clockIn,
		LocationID: &locationID,
	})
	if err != nil {
		return attendance.StaffAttendance{}, err
	}

	slog.Info("Staff clocked in", "company_id", companyID, "employee_id", req.EmployeeID, "location_id", locationID)
	return created, nil
}

func (s *AttendanceServiceImpl) ClockOut(ctx context.Context, companyID string, req attendance.ClockOutRequest) (attendance.StaffAttendance, error) {
	if err := req.Validate(); err != nil {
		return attendance.StaffAttendance{}, err
	}

	existing, err := s.attendanceRepo.GetStaffByEmployeeAndDate(ctx, companyID, req.EmployeeID, req.Day)
	if err != nil {
		if errors.Is(err, attendance.ErrAttendanceNotFound) {
			return attendance.StaffAttendance{}, fmt.Errorf("employee %s on %s: %w", req.EmployeeID, req.Day.Format("2006-01-02"), attendance.ErrNotCheckedIn)
		}
		return attendance.StaffAttendance{}, err
	}
	if existing.ClockOut != nil {
		return attendance.StaffAttendance{}, fmt.Errorf("attendance %s: %w", existing.ID, attendance.ErrAlreadyCheckedOut)
	}
	if existing.ClockIn != nil && req.At.Before(*existing.ClockIn) {
		return attendance.StaffAttendance{}, fmt.Errorf("attendance %s: clock-out before clock-in: %w", existing.ID, attendance.ErrInvalidPeriod)
	}

	return s.attendanceRepo.UpdateStaffClockOut(ctx, existing.ID, companyID, req.At, req.Status)
}

// RecordLocumStatus records WORKED or NO_SHOW for a booking. Retries overwrite the status
// of the same record rather than adding another.
func (s *AttendanceServiceImpl) RecordLocumStatus(ctx context.Context, companyID string, req attendance.RecordLocumStatusRequest) (attendance.LocumAttendance, error) {
	if err := req.Validate(); err != nil {
		return attendance.LocumAttendance{}, err
	}

	booking, err := s.scheduleRepo.GetBookingWithBlock(ctx, req.BookingID, companyID)
	if err != nil {
		return attendance.LocumAttendance{}, err
	}
	date := attendance.DateOf(booking.Block.Date)

	worker := location.WorkerRef{Type: location.WorkerTypeLocum, ID: req.BookingID}
	locationID, err := s.locationSvc.StampLocation(ctx, companyID, worker, date, req.LocationID)
	if err != nil {
		return attendance.LocumAttendance{}, err
	}

	return s.attendanceRepo.UpsertLocum(ctx, attendance.LocumAttendance{
		CompanyID:  companyID,
		BookingID:  req.BookingID,
		Date:       date,
		Status:     req.Status,
		LocationID: &locationID,
	})
}
