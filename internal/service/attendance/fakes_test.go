package attendance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/leave"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/location"
)

func inRange(d, start, end time.Time) bool {
	return !d.Before(start) && !d.After(end)
}

// fakeScheduleRepo serves blocks, assignments and bookings from memory.
type fakeScheduleRepo struct {
	mu          sync.Mutex
	locations   map[string]location.Location
	assignments []location.Assignment
	bookings    []location.BookingWithBlock
}

func newFakeScheduleRepo(locationIDs ...string) *fakeScheduleRepo {
	r := &fakeScheduleRepo{locations: make(map[string]location.Location)}
	for _, id := range locationIDs {
		r.locations[id] = location.Location{ID: id, CompanyID: testCompany, Name: "Clinic " + id}
	}
	return r
}

func (r *fakeScheduleRepo) assign(employeeID string, date time.Time, locationID string) {
	r.assignments = append(r.assignments, location.Assignment{
		ID:         fmt.Sprintf("asg-%d", len(r.assignments)+1),
		BlockID:    fmt.Sprintf("block-%s-%s", locationID, date.Format("0102")),
		EmployeeID: employeeID,
		Date:       date,
		LocationID: locationID,
	})
}

func (r *fakeScheduleRepo) book(bookingID string, date time.Time, blockLocation string, cached *string) {
	r.bookings = append(r.bookings, location.BookingWithBlock{
		Booking: location.LocumBooking{
			ID:               bookingID,
			BlockID:          "block-" + bookingID,
			CompanyID:        testCompany,
			Name:             "Locum " + bookingID,
			CachedLocationID: cached,
		},
		Block: location.ScheduleBlock{
			ID:         "block-" + bookingID,
			CompanyID:  testCompany,
			LocationID: blockLocation,
			Date:       date,
		},
	})
}

func (r *fakeScheduleRepo) GetLocationByID(ctx context.Context, id string, companyID string) (location.Location, error) {
	l, ok := r.locations[id]
	if !ok {
		return location.Location{}, fmt.Errorf("location %s: %w", id, location.ErrLocationNotFound)
	}
	return l, nil
}

func (r *fakeScheduleRepo) ListStaffBlocksOnDate(ctx context.Context, companyID string, employeeID string, date time.Time) ([]location.ScheduleBlock, error) {
	var out []location.ScheduleBlock
	for _, a := range r.assignments {
		if a.EmployeeID == employeeID && a.Date.Equal(date) {
			out = append(out, location.ScheduleBlock{ID: a.BlockID, CompanyID: companyID, LocationID: a.LocationID, Date: a.Date})
		}
	}
	return out, nil
}

func (r *fakeScheduleRepo) ListAssignmentsInPeriod(ctx context.Context, companyID string, start, end time.Time) ([]location.Assignment, error) {
	var out []location.Assignment
	for _, a := range r.assignments {
		if inRange(a.Date, start, end) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeScheduleRepo) GetBookingWithBlock(ctx context.Context, bookingID string, companyID string) (location.BookingWithBlock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, b := range r.bookings {
		if b.Booking.ID == bookingID {
			return b, nil
		}
	}
	return location.BookingWithBlock{}, fmt.Errorf("booking %s: %w", bookingID, location.ErrBookingNotFound)
}

func (r *fakeScheduleRepo) ListBookingsInPeriod(ctx context.Context, companyID string, start, end time.Time) ([]location.BookingWithBlock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []location.BookingWithBlock
	for _, b := range r.bookings {
		if inRange(b.Block.Date, start, end) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *fakeScheduleRepo) ListBookingCacheDrift(ctx context.Context, companyID string) ([]location.BookingDrift, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []location.BookingDrift
	for _, b := range r.bookings {
		if b.CacheDrifted() {
			out = append(out, location.BookingDrift{
				BookingID:       b.Booking.ID,
				BlockID:         b.Block.ID,
				Date:            b.Block.Date,
				CachedLocation:  b.Booking.CachedLocationID,
				BlockLocationID: b.Block.LocationID,
			})
		}
	}
	return out, nil
}

func (r *fakeScheduleRepo) UpdateBookingCachedLocation(ctx context.Context, bookingID string, companyID string, locationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.bookings {
		if r.bookings[i].Booking.ID == bookingID {
			loc := locationID
			r.bookings[i].Booking.CachedLocationID = &loc
			return nil
		}
	}
	return fmt.Errorf("booking %s: %w", bookingID, location.ErrBookingNotFound)
}

func (r *fakeScheduleRepo) ListCompaniesWithBookingDrift(ctx context.Context) ([]string, error) {
	drift, _ := r.ListBookingCacheDrift(ctx, testCompany)
	if len(drift) == 0 {
		return nil, nil
	}
	return []string{testCompany}, nil
}

type fakeAttendanceRepo struct {
	mu    sync.Mutex
	seq   int
	staff []attendance.StaffAttendance
	locum []attendance.LocumAttendance
}

func (r *fakeAttendanceRepo) nextID(prefix string) string {
	r.seq++
	return fmt.Sprintf("%s-%d", prefix, r.seq)
}

func (r *fakeAttendanceRepo) ListStaffInPeriod(ctx context.Context, companyID string, start, end time.Time) ([]attendance.StaffAttendance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []attendance.StaffAttendance
	for _, a := range r.staff {
		if inRange(a.Date, start, end) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAttendanceRepo) GetStaffByID(ctx context.Context, id string, companyID string) (attendance.StaffAttendance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.staff {
		if a.ID == id {
			return a, nil
		}
	}
	return attendance.StaffAttendance{}, attendance.ErrAttendanceNotFound
}

func (r *fakeAttendanceRepo) GetStaffByEmployeeAndDate(ctx context.Context, companyID string, employeeID string, date time.Time) (attendance.StaffAttendance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.staff {
		if a.EmployeeID == employeeID && a.Date.Equal(date) {
			return a, nil
		}
	}
	return attendance.StaffAttendance{}, attendance.ErrAttendanceNotFound
}

func (r *fakeAttendanceRepo) CreateStaff(ctx context.Context, a attendance.StaffAttendance) (attendance.StaffAttendance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a.ID = r.nextID("att")
	r.staff = append(r.staff, a)
	return a, nil
}

func (r *fakeAttendanceRepo) UpdateStaffClockOut(ctx context.Context, id string, companyID string, clockOut time.Time, status *string) (attendance.StaffAttendance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.staff {
		if r.staff[i].ID == id {
			r.staff[i].ClockOut = &clockOut
			r.staff[i].Status = status
			return r.staff[i], nil
		}
	}
	return attendance.StaffAttendance{}, attendance.ErrAttendanceNotFound
}

func (r *fakeAttendanceRepo) UpdateStaffLocation(ctx context.Context, id string, companyID string, locationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.staff {
		if r.staff[i].ID == id {
			r.staff[i].LocationID = &locationID
			return nil
		}
	}
	return attendance.ErrAttendanceNotFound
}

func (r *fakeAttendanceRepo) ListLocumInPeriod(ctx context.Context, companyID string, start, end time.Time) ([]attendance.LocumAttendance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []attendance.LocumAttendance
	for _, a := range r.locum {
		if inRange(a.Date, start, end) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAttendanceRepo) GetLocumByID(ctx context.Context, id string, companyID string) (attendance.LocumAttendance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.locum {
		if a.ID == id {
			return a, nil
		}
	}
	return attendance.LocumAttendance{}, attendance.ErrAttendanceNotFound
}

func (r *fakeAttendanceRepo) UpsertLocum(ctx context.Context, a attendance.LocumAttendance) (attendance.LocumAttendance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.locum {
		if r.locum[i].BookingID == a.BookingID && r.locum[i].Date.Equal(a.Date) {
			r.locum[i].Status = a.Status
			return r.locum[i], nil
		}
	}
	a.ID = r.nextID("locum-att")
	r.locum = append(r.locum, a)
	return a, nil
}

func (r *fakeAttendanceRepo) UpdateLocumLocation(ctx context.Context, id string, companyID string, locationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.locum {
		if r.locum[i].ID == id {
			r.locum[i].LocationID = &locationID
			return nil
		}
	}
	return attendance.ErrAttendanceNotFound
}

type fakeLeaveRepo struct {
	requests []leave.LeaveRequest
}

func (r *fakeLeaveRepo) ListApprovedOverlapping(ctx context.Context, companyID string, start, end time.Time) ([]leave.LeaveRequest, error) {
	var out []leave.LeaveRequest
	for _, lr := range r.requests {
		if lr.Status == leave.LeaveRequestStatusApproved && !lr.StartDate.After(end) && !lr.EndDate.Before(start) {
			out = append(out, lr)
		}
	}
	return out, nil
}

type fakeEmployeeRepo struct {
	employees map[string]employee.Employee
}

func (r *fakeEmployeeRepo) GetByID(ctx context.Context, id string, companyID string) (employee.Employee, error) {
	e, ok := r.employees[id]
	if !ok {
		return employee.Employee{}, fmt.Errorf("employee %s: %w", id, employee.ErrEmployeeNotFound)
	}
	return e, nil
}

func (r *fakeEmployeeRepo) ListByCompany(ctx context.Context, companyID string) ([]employee.Employee, error) {
	out := make([]employee.Employee, 0, len(r.employees))
	for _, e := range r.employees {
		out = append(out, e)
	}
	return out, nil
}
