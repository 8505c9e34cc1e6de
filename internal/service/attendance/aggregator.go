package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/leave"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/location"
)

type lineKey struct {
	worker location.WorkerRef
	date   string
}

func keyOf(worker location.WorkerRef, date time.Time) lineKey {
	return lineKey{worker: worker, date: date.Format("2006-01-02")}
}

// aggregation holds the preloaded inputs for one Aggregate call.
type aggregation struct {
	req       attendance.AggregateRequest
	index     *location.Index
	bookings  map[string]location.BookingWithBlock
	locums    map[string]location.LocumBooking
	employees map[string]employee.Employee
	lines     []attendance.NormalizedAttendanceLine
	byKey     map[lineKey]int
}

// Aggregate loads the period's facts and returns one normalized line per worker-day.
// Lines whose location cannot be trusted are kept with Excluded set and reported in Issues.
func (s *AttendanceServiceImpl) Aggregate(ctx context.Context, req attendance.AggregateRequest) (attendance.AggregateResult, error) {
	if req.PeriodEnd.Before(req.PeriodStart) {
		return attendance.AggregateResult{}, fmt.Errorf("period %s..%s: %w",
			req.PeriodStart.Format("2006-01-02"), req.PeriodEnd.Format("2006-01-02"), attendance.ErrInvalidPeriod)
	}

	agg, staffFacts, locumFacts, leaves, err := s.load(ctx, req)
	if err != nil {
		return attendance.AggregateResult{}, err
	}

	for _, f := range staffFacts {
		agg.addStaffFact(f, s.config)
	}
	for _, f := range locumFacts {
		booking, err := s.bookingFor(ctx, agg, f.BookingID)
		if err != nil {
			return attendance.AggregateResult{}, err
		}
		agg.addLocumFact(f, booking)
	}

	// Every recorded (worker, date) is in byKey before unrecorded lines are synthesized.
	bookingIDs := make([]string, 0, len(agg.bookings))
	for id := range agg.bookings {
		bookingIDs = append(bookingIDs, id)
	}
	sort.Strings(bookingIDs)
	for _, id := range bookingIDs {
		agg.addUnrecorded(agg.bookings[id])
	}

	for _, lr := range leaves {
		agg.mergeLeave(lr, s.config.LeaveCountsWeekends)
	}

	result := attendance.AggregateResult{
		Employees: agg.employees,
		Locums:    agg.locums,
	}

	for _, line := range agg.lines {
		if !req.Matches(line) {
			continue
		}
		if line.Worker.Type == location.WorkerTypeStaff {
			if e, ok := agg.employees[line.Worker.ID]; ok {
				line.WorkerName = e.FullName
			}
		}
		result.Lines = append(result.Lines, line)
		if line.Issue != nil {
			result.Issues = append(result.Issues, *line.Issue)
			slog.Warn("Attendance line held back from payroll",
				"company_id", req.CompanyID,
				"kind", line.Issue.Kind,
				"worker", line.Worker.String(),
				"date", line.Issue.Date,
				"stored_location_id", derefOrEmpty(line.Issue.Stored),
				"resolved_location_id", derefOrEmpty(line.Issue.Resolved),
			)
		}
	}

	sort.SliceStable(result.Lines, func(i, j int) bool {
		a, b := result.Lines[i], result.Lines[j]
		if a.Worker.Type != b.Worker.Type {
			return a.Worker.Type > b.Worker.Type // staff before locum
		}
		if a.WorkerName != b.WorkerName {
			return a.WorkerName < b.WorkerName
		}
		if a.Worker.ID != b.Worker.ID {
			return a.Worker.ID < b.Worker.ID
		}
		return a.Date.Before(b.Date)
	})

	return result, nil
}

func (s *AttendanceServiceImpl) load(ctx context.Context, req attendance.AggregateRequest) (*aggregation, []attendance.StaffAttendance, []attendance.LocumAttendance, []leave.LeaveRequest, error) {
	staffFacts, err := s.attendanceRepo.ListStaffInPeriod(ctx, req.CompanyID, req.PeriodStart, req.PeriodEnd)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	locumFacts, err := s.attendanceRepo.ListLocumInPeriod(ctx, req.CompanyID, req.PeriodStart, req.PeriodEnd)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	bookings, err := s.scheduleRepo.ListBookingsInPeriod(ctx, req.CompanyID, req.PeriodStart, req.PeriodEnd)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	assignments, err := s.scheduleRepo.ListAssignmentsInPeriod(ctx, req.CompanyID, req.PeriodStart, req.PeriodEnd)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	leaves, err := s.leaveRepo.ListApprovedOverlapping(ctx, req.CompanyID, req.PeriodStart, req.PeriodEnd)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	employees, err := s.employeeRepo.ListByCompany(ctx, req.CompanyID)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	agg := &aggregation{
		req:       req,
		index:     location.NewIndex(assignments, bookings),
		bookings:  make(map[string]location.BookingWithBlock, len(bookings)),
		locums:    make(map[string]location.LocumBooking, len(bookings)),
		employees: make(map[string]employee.Employee, len(employees)),
		byKey:     make(map[lineKey]int),
	}
	for _, b := range bookings {
		agg.bookings[b.Booking.ID] = b
		agg.locums[b.Booking.ID] = b.Booking
	}
	for _, e := range employees {
		agg.employees[e.ID] = e
	}
	return agg, staffFacts, locumFacts, leaves, nil
}

// bookingFor returns the booking of a locum fact, reading it when its block lies outside the period.
func (s *AttendanceServiceImpl) bookingFor(ctx context.Context, agg *aggregation, bookingID string) (*location.BookingWithBlock, error) {
	if b, ok := agg.bookings[bookingID]; ok {
		return &b, nil
	}
	b, err := s.scheduleRepo.GetBookingWithBlock(ctx, bookingID, agg.req.CompanyID)
	if err != nil {
		if errors.Is(err, location.ErrBookingNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

// staffOutcome normalizes a clock record. An explicit status wins over clock times.
func staffOutcome(f attendance.StaffAttendance, cfg Config) (attendance.Outcome, error) {
	if f.Status != nil && *f.Status != "" {
		return attendance.ParseOutcome(*f.Status)
	}
	if f.ClockIn == nil {
		return attendance.OutcomeAbsent, nil
	}
	if f.ClockOut == nil {
		if cfg.OpenSessionIsPartial {
			return attendance.OutcomePartial, nil
		}
		return attendance.OutcomeWorked, nil
	}
	if f.ClockOut.Sub(*f.ClockIn) < time.Duration(cfg.PartialDayMinutes)*time.Minute {
		return attendance.OutcomePartial, nil
	}
	return attendance.OutcomeWorked, nil
}

func (a *aggregation) addStaffFact(f attendance.StaffAttendance, cfg Config) {
	worker := location.WorkerRef{Type: location.WorkerTypeStaff, ID: f.EmployeeID}
	line := attendance.NormalizedAttendanceLine{
		Worker:   worker,
		Date:     attendance.DateOf(f.Date),
		Recorded: true,
		FactID:   strPtr(f.ID),
	}

	outcome, err := staffOutcome(f, cfg)
	resolved, resolveErr := a.index.Resolve(worker, f.Date)
	locationID, issue := location.Classify(worker, f.Date, f.LocationID, resolved, resolveErr, nil)
	a.finishLine(&line, outcome, err, locationID, issue)
}

func (a *aggregation) addLocumFact(f attendance.LocumAttendance, booking *location.BookingWithBlock) {
	worker := location.WorkerRef{Type: location.WorkerTypeLocum, ID: f.BookingID}
	line := attendance.NormalizedAttendanceLine{
		Worker:   worker,
		Date:     attendance.DateOf(f.Date),
		Recorded: true,
		FactID:   strPtr(f.ID),
	}

	var (
		resolved   string
		resolveErr error
	)
	if booking != nil {
		line.WorkerName = booking.Booking.Name
		resolved = booking.Location()
		a.locums[booking.Booking.ID] = booking.Booking
	} else {
		resolveErr = fmt.Errorf("booking %s: %w", f.BookingID, location.ErrBookingNotFound)
	}

	outcome, err := attendance.ParseOutcome(f.Status)
	locationID, issue := location.Classify(worker, f.Date, f.LocationID, resolved, resolveErr, booking)
	a.finishLine(&line, outcome, err, locationID, issue)
}

func (a *aggregation) finishLine(line *attendance.NormalizedAttendanceLine, outcome attendance.Outcome, statusErr error, locationID string, issue *location.LocationIssue) {
	if locationID != "" {
		line.LocationID = strPtr(locationID)
	}

	switch {
	case statusErr != nil:
		line.Excluded = true
		line.Issue = &location.LocationIssue{
			Kind:    location.IssueInvalidStatus,
			Worker:  line.Worker,
			Date:    line.Date.Format("2006-01-02"),
			FactID:  line.FactID,
			Message: statusErr.Error(),
		}
	case issue != nil:
		issue.FactID = line.FactID
		line.Excluded = true
		line.Issue = issue
	}

	line.Outcome = outcome
	if !line.Excluded {
		line.WorkedUnits, line.AbsentUnits = outcome.Units()
	}
	a.put(*line)
}

// put stores a line. A second fact for the same worker-day is kept as its own line.
func (a *aggregation) put(line attendance.NormalizedAttendanceLine) {
	k := keyOf(line.Worker, line.Date)
	if _, exists := a.byKey[k]; !exists {
		a.byKey[k] = len(a.lines)
	}
	a.lines = append(a.lines, line)
}

func (a *aggregation) addUnrecorded(b location.BookingWithBlock) {
	worker := location.WorkerRef{Type: location.WorkerTypeLocum, ID: b.Booking.ID}
	date := attendance.DateOf(b.Block.Date)
	if _, seen := a.byKey[keyOf(worker, date)]; seen {
		return
	}
	a.put(attendance.NormalizedAttendanceLine{
		Worker:     worker,
		WorkerName: b.Booking.Name,
		Date:       date,
		Outcome:    attendance.OutcomeUnrecorded,
		LocationID: strPtr(b.Location()),
	})
}

// mergeLeave adds leave units per day. Leave on an absent day replaces the absence.
func (a *aggregation) mergeLeave(lr leave.LeaveRequest, includeWeekends bool) {
	worker := location.WorkerRef{Type: location.WorkerTypeStaff, ID: lr.EmployeeID}
	units := lr.UnitsPerDay()

	for _, day := range lr.DaysWithin(a.req.PeriodStart, a.req.PeriodEnd, includeWeekends) {
		if i, ok := a.byKey[keyOf(worker, day)]; ok && !a.lines[i].Excluded {
			applyLeave(&a.lines[i], lr.IsPaid, units)
			continue
		}

		line := attendance.NormalizedAttendanceLine{
			Worker:  worker,
			Date:    day,
			Outcome: attendance.OutcomeLeave,
		}
		if loc, err := a.index.Resolve(worker, day); err == nil {
			line.LocationID = strPtr(loc)
		}
		applyLeave(&line, lr.IsPaid, units)
		a.put(line)
	}
}

func applyLeave(line *attendance.NormalizedAttendanceLine, paid bool, units float64) {
	if paid {
		line.PaidLeaveUnits += units
	} else {
		line.UnpaidLeaveUnits += units
	}
	if line.Outcome == attendance.OutcomeAbsent {
		line.Outcome = attendance.OutcomeLeave
		line.AbsentUnits = 0
	}
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func strPtr(s string) *string {
	return &s
}
