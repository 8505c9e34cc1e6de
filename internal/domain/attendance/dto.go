package attendance

import (
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/location"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/validator"
)

type ClockInRequest struct {
	EmployeeID string  `json:"employee_id"`
	Timestamp  string  `json:"timestamp"` // RFC3339
	LocationID *string `json:"location_id,omitempty"`

	At time.Time `json:"-"`
}

func (r *ClockInRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "is required"})
	}
	if t, ok := validator.IsValidDateTime(r.Timestamp); !ok {
		errs = append(errs, validator.ValidationError{Field: "timestamp", Message: "must be an RFC3339 timestamp"})
	} else {
		r.At = t
	}
	if r.LocationID != nil && validator.IsEmpty(*r.LocationID) {
		r.LocationID = nil
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type ClockOutRequest struct {
	EmployeeID string  `json:"employee_id"`
	Timestamp  string  `json:"timestamp"`
	Date       string  `json:"date,omitempty"` // defaults to the timestamp's date
	Status     *string `json:"status,omitempty"`

	At  time.Time `json:"-"`
	Day time.Time `json:"-"`
}

func (r *ClockOutRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "is required"})
	}
	if t, ok := validator.IsValidDateTime(r.Timestamp); !ok {
		errs = append(errs, validator.ValidationError{Field: "timestamp", Message: "must be an RFC3339 timestamp"})
	} else {
		r.At = t
		r.Day = DateOf(t)
	}
	if r.Date != "" {
		if d, ok := validator.IsValidDate(r.Date); ok {
			r.Day = d
		} else {
			errs = append(errs, validator.ValidationError{Field: "date", Message: "must be in YYYY-MM-DD format"})
		}
	}
	if r.Status != nil {
		if _, err := ParseOutcome(*r.Status); err != nil {
			errs = append(errs, validator.ValidationError{Field: "status", Message: "is not a known attendance status"})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type RecordLocumStatusRequest struct {
	BookingID  string  `json:"-"`
	Status     string  `json:"status"`
	LocationID *string `json:"location_id,omitempty"`
}

func (r *RecordLocumStatusRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.BookingID) {
		errs = append(errs, validator.ValidationError{Field: "booking_id", Message: "is required"})
	}
	if r.Status != LocumStatusWorked && r.Status != LocumStatusNoShow {
		errs = append(errs, validator.ValidationError{Field: "status", Message: "must be 'WORKED' or 'NO_SHOW'"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// AggregateQuery is the query-string form of AggregateRequest.
type AggregateQuery struct {
	Start      string
	End        string
	LocationID string
	WorkerType string
}

func (q AggregateQuery) ToRequest(companyID string) (AggregateRequest, error) {
	var errs validator.ValidationErrors
	req := AggregateRequest{CompanyID: companyID}

	start, okStart := validator.IsValidDate(q.Start)
	if !okStart {
		errs = append(errs, validator.ValidationError{Field: "start", Message: "must be in YYYY-MM-DD format"})
	}
	end, okEnd := validator.IsValidDate(q.End)
	if !okEnd {
		errs = append(errs, validator.ValidationError{Field: "end", Message: "must be in YYYY-MM-DD format"})
	}
	if okStart && okEnd && end.Before(start) {
		errs = append(errs, validator.ValidationError{Field: "end", Message: "must not be before start"})
	}
	req.PeriodStart, req.PeriodEnd = start, end

	if q.LocationID != "" {
		loc := q.LocationID
		req.LocationID = &loc
	}
	if q.WorkerType != "" {
		wt := location.WorkerType(q.WorkerType)
		if !wt.IsValid() {
			errs = append(errs, validator.ValidationError{Field: "worker_type", Message: "must be 'staff' or 'locum'"})
		}
		req.WorkerType = &wt
	}

	if len(errs) > 0 {
		return AggregateRequest{}, errs
	}
	return req, nil
}

type AggregateResponse struct {
	Lines  []NormalizedAttendanceLine `json:"lines"`
	Issues []location.LocationIssue   `json:"issues"`
}

// DateOf truncates t to its calendar date in UTC.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

type StaffAttendanceResponse struct {
	ID         string     `json:"id"`
	EmployeeID string     `json:"employee_id"`
	Date       string     `json:"date"`
	ClockIn    *time.Time `json:"clock_in"`
	ClockOut   *time.Time `json:"clock_out"`
	Status     *string    `json:"status"`
	LocationID *string    `json:"location_id"`
}

func ToStaffResponse(a StaffAttendance) StaffAttendanceResponse {
	return StaffAttendanceResponse{
		ID:         a.ID,
		EmployeeID: a.EmployeeID,
		Date:       a.Date.Format("2006-01-02"),
		ClockIn:    a.ClockIn,
		ClockOut:   a.ClockOut,
		Status:     a.Status,
		LocationID: a.LocationID,
	}
}

type LocumAttendanceResponse struct {
	ID         string  `json:"id"`
	BookingID  string  `json:"booking_id"`
	Date       string  `json:"date"`
	Status     string  `json:"status"`
	LocationID *string `json:"location_id"`
}

func ToLocumResponse(a LocumAttendance) LocumAttendanceResponse {
	return LocumAttendanceResponse{
		ID:         a.ID,
		BookingID:  a.BookingID,
		Date:       a.Date.Format("2006-01-02"),
		Status:     a.Status,
		LocationID: a.LocationID,
	}
}
