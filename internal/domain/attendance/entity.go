package attendance

import (
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/location"
)

// StaffAttendance is a clock record for one employee on one date.
type StaffAttendance struct {
	ID         string
	CompanyID  string
	EmployeeID string
	Date       time.Time
	ClockIn    *time.Time
	ClockOut   *time.Time
	Status     *string
	LocationID *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Locum presence statuses as recorded at the end of a shift.
const (
	LocumStatusWorked = "WORKED"
	LocumStatusNoShow = "NO_SHOW"
)

// LocumAttendance is the presence record for one locum booking on one date.
type LocumAttendance struct {
	ID         string
	CompanyID  string
	BookingID  string
	Date       time.Time
	Status     string
	LocationID *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Outcome is the single attendance vocabulary used after normalization.
type Outcome string

const (
	OutcomeWorked     Outcome = "worked"
	OutcomePartial    Outcome = "partial"
	OutcomeAbsent     Outcome = "absent"
	OutcomeUnrecorded Outcome = "unrecorded"
	// OutcomeLeave marks a line that exists only because of approved leave.
	OutcomeLeave Outcome = "leave"
)

var sourceOutcomes = map[string]Outcome{
	"present_full":    OutcomeWorked,
	"present":         OutcomeWorked,
	"on_time":         OutcomeWorked,
	"late":            OutcomeWorked,
	"worked":          OutcomeWorked,
	"present_partial": OutcomePartial,
	"half_day":        OutcomePartial,
	"early_leave":     OutcomePartial,
	"absent":          OutcomeAbsent,
	"no_show":         OutcomeAbsent,
}

// ParseOutcome maps a stored status string from either record kind onto Outcome.
func ParseOutcome(status string) (Outcome, error) {
	key := strings.ToLower(strings.TrimSpace(status))
	if o, ok := sourceOutcomes[key]; ok {
		return o, nil
	}
	return "", fmt.Errorf("status %q: %w", status, ErrUnknownStatus)
}

// Units returns the unit contribution of the outcome for a single day.
func (o Outcome) Units() (worked, absent float64) {
	switch o {
	case OutcomeWorked:
		return 1.0, 0
	case OutcomePartial:
		return 0.5, 0
	case OutcomeAbsent:
		return 0, 1.0
	default:
		return 0, 0
	}
}

// NormalizedAttendanceLine is one worker-day after normalization.
// Excluded lines stay visible but never contribute units.
type NormalizedAttendanceLine struct {
	Worker           location.WorkerRef      `json:"worker"`
	WorkerName       string                  `json:"worker_name"`
	Date             time.Time               `json:"date"`
	Outcome          Outcome                 `json:"outcome"`
	Recorded         bool                    `json:"recorded"`
	FactID           *string                 `json:"fact_id,omitempty"`
	LocationID       *string                 `json:"location_id,omitempty"`
	WorkedUnits      float64                 `json:"worked_units"`
	PaidLeaveUnits   float64                 `json:"paid_leave_units"`
	UnpaidLeaveUnits float64                 `json:"unpaid_leave_units"`
	AbsentUnits      float64                 `json:"absent_units"`
	Excluded         bool                    `json:"excluded"`
	Issue            *location.LocationIssue `json:"issue,omitempty"`
}

// Units is the per-worker total for a period.
type Units struct {
	Worked      float64 `json:"worked"`
	PaidLeave   float64 `json:"paid_leave"`
	UnpaidLeave float64 `json:"unpaid_leave"`
	Absent      float64 `json:"absent"`
}

func (u Units) IsZero() bool {
	return u.Worked == 0 && u.PaidLeave == 0 && u.UnpaidLeave == 0 && u.Absent == 0
}

type AggregateRequest struct {
	CompanyID   string
	PeriodStart time.Time
	PeriodEnd   time.Time
	LocationID  *string
	WorkerType  *location.WorkerType
}

// Matches applies the optional location and worker-type filters. A held-back line
// matches a location when any of its conflicting locations is that location.
func (r AggregateRequest) Matches(line NormalizedAttendanceLine) bool {
	if r.WorkerType != nil && line.Worker.Type != *r.WorkerType {
		return false
	}
	if r.LocationID == nil {
		return true
	}
	want := *r.LocationID
	if line.LocationID != nil && *line.LocationID == want {
		return true
	}
	if line.Issue == nil {
		return false
	}
	if (line.Issue.Stored != nil && *line.Issue.Stored == want) || (line.Issue.Resolved != nil && *line.Issue.Resolved == want) {
		return true
	}
	for _, c := range line.Issue.Candidates {
		if c == want {
			return true
		}
	}
	return false
}

// AggregateResult carries the lines plus the roster data read while building them.
type AggregateResult struct {
	Lines     []NormalizedAttendanceLine
	Issues    []location.LocationIssue
	Employees map[string]employee.Employee
	Locums    map[string]location.LocumBooking
}

// Summarize totals units per worker, skipping unrecorded and excluded lines.
func Summarize(lines []NormalizedAttendanceLine) map[location.WorkerRef]Units {
	out := make(map[location.WorkerRef]Units)
	for _, l := range lines {
		if l.Excluded || l.Outcome == OutcomeUnrecorded {
			continue
		}
		u := out[l.Worker]
		u.Worked += l.WorkedUnits
		u.PaidLeave += l.PaidLeaveUnits
		u.UnpaidLeave += l.UnpaidLeaveUnits
		u.Absent += l.AbsentUnits
		out[l.Worker] = u
	}
	return out
}
