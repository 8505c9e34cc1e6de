package leave

import "time"

type LeaveRequestStatus string

const (
	LeaveRequestStatusWaitingApproval LeaveRequestStatus = "waiting_approval"
	LeaveRequestStatusApproved        LeaveRequestStatus = "approved"
	LeaveRequestStatusRejected        LeaveRequestStatus = "rejected"
	LeaveRequestStatusCancelled       LeaveRequestStatus = "cancelled"
)

type LeaveDurationEnum string

const (
	LeaveDurationFullDay          LeaveDurationEnum = "full_day"
	LeaveDurationHalfDayMorning   LeaveDurationEnum = "half_day_morning"
	LeaveDurationHalfDayAfternoon LeaveDurationEnum = "half_day_afternoon"
)

// LeaveRequest as supplied by the leave-approval flow. Dates are inclusive.
type LeaveRequest struct {
	ID           string
	CompanyID    string
	EmployeeID   string
	LeaveType    string
	StartDate    time.Time
	EndDate      time.Time
	DurationType LeaveDurationEnum
	Status       LeaveRequestStatus
	IsPaid       bool
}

// UnitsPerDay is the leave units one day of this request is worth.
func (r LeaveRequest) UnitsPerDay() float64 {
	switch r.DurationType {
	case LeaveDurationHalfDayMorning, LeaveDurationHalfDayAfternoon:
		return 0.5
	default:
		return 1.0
	}
}

// DaysWithin returns each calendar day of the request that falls in [start, end].
// Weekends are skipped unless includeWeekends is set.
func (r LeaveRequest) DaysWithin(start, end time.Time, includeWeekends bool) []time.Time {
	from := truncateDay(r.StartDate)
	if s := truncateDay(start); s.After(from) {
		from = s
	}
	to := truncateDay(r.EndDate)
	if e := truncateDay(end); e.Before(to) {
		to = e
	}

	var days []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if !includeWeekends && (d.Weekday() == time.Saturday || d.Weekday() == time.Sunday) {
			continue
		}
		days = append(days, d)
	}
	return days
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
