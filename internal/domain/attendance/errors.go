package attendance

import "errors"

// Attendance domain errors
var (
	ErrAlreadyCheckedIn  = errors.New("already clocked in for this date")
	ErrNotCheckedIn      = errors.New("not clocked in for this date")
	ErrAlreadyCheckedOut = errors.New("already clocked out for this date")

	ErrAttendanceNotFound = errors.New("attendance record not found")
	ErrUnknownStatus      = errors.New("unknown attendance status")
	ErrInvalidLocumStatus = errors.New("locum status must be WORKED or NO_SHOW")
	ErrInvalidPeriod      = errors.New("invalid attendance period")
)
