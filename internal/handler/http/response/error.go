package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/location"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/idempotency"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses.
// Messages keep the wrapped context (entity id and the rule that was broken).
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Auth
	case errors.Is(err, jwt.ErrInvalidToken):
		Unauthorized(w, err.Error())
	case errors.Is(err, jwt.ErrCompanyIDMissing):
		Forbidden(w, err.Error())

	// Not found
	case errors.Is(err, payroll.ErrRunNotFound),
		errors.Is(err, payroll.ErrItemNotFound),
		errors.Is(err, payroll.ErrAllowanceNotFound),
		errors.Is(err, employee.ErrEmployeeNotFound),
		errors.Is(err, attendance.ErrAttendanceNotFound),
		errors.Is(err, location.ErrBookingNotFound),
		errors.Is(err, location.ErrBlockNotFound):
		NotFound(w, err.Error())

	// Payroll state
	case errors.Is(err, payroll.ErrRunLocked),
		errors.Is(err, payroll.ErrUnpaidItems),
		errors.Is(err, payroll.ErrRunNotFinalized):
		Conflict(w, err.Error())
	case errors.Is(err, payroll.ErrInvalidAmount),
		errors.Is(err, payroll.ErrInvalidDivisor),
		errors.Is(err, payroll.ErrInvalidPeriod),
		errors.Is(err, payroll.ErrUnknownPayModel):
		UnprocessableEntity(w, err.Error())

	// Location
	case errors.Is(err, location.ErrAmbiguousLocation),
		errors.Is(err, location.ErrLocationMismatch):
		Conflict(w, err.Error())
	case errors.Is(err, location.ErrLocationNotFound):
		UnprocessableEntity(w, err.Error())
	case errors.Is(err, location.ErrUnknownWorkerType),
		errors.Is(err, location.ErrUnknownFactKind):
		BadRequest(w, err.Error(), nil)

	// Attendance
	case errors.Is(err, attendance.ErrAlreadyCheckedIn),
		errors.Is(err, attendance.ErrAlreadyCheckedOut):
		Conflict(w, err.Error())
	case errors.Is(err, attendance.ErrNotCheckedIn),
		errors.Is(err, attendance.ErrInvalidPeriod),
		errors.Is(err, attendance.ErrUnknownStatus),
		errors.Is(err, attendance.ErrInvalidLocumStatus):
		UnprocessableEntity(w, err.Error())

	case errors.Is(err, idempotency.ErrInFlight):
		Conflict(w, err.Error())
	case errors.Is(err, idempotency.ErrKeyReused):
		UnprocessableEntity(w, err.Error())

	// Default
	default:
		slog.Error("unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
