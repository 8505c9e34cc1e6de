package payroll

import "errors"

var (
	ErrRunNotFound       = errors.New("payroll run not found")
	ErrItemNotFound      = errors.New("payroll item not found")
	ErrAllowanceNotFound = errors.New("allowance not found")
	ErrRunLocked         = errors.New("payroll run is finalized and locked")
	ErrInvalidAmount     = errors.New("allowance amount must be a finite number")
	ErrUnpaidItems       = errors.New("payroll run has unpaid items")
	ErrRunNotFinalized   = errors.New("payroll run is not finalized")
	ErrInvalidPeriod     = errors.New("invalid payroll period")
	ErrInvalidDivisor    = errors.New("month units divisor must be at least 1")
	ErrUnknownPayModel   = errors.New("unknown pay model")
	ErrUnknownWorker     = errors.New("worker has no pay profile")
)
