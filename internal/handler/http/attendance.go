package http

import (
	"encoding/json"
	"net/http"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/location"
	"github.com/cmlabs-hris/payroll-engine-go/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type AttendanceHandler interface {
	ClockIn(w http.ResponseWriter, r *http.Request)
	ClockOut(w http.ResponseWriter, r *http.Request)
	RecordLocumStatus(w http.ResponseWriter, r *http.Request)
	Aggregate(w http.ResponseWriter, r *http.Request)
}

type attendanceHandlerImpl struct {
	attendanceService attendance.AttendanceService
}

func NewAttendanceHandler(attendanceService attendance.AttendanceService) AttendanceHandler {
	return &attendanceHandlerImpl{
		attendanceService: attendanceService,
	}
}

// ClockIn implements AttendanceHandler.
func (h *attendanceHandlerImpl) ClockIn(w http.ResponseWriter, r *http.Request) {
	claims, ok := identity(w, r)
	if !ok {
		return
	}

	var req attendance.ClockInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	record, err := h.attendanceService.ClockIn(r.Context(), claims.CompanyID, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Clocked in", attendance.ToStaffResponse(record))
}

// ClockOut implements AttendanceHandler.
func (h *attendanceHandlerImpl) ClockOut(w http.ResponseWriter, r *http.Request) {
	claims, ok := identity(w, r)
	if !ok {
		return
	}

	var req attendance.ClockOutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	record, err := h.attendanceService.ClockOut(r.Context(), claims.CompanyID, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Clocked out", attendance.ToStaffResponse(record))
}

// RecordLocumStatus implements AttendanceHandler.
func (h *attendanceHandlerImpl) RecordLocumStatus(w http.ResponseWriter, r *http.Request) {
	claims, ok := identity(w, r)
	if !ok {
		return
	}

	var req attendance.RecordLocumStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.BookingID = chi.URLParam(r, "id")
	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	record, err := h.attendanceService.RecordLocumStatus(r.Context(), claims.CompanyID, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, attendance.ToLocumResponse(record))
}

// Aggregate implements AttendanceHandler.
func (h *attendanceHandlerImpl) Aggregate(w http.ResponseWriter, r *http.Request) {
	claims, ok := identity(w, r)
	if !ok {
		return
	}

	query := attendance.AggregateQuery{
		Start:      r.URL.Query().Get("start"),
		End:        r.URL.Query().Get("end"),
		LocationID: r.URL.Query().Get("location_id"),
		WorkerType: r.URL.Query().Get("worker_type"),
	}
	req, err := query.ToRequest(claims.CompanyID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.attendanceService.Aggregate(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	lines := result.Lines
	if lines == nil {
		lines = []attendance.NormalizedAttendanceLine{}
	}
	issues := result.Issues
	if issues == nil {
		issues = []location.LocationIssue{}
	}
	response.Success(w, attendance.AggregateResponse{Lines: lines, Issues: issues})
}
