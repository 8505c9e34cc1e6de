package http

import (
	"net/http"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/location"
	"github.com/cmlabs-hris/payroll-engine-go/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type LocationHandler interface {
	Resolve(w http.ResponseWriter, r *http.Request)
	ListIssues(w http.ResponseWriter, r *http.Request)
	RefreshBookingCache(w http.ResponseWriter, r *http.Request)
	RepairFact(w http.ResponseWriter, r *http.Request)
}

type locationHandlerImpl struct {
	locationService location.Service
	aggregator      attendance.Aggregator
}

func NewLocationHandler(locationService location.Service, aggregator attendance.Aggregator) LocationHandler {
	return &locationHandlerImpl{
		locationService: locationService,
		aggregator:      aggregator,
	}
}

// Resolve implements LocationHandler.
func (h *locationHandlerImpl) Resolve(w http.ResponseWriter, r *http.Request) {
	claims, ok := identity(w, r)
	if !ok {
		return
	}

	query := location.ResolveQuery{
		WorkerType: r.URL.Query().Get("worker_type"),
		WorkerID:   r.URL.Query().Get("worker_id"),
		Date:       r.URL.Query().Get("date"),
	}
	worker, date, err := query.Validate()
	if err != nil {
		response.HandleError(w, err)
		return
	}

	loc, err := h.locationService.Resolve(r.Context(), claims.CompanyID, worker, date)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, location.LocationResponse{ID: loc.ID, Name: loc.Name})
}

// ListIssues reports held-back attendance for a period plus drifted booking caches.
func (h *locationHandlerImpl) ListIssues(w http.ResponseWriter, r *http.Request) {
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

	result, err := h.aggregator.Aggregate(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	drift, err := h.locationService.ListBookingCacheDrift(r.Context(), claims.CompanyID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	resp := location.IssuesResponse{Issues: result.Issues, BookingDrift: drift}
	if resp.Issues == nil {
		resp.Issues = []location.LocationIssue{}
	}
	if resp.BookingDrift == nil {
		resp.BookingDrift = []location.BookingDrift{}
	}
	response.Success(w, resp)
}

// RefreshBookingCache implements LocationHandler.
func (h *locationHandlerImpl) RefreshBookingCache(w http.ResponseWriter, r *http.Request) {
	claims, ok := identity(w, r)
	if !ok {
		return
	}

	refreshed, err := h.locationService.RefreshBookingCache(r.Context(), claims.CompanyID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, location.RefreshCacheResponse{Refreshed: refreshed})
}

// RepairFact implements LocationHandler.
func (h *locationHandlerImpl) RepairFact(w http.ResponseWriter, r *http.Request) {
	claims, ok := identity(w, r)
	if !ok {
		return
	}

	kind := location.FactKind(chi.URLParam(r, "kind"))
	result, err := h.locationService.RepairFactLocation(r.Context(), claims.CompanyID, claims.UserID, kind, chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Attendance location repaired", result)
}
