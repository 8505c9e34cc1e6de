package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/handler/http/response"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/sse"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/validator"
	payrollService "github.com/cmlabs-hris/payroll-engine-go/internal/service/payroll"
	"github.com/go-chi/chi/v5"
)

var exportFormats = []string{"csv", "xlsx"}

type PayrollHandler interface {
	// Runs
	GetPayroll(w http.ResponseWriter, r *http.Request)
	UpdateRunSettings(w http.ResponseWriter, r *http.Request)
	FinalizeRun(w http.ResponseWriter, r *http.Request)
	MarkAllPaid(w http.ResponseWriter, r *http.Request)
	ExportRun(w http.ResponseWriter, r *http.Request)

	// Items
	SetItemPaid(w http.ResponseWriter, r *http.Request)

	// Allowances
	ListAllowances(w http.ResponseWriter, r *http.Request)
	ReplaceAllowances(w http.ResponseWriter, r *http.Request)
	AddAllowance(w http.ResponseWriter, r *http.Request)
	UpdateAllowance(w http.ResponseWriter, r *http.Request)
	RemoveAllowance(w http.ResponseWriter, r *http.Request)

	// Live updates
	StreamEvents(w http.ResponseWriter, r *http.Request)
}

type payrollHandlerImpl struct {
	payrollService payroll.PayrollService
	events         *sse.Hub
	keepalive      time.Duration
}

func NewPayrollHandler(payrollService payroll.PayrollService, events *sse.Hub) PayrollHandler {
	return &payrollHandlerImpl{payrollService: payrollService, events: events, keepalive: 30 * time.Second}
}

// ========== RUNS ==========

func (h *payrollHandlerImpl) GetPayroll(w http.ResponseWriter, r *http.Request) {
	claims, ok := identity(w, r)
	if !ok {
		return
	}

	query := payroll.GetPayrollQuery{
		Start:      r.URL.Query().Get("start"),
		End:        r.URL.Query().Get("end"),
		LocationID: r.URL.Query().Get("location_id"),
	}
	period, locationID, err := query.Validate()
	if err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.payrollService.GetPayrollForPeriod(r.Context(), claims.CompanyID, period, locationID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, payroll.ToPeriodPayrollResponse(result))
}

func (h *payrollHandlerImpl) UpdateRunSettings(w http.ResponseWriter, r *http.Request) {
	claims, ok := identity(w, r)
	if !ok {
		return
	}

	var req payroll.UpdateRunSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	run, err := h.payrollService.UpdateRunSettings(r.Context(), claims.CompanyID, chi.URLParam(r, "id"), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll run updated", payroll.ToRunResponse(run))
}

func (h *payrollHandlerImpl) FinalizeRun(w http.ResponseWriter, r *http.Request) {
	claims, ok := identity(w, r)
	if !ok {
		return
	}

	run, err := h.payrollService.FinalizeRun(r.Context(), claims.CompanyID, claims.UserID, chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll run finalized", payroll.ToRunResponse(run))
}

func (h *payrollHandlerImpl) MarkAllPaid(w http.ResponseWriter, r *http.Request) {
	claims, ok := identity(w, r)
	if !ok {
		return
	}

	marked, err := h.payrollService.MarkAllPaid(r.Context(), claims.CompanyID, claims.UserID, chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, payroll.MarkAllPaidResponse{Marked: marked})
}

func (h *payrollHandlerImpl) ExportRun(w http.ResponseWriter, r *http.Request) {
	claims, ok := identity(w, r)
	if !ok {
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}
	if !validator.IsInSlice(format, exportFormats) {
		response.BadRequest(w, "format must be 'csv' or 'xlsx'", map[string]string{"format": "unsupported"})
		return
	}

	run, rows, err := h.payrollService.ExportRun(r.Context(), claims.CompanyID, chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	filename := fmt.Sprintf("payroll_%s_%s.%s",
		run.PeriodStart.Format("20060102"), run.PeriodEnd.Format("20060102"), format)

	if format == "xlsx" {
		data, err := payrollService.BuildXLSX(rows)
		if err != nil {
			response.HandleError(w, err)
			return
		}
		response.Attachment(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", filename)
		_, _ = w.Write(data)
		return
	}

	response.Attachment(w, "text/csv; charset=utf-8", filename)
	if err := payrollService.WriteCSV(w, rows); err != nil {
		slog.Error("failed to write payroll csv", "run_id", run.ID, "error", err)
	}
}

// ========== ITEMS ==========

func (h *payrollHandlerImpl) SetItemPaid(w http.ResponseWriter, r *http.Request) {
	claims, ok := identity(w, r)
	if !ok {
		return
	}

	var req payroll.SetItemPaidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	item, err := h.payrollService.SetItemPaid(r.Context(), claims.CompanyID, claims.UserID, chi.URLParam(r, "id"), *req.IsPaid)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, payroll.ToItemResponse(item))
}

// ========== ALLOWANCES ==========

func (h *payrollHandlerImpl) ListAllowances(w http.ResponseWriter, r *http.Request) {
	claims, ok := identity(w, r)
	if !ok {
		return
	}

	list, err := h.payrollService.ListAllowances(r.Context(), claims.CompanyID, chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	out := make([]payroll.AllowanceResponse, 0, len(list))
	for _, a := range list {
		out = append(out, payroll.AllowanceResponse{ID: a.ID, Position: a.Position, Amount: a.Amount, Note: a.Note})
	}
	response.Success(w, out)
}

func (h *payrollHandlerImpl) ReplaceAllowances(w http.ResponseWriter, r *http.Request) {
	claims, ok := identity(w, r)
	if !ok {
		return
	}

	var req payroll.ReplaceAllowancesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	inputs, err := req.ToInputs()
	if err != nil {
		response.HandleError(w, err)
		return
	}

	item, err := h.payrollService.UpdateItemAllowances(r.Context(), claims.CompanyID, chi.URLParam(r, "id"), inputs)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Allowances updated", payroll.ToItemResponse(item))
}

func (h *payrollHandlerImpl) AddAllowance(w http.ResponseWriter, r *http.Request) {
	claims, ok := identity(w, r)
	if !ok {
		return
	}

	var req payroll.AllowanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	in, err := req.ToInput()
	if err != nil {
		response.HandleError(w, err)
		return
	}

	item, err := h.payrollService.AddAllowance(r.Context(), claims.CompanyID, chi.URLParam(r, "id"), in)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Allowance added", payroll.ToItemResponse(item))
}

func (h *payrollHandlerImpl) UpdateAllowance(w http.ResponseWriter, r *http.Request) {
	claims, ok := identity(w, r)
	if !ok {
		return
	}

	var req payroll.AllowanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	in, err := req.ToInput()
	if err != nil {
		response.HandleError(w, err)
		return
	}

	item, err := h.payrollService.UpdateAllowance(r.Context(), claims.CompanyID, chi.URLParam(r, "id"), chi.URLParam(r, "allowanceId"), in)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Allowance updated", payroll.ToItemResponse(item))
}

func (h *payrollHandlerImpl) RemoveAllowance(w http.ResponseWriter, r *http.Request) {
	claims, ok := identity(w, r)
	if !ok {
		return
	}

	item, err := h.payrollService.RemoveAllowance(r.Context(), claims.CompanyID, chi.URLParam(r, "id"), chi.URLParam(r, "allowanceId"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Allowance removed", payroll.ToItemResponse(item))
}

// ========== EVENTS ==========

// StreamEvents holds the connection open and forwards the caller's company payroll events.
func (h *payrollHandlerImpl) StreamEvents(w http.ResponseWriter, r *http.Request) {
	claims, ok := identity(w, r)
	if !ok {
		return
	}
	if h.events == nil {
		response.NotFound(w, "payroll event stream is disabled")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		response.InternalServerError(w, "Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	events, cleanup := h.events.Subscribe(claims.CompanyID)
	defer cleanup()

	if err := sse.Write(w, "connected", map[string]string{"company_id": claims.CompanyID}); err != nil {
		return
	}
	flusher.Flush()

	keepalive := time.NewTicker(h.keepalive)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := sse.Write(w, event.Name, event.Data); err != nil {
				slog.Warn("payroll event stream closed", "company_id", claims.CompanyID, "error", err)
				return
			}
			flusher.Flush()

		case <-keepalive.C:
			if err := sse.Write(w, "ping", map[string]int64{"timestamp": time.Now().Unix()}); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
