package payroll

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/location"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/money"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========== QUERY DTOs ==========

type GetPayrollQuery struct {
	Start      string
	End        string
	LocationID string
}

func (q GetPayrollQuery) Validate() (Period, *string, error) {
	var errs validator.ValidationErrors

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
	if len(errs) > 0 {
		return Period{}, nil, errs
	}

	var loc *string
	if q.LocationID != "" {
		l := q.LocationID
		loc = &l
	}
	return Period{Start: start, End: end}, loc, nil
}

// ========== RUN DTOs ==========

type UpdateRunSettingsRequest struct {
	MarkedBy          *string `json:"marked_by,omitempty"`
	MonthUnitsDivisor *int    `json:"month_units_divisor,omitempty"`
}

func (r *UpdateRunSettingsRequest) Validate() error {
	var errs validator.ValidationErrors

	if r.MonthUnitsDivisor != nil && *r.MonthUnitsDivisor < 1 {
		errs = append(errs, validator.ValidationError{Field: "month_units_divisor", Message: "must be at least 1"})
	}
	if r.MarkedBy != nil && len(*r.MarkedBy) > 150 {
		errs = append(errs, validator.ValidationError{Field: "marked_by", Message: "must be at most 150 characters"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type PayrollRunResponse struct {
	ID                string     `json:"id"`
	CompanyID         string     `json:"company_id"`
	PeriodStart       string     `json:"period_start"`
	PeriodEnd         string     `json:"period_end"`
	MarkedBy          *string    `json:"marked_by"`
	MonthUnitsDivisor int        `json:"month_units_divisor"`
	Status            RunStatus  `json:"status"`
	FinalizedAt       *time.Time `json:"finalized_at,omitempty"`
	FinalizedBy       *string    `json:"finalized_by,omitempty"`
}

func ToRunResponse(r PayrollRun) PayrollRunResponse {
	return PayrollRunResponse{
		ID:                r.ID,
		CompanyID:         r.CompanyID,
		PeriodStart:       r.PeriodStart.Format("2006-01-02"),
		PeriodEnd:         r.PeriodEnd.Format("2006-01-02"),
		MarkedBy:          r.MarkedBy,
		MonthUnitsDivisor: r.MonthUnitsDivisor,
		Status:            r.Status,
		FinalizedAt:       r.FinalizedAt,
		FinalizedBy:       r.FinalizedBy,
	}
}

// ========== ITEM DTOs ==========

type AllowanceResponse struct {
	ID       string          `json:"id"`
	Position int             `json:"position"`
	Amount   decimal.Decimal `json:"amount"`
	Note     string          `json:"note"`
}

type PayrollItemResponse struct {
	ID             string              `json:"id"`
	RunID          string              `json:"run_id"`
	Worker         location.WorkerRef  `json:"worker"`
	WorkerName     string              `json:"worker_name"`
	RoleName       *string             `json:"role_name"`
	Units          Units               `json:"units"`
	PayModel       PayModel            `json:"pay_model"`
	BaseRate       decimal.Decimal     `json:"base_rate"`
	BasePay        decimal.Decimal     `json:"base_pay"`
	AllowanceTotal decimal.Decimal     `json:"allowance_total"`
	GrossPay       decimal.Decimal     `json:"gross_pay"`
	IsPaid         bool                `json:"is_paid"`
	PaidAt         *time.Time          `json:"paid_at"`
	PaidBy         *string             `json:"paid_by"`
	Allowances     []AllowanceResponse `json:"allowances"`
}

func ToItemResponse(i PayrollItem) PayrollItemResponse {
	allowances := make([]AllowanceResponse, 0, len(i.Allowances))
	for _, a := range i.Allowances {
		allowances = append(allowances, AllowanceResponse{ID: a.ID, Position: a.Position, Amount: a.Amount, Note: a.Note})
	}
	return PayrollItemResponse{
		ID:             i.ID,
		RunID:          i.RunID,
		Worker:         i.Worker(),
		WorkerName:     i.WorkerName,
		RoleName:       i.RoleName,
		Units:          i.Units,
		PayModel:       i.PayModel,
		BaseRate:       i.BaseRate,
		BasePay:        i.BasePay,
		AllowanceTotal: i.AllowanceTotal,
		GrossPay:       i.GrossPay,
		IsPaid:         i.IsPaid,
		PaidAt:         i.PaidAt,
		PaidBy:         i.PaidBy,
		Allowances:     allowances,
	}
}

type PeriodPayrollResponse struct {
	Run    PayrollRunResponse       `json:"run"`
	Items  []PayrollItemResponse    `json:"items"`
	Issues []location.LocationIssue `json:"issues"`
}

func ToPeriodPayrollResponse(p PeriodPayroll) PeriodPayrollResponse {
	items := make([]PayrollItemResponse, 0, len(p.Items))
	for _, i := range p.Items {
		items = append(items, ToItemResponse(i))
	}
	issues := p.Issues
	if issues == nil {
		issues = []location.LocationIssue{}
	}
	return PeriodPayrollResponse{Run: ToRunResponse(p.Run), Items: items, Issues: issues}
}

type SetItemPaidRequest struct {
	IsPaid *bool `json:"is_paid"`
}

func (r *SetItemPaidRequest) Validate() error {
	if r.IsPaid == nil {
		return validator.ValidationErrors{{Field: "is_paid", Message: "is required"}}
	}
	return nil
}

type MarkAllPaidResponse struct {
	Marked int `json:"marked"`
}

// ========== ALLOWANCE DTOs ==========

// AllowanceRequest keeps the amount raw so that numbers and numeric strings are both accepted.
type AllowanceRequest struct {
	Amount json.RawMessage `json:"amount"`
	Note   string          `json:"note"`
}

func (r AllowanceRequest) ToInput() (AllowanceInput, error) {
	amount, err := ParseAmount(r.Amount)
	if err != nil {
		return AllowanceInput{}, err
	}
	return AllowanceInput{Amount: amount, Note: r.Note}, nil
}

type ReplaceAllowancesRequest struct {
	Allowances []AllowanceRequest `json:"allowances"`
}

func (r ReplaceAllowancesRequest) ToInputs() ([]AllowanceInput, error) {
	inputs := make([]AllowanceInput, 0, len(r.Allowances))
	for i, a := range r.Allowances {
		in, err := a.ToInput()
		if err != nil {
			return nil, fmt.Errorf("allowance %d: %w", i, err)
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}

// ParseAmount reads a JSON number or numeric string. NaN and infinities are rejected.
func ParseAmount(raw json.RawMessage) (float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, fmt.Errorf("amount is required: %w", ErrInvalidAmount)
	}
	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, fmt.Errorf("amount %s: %w", raw, ErrInvalidAmount)
		}
	}
	amount, err := money.Parse(text)
	if err != nil {
		return 0, fmt.Errorf("%v: %w", err, ErrInvalidAmount)
	}
	return amount.InexactFloat64(), nil
}

// ========== EXPORT ==========

var ExportHeader = []string{
	"Worker Name", "Role", "Units Worked", "Paid Units", "Period Unit Divisor",
	"Rate/Salary", "Pay Method", "Base Pay", "Allowance Total", "Gross Pay",
	"Paid Status", "Paid Date", "Marked Paid By",
}

// Record renders the row as strings in ExportHeader order.
func (r ExportRow) Record() []string {
	status := "Unpaid"
	if r.IsPaid {
		status = "Paid"
	}
	paidAt := ""
	if r.PaidAt != nil {
		paidAt = r.PaidAt.Format("2006-01-02")
	}
	return []string{
		r.WorkerName,
		r.Role,
		r.UnitsWorked.String(),
		r.PaidUnits.String(),
		strconv.Itoa(r.MonthUnitsDivisor),
		r.Rate.String(),
		string(r.PayMethod),
		r.BasePay.StringFixed(0),
		r.AllowanceTotal.String(),
		r.GrossPay.StringFixed(0),
		status,
		paidAt,
		r.PaidBy,
	}
}
