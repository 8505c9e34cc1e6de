package payroll

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/location"
	"github.com/shopspring/decimal"
)

// PayModel enum
type PayModel string

const (
	PayModelFixed  PayModel = "fixed"
	PayModelDaily  PayModel = "daily"
	PayModelCasual PayModel = "casual"
	PayModelLocum  PayModel = "locum"
)

func ParsePayModel(s string) (PayModel, error) {
	switch m := PayModel(s); m {
	case PayModelFixed, PayModelDaily, PayModelCasual, PayModelLocum:
		return m, nil
	}
	return "", fmt.Errorf("pay model %q: %w", s, ErrUnknownPayModel)
}

// IsSalaried reports whether pay is a prorated monthly salary.
func (m PayModel) IsSalaried() bool {
	return m == PayModelFixed
}

// PayProfile is what the calculator needs to know about a worker.
// Rate is the monthly salary for salaried models and the daily rate otherwise.
type PayProfile struct {
	PayModel PayModel
	Rate     decimal.Decimal
}

type Units = attendance.Units

type Period struct {
	Start time.Time
	End   time.Time
}

func (p Period) String() string {
	return p.Start.Format("2006-01-02") + ".." + p.End.Format("2006-01-02")
}

// RunStatus enum
type RunStatus string

const (
	RunStatusDraft     RunStatus = "draft"
	RunStatusFinalized RunStatus = "finalized"
)

// PayrollRun - one computation per company and period
type PayrollRun struct {
	ID                string
	CompanyID         string
	PeriodStart       time.Time
	PeriodEnd         time.Time
	MarkedBy          *string
	MonthUnitsDivisor int
	Status            RunStatus
	FinalizedAt       *time.Time
	FinalizedBy       *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (r PayrollRun) IsFinalized() bool {
	return r.Status == RunStatusFinalized
}

// PayrollItem - the payable line for one worker within one run
type PayrollItem struct {
	ID             string
	RunID          string
	WorkerType     location.WorkerType
	WorkerID       string
	WorkerName     string
	RoleName       *string
	Units          Units
	PayModel       PayModel
	BaseRate       decimal.Decimal
	BasePay        decimal.Decimal
	AllowanceTotal decimal.Decimal
	GrossPay       decimal.Decimal
	IsPaid         bool
	PaidAt         *time.Time
	PaidBy         *string
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Allowances []Allowance
}

func (i PayrollItem) Worker() location.WorkerRef {
	return location.WorkerRef{Type: i.WorkerType, ID: i.WorkerID}
}

func (i PayrollItem) Profile() PayProfile {
	return PayProfile{PayModel: i.PayModel, Rate: i.BaseRate}
}

// Allowance - manual adjustment on an item. Negative amounts are deductions.
type Allowance struct {
	ID        string
	ItemID    string
	Position  int
	Amount    decimal.Decimal
	Note      string
	CreatedAt time.Time
}

// AllowanceInput is an allowance as submitted, before amount validation.
type AllowanceInput struct {
	Amount float64
	Note   string
}

// ComputeResult is the calculator output for one item.
type ComputeResult struct {
	BasePay        decimal.Decimal
	AllowanceTotal decimal.Decimal
	GrossPay       decimal.Decimal
}

// PeriodPayroll is a run with its items and any lines held back by location issues.
type PeriodPayroll struct {
	Run    PayrollRun
	Items  []PayrollItem
	Issues []location.LocationIssue
}

// ExportRow is one row of the tabular run report.
type ExportRow struct {
	WorkerName        string
	Role              string
	UnitsWorked       decimal.Decimal
	PaidUnits         decimal.Decimal
	MonthUnitsDivisor int
	Rate              decimal.Decimal
	PayMethod         PayModel
	BasePay           decimal.Decimal
	AllowanceTotal    decimal.Decimal
	GrossPay          decimal.Decimal
	IsPaid            bool
	PaidAt            *time.Time
	PaidBy            string
}
