package payroll

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PayrollRepository defines data access methods for payroll runs.
// Run lookups include companyID; item and allowance methods are reached only
// through an item or run already resolved for the company.
type PayrollRepository interface {
	// Runs
	GetOrCreateRun(ctx context.Context, companyID string, period Period, defaultDivisor int) (PayrollRun, error)
	GetRunByID(ctx context.Context, id string, companyID string) (PayrollRun, error)
	// LockRun takes a row lock on the run for the rest of the surrounding transaction.
	LockRun(ctx context.Context, id string, companyID string) (PayrollRun, error)
	UpdateRunSettings(ctx context.Context, id string, companyID string, markedBy *string, divisor *int) (PayrollRun, error)
	FinalizeRun(ctx context.Context, id string, companyID string, finalizedBy string, at time.Time) (PayrollRun, error)

	// Items
	ListItems(ctx context.Context, runID string) ([]PayrollItem, error)
	GetItemByID(ctx context.Context, id string, companyID string) (PayrollItem, error)
	// UpsertComputedItem writes computed fields keyed by (run, worker); allowances and paid state are kept.
	UpsertComputedItem(ctx context.Context, item PayrollItem) (PayrollItem, error)
	UpdateItemAmounts(ctx context.Context, id string, basePay, allowanceTotal, grossPay decimal.Decimal) error
	SetItemPaid(ctx context.Context, id string, isPaid bool, paidAt *time.Time, paidBy *string) (PayrollItem, error)

	// Allowances
	ListAllowances(ctx context.Context, itemID string) ([]Allowance, error)
	ListAllowancesByRun(ctx context.Context, runID string) (map[string][]Allowance, error)
	ReplaceAllowances(ctx context.Context, itemID string, allowances []Allowance) ([]Allowance, error)
	AddAllowance(ctx context.Context, allowance Allowance) (Allowance, error)
	UpdateAllowance(ctx context.Context, allowance Allowance) (Allowance, error)
	DeleteAllowance(ctx context.Context, id string, itemID string) error
}
