package payroll

import "context"

// AllowanceLedger edits the allowance list of one item. Every method rejects
// with ErrRunLocked once the owning run is finalized.
type AllowanceLedger interface {
	ListAllowances(ctx context.Context, companyID string, itemID string) ([]Allowance, error)
	AddAllowance(ctx context.Context, companyID string, itemID string, in AllowanceInput) (PayrollItem, error)
	UpdateAllowance(ctx context.Context, companyID string, itemID string, allowanceID string, in AllowanceInput) (PayrollItem, error)
	RemoveAllowance(ctx context.Context, companyID string, itemID string, allowanceID string) (PayrollItem, error)
	UpdateItemAllowances(ctx context.Context, companyID string, itemID string, in []AllowanceInput) (PayrollItem, error)
}

type PayrollService interface {
	AllowanceLedger

	GetOrCreateRun(ctx context.Context, companyID string, period Period) (PayrollRun, error)
	GetPayrollForPeriod(ctx context.Context, companyID string, period Period, locationID *string) (PeriodPayroll, error)
	UpdateRunSettings(ctx context.Context, companyID string, runID string, req UpdateRunSettingsRequest) (PayrollRun, error)
	SetItemPaid(ctx context.Context, companyID string, actorID string, itemID string, paid bool) (PayrollItem, error)
	FinalizeRun(ctx context.Context, companyID string, actorID string, runID string) (PayrollRun, error)
	MarkAllPaid(ctx context.Context, companyID string, actorID string, runID string) (int, error)
	ExportRun(ctx context.Context, companyID string, runID string) (PayrollRun, []ExportRow, error)
}
