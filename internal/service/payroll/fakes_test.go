package payroll

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/shopspring/decimal"
)

// fakePayrollRepo is an in-memory payroll.PayrollRepository.
type fakePayrollRepo struct {
	mu         sync.Mutex
	seq        int
	runs       map[string]payroll.PayrollRun
	items      map[string]payroll.PayrollItem
	allowances map[string][]payroll.Allowance
}

func newFakePayrollRepo() *fakePayrollRepo {
	return &fakePayrollRepo{
		runs:       make(map[string]payroll.PayrollRun),
		items:      make(map[string]payroll.PayrollItem),
		allowances: make(map[string][]payroll.Allowance),
	}
}

func (f *fakePayrollRepo) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func (f *fakePayrollRepo) GetOrCreateRun(ctx context.Context, companyID string, period payroll.Period, defaultDivisor int) (payroll.PayrollRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, r := range f.runs {
		if r.CompanyID == companyID && r.PeriodStart.Equal(period.Start) && r.PeriodEnd.Equal(period.End) {
			return r, nil
		}
	}
	run := payroll.PayrollRun{
		ID:                f.nextID("run"),
		CompanyID:         companyID,
		PeriodStart:       period.Start,
		PeriodEnd:         period.End,
		MonthUnitsDivisor: defaultDivisor,
		Status:            payroll.RunStatusDraft,
	}
	f.runs[run.ID] = run
	return run, nil
}

func (f *fakePayrollRepo) GetRunByID(ctx context.Context, id string, companyID string) (payroll.PayrollRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	r, ok := f.runs[id]
	if !ok || r.CompanyID != companyID {
		return payroll.PayrollRun{}, fmt.Errorf("payroll run %s: %w", id, payroll.ErrRunNotFound)
	}
	return r, nil
}

func (f *fakePayrollRepo) LockRun(ctx context.Context, id string, companyID string) (payroll.PayrollRun, error) {
	return f.GetRunByID(ctx, id, companyID)
}

func (f *fakePayrollRepo) UpdateRunSettings(ctx context.Context, id string, companyID string, markedBy *string, divisor *int) (payroll.PayrollRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	r, ok := f.runs[id]
	if !ok || r.CompanyID != companyID || r.IsFinalized() {
		return payroll.PayrollRun{}, fmt.Errorf("draft payroll run %s: %w", id, payroll.ErrRunNotFound)
	}
	if markedBy != nil {
		r.MarkedBy = markedBy
	}
	if divisor != nil {
		r.MonthUnitsDivisor = *divisor
	}
	f.runs[id] = r
	return r, nil
}

func (f *fakePayrollRepo) FinalizeRun(ctx context.Context, id string, companyID string, finalizedBy string, at time.Time) (payroll.PayrollRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	r, ok := f.runs[id]
	if !ok || r.CompanyID != companyID || r.IsFinalized() {
		return payroll.PayrollRun{}, fmt.Errorf("draft payroll run %s: %w", id, payroll.ErrRunNotFound)
	}
	r.Status = payroll.RunStatusFinalized
	r.FinalizedAt = &at
	r.FinalizedBy = &finalizedBy
	f.runs[id] = r
	return r, nil
}

func (f *fakePayrollRepo) ListItems(ctx context.Context, runID string) ([]payroll.PayrollItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []payroll.PayrollItem
	for _, i := range f.items {
		if i.RunID == runID {
			out = append(out, i)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Worker().String() < out[b].Worker().String() })
	return out, nil
}

func (f *fakePayrollRepo) GetItemByID(ctx context.Context, id string, companyID string) (payroll.PayrollItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i, ok := f.items[id]
	if !ok || f.runs[i.RunID].CompanyID != companyID {
		return payroll.PayrollItem{}, fmt.Errorf("payroll item %s: %w", id, payroll.ErrItemNotFound)
	}
	return i, nil
}

func (f *fakePayrollRepo) UpsertComputedItem(ctx context.Context, item payroll.PayrollItem) (payroll.PayrollItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for id, existing := range f.items {
		if existing.RunID == item.RunID && existing.Worker() == item.Worker() {
			existing.WorkerName = item.WorkerName
			existing.RoleName = item.RoleName
			existing.Units = item.Units
			existing.PayModel = item.PayModel
			existing.BaseRate = item.BaseRate
			existing.BasePay = item.BasePay
			existing.AllowanceTotal = item.AllowanceTotal
			existing.GrossPay = item.GrossPay
			f.items[id] = existing
			return existing, nil
		}
	}
	item.ID = f.nextID("item")
	item.IsPaid, item.PaidAt, item.PaidBy = false, nil, nil
	item.Allowances = nil
	f.items[item.ID] = item
	return item, nil
}

func (f *fakePayrollRepo) UpdateItemAmounts(ctx context.Context, id string, basePay, allowanceTotal, grossPay decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	i, ok := f.items[id]
	if !ok {
		return fmt.Errorf("payroll item %s: %w", id, payroll.ErrItemNotFound)
	}
	i.BasePay, i.AllowanceTotal, i.GrossPay = basePay, allowanceTotal, grossPay
	f.items[id] = i
	return nil
}

func (f *fakePayrollRepo) SetItemPaid(ctx context.Context, id string, isPaid bool, paidAt *time.Time, paidBy *string) (payroll.PayrollItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i, ok := f.items[id]
	if !ok {
		return payroll.PayrollItem{}, fmt.Errorf("payroll item %s: %w", id, payroll.ErrItemNotFound)
	}
	i.IsPaid, i.PaidAt, i.PaidBy = isPaid, paidAt, paidBy
	f.items[id] = i
	return i, nil
}

func (f *fakePayrollRepo) ListAllowances(ctx context.Context, itemID string) ([]payroll.Allowance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]payroll.Allowance(nil), f.allowances[itemID]...), nil
}

func (f *fakePayrollRepo) ListAllowancesByRun(ctx context.Context, runID string) (map[string][]payroll.Allowance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make(map[string][]payroll.Allowance)
	for itemID, list := range f.allowances {
		if f.items[itemID].RunID == runID && len(list) > 0 {
			out[itemID] = append([]payroll.Allowance(nil), list...)
		}
	}
	return out, nil
}

func (f *fakePayrollRepo) ReplaceAllowances(ctx context.Context, itemID string, allowances []payroll.Allowance) ([]payroll.Allowance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	saved := make([]payroll.Allowance, 0, len(allowances))
	for _, a := range allowances {
		a.ID = f.nextID("allowance")
		a.ItemID = itemID
		saved = append(saved, a)
	}
	f.allowances[itemID] = saved
	return saved, nil
}

func (f *fakePayrollRepo) AddAllowance(ctx context.Context, a payroll.Allowance) (payroll.Allowance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	a.ID = f.nextID("allowance")
	a.Position = len(f.allowances[a.ItemID])
	f.allowances[a.ItemID] = append(f.allowances[a.ItemID], a)
	return a, nil
}

func (f *fakePayrollRepo) UpdateAllowance(ctx context.Context, a payroll.Allowance) (payroll.Allowance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	list := f.allowances[a.ItemID]
	for i := range list {
		if list[i].ID == a.ID {
			list[i].Amount, list[i].Note = a.Amount, a.Note
			return list[i], nil
		}
	}
	return payroll.Allowance{}, fmt.Errorf("allowance %s: %w", a.ID, payroll.ErrAllowanceNotFound)
}

func (f *fakePayrollRepo) DeleteAllowance(ctx context.Context, id string, itemID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	list := f.allowances[itemID]
	for i := range list {
		if list[i].ID == id {
			f.allowances[itemID] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("allowance %s: %w", id, payroll.ErrAllowanceNotFound)
}

// storedItem returns the item for a worker id.
func (f *fakePayrollRepo) storedItem(workerID string) (payroll.PayrollItem, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, i := range f.items {
		if i.WorkerID == workerID {
			return i, true
		}
	}
	return payroll.PayrollItem{}, false
}

type fakeTxManager struct{}

func (fakeTxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeAggregator struct {
	mu     sync.Mutex
	result attendance.AggregateResult
	err    error
	calls  int
}

func (f *fakeAggregator) Aggregate(ctx context.Context, req attendance.AggregateRequest) (attendance.AggregateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	return f.result, f.err
}

func (f *fakeAggregator) set(result attendance.AggregateResult) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.result = result
}

func (f *fakeAggregator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls
}
