package payroll

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/location"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/sse"
	"github.com/shopspring/decimal"
)

// Config holds payroll run defaults
type Config struct {
	DefaultMonthUnitsDivisor int // default: 30
}

type PayrollServiceImpl struct {
	txManager   database.TxManager
	payrollRepo payroll.PayrollRepository
	aggregator  attendance.Aggregator
	config      Config
	events      *sse.Hub
	locks       *runLocks
	now         func() time.Time
}

// NewPayrollService wires the service. events may be nil.
func NewPayrollService(
	txManager database.TxManager,
	payrollRepo payroll.PayrollRepository,
	aggregator attendance.Aggregator,
	events *sse.Hub,
	cfg Config,
) payroll.PayrollService {
	if cfg.DefaultMonthUnitsDivisor == 0 {
		cfg.DefaultMonthUnitsDivisor = 30
	}
	return &PayrollServiceImpl{
		txManager:   txManager,
		payrollRepo: payrollRepo,
		aggregator:  aggregator,
		events:      events,
		config:      cfg,
		locks:       newRunLocks(),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// publish is called only after the mutating transaction has committed.
func (s *PayrollServiceImpl) publish(companyID string, name string, e payroll.RunEvent) {
	s.events.Publish(sse.Event{Topic: companyID, Name: name, Data: e})
}

func lockedError(run payroll.PayrollRun) error {
	return fmt.Errorf("payroll run %s for %s..%s: %w", run.ID,
		run.PeriodStart.Format("2006-01-02"), run.PeriodEnd.Format("2006-01-02"), payroll.ErrRunLocked)
}

// ========== RUNS ==========

// GetOrCreateRun returns the run for the company and period, creating it on first use.
func (s *PayrollServiceImpl) GetOrCreateRun(ctx context.Context, companyID string, period payroll.Period) (payroll.PayrollRun, error) {
	if period.End.Before(period.Start) {
		return payroll.PayrollRun{}, fmt.Errorf("period %s: %w", period, payroll.ErrInvalidPeriod)
	}
	return s.payrollRepo.GetOrCreateRun(ctx, companyID, period, s.config.DefaultMonthUnitsDivisor)
}

// GetPayrollForPeriod returns the run and its items. A draft run is recomputed from
// attendance first; a finalized run is returned as stored.
func (s *PayrollServiceImpl) GetPayrollForPeriod(ctx context.Context, companyID string, period payroll.Period, locationID *string) (payroll.PeriodPayroll, error) {
	run, err := s.GetOrCreateRun(ctx, companyID, period)
	if err != nil {
		return payroll.PeriodPayroll{}, err
	}

	var agg *attendance.AggregateResult
	if !run.IsFinalized() || locationID != nil {
		res, err := s.aggregator.Aggregate(ctx, attendance.AggregateRequest{
			CompanyID:   companyID,
			PeriodStart: period.Start,
			PeriodEnd:   period.End,
		})
		if err != nil {
			return payroll.PeriodPayroll{}, err
		}
		agg = &res
	}

	if !run.IsFinalized() {
		run, err = s.recompute(ctx, companyID, run.ID, *agg)
		if err != nil {
			return payroll.PeriodPayroll{}, err
		}
	}

	items, err := s.loadItems(ctx, run.ID)
	if err != nil {
		return payroll.PeriodPayroll{}, err
	}

	result := payroll.PeriodPayroll{Run: run, Items: items}
	if agg != nil && !run.IsFinalized() {
		result.Issues = agg.Issues
	}
	if locationID != nil {
		filter := attendance.AggregateRequest{LocationID: locationID}
		atLocation := make(map[location.WorkerRef]bool)
		var issues []location.LocationIssue
		for _, line := range agg.Lines {
			if filter.Matches(line) {
				atLocation[line.Worker] = true
				if line.Issue != nil && !run.IsFinalized() {
					issues = append(issues, *line.Issue)
				}
			}
		}
		filtered := make([]payroll.PayrollItem, 0, len(items))
		for _, item := range items {
			if atLocation[item.Worker()] {
				filtered = append(filtered, item)
			}
		}
		result.Items = filtered
		result.Issues = issues
	}
	return result, nil
}

// recompute upserts one item per worker with counted units. Items whose worker no
// longer has any counted line are kept with zero units. Allowances and paid state are untouched.
func (s *PayrollServiceImpl) recompute(ctx context.Context, companyID string, runID string, agg attendance.AggregateResult) (payroll.PayrollRun, error) {
	unlock := s.locks.Lock(runID)
	defer unlock()

	var run payroll.PayrollRun
	err := s.txManager.WithinTx(ctx, func(ctx context.Context) error {
		locked, err := s.payrollRepo.LockRun(ctx, runID, companyID)
		if err != nil {
			return err
		}
		run = locked
		if locked.IsFinalized() {
			return nil
		}

		existing, err := s.payrollRepo.ListItems(ctx, runID)
		if err != nil {
			return err
		}
		allowances, err := s.payrollRepo.ListAllowancesByRun(ctx, runID)
		if err != nil {
			return err
		}
		byWorker := make(map[location.WorkerRef]payroll.PayrollItem, len(existing))
		for _, item := range existing {
			byWorker[item.Worker()] = item
		}

		totals := attendance.Summarize(agg.Lines)
		workers := make([]location.WorkerRef, 0, len(totals))
		for w := range totals {
			workers = append(workers, w)
		}
		sort.Slice(workers, func(i, j int) bool { return workers[i].String() < workers[j].String() })

		for _, w := range workers {
			item, err := itemFor(w, agg)
			if err != nil {
				slog.Warn("Skipping worker without pay profile", "company_id", companyID, "run_id", runID, "worker", w.String(), "error", err)
				continue
			}
			item.RunID = runID
			item.Units = totals[w]
			prev, ok := byWorker[w]
			if ok {
				delete(byWorker, w)
			}
			if err := s.upsertComputed(ctx, locked, item, allowances[prev.ID]); err != nil {
				return err
			}
		}

		for _, stale := range byWorker {
			stale.Units = payroll.Units{}
			if err := s.upsertComputed(ctx, locked, stale, allowances[stale.ID]); err != nil {
				return err
			}
		}
		return nil
	})
	return run, err
}

func (s *PayrollServiceImpl) upsertComputed(ctx context.Context, run payroll.PayrollRun, item payroll.PayrollItem, allowances []payroll.Allowance) error {
	res, err := Compute(item.Profile(), item.Units, allowances, run.MonthUnitsDivisor)
	if err != nil {
		return fmt.Errorf("payroll item for %s: %w", item.Worker(), err)
	}
	item.BasePay, item.AllowanceTotal, item.GrossPay = res.BasePay, res.AllowanceTotal, res.GrossPay
	_, err = s.payrollRepo.UpsertComputedItem(ctx, item)
	return err
}

// itemFor builds the identity and pay profile part of an item from roster data.
func itemFor(w location.WorkerRef, agg attendance.AggregateResult) (payroll.PayrollItem, error) {
	item := payroll.PayrollItem{WorkerType: w.Type, WorkerID: w.ID}

	switch w.Type {
	case location.WorkerTypeStaff:
		e, ok := agg.Employees[w.ID]
		if !ok {
			return item, fmt.Errorf("employee %s: %w", w.ID, payroll.ErrUnknownWorker)
		}
		model, err := payroll.ParsePayModel(e.PayModel)
		if err != nil {
			return item, fmt.Errorf("employee %s: %w", w.ID, err)
		}
		item.WorkerName = e.FullName
		item.RoleName = e.RoleName
		item.PayModel = model
		rate := e.DailyRate
		if model.IsSalaried() {
			rate = e.MonthlySalary
		}
		item.BaseRate = decimal.Zero
		if rate != nil {
			item.BaseRate = *rate
		}
	case location.WorkerTypeLocum:
		b, ok := agg.Locums[w.ID]
		if !ok {
			return item, fmt.Errorf("locum booking %s: %w", w.ID, payroll.ErrUnknownWorker)
		}
		item.WorkerName = b.Name
		item.PayModel = payroll.PayModelLocum
		item.BaseRate = b.DailyRate
	default:
		return item, fmt.Errorf("worker %s: %w", w, location.ErrUnknownWorkerType)
	}
	return item, nil
}

func (s *PayrollServiceImpl) loadItems(ctx context.Context, runID string) ([]payroll.PayrollItem, error) {
	items, err := s.payrollRepo.ListItems(ctx, runID)
	if err != nil {
		return nil, err
	}
	allowances, err := s.payrollRepo.ListAllowancesByRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].Allowances = allowances[items[i].ID]
	}
	return items, nil
}

// withDraftRun runs fn under the run's process lock and row lock, rejecting finalized runs.
func (s *PayrollServiceImpl) withDraftRun(ctx context.Context, companyID string, runID string, fn func(ctx context.Context, run payroll.PayrollRun) error) error {
	unlock := s.locks.Lock(runID)
	defer unlock()

	return s.txManager.WithinTx(ctx, func(ctx context.Context) error {
		run, err := s.payrollRepo.LockRun(ctx, runID, companyID)
		if err != nil {
			return err
		}
		if run.IsFinalized() {
			return lockedError(run)
		}
		return fn(ctx, run)
	})
}

// mutateDraftItem re-reads the item inside the locked transaction and hands it to fn.
func (s *PayrollServiceImpl) mutateDraftItem(ctx context.Context, companyID string, itemID string, fn func(ctx context.Context, run payroll.PayrollRun, item payroll.PayrollItem) (payroll.PayrollItem, error)) (payroll.PayrollItem, error) {
	item, err := s.payrollRepo.GetItemByID(ctx, itemID, companyID)
	if err != nil {
		return payroll.PayrollItem{}, err
	}

	var out payroll.PayrollItem
	err = s.withDraftRun(ctx, companyID, item.RunID, func(ctx context.Context, run payroll.PayrollRun) error {
		current, err := s.payrollRepo.GetItemByID(ctx, itemID, companyID)
		if err != nil {
			return err
		}
		out, err = fn(ctx, run, current)
		return err
	})
	if err != nil {
		return payroll.PayrollItem{}, err
	}
	s.publish(companyID, payroll.EventItemUpdated, payroll.RunEvent{RunID: item.RunID, ItemID: itemID})
	return out, nil
}

func (s *PayrollServiceImpl) UpdateRunSettings(ctx context.Context, companyID string, runID string, req payroll.UpdateRunSettingsRequest) (payroll.PayrollRun, error) {
	if err := req.Validate(); err != nil {
		return payroll.PayrollRun{}, err
	}

	var updated payroll.PayrollRun
	err := s.withDraftRun(ctx, companyID, runID, func(ctx context.Context, run payroll.PayrollRun) error {
		var err error
		updated, err = s.payrollRepo.UpdateRunSettings(ctx, runID, companyID, req.MarkedBy, req.MonthUnitsDivisor)
		if err != nil {
			return err
		}
		if updated.MonthUnitsDivisor == run.MonthUnitsDivisor {
			return nil
		}

		// Only salaried pay depends on the divisor.
		items, err := s.loadItems(ctx, runID)
		if err != nil {
			return err
		}
		for _, item := range items {
			if !item.PayModel.IsSalaried() {
				continue
			}
			res, err := Compute(item.Profile(), item.Units, item.Allowances, updated.MonthUnitsDivisor)
			if err != nil {
				return fmt.Errorf("payroll item %s: %w", item.ID, err)
			}
			if err := s.payrollRepo.UpdateItemAmounts(ctx, item.ID, res.BasePay, res.AllowanceTotal, res.GrossPay); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return payroll.PayrollRun{}, err
	}
	s.publish(companyID, payroll.EventRunUpdated, payroll.RunEvent{RunID: runID})
	return updated, nil
}

// SetItemPaid stamps paid-at and paid-by when an item becomes paid and clears them when it is unpaid.
func (s *PayrollServiceImpl) SetItemPaid(ctx context.Context, companyID string, actorID string, itemID string, paid bool) (payroll.PayrollItem, error) {
	return s.mutateDraftItem(ctx, companyID, itemID, func(ctx context.Context, run payroll.PayrollRun, item payroll.PayrollItem) (payroll.PayrollItem, error) {
		if item.IsPaid == paid {
			return s.withAllowances(ctx, item)
		}
		var (
			paidAt *time.Time
			paidBy *string
		)
		if paid {
			at := s.now()
			actor := actorID
			paidAt, paidBy = &at, &actor
		}
		updated, err := s.payrollRepo.SetItemPaid(ctx, item.ID, paid, paidAt, paidBy)
		if err != nil {
			return payroll.PayrollItem{}, err
		}
		return s.withAllowances(ctx, updated)
	})
}

// MarkAllPaid marks every unpaid item of a draft run as paid by actorID.
func (s *PayrollServiceImpl) MarkAllPaid(ctx context.Context, companyID string, actorID string, runID string) (int, error) {
	marked := 0
	err := s.withDraftRun(ctx, companyID, runID, func(ctx context.Context, run payroll.PayrollRun) error {
		items, err := s.payrollRepo.ListItems(ctx, runID)
		if err != nil {
			return err
		}
		at := s.now()
		for _, item := range items {
			if item.IsPaid {
				continue
			}
			actor := actorID
			if _, err := s.payrollRepo.SetItemPaid(ctx, item.ID, true, &at, &actor); err != nil {
				return err
			}
			marked++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if marked > 0 {
		s.publish(companyID, payroll.EventRunUpdated, payroll.RunEvent{RunID: runID, ActorID: actorID, Marked: marked})
	}
	return marked, nil
}

// FinalizeRun locks the run. It fails with ErrUnpaidItems while any item is unpaid and
// never changes paid flags itself.
func (s *PayrollServiceImpl) FinalizeRun(ctx context.Context, companyID string, actorID string, runID string) (payroll.PayrollRun, error) {
	var finalized payroll.PayrollRun
	err := s.withDraftRun(ctx, companyID, runID, func(ctx context.Context, run payroll.PayrollRun) error {
		items, err := s.payrollRepo.ListItems(ctx, runID)
		if err != nil {
			return err
		}
		unpaid := 0
		for _, item := range items {
			if !item.IsPaid {
				unpaid++
			}
		}
		if unpaid > 0 {
			return fmt.Errorf("payroll run %s: %d of %d items unpaid: %w", runID, unpaid, len(items), payroll.ErrUnpaidItems)
		}

		finalized, err = s.payrollRepo.FinalizeRun(ctx, runID, companyID, actorID, s.now())
		return err
	})
	if err != nil {
		return payroll.PayrollRun{}, err
	}

	slog.Info("Payroll run finalized", "company_id", companyID, "run_id", runID, "actor_id", actorID)
	s.publish(companyID, payroll.EventRunFinalized, payroll.RunEvent{RunID: runID, ActorID: actorID})
	return finalized, nil
}

func (s *PayrollServiceImpl) withAllowances(ctx context.Context, item payroll.PayrollItem) (payroll.PayrollItem, error) {
	allowances, err := s.payrollRepo.ListAllowances(ctx, item.ID)
	if err != nil {
		return payroll.PayrollItem{}, err
	}
	item.Allowances = allowances
	return item, nil
}
