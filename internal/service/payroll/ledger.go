package payroll

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/money"
)

// ========== ALLOWANCE LEDGER ==========

func (s *PayrollServiceImpl) ListAllowances(ctx context.Context, companyID string, itemID string) ([]payroll.Allowance, error) {
	item, err := s.payrollRepo.GetItemByID(ctx, itemID, companyID)
	if err != nil {
		return nil, err
	}
	return s.payrollRepo.ListAllowances(ctx, item.ID)
}

func (s *PayrollServiceImpl) AddAllowance(ctx context.Context, companyID string, itemID string, in payroll.AllowanceInput) (payroll.PayrollItem, error) {
	entry, err := toAllowance(itemID, in)
	if err != nil {
		return payroll.PayrollItem{}, err
	}
	return s.mutateDraftItem(ctx, companyID, itemID, func(ctx context.Context, run payroll.PayrollRun, item payroll.PayrollItem) (payroll.PayrollItem, error) {
		if _, err := s.payrollRepo.AddAllowance(ctx, entry); err != nil {
			return payroll.PayrollItem{}, err
		}
		return s.refreshTotals(ctx, run, item)
	})
}

func (s *PayrollServiceImpl) UpdateAllowance(ctx context.Context, companyID string, itemID string, allowanceID string, in payroll.AllowanceInput) (payroll.PayrollItem, error) {
	entry, err := toAllowance(itemID, in)
	if err != nil {
		return payroll.PayrollItem{}, err
	}
	entry.ID = allowanceID
	return s.mutateDraftItem(ctx, companyID, itemID, func(ctx context.Context, run payroll.PayrollRun, item payroll.PayrollItem) (payroll.PayrollItem, error) {
		if _, err := s.payrollRepo.UpdateAllowance(ctx, entry); err != nil {
			return payroll.PayrollItem{}, err
		}
		return s.refreshTotals(ctx, run, item)
	})
}

func (s *PayrollServiceImpl) RemoveAllowance(ctx context.Context, companyID string, itemID string, allowanceID string) (payroll.PayrollItem, error) {
	return s.mutateDraftItem(ctx, companyID, itemID, func(ctx context.Context, run payroll.PayrollRun, item payroll.PayrollItem) (payroll.PayrollItem, error) {
		if err := s.payrollRepo.DeleteAllowance(ctx, allowanceID, item.ID); err != nil {
			return payroll.PayrollItem{}, err
		}
		return s.refreshTotals(ctx, run, item)
	})
}

// UpdateItemAllowances replaces the whole allowance list. Every amount is checked
// before anything is written.
func (s *PayrollServiceImpl) UpdateItemAllowances(ctx context.Context, companyID string, itemID string, in []payroll.AllowanceInput) (payroll.PayrollItem, error) {
	entries := make([]payroll.Allowance, 0, len(in))
	for i, a := range in {
		entry, err := toAllowance(itemID, a)
		if err != nil {
			return payroll.PayrollItem{}, fmt.Errorf("allowance %d: %w", i, err)
		}
		entry.Position = i
		entries = append(entries, entry)
	}

	return s.mutateDraftItem(ctx, companyID, itemID, func(ctx context.Context, run payroll.PayrollRun, item payroll.PayrollItem) (payroll.PayrollItem, error) {
		if _, err := s.payrollRepo.ReplaceAllowances(ctx, item.ID, entries); err != nil {
			return payroll.PayrollItem{}, err
		}
		return s.refreshTotals(ctx, run, item)
	})
}

// refreshTotals recomputes allowance total and gross pay from the stored allowances.
func (s *PayrollServiceImpl) refreshTotals(ctx context.Context, run payroll.PayrollRun, item payroll.PayrollItem) (payroll.PayrollItem, error) {
	allowances, err := s.payrollRepo.ListAllowances(ctx, item.ID)
	if err != nil {
		return payroll.PayrollItem{}, err
	}
	res, err := Compute(item.Profile(), item.Units, allowances, run.MonthUnitsDivisor)
	if err != nil {
		return payroll.PayrollItem{}, fmt.Errorf("payroll item %s: %w", item.ID, err)
	}
	if err := s.payrollRepo.UpdateItemAmounts(ctx, item.ID, res.BasePay, res.AllowanceTotal, res.GrossPay); err != nil {
		return payroll.PayrollItem{}, err
	}

	item.BasePay, item.AllowanceTotal, item.GrossPay = res.BasePay, res.AllowanceTotal, res.GrossPay
	item.Allowances = allowances
	return item, nil
}

func toAllowance(itemID string, in payroll.AllowanceInput) (payroll.Allowance, error) {
	amount, err := money.FromFloat(in.Amount)
	if err != nil {
		return payroll.Allowance{}, fmt.Errorf("payroll item %s: %v: %w", itemID, err, payroll.ErrInvalidAmount)
	}
	return payroll.Allowance{ItemID: itemID, Amount: amount, Note: in.Note}, nil
}
