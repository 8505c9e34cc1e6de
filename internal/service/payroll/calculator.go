package payroll

import (
	"fmt"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/money"
	"github.com/shopspring/decimal"
)

// Compute derives base and gross pay for one item. It performs no I/O and does not
// modify its inputs.
//
//	salaried:          base = round(rate / divisor * (worked + paidLeave))
//	daily/casual/locum: base = round(rate * worked)
//	gross = round(base + sum(allowances))
func Compute(profile payroll.PayProfile, units payroll.Units, allowances []payroll.Allowance, divisor int) (payroll.ComputeResult, error) {
	if divisor < 1 {
		return payroll.ComputeResult{}, fmt.Errorf("divisor %d: %w", divisor, payroll.ErrInvalidDivisor)
	}

	var base decimal.Decimal
	switch profile.PayModel {
	case payroll.PayModelFixed:
		payable := money.Units(units.Worked + units.PaidLeave)
		base = money.Round(profile.Rate.Mul(payable).Div(decimal.NewFromInt(int64(divisor))))
	case payroll.PayModelDaily, payroll.PayModelCasual, payroll.PayModelLocum:
		base = money.Round(profile.Rate.Mul(money.Units(units.Worked)))
	default:
		return payroll.ComputeResult{}, fmt.Errorf("pay model %q: %w", profile.PayModel, payroll.ErrUnknownPayModel)
	}

	amounts := make([]decimal.Decimal, 0, len(allowances))
	for _, a := range allowances {
		amounts = append(amounts, a.Amount)
	}
	total := money.Sum(amounts...)

	return payroll.ComputeResult{
		BasePay:        base,
		AllowanceTotal: total,
		GrossPay:       money.Round(base.Add(total)),
	}, nil
}

// PaidUnits is the number of units the base pay was computed from.
func PaidUnits(model payroll.PayModel, units payroll.Units) float64 {
	if model.IsSalaried() {
		return units.Worked + units.PaidLeave
	}
	return units.Worked
}
