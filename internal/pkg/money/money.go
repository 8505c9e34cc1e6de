package money

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Round rounds to whole currency units, half away from zero.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(0)
}

// FromFloat converts a float amount into a decimal, rejecting NaN and infinities.
func FromFloat(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, fmt.Errorf("amount %v is not a finite number", f)
	}
	return decimal.NewFromFloat(f), nil
}

// Parse accepts a decimal amount as text. "NaN", "Inf" and empty input are rejected.
func Parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount is empty")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return decimal.Zero, fmt.Errorf("amount %q is not a number", s)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, fmt.Errorf("amount %q is not a finite number", s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		// strconv accepts forms decimal does not, e.g. hex floats
		return decimal.NewFromFloat(f), nil
	}
	return d, nil
}

// Units converts attendance units (multiples of 0.5) to a decimal.
func Units(u float64) decimal.Decimal {
	return decimal.NewFromFloat(u)
}

// Sum adds all amounts.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
