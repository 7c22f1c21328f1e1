// Package payout computes the fee a helper earns for an appointment.
package payout

import (
	"math"

	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/model"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Fee is PERCENTAGE ? price*value/100 : value, rounded half away from zero to cents and
// floored at zero. Unknown modes are treated as FIXED.
func Fee(price decimal.Decimal, mode model.PayoutMode, value decimal.Decimal) decimal.Decimal {
	raw := value
	if mode == model.PayoutPercentage {
		raw = price.Mul(value).Div(hundred)
	}
	fee := raw.Round(2)
	if fee.IsNegative() {
		return decimal.Zero.Round(2)
	}
	return fee
}

// ForHelper applies a helper's payout config to price.
func ForHelper(price decimal.Decimal, h model.Helper) decimal.Decimal {
	return Fee(price, h.Payout.Mode, h.Payout.Value)
}

// ComputeFee is Fee for float inputs, used by fee quotes. ok is false when price or value
// is NaN or infinite, and callers then keep whatever fee they already had.
func ComputeFee(price float64, mode model.PayoutMode, value float64) (decimal.Decimal, bool) {
	if !finite(price) || !finite(value) {
		return decimal.Decimal{}, false
	}
	return Fee(decimal.NewFromFloat(price), mode, decimal.NewFromFloat(value)), true
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
