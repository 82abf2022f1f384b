// Package pricing computes the monetary terms of a stay. All amounts are
// integer minor currency units (centavos).
package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

var (
	accessibilityFactor = decimal.RequireFromString("0.8")
	downPaymentFactor   = decimal.RequireFromString("0.5")
)

type Input struct {
	BasePrice             int64
	BasePax               int
	ExtraPaxPrice         int64
	CheckIn               time.Time
	CheckOut              time.Time
	Adults                int
	Kids                  int
	AccessibilityDiscount bool
}

type Quote struct {
	NightlyRate int64 `json:"nightly_rate"`
	Nights      int   `json:"nights"`
	TotalPrice  int64 `json:"total_price"`
	DownPayment int64 `json:"down_payment"`
	Balance     int64 `json:"balance"`
}

// Calculate is pure: the same input always yields the same quote.
func Calculate(in Input) Quote {
	nights := max(1, wholeDaysBetween(in.CheckOut, in.CheckIn))
	extraHeads := max(0, in.Adults+in.Kids-in.BasePax)
	nightlyRate := in.BasePrice + int64(extraHeads)*in.ExtraPaxPrice

	rawTotal := decimal.NewFromInt(nightlyRate).Mul(decimal.NewFromInt(int64(nights)))
	if in.AccessibilityDiscount {
		rawTotal = rawTotal.Mul(accessibilityFactor)
	}

	total := max(0, Round(rawTotal))
	down := Round(decimal.NewFromInt(total).Mul(downPaymentFactor))

	return Quote{
		NightlyRate: nightlyRate,
		Nights:      nights,
		TotalPrice:  total,
		DownPayment: down,
		Balance:     total - down,
	}
}

// ApplyRate returns round(amount * rate), used for commissions.
func ApplyRate(amount int64, rate float64) int64 {
	return Round(decimal.NewFromInt(amount).Mul(decimal.NewFromFloat(rate)))
}

// Round rounds half away from zero to a whole minor unit.
func Round(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}

func wholeDaysBetween(later, earlier time.Time) int {
	a := dateOnly(later)
	b := dateOnly(earlier)
	return int(a.Sub(b).Hours() / 24)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
