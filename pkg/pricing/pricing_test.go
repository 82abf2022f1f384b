package pricing

import (
	"testing"
	"time"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestCalculate(t *testing.T) {
	base := Input{
		BasePrice:     350000,
		BasePax:       4,
		ExtraPaxPrice: 50000,
		CheckIn:       date("2026-03-01"),
		CheckOut:      date("2026-03-03"),
		Adults:        2,
	}

	tests := []struct {
		name  string
		input func() Input
		want  Quote
	}{
		{
			name:  "standard two nights",
			input: func() Input { return base },
			want:  Quote{NightlyRate: 350000, Nights: 2, TotalPrice: 700000, DownPayment: 350000, Balance: 350000},
		},
		{
			name: "accessibility discount",
			input: func() Input {
				in := base
				in.AccessibilityDiscount = true
				return in
			},
			want: Quote{NightlyRate: 350000, Nights: 2, TotalPrice: 560000, DownPayment: 280000, Balance: 280000},
		},
		{
			name: "extra heads above base pax",
			input: func() Input {
				in := base
				in.Adults = 4
				in.Kids = 2
				return in
			},
			want: Quote{NightlyRate: 450000, Nights: 2, TotalPrice: 900000, DownPayment: 450000, Balance: 450000},
		},
		{
			name: "same day stay is one night",
			input: func() Input {
				in := base
				in.CheckOut = in.CheckIn
				return in
			},
			want: Quote{NightlyRate: 350000, Nights: 1, TotalPrice: 350000, DownPayment: 175000, Balance: 175000},
		},
		{
			name: "inverted range is one night",
			input: func() Input {
				in := base
				in.CheckIn, in.CheckOut = in.CheckOut, in.CheckIn
				return in
			},
			want: Quote{NightlyRate: 350000, Nights: 1, TotalPrice: 350000, DownPayment: 175000, Balance: 175000},
		},
		{
			name: "odd total rounds down payment half up",
			input: func() Input {
				return Input{BasePrice: 1001, BasePax: 2, CheckIn: date("2026-03-01"), CheckOut: date("2026-03-02"), Adults: 1}
			},
			want: Quote{NightlyRate: 1001, Nights: 1, TotalPrice: 1001, DownPayment: 501, Balance: 500},
		},
		{
			name: "discount rounds to nearest unit",
			input: func() Input {
				return Input{BasePrice: 1003, BasePax: 2, CheckIn: date("2026-03-01"), CheckOut: date("2026-03-02"), Adults: 1, AccessibilityDiscount: true}
			},
			want: Quote{NightlyRate: 1003, Nights: 1, TotalPrice: 802, DownPayment: 401, Balance: 401},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Calculate(tt.input())
			if got != tt.want {
				t.Errorf("Calculate() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCalculate_ToddlersDoNotCount(t *testing.T) {
	// Toddlers are not part of Input at all; only adults and kids reach the head count.
	q := Calculate(Input{BasePrice: 100000, BasePax: 2, ExtraPaxPrice: 20000, CheckIn: date("2026-01-01"), CheckOut: date("2026-01-02"), Adults: 2})
	if q.NightlyRate != 100000 {
		t.Errorf("NightlyRate = %d, want 100000", q.NightlyRate)
	}
}

func TestCalculate_DownPaymentProperty(t *testing.T) {
	for price := int64(0); price < 5000; price += 37 {
		for nights := 1; nights <= 5; nights++ {
			for _, discount := range []bool{false, true} {
				in := Input{
					BasePrice:             price,
					BasePax:               2,
					ExtraPaxPrice:         1234,
					CheckIn:               date("2026-05-01"),
					CheckOut:              date("2026-05-01").AddDate(0, 0, nights),
					Adults:                3,
					AccessibilityDiscount: discount,
				}
				q := Calculate(in)
				if q.TotalPrice < 0 {
					t.Fatalf("negative total for %+v", in)
				}
				if want := (q.TotalPrice + 1) / 2; q.DownPayment != want {
					t.Fatalf("DownPayment = %d, want round(%d/2) = %d", q.DownPayment, q.TotalPrice, want)
				}
				if q.Balance != q.TotalPrice-q.DownPayment || q.Balance < 0 {
					t.Fatalf("Balance = %d for total %d down %d", q.Balance, q.TotalPrice, q.DownPayment)
				}
			}
		}
	}
}

func TestApplyRate(t *testing.T) {
	tests := []struct {
		amount int64
		rate   float64
		want   int64
	}{
		{700000, 0.1, 70000},
		{700000, 0.05, 35000},
		{12345, 0.1, 1235},
		{560000, 0, 0},
		{999, 0.5, 500},
	}
	for _, tt := range tests {
		if got := ApplyRate(tt.amount, tt.rate); got != tt.want {
			t.Errorf("ApplyRate(%d, %v) = %d, want %d", tt.amount, tt.rate, got, tt.want)
		}
	}
}
