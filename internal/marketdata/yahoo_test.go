package marketdata

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"bess-trader/internal/models"
)

func closesOn(prices ...float64) []models.Close {
	base := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	closes := make([]models.Close, 0, len(prices))
	for i, p := range prices {
		closes = append(closes, models.Close{
			Date:  base.AddDate(0, 0, i),
			Price: decimal.NewFromFloat(p),
		})
	}
	return closes
}

func TestTrailingWindow(t *testing.T) {
	tests := []struct {
		name   string
		closes []models.Close
		n      int
		want   []float64
	}{
		{"shorter than window", closesOn(100, 102), 5, []float64{100, 102}},
		{"exact window", closesOn(100, 102, 99, 101, 103), 5, []float64{100, 102, 99, 101, 103}},
		{"trims oldest", closesOn(90, 95, 100, 102, 99, 101, 103), 5, []float64{100, 102, 99, 101, 103}},
		{"single day window", closesOn(100, 102, 99), 1, []float64{99}},
		{"zero window", closesOn(100, 102), 0, nil},
		{"empty input", nil, 5, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TrailingWindow(tt.closes, tt.n)
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}
			for i, want := range tt.want {
				if !got[i].Price.Equal(decimal.NewFromFloat(want)) {
					t.Errorf("close[%d] = %s, want %v", i, got[i].Price, want)
				}
			}
		})
	}
}

func TestTrailingWindowKeepsOrder(t *testing.T) {
	got := TrailingWindow(closesOn(1, 2, 3, 4, 5, 6), 3)
	for i := 1; i < len(got); i++ {
		if !got[i-1].Date.Before(got[i].Date) {
			t.Errorf("closes out of order at %d", i)
		}
	}
}

func TestDailyClosesHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	source := NewYahooSource()
	_, err := source.DailyCloses(ctx, "TATAPOWER.NS", 5)
	if err != context.Canceled {
		t.Errorf("DailyCloses() error = %v, want context.Canceled", err)
	}
}

func TestQuoteHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	source := NewYahooSource()
	_, err := source.Quote(ctx, "TATAPOWER.NS")
	if err != context.Canceled {
		t.Errorf("Quote() error = %v, want context.Canceled", err)
	}
}

func TestResolveCompanyFallsBackToSymbol(t *testing.T) {
	// A cancelled context forces the lookup to fail without touching the
	// network; the resolver must return the symbol unchanged.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	source := NewYahooSource()
	if got := source.ResolveCompany(ctx, "TATAPOWER.NS"); got != "TATAPOWER.NS" {
		t.Errorf("ResolveCompany() = %q, want symbol fallback", got)
	}
}
