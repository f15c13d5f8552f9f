package agents

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	apperrors "bess-trader/internal/errors"
	"bess-trader/internal/marketdata"
	"bess-trader/internal/models"
)

// PriceUnavailable is the summary recorded when the market data stage
// cannot produce real numbers. Downstream stages receive this text
// verbatim instead of a price line.
const PriceUnavailable = "Error fetching data (Check Ticker Symbol)"

// DefaultHistoryDays is the trailing window for the price trend.
const DefaultHistoryDays = 5

// MarketDataStage fetches the trailing daily closes for the session
// symbol and condenses them into a one-line price summary.
type MarketDataStage struct {
	source marketdata.Fetcher
	days   int
}

// NewMarketDataStage creates the market data stage. days falls back to
// DefaultHistoryDays when zero or negative.
func NewMarketDataStage(source marketdata.Fetcher, days int) *MarketDataStage {
	if days <= 0 {
		days = DefaultHistoryDays
	}
	return &MarketDataStage{source: source, days: days}
}

func (s *MarketDataStage) Name() string {
	return StageMarketData
}

func (s *MarketDataStage) Field() models.RecordField {
	return models.FieldPriceSummary
}

// Check always passes. Market data needs no credential.
func (s *MarketDataStage) Check() error {
	return nil
}

// Run fetches the trailing closes and formats the latest price and the
// percentage change across the window. Change is measured from the first
// close of the window to the last.
func (s *MarketDataStage) Run(ctx context.Context, rec models.SessionRecord) (string, error) {
	closes, err := s.source.DailyCloses(ctx, rec.Symbol, s.days)
	if err != nil {
		return "", apperrors.NewDataError(rec.Symbol, "price history fetch failed", err)
	}
	if len(closes) == 0 {
		return "", apperrors.NewDataError(rec.Symbol, "no closes in window", apperrors.ErrNoPriceHistory)
	}

	first := closes[0].Price
	last := closes[len(closes)-1].Price
	if first.IsZero() {
		return "", apperrors.NewDataError(rec.Symbol, "zero opening close in window", nil)
	}

	change := last.Sub(first).Div(first).Mul(decimal.NewFromInt(100))

	lastF, _ := last.Float64()
	changeF, _ := change.Float64()

	return fmt.Sprintf("Price: ₹%.2f | %d-Day Change: %.2f%%", lastF, s.days, changeF), nil
}
