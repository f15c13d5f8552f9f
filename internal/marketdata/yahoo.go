// Package marketdata fetches price data from Yahoo Finance.
package marketdata

import (
	"context"
	"sort"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/quote"

	apperrors "bess-trader/internal/errors"
	"bess-trader/internal/models"
)

// Fetcher provides daily closing prices for a symbol.
type Fetcher interface {
	DailyCloses(ctx context.Context, symbol string, days int) ([]models.Close, error)
}

// CompanyResolver maps a ticker symbol to a display name.
type CompanyResolver interface {
	ResolveCompany(ctx context.Context, symbol string) string
}

// lookbackMultiple converts trading days to calendar days, covering
// weekends and exchange holidays.
const lookbackMultiple = 3

// YahooSource fetches market data from Yahoo Finance.
type YahooSource struct{}

// NewYahooSource creates a new Yahoo Finance source.
func NewYahooSource() *YahooSource {
	return &YahooSource{}
}

// DailyCloses returns up to the last days daily closes for symbol, oldest
// first. The underlying chart API is not context-aware, so cancellation is
// only honored between calls.
func (s *YahooSource) DailyCloses(ctx context.Context, symbol string, days int) ([]models.Close, error) {
	if days < 1 {
		days = 1
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	end := time.Now()
	start := end.AddDate(0, 0, -days*lookbackMultiple)

	params := &chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	}

	iter := chart.Get(params)

	closes := make([]models.Close, 0, days*lookbackMultiple)
	for iter.Next() {
		bar := iter.Bar()
		closes = append(closes, models.Close{
			Date:  time.Unix(int64(bar.Timestamp), 0),
			Price: bar.Close,
		})
	}
	if err := iter.Err(); err != nil {
		return nil, apperrors.Wrapf(err, "fetching chart for %s", symbol)
	}
	if len(closes) == 0 {
		return nil, apperrors.Wrapf(apperrors.ErrNoPriceHistory, "symbol %s", symbol)
	}

	sort.Slice(closes, func(i, j int) bool {
		return closes[i].Date.Before(closes[j].Date)
	})

	return TrailingWindow(closes, days), nil
}

// TrailingWindow returns the last n closes, oldest first.
func TrailingWindow(closes []models.Close, n int) []models.Close {
	if n <= 0 {
		return nil
	}
	if len(closes) <= n {
		return closes
	}
	return closes[len(closes)-n:]
}

// Quote returns a point-in-time quote for the symbol.
func (s *YahooSource) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q, err := quote.Get(symbol)
	if err != nil {
		return nil, apperrors.Wrapf(err, "fetching quote for %s", symbol)
	}
	if q == nil {
		return nil, apperrors.NewDataError(symbol, "no quote returned", nil)
	}

	return &models.Quote{
		Symbol:           q.Symbol,
		ShortName:        q.ShortName,
		Price:            q.RegularMarketPrice,
		Change:           q.RegularMarketChange,
		ChangePercent:    q.RegularMarketChangePercent,
		PreviousClose:    q.RegularMarketPreviousClose,
		DayHigh:          q.RegularMarketDayHigh,
		DayLow:           q.RegularMarketDayLow,
		Volume:           int64(q.RegularMarketVolume),
		FiftyTwoWeekLow:  q.FiftyTwoWeekLow,
		FiftyTwoWeekHigh: q.FiftyTwoWeekHigh,
		Exchange:         q.FullExchangeName,
		Currency:         q.CurrencyID,
		MarketState:      string(q.MarketState),
		Timestamp:        time.Now(),
	}, nil
}

// ResolveCompany returns the company name for a symbol, falling back to the
// symbol itself when the lookup fails.
func (s *YahooSource) ResolveCompany(ctx context.Context, symbol string) string {
	q, err := s.Quote(ctx, symbol)
	if err != nil || q.ShortName == "" {
		return symbol
	}
	return q.ShortName
}
