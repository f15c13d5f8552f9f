package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Close is a single daily closing price. Prices stay decimal through the
// dataflow so the change calculation does not accumulate float error.
type Close struct {
	Date  time.Time       `json:"date"`
	Price decimal.Decimal `json:"price"`
}

// Quote is a point-in-time market quote for a symbol.
type Quote struct {
	Symbol           string    `json:"symbol"`
	ShortName        string    `json:"short_name"`
	Price            float64   `json:"price"`
	Change           float64   `json:"change"`
	ChangePercent    float64   `json:"change_percent"`
	PreviousClose    float64   `json:"previous_close"`
	DayHigh          float64   `json:"day_high"`
	DayLow           float64   `json:"day_low"`
	Volume           int64     `json:"volume"`
	FiftyTwoWeekLow  float64   `json:"fifty_two_week_low"`
	FiftyTwoWeekHigh float64   `json:"fifty_two_week_high"`
	Exchange         string    `json:"exchange"`
	Currency         string    `json:"currency"`
	MarketState      string    `json:"market_state"`
	Timestamp        time.Time `json:"timestamp"`
}
