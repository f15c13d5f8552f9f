package utils

import "time"

// IndiaLocation is the IST timezone used for NSE market hours.
var IndiaLocation *time.Location

func init() {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		// IST has no DST, a fixed offset is equivalent.
		loc = time.FixedZone("IST", 5*3600+1800)
	}
	IndiaLocation = loc
}

// MarketStatus represents the current NSE session state.
type MarketStatus string

const (
	MarketOpen    MarketStatus = "OPEN"
	MarketPreOpen MarketStatus = "PRE_OPEN"
	MarketClosed  MarketStatus = "CLOSED"
)

// NSE session boundaries in minutes from midnight IST.
const (
	preOpenStartMinute = 9 * 60       // 09:00
	openMinute         = 9*60 + 15    // 09:15
	closeMinute        = 15*60 + 30   // 15:30
)

// GetMarketStatus returns the current NSE market status.
func GetMarketStatus() MarketStatus {
	return MarketStatusAt(time.Now())
}

// MarketStatusAt returns the NSE market status at the given instant.
func MarketStatusAt(t time.Time) MarketStatus {
	t = t.In(IndiaLocation)

	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return MarketClosed
	}

	minutes := t.Hour()*60 + t.Minute()
	switch {
	case minutes >= preOpenStartMinute && minutes < openMinute:
		return MarketPreOpen
	case minutes >= openMinute && minutes < closeMinute:
		return MarketOpen
	default:
		return MarketClosed
	}
}

// IsMarketOpen returns true during the regular NSE trading session.
func IsMarketOpen() bool {
	return GetMarketStatus() == MarketOpen
}

// NextMarketOpen returns the next regular session open after the given time.
func NextMarketOpen(after time.Time) time.Time {
	t := after.In(IndiaLocation)
	open := time.Date(t.Year(), t.Month(), t.Day(), 9, 15, 0, 0, IndiaLocation)

	if !t.Before(open) {
		open = open.AddDate(0, 0, 1)
	}
	for open.Weekday() == time.Saturday || open.Weekday() == time.Sunday {
		open = open.AddDate(0, 0, 1)
	}
	return open
}
