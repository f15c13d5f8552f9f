package cli

import (
	"strings"
	"time"

	"github.com/fatih/color"

	"bess-trader/internal/models"
	"bess-trader/internal/signal"
)

// DisableColor turns off colored output for both the raw escape codes
// and the fatih/color renderer.
func DisableColor() {
	colorDisabled = true
	color.NoColor = true
}

// signalColor maps a dispatch signal to its terminal color.
func signalColor(sig signal.Signal) *color.Color {
	switch sig {
	case signal.Discharge:
		return color.New(color.FgRed, color.Bold)
	case signal.Charge:
		return color.New(color.FgGreen, color.Bold)
	default:
		return color.New(color.FgYellow, color.Bold)
	}
}

// SignalBadge renders a dispatch signal in its color.
func SignalBadge(sig signal.Signal) string {
	return signalColor(sig).Sprint(string(sig))
}

// signalMarker returns the marker glyph for a dispatch signal.
func signalMarker(sig signal.Signal) string {
	switch sig {
	case signal.Discharge:
		return "🔴"
	case signal.Charge:
		return "🟢"
	default:
		return "🟠"
	}
}

// FormatDuration renders a run duration for display.
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}

// Excerpt collapses whitespace and truncates text to max runes on a word
// boundary.
func Excerpt(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}

	cut := max
	for i := max; i > max/2; i-- {
		if runes[i-1] == ' ' {
			cut = i - 1
			break
		}
	}
	return strings.TrimSpace(string(runes[:cut])) + "..."
}

// DispatchPanel renders a completed session as a boxed summary followed by
// the full recommendation text.
func DispatchPanel(o *Output, rec *models.SessionRecord) {
	sig := signal.Classify(rec.Recommendation)

	lines := []string{
		"Asset:    " + rec.CompanyName + " (" + rec.Symbol + ")",
		"Market:   " + rec.PriceSummary,
		"Signal:   " + SignalBadge(sig),
	}
	if d := rec.Duration(); d > 0 {
		lines = append(lines, "Took:     "+FormatDuration(d))
	}

	o.Box("Dispatch Decision", lines)
	o.Println()

	if headline := signal.Headline(rec.Recommendation); headline != "" {
		o.Bold("%s", headline)
	}
	o.Println(strings.TrimSpace(rec.Recommendation))
}
