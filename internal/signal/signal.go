// Package signal classifies recommendation text into dispatch signals.
package signal

import "strings"

// Signal is the dispatch action extracted from a recommendation.
type Signal string

const (
	Discharge Signal = "DISCHARGE"
	Charge    Signal = "CHARGE"
	Hold      Signal = "HOLD"
)

// Rule maps keywords to the signal they indicate.
type Rule struct {
	Signal   Signal
	Keywords []string
}

// DefaultRules returns the classification rules in evaluation order.
// DISCHARGE is checked before CHARGE: "DISCHARGE" contains "CHARGE" as a
// substring, so the reverse order would read every discharge call as a
// charge.
func DefaultRules() []Rule {
	return []Rule{
		{Signal: Discharge, Keywords: []string{"DISCHARGE", "SELL"}},
		{Signal: Charge, Keywords: []string{"CHARGE", "BUY"}},
	}
}

// Classify applies the default rules to the recommendation text.
func Classify(recommendation string) Signal {
	return ClassifyWithRules(recommendation, DefaultRules())
}

// ClassifyWithRules applies rules in order; the first keyword hit wins.
// Matching is case-insensitive substring search. Text that matches no rule
// classifies as HOLD.
func ClassifyWithRules(recommendation string, rules []Rule) Signal {
	upper := strings.ToUpper(recommendation)
	for _, rule := range rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(upper, kw) {
				return rule.Signal
			}
		}
	}
	return Hold
}

// Color returns the display color associated with a signal.
func (s Signal) Color() string {
	switch s {
	case Discharge:
		return "red"
	case Charge:
		return "green"
	default:
		return "orange"
	}
}

// Headline returns the first sentence of a recommendation for compact
// displays. Markdown bold markers are stripped.
func Headline(recommendation string) string {
	text := strings.TrimSpace(recommendation)
	if idx := strings.IndexAny(text, ".\n"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(strings.ReplaceAll(text, "**", ""))
}
