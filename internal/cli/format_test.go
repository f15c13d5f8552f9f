package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"bess-trader/internal/models"
	"bess-trader/internal/signal"
)

func TestExcerpt(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"short text unchanged", "Evening peak", 40, "Evening peak"},
		{"whitespace collapsed", "a\n  b\tc", 40, "a b c"},
		{"cuts on word boundary", "supply crunch expected this evening", 20, "supply crunch..."},
		{"exact fit unchanged", "abcde", 5, "abcde"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Excerpt(tt.in, tt.max); got != tt.want {
				t.Errorf("Excerpt(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
		})
	}
}

func TestExcerptHandlesMultibyteRunes(t *testing.T) {
	// Price summaries carry the rupee sign; a byte-level cut would split it.
	in := strings.Repeat("₹", 30)
	got := Excerpt(in, 10)
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("Excerpt should truncate, got %q", got)
	}
	if strings.ContainsRune(got, '\uFFFD') {
		t.Errorf("Excerpt split a rune: %q", got)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "-"},
		{-time.Second, "-"},
		{450 * time.Millisecond, "450ms"},
		{1230 * time.Millisecond, "1.2s"},
		{90 * time.Second, "1m30s"},
	}

	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestSignalBadgeWithoutColor(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = prev }()

	for _, sig := range []signal.Signal{signal.Charge, signal.Discharge, signal.Hold} {
		if got := SignalBadge(sig); got != string(sig) {
			t.Errorf("SignalBadge(%s) = %q, want bare signal name without color", sig, got)
		}
	}
}

func TestSignalMarker(t *testing.T) {
	if signalMarker(signal.Discharge) == signalMarker(signal.Charge) {
		t.Error("discharge and charge markers must differ")
	}
	if signalMarker(signal.Hold) == "" {
		t.Error("hold marker must not be empty")
	}
}

func TestDispatchPanel(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = prev }()

	rec := models.NewSessionRecord("TATAPOWER.NS", "Tata Power")
	rec = rec.
		With(models.FieldPriceSummary, "Price: ₹412.35 | 5-Day Change: -1.20%").
		With(models.FieldRecommendation, "**DISCHARGE** Evening peak pricing justifies selling stored energy.")
	rec.CompletedAt = rec.StartedAt.Add(3 * time.Second)

	output, buf := testOutput(false)
	DispatchPanel(output, &rec)

	got := buf.String()
	for _, want := range []string{
		"Tata Power (TATAPOWER.NS)",
		"Price: ₹412.35",
		"DISCHARGE",
		"Took:     3s",
		"Evening peak pricing justifies selling stored energy.",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("panel missing %q:\n%s", want, got)
		}
	}
}
