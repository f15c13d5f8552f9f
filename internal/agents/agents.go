// Package agents implements the research pipeline stages.
package agents

import (
	"context"

	"bess-trader/internal/models"
)

// Stage names used in progress events and logs.
const (
	StageMarketData = "market_data"
	StageNews       = "news"
	StageDecision   = "decision"
)

// Stage is a single pipeline step. A stage reads the record it is given and
// returns the value for the one field it owns; it never writes the record
// itself. The pipeline merges the value through SessionRecord.With.
type Stage interface {
	Name() string
	Field() models.RecordField
	// Check reports whether the stage can run at all. The pipeline calls
	// every Check before the first stage starts, so a missing credential
	// aborts the run before any network traffic.
	Check() error
	Run(ctx context.Context, rec models.SessionRecord) (string, error)
}
