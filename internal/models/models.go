// Package models defines the core data structures for the trading desk.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "bess-trader/internal/errors"
)

// RecordField identifies a writable field of a SessionRecord. Each pipeline
// stage owns exactly one field and may not touch the others.
type RecordField string

const (
	FieldPriceSummary   RecordField = "price_summary"
	FieldNewsSummary    RecordField = "news_summary"
	FieldRecommendation RecordField = "recommendation"
)

// SessionRecord is the shared state of a single pipeline run. It is created
// once per invocation and populated stage by stage, in order.
type SessionRecord struct {
	ID             string    `json:"id"`
	Symbol         string    `json:"symbol"`
	CompanyName    string    `json:"company_name"`
	PriceSummary   string    `json:"price_summary"`
	NewsSummary    string    `json:"news_summary"`
	Recommendation string    `json:"recommendation"`
	StartedAt      time.Time `json:"started_at"`
	CompletedAt    time.Time `json:"completed_at,omitempty"`
}

// NewSessionRecord creates a fresh record for one pipeline invocation.
func NewSessionRecord(symbol, companyName string) SessionRecord {
	return SessionRecord{
		ID:          uuid.New().String(),
		Symbol:      symbol,
		CompanyName: companyName,
		StartedAt:   time.Now(),
	}
}

// With returns a copy of the record with the given field set. Stages never
// mutate the record they receive; the pipeline merges their output through
// this method.
func (r SessionRecord) With(field RecordField, value string) SessionRecord {
	switch field {
	case FieldPriceSummary:
		r.PriceSummary = value
	case FieldNewsSummary:
		r.NewsSummary = value
	case FieldRecommendation:
		r.Recommendation = value
	}
	return r
}

// Validate checks that the record carries the inputs the pipeline needs.
func (r SessionRecord) Validate() error {
	if strings.TrimSpace(r.Symbol) == "" {
		return apperrors.NewValidationError("symbol", "must not be empty")
	}
	if strings.TrimSpace(r.CompanyName) == "" {
		return apperrors.NewValidationError("company_name", "must not be empty")
	}
	return nil
}

// Duration returns the wall-clock time of the run, or zero if it has not
// completed.
func (r SessionRecord) Duration() time.Duration {
	if r.CompletedAt.IsZero() {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// Complete returns whether all three stage fields have been populated.
func (r SessionRecord) Complete() bool {
	return r.PriceSummary != "" && r.NewsSummary != "" && r.Recommendation != ""
}
