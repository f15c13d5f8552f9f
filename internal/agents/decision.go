package agents

import (
	"context"
	"strings"

	apperrors "bess-trader/internal/errors"
	"bess-trader/internal/models"
)

// DecisionStage turns the accumulated price and news context into a
// CHARGE, DISCHARGE, or HOLD call for the battery operator.
type DecisionStage struct {
	llm LLMClient
}

// NewDecisionStage creates the decision stage.
func NewDecisionStage(llm LLMClient) *DecisionStage {
	return &DecisionStage{llm: llm}
}

func (s *DecisionStage) Name() string {
	return StageDecision
}

func (s *DecisionStage) Field() models.RecordField {
	return models.FieldRecommendation
}

func (s *DecisionStage) Check() error {
	return s.llm.Ready()
}

func (s *DecisionStage) Run(ctx context.Context, rec models.SessionRecord) (string, error) {
	recommendation, err := s.llm.Complete(ctx, decisionPrompt(rec))
	if err != nil {
		return "", apperrors.NewCompletionError(StageDecision, s.llm.Model(), err)
	}
	return recommendation, nil
}

// decisionPrompt assembles the operator briefing. The upstream summaries
// are inlined as-is, including the unavailable-data text when the market
// stage was degraded.
func decisionPrompt(rec models.SessionRecord) string {
	var b strings.Builder
	b.WriteString("You are an AI Operator for a Grid-Connected Battery Storage System.\n")
	b.WriteString("\n")
	b.WriteString("ASSET: " + rec.CompanyName + "\n")
	b.WriteString("MARKET DATA: " + rec.PriceSummary + "\n")
	b.WriteString("NEWS INTEL: " + rec.NewsSummary + "\n")
	b.WriteString("\n")
	b.WriteString("DECISION RULES:\n")
	b.WriteString("1. CHARGE: Low price/stable supply.\n")
	b.WriteString("2. DISCHARGE: High price/supply crunch.\n")
	b.WriteString("3. HOLD: Uncertain/Wait for event.\n")
	b.WriteString("\n")
	b.WriteString("Task: Decide CHARGE, DISCHARGE, or HOLD.\n")
	b.WriteString("Start with the decision in BOLD (e.g., **CHARGE**). Then explain in 1 short paragraph.")
	return b.String()
}
