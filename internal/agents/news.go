package agents

import (
	"context"
	"fmt"

	apperrors "bess-trader/internal/errors"
	"bess-trader/internal/models"
)

const newsSystemPrompt = "You are a senior energy market researcher. Summarize key drivers in 3 bullet points."

func newsQuery(company string) string {
	return fmt.Sprintf("Latest news affecting %s share price in India. Focus on coal supply, government energy policy, and renewable projects. Be concise.", company)
}

// NewsStage asks a search-capable model for the current drivers behind
// the session company. The model is expected to do its own retrieval,
// which is why this stage wants a Perplexity-style backend.
type NewsStage struct {
	llm LLMClient
}

// NewNewsStage creates the news stage.
func NewNewsStage(llm LLMClient) *NewsStage {
	return &NewsStage{llm: llm}
}

func (s *NewsStage) Name() string {
	return StageNews
}

func (s *NewsStage) Field() models.RecordField {
	return models.FieldNewsSummary
}

func (s *NewsStage) Check() error {
	return s.llm.Ready()
}

func (s *NewsStage) Run(ctx context.Context, rec models.SessionRecord) (string, error) {
	summary, err := s.llm.CompleteWithSystem(ctx, newsSystemPrompt, newsQuery(rec.CompanyName))
	if err != nil {
		return "", apperrors.NewCompletionError(StageNews, s.llm.Model(), err)
	}
	return summary, nil
}
