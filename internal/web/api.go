package web

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	apperrors "bess-trader/internal/errors"
	"bess-trader/internal/models"
	"bess-trader/internal/signal"
	"bess-trader/internal/store"
)

// RunRequest is the JSON body for POST /api/run.
type RunRequest struct {
	Symbol  string `json:"symbol"`
	Company string `json:"company"`
}

// RunResult is the JSON payload for a completed run.
type RunResult struct {
	Record   models.SessionRecord `json:"record"`
	Signal   string               `json:"signal"`
	Headline string               `json:"headline"`
}

// apiRun executes a pipeline run synchronously and returns the record.
func (s *Server) apiRun(c echo.Context) error {
	var req RunRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestResponse(c, "invalid request body")
	}

	symbol := req.Symbol
	if symbol == "" {
		symbol = s.cfg.Desk.DefaultSymbol
	}
	company := s.resolveCompany(c.Request().Context(), symbol, req.Company)

	rec := models.NewSessionRecord(symbol, company)
	done, err := s.runner.Execute(c.Request().Context(), rec)
	if err != nil {
		switch {
		case apperrors.Is(err, apperrors.ErrMissingCredential):
			return UnprocessableResponse(c, "no API credential configured; set PERPLEXITY_API_KEY or credentials.toml")
		case isValidationError(err):
			return BadRequestResponse(c, err.Error())
		case isCompletionError(err):
			return BadGatewayResponse(c, "completion backend failed", err)
		default:
			return InternalServerErrorResponse(c, "pipeline run failed", err)
		}
	}

	if err := s.store.SaveSession(c.Request().Context(), done); err != nil {
		s.logger.Warn().Err(err).Str("session_id", done.ID).Msg("Saving session failed")
	}

	sig := signal.Classify(done.Recommendation)
	if err := s.notifier.SendDecision(c.Request().Context(), done, sig); err != nil {
		s.logger.Warn().Err(err).Msg("Decision notification failed")
	}

	return SuccessResponse(c, RunResult{
		Record:   *done,
		Signal:   string(sig),
		Headline: signal.Headline(done.Recommendation),
	})
}

func isValidationError(err error) bool {
	var valErr *apperrors.ValidationError
	return apperrors.As(err, &valErr)
}

func isCompletionError(err error) bool {
	var compErr *apperrors.CompletionError
	return apperrors.As(err, &compErr)
}

// apiSessions lists stored sessions, optionally filtered.
func (s *Server) apiSessions(c echo.Context) error {
	filter := store.SessionFilter{
		Symbol: c.QueryParam("symbol"),
		Limit:  50,
	}

	if v := c.QueryParam("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			return BadRequestResponse(c, "limit must be a positive integer")
		}
		filter.Limit = limit
	}
	if v := c.QueryParam("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return BadRequestResponse(c, "since must be RFC3339")
		}
		filter.Since = since
	}

	sessions, err := s.store.GetSessions(c.Request().Context(), filter)
	if err != nil {
		return InternalServerErrorResponse(c, "querying sessions", err)
	}
	if sessions == nil {
		sessions = []models.SessionRecord{}
	}

	return SuccessResponse(c, sessions)
}

// apiSessionByID returns one stored session.
func (s *Server) apiSessionByID(c echo.Context) error {
	rec, err := s.store.GetSessionByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if apperrors.Is(err, apperrors.ErrSessionNotFound) {
			return NotFoundResponse(c, "session not found")
		}
		return InternalServerErrorResponse(c, "loading session", err)
	}
	return SuccessResponse(c, rec)
}

// apiHealth reports service health and hub counters.
func (s *Server) apiHealth(c echo.Context) error {
	health := map[string]interface{}{
		"status":    "healthy",
		"service":   "bess-trader",
		"timestamp": time.Now().Format(time.RFC3339),
	}

	if count, err := s.store.CountSessions(c.Request().Context()); err == nil {
		health["sessions"] = count
	}
	if s.hub != nil {
		health["hub"] = s.hub.Metrics()
	}

	return SuccessResponse(c, health)
}
