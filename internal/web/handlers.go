package web

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	apperrors "bess-trader/internal/errors"
	"bess-trader/internal/logging"
	"bess-trader/internal/models"
	"bess-trader/internal/signal"
	"bess-trader/internal/store"
	"bess-trader/pkg/utils"
)

// sessionView is the template-facing shape of a stored session.
type sessionView struct {
	ID             string
	Symbol         string
	CompanyName    string
	Signal         string
	SignalColor    string
	Headline       string
	Price          string
	News           string
	Recommendation string
	StartedAt      string
	Duration       string
	Running        bool
}

func newSessionView(rec models.SessionRecord, timeLayout string) sessionView {
	sig := signal.Classify(rec.Recommendation)
	view := sessionView{
		ID:             rec.ID,
		Symbol:         rec.Symbol,
		CompanyName:    rec.CompanyName,
		Signal:         string(sig),
		SignalColor:    sig.Color(),
		Headline:       signal.Headline(rec.Recommendation),
		Price:          rec.PriceSummary,
		News:           rec.NewsSummary,
		Recommendation: rec.Recommendation,
		StartedAt:      rec.StartedAt.Local().Format(timeLayout),
		Running:        rec.CompletedAt.IsZero(),
	}
	if d := rec.Duration(); d > 0 {
		view.Duration = d.Round(time.Millisecond).String()
	}
	return view
}

// timeLayout builds the display layout from the UI configuration.
func (s *Server) timeLayout() string {
	date := s.cfg.UI.DateFormat
	if date == "" {
		date = "02-Jan-2006"
	}
	clock := s.cfg.UI.TimeFormat
	if clock == "" {
		clock = "15:04:05"
	}
	return date + " " + clock
}

// handleIndex renders the dashboard with the run form and recent sessions.
func (s *Server) handleIndex(c echo.Context) error {
	recent, err := s.store.GetSessions(c.Request().Context(), store.SessionFilter{Limit: 10})
	if err != nil {
		s.logger.Warn().Err(err).Msg("Loading recent sessions failed")
	}

	views := make([]sessionView, 0, len(recent))
	for _, rec := range recent {
		views = append(views, newSessionView(rec, s.timeLayout()))
	}

	return c.Render(http.StatusOK, "index", map[string]interface{}{
		"DefaultSymbol":  s.cfg.Desk.DefaultSymbol,
		"DefaultCompany": s.cfg.Desk.DefaultCompany,
		"MarketStatus":   string(utils.GetMarketStatus()),
		"Sessions":       views,
	})
}

// handleRunForm starts a pipeline run from the dashboard form and sends
// the browser to the live session page.
func (s *Server) handleRunForm(c echo.Context) error {
	symbol := c.FormValue("symbol")
	if symbol == "" {
		symbol = s.cfg.Desk.DefaultSymbol
	}
	company := s.resolveCompany(c.Request().Context(), symbol, c.FormValue("company"))

	rec := models.NewSessionRecord(symbol, company)
	if err := rec.Validate(); err != nil {
		return BadRequestResponse(c, err.Error())
	}

	// Persist the shell row first so the session page resolves while the
	// run is still in flight.
	if err := s.store.SaveSession(c.Request().Context(), &rec); err != nil {
		return InternalServerErrorResponse(c, "saving session", err)
	}

	go s.runDetached(rec)

	return c.Redirect(http.StatusSeeOther, "/sessions/"+rec.ID)
}

// runDetached executes a session in the background, saving the result and
// notifying when it completes. The run outlives the originating request,
// so it carries its own context.
func (s *Server) runDetached(rec models.SessionRecord) {
	log := logging.WithSession(logging.WithSymbol(s.logger, rec.Symbol), rec.ID)
	ctx := logging.WithLogger(context.Background(), log)

	done, err := s.runner.Execute(ctx, rec)
	if err != nil {
		log.Error().Err(err).Msg("Background run failed")
		if nerr := s.notifier.SendError(ctx, err, "background run "+rec.Symbol); nerr != nil {
			log.Warn().Err(nerr).Msg("Error notification failed")
		}
		return
	}

	if err := s.store.SaveSession(ctx, done); err != nil {
		log.Warn().Err(err).Msg("Saving completed session failed")
	}

	sig := signal.Classify(done.Recommendation)
	logging.LogSignal(log, done.Symbol, string(sig), signal.Headline(done.Recommendation))
	if err := s.notifier.SendDecision(ctx, done, sig); err != nil {
		log.Warn().Err(err).Msg("Decision notification failed")
	}
}

// handleSessionPage renders a single session. While the run is still in
// flight the page subscribes to the event stream and reloads on the
// terminal event.
func (s *Server) handleSessionPage(c echo.Context) error {
	rec, err := s.store.GetSessionByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if apperrors.Is(err, apperrors.ErrSessionNotFound) {
			return c.Render(http.StatusNotFound, "notfound", map[string]interface{}{
				"ID": c.Param("id"),
			})
		}
		return InternalServerErrorResponse(c, "loading session", err)
	}

	return c.Render(http.StatusOK, "session", map[string]interface{}{
		"Session": newSessionView(*rec, s.timeLayout()),
	})
}
