// Package web serves the desk dashboard and the JSON API.
package web

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"bess-trader/internal/config"
	"bess-trader/internal/logging"
	"bess-trader/internal/models"
	"bess-trader/internal/notify"
	"bess-trader/internal/store"
	"bess-trader/internal/stream"
)

// Runner executes a prepared session record through the pipeline. The
// record is created by the caller so progress subscriptions can be set up
// before the run starts.
type Runner interface {
	Execute(ctx context.Context, rec models.SessionRecord) (*models.SessionRecord, error)
}

// CompanyResolver resolves a ticker symbol to a display name.
type CompanyResolver interface {
	ResolveCompany(ctx context.Context, symbol string) string
}

// Deps holds the collaborators the server needs.
type Deps struct {
	Runner   Runner
	Store    store.SessionStore
	Hub      *stream.Hub
	Notifier notify.Notifier
	Resolver CompanyResolver
	Logger   zerolog.Logger
}

// Server is the HTTP front end of the trading desk.
type Server struct {
	echo     *echo.Echo
	cfg      *config.Config
	runner   Runner
	store    store.SessionStore
	hub      *stream.Hub
	notifier notify.Notifier
	resolver CompanyResolver
	logger   zerolog.Logger
}

// NewServer creates the HTTP server with all routes registered.
func NewServer(cfg *config.Config, deps Deps) *Server {
	s := &Server{
		cfg:      cfg,
		runner:   deps.Runner,
		store:    deps.Store,
		hub:      deps.Hub,
		notifier: deps.Notifier,
		resolver: deps.Resolver,
		logger:   logging.WithComponent(deps.Logger, "web"),
	}
	if s.notifier == nil {
		s.notifier = notify.NewNoOpNotifier()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = newRenderer()

	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			// Health polls and long-lived event streams only add noise.
			path := c.Request().URL.Path
			return path == "/api/health" || strings.HasPrefix(path, "/events/")
		},
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.logger.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("Request")
			return nil
		},
	}))

	s.echo = e
	s.routes()
	return s
}

func (s *Server) routes() {
	s.echo.GET("/", s.handleIndex)
	s.echo.POST("/run", s.handleRunForm)
	s.echo.GET("/sessions/:id", s.handleSessionPage)
	s.echo.GET("/events/:id", s.handleEvents)

	api := s.echo.Group("/api")
	api.POST("/run", s.apiRun)
	api.GET("/sessions", s.apiSessions)
	api.GET("/sessions/:id", s.apiSessionByID)
	api.GET("/health", s.apiHealth)
}

// Start begins serving on the configured address. It blocks until the
// server stops.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.cfg.Server.Addr).Msg("Web server starting")
	return s.echo.Start(s.cfg.Server.Addr)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Web server shutting down")
	return s.echo.Shutdown(ctx)
}

// resolveCompany picks the display name for a run request. An explicit
// company wins, then the configured default for the default symbol, then
// a lookup against the market data source.
func (s *Server) resolveCompany(ctx context.Context, symbol, company string) string {
	if company != "" {
		return company
	}
	if symbol == s.cfg.Desk.DefaultSymbol && s.cfg.Desk.DefaultCompany != "" {
		return s.cfg.Desk.DefaultCompany
	}
	if s.resolver != nil {
		return s.resolver.ResolveCompany(ctx, symbol)
	}
	return symbol
}
