// Package api exposes the mirror's read-mostly HTTP surface: the build list,
// run reports, task status, and a manual prune trigger.
package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/relicmirror/relicmirror/internal/buildlist"
	"github.com/relicmirror/relicmirror/internal/config"
	"github.com/relicmirror/relicmirror/internal/metrics"
	"github.com/relicmirror/relicmirror/internal/prune"
	"github.com/relicmirror/relicmirror/internal/runlog"
	"github.com/relicmirror/relicmirror/internal/scheduler"
)

// Server handles HTTP requests for the mirror API.
type Server struct {
	echo   *echo.Echo
	logger zerolog.Logger

	store   buildlist.Store
	pruner  *prune.Service
	runs    *runlog.Service
	sched   *scheduler.Scheduler
	metrics *metrics.Metrics
}

// NewServer creates the API server and wires its routes.
func NewServer(store buildlist.Store, pruner *prune.Service, runs *runlog.Service, sched *scheduler.Scheduler, m *metrics.Metrics, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:    e,
		logger:  logger.With().Str("component", "api").Logger(),
		store:   store,
		pruner:  pruner,
		runs:    runs,
		sched:   sched,
		metrics: m,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	v1 := s.echo.Group("/api/v1")
	v1.GET("/health", s.handleHealth)
	v1.GET("/builds", s.handleListBuilds)
	v1.GET("/runs", s.handleListRuns)
	v1.GET("/runs/latest", s.handleLatestRun)
	v1.GET("/tasks", s.handleListTasks)
	v1.POST("/tasks/:id/run", s.handleRunTask)
	v1.POST("/prune", s.handlePrune)

	if s.metrics != nil {
		s.echo.GET("/metrics", echo.WrapHandler(
			promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{})))
	}
}

// Start listens on the configured address until the context or Shutdown
// stops it.
func (s *Server) Start(cfg config.ServerConfig) error {
	s.logger.Info().Str("address", cfg.Address()).Msg("api listening")
	if err := s.echo.Start(cfg.Address()); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Echo exposes the router for handler tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
