package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/relicmirror/relicmirror/internal/config"
	"github.com/relicmirror/relicmirror/internal/runlog"
)

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": config.Version,
	})
}

func (s *Server) handleListBuilds(c echo.Context) error {
	records, err := s.store.Load(c.Request().Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load build list")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load build list")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"count":  len(records),
		"builds": records,
	})
}

func (s *Server) handleListRuns(c echo.Context) error {
	limit := 20
	if raw := c.QueryParam("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	entries, err := s.runs.List(c.Request().Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list runs")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list runs")
	}
	if entries == nil {
		entries = []runlog.Entry{}
	}
	return c.JSON(http.StatusOK, entries)
}

func (s *Server) handleLatestRun(c echo.Context) error {
	entry, err := s.runs.Latest(c.Request().Context())
	if err != nil {
		if errors.Is(err, runlog.ErrNoRuns) {
			return echo.NewHTTPError(http.StatusNotFound, "no prune runs recorded")
		}
		s.logger.Error().Err(err).Msg("failed to load latest run")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load latest run")
	}
	return c.JSON(http.StatusOK, entry)
}

func (s *Server) handleListTasks(c echo.Context) error {
	return c.JSON(http.StatusOK, s.sched.Snapshot())
}

func (s *Server) handleRunTask(c echo.Context) error {
	id := c.Param("id")
	if err := s.sched.RunNow(id); err != nil {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return c.JSON(http.StatusAccepted, map[string]string{"task": id, "status": "triggered"})
}

// handlePrune runs a prune pass on demand. It is a dry run unless the request
// explicitly says otherwise: deletions are irreversible, so the destructive
// mode is opt-in per call.
func (s *Server) handlePrune(c echo.Context) error {
	dryRun := true
	if raw := c.QueryParam("dryRun"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "dryRun must be a boolean")
		}
		dryRun = parsed
	}

	report, err := s.pruner.Run(c.Request().Context(), dryRun)
	if err != nil {
		s.logger.Error().Err(err).Msg("manual prune failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "prune failed")
	}
	return c.JSON(http.StatusOK, report)
}
