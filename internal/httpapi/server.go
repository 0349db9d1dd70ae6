package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"intelbrief/internal/domain"
	"intelbrief/internal/ports"
	"intelbrief/internal/usecase"
)

// Server exposes the pipeline over HTTP: run triggering, run and log
// inspection, source management, the latest brief and store-wide stats.
type Server struct {
	echo   *echo.Echo
	store  ports.Store
	runner *usecase.Runner
	logger *slog.Logger
	addr   string
}

// Options configures the HTTP listener.
type Options struct {
	Addr        string
	CORSOrigins []string
}

// New builds the server and registers every route under /api.
func New(opts Options, store ports.Store, runner *usecase.Runner, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: opts.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
	}))

	s := &Server{echo: e, store: store, runner: runner, logger: logger, addr: opts.Addr}

	api := e.Group("/api")
	api.POST("/run", s.triggerRun)
	api.GET("/runs/latest", s.latestRun)
	api.GET("/runs/:id", s.getRun)
	api.GET("/logs/latest", s.latestLogs)
	api.GET("/logs/:run_id", s.runLogs)
	api.GET("/brief/latest", s.latestBrief)
	api.GET("/sources", s.listSources)
	api.POST("/sources", s.createSource)
	api.PATCH("/sources/:id", s.updateSource)
	api.DELETE("/sources/:id", s.deleteSource)
	api.GET("/stats", s.stats)

	return s
}

// Handler exposes the routing tree, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.addr)
	if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) triggerRun(c echo.Context) error {
	runID, err := s.runner.Trigger(c.Request().Context())
	if err != nil {
		s.logger.Error("trigger run failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "could not start run")
	}
	return c.JSON(http.StatusOK, map[string]string{
		"run_id": runID,
		"status": "started",
	})
}

func (s *Server) latestRun(c echo.Context) error {
	run, err := s.store.LatestRun(c.Request().Context())
	if err != nil {
		return internalError(c, s.logger, "latest run", err)
	}
	if run == nil {
		return c.JSON(http.StatusOK, map[string]any{"message": "no runs yet"})
	}
	return c.JSON(http.StatusOK, run)
}

func (s *Server) getRun(c echo.Context) error {
	run, err := s.store.GetRun(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "run not found")
		}
		return internalError(c, s.logger, "get run", err)
	}
	return c.JSON(http.StatusOK, run)
}

func (s *Server) latestLogs(c echo.Context) error {
	ctx := c.Request().Context()
	run, err := s.store.LatestRun(ctx)
	if err != nil {
		return internalError(c, s.logger, "latest run", err)
	}
	if run == nil {
		return c.JSON(http.StatusOK, map[string]any{"run_id": nil, "logs": []domain.RunLog{}})
	}
	logs, err := s.store.ListLogs(ctx, run.ID)
	if err != nil {
		return internalError(c, s.logger, "list logs", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"run_id": run.ID, "logs": logs})
}

func (s *Server) runLogs(c echo.Context) error {
	runID := c.Param("run_id")
	logs, err := s.store.ListLogs(c.Request().Context(), runID)
	if err != nil {
		return internalError(c, s.logger, "list logs", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"run_id": runID, "logs": logs})
}

func (s *Server) latestBrief(c echo.Context) error {
	brief, err := s.store.LatestBrief(c.Request().Context())
	if err != nil {
		return internalError(c, s.logger, "latest brief", err)
	}
	if brief == nil {
		return c.JSON(http.StatusOK, map[string]any{"message": "no briefs yet"})
	}
	return c.JSON(http.StatusOK, brief)
}

func (s *Server) listSources(c echo.Context) error {
	sources, err := s.store.ListSources(c.Request().Context())
	if err != nil {
		return internalError(c, s.logger, "list sources", err)
	}
	return c.JSON(http.StatusOK, sources)
}

type createSourceRequest struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Category string `json:"category"`
	Active   *bool  `json:"active"`
}

func (s *Server) createSource(c echo.Context) error {
	var req createSourceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if req.Name == "" || req.URL == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name and url are required")
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	src := domain.NewSource(req.Name, req.URL, req.Category, active)
	if err := s.store.InsertSource(c.Request().Context(), src); err != nil {
		return internalError(c, s.logger, "insert source", err)
	}
	return c.JSON(http.StatusCreated, src)
}

func (s *Server) updateSource(c echo.Context) error {
	var patch domain.SourcePatch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if patch.Empty() {
		return echo.NewHTTPError(http.StatusBadRequest, "no fields to update")
	}

	src, err := s.store.UpdateSource(c.Request().Context(), c.Param("id"), patch)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "source not found")
		}
		return internalError(c, s.logger, "update source", err)
	}
	return c.JSON(http.StatusOK, src)
}

func (s *Server) deleteSource(c echo.Context) error {
	if err := s.store.DeleteSource(c.Request().Context(), c.Param("id")); err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "source not found")
		}
		return internalError(c, s.logger, "delete source", err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) stats(c echo.Context) error {
	stats, err := s.store.Stats(c.Request().Context())
	if err != nil {
		return internalError(c, s.logger, "stats", err)
	}
	return c.JSON(http.StatusOK, stats)
}

func internalError(c echo.Context, logger *slog.Logger, op string, err error) error {
	logger.Error(op+" failed", "error", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
}
