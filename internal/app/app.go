package app

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"intelbrief/internal/config"
	"intelbrief/internal/httpapi"
	"intelbrief/internal/infrastructure/fetch"
	"intelbrief/internal/infrastructure/llm"
	"intelbrief/internal/infrastructure/mail"
	scheddriver "intelbrief/internal/infrastructure/scheduler"
	"intelbrief/internal/infrastructure/storage"
	"intelbrief/internal/logging"
	"intelbrief/internal/report"
	"intelbrief/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	store     *storage.Mongo
	runner    *usecase.Runner
	server    *httpapi.Server
	scheduler *usecase.Scheduler
}

// New connects storage and assembles the full pipeline graph.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	store, err := storage.New(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect storage: %w", err)
	}

	fetcher := fetch.New(fetch.Options{
		UserAgent:     cfg.Fetch.UserAgent,
		Timeout:       cfg.Fetch.Timeout.Std(),
		RespectRobots: cfg.Fetch.RespectRobots,
	})
	classifier := llm.NewClassifier(cfg.Classifier)
	mailer := mail.NewMailer(cfg.Mailer)

	detector := usecase.NewChangeDetector(store, cfg.Pipeline.HashPrefixChars, cfg.Pipeline.ContentMaxChars)
	selector := usecase.NewLinkSelector(cfg.Pipeline.BlockedDomains, cfg.Pipeline.Keywords, cfg.Pipeline.LinkSelectCap)
	aggregator := usecase.NewAggregator(cfg.Pipeline.MaterialityThreshold, cfg.Pipeline.SectionItemCap)
	renderer := report.NewRenderer(cfg.Pipeline.MaterialityThreshold)
	gate := usecase.NewDispatchGate(aggregator, renderer, store, mailer)

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Store:        store,
		Fetcher:      fetcher,
		Classifier:   classifier,
		Detector:     detector,
		Selector:     selector,
		Gate:         gate,
		Logger:       logging.Component(baseLogger, "pipeline"),
		LinkFetchCap: cfg.Pipeline.LinkFetchCap,
	})
	runner := usecase.NewRunner(store, pipeline, logging.Component(baseLogger, "runner"))

	server := httpapi.New(httpapi.Options{
		Addr:        cfg.HTTP.Addr,
		CORSOrigins: cfg.HTTP.CORSOrigins,
	}, store, runner, logging.Component(baseLogger, "http"))

	var scheduler *usecase.Scheduler
	if cfg.Scheduler.Enabled {
		driver := scheddriver.NewIntervalScheduler(cfg.Scheduler.Interval.Std())
		scheduler = usecase.NewScheduler(driver, runner, logging.Component(baseLogger, "scheduler"))
	}

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		store:     store,
		runner:    runner,
		server:    server,
		scheduler: scheduler,
	}, nil
}

// Serve runs the HTTP API (and the scheduler when enabled) until the
// context is cancelled or a termination signal arrives.
func (a *Application) Serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if a.scheduler != nil {
		if err := a.scheduler.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		a.logger.Info("shutting down")
	}

	return a.shutdown()
}

// RunOnce triggers a single pipeline run and waits for it to reach a
// terminal status. Used by the CLI for manual executions.
func (a *Application) RunOnce(ctx context.Context) error {
	runID, err := a.runner.Trigger(ctx)
	if err != nil {
		return err
	}
	a.logger.Info("run started", "run_id", runID)

	a.runner.Wait()

	run, err := a.store.GetRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("read run result: %w", err)
	}
	a.logger.Info("run finished",
		"run_id", run.ID,
		"status", run.Status,
		"events_created", run.EventsCreated,
		"emails_sent", run.EmailsSent,
	)

	return a.closeStore()
}

func (a *Application) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if a.scheduler != nil {
		if err := a.scheduler.Stop(shutdownCtx); err != nil {
			a.logger.Error("scheduler stop failed", "error", err)
		}
	}
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http shutdown failed", "error", err)
	}

	// In-flight runs keep going until they finalize.
	a.runner.Wait()

	return a.closeStore()
}

func (a *Application) closeStore() error {
	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.store.Close(closeCtx); err != nil {
		return fmt.Errorf("close storage: %w", err)
	}
	return nil
}
