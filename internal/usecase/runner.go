package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"intelbrief/internal/domain"
	"intelbrief/internal/ports"
)

// Runner hands pipeline executions to background goroutines. Triggering
// always starts a brand-new run with a fresh identifier and returns
// immediately; the run then proceeds to a terminal status on its own.
type Runner struct {
	runs     ports.RunStore
	pipeline *Pipeline
	logger   *slog.Logger
	wg       sync.WaitGroup
}

// NewRunner wires the run store and the pipeline.
func NewRunner(runs ports.RunStore, pipeline *Pipeline, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{runs: runs, pipeline: pipeline, logger: logger}
}

// Trigger inserts a run in the running state and launches its execution in
// the background. The returned id is the only handle callers get; they
// observe progress through the run and log queries.
func (r *Runner) Trigger(ctx context.Context) (string, error) {
	run := domain.NewRun()
	if err := r.runs.InsertRun(ctx, run); err != nil {
		return "", fmt.Errorf("create run: %w", err)
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		// The run must outlive the triggering request.
		r.pipeline.Execute(context.WithoutCancel(ctx), run)
	}()

	r.logger.Info("run triggered", "run_id", run.ID)
	return run.ID, nil
}

// Wait blocks until all in-flight runs finish. Used on shutdown and in tests.
func (r *Runner) Wait() {
	r.wg.Wait()
}
