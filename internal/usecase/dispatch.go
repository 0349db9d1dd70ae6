package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"intelbrief/internal/domain"
	"intelbrief/internal/ports"
)

// DispatchGate decides whether and how to emit a run's summary. It creates
// at most one brief per run and attempts at most one send; any delivery
// failure is absorbed and reported only through the returned count and the
// run log, never through run status.
type DispatchGate struct {
	aggregator *Aggregator
	renderer   ports.BriefRenderer
	briefs     ports.BriefStore
	mailer     ports.Mailer
}

// NewDispatchGate wires the aggregation, rendering, persistence, and send steps.
func NewDispatchGate(aggregator *Aggregator, renderer ports.BriefRenderer, briefs ports.BriefStore, mailer ports.Mailer) *DispatchGate {
	return &DispatchGate{
		aggregator: aggregator,
		renderer:   renderer,
		briefs:     briefs,
		mailer:     mailer,
	}
}

// Dispatch returns the number of emails sent for the run: 0 or 1. An empty
// event list short-circuits with no brief and no send. logf receives
// run-scoped log entries.
func (g *DispatchGate) Dispatch(ctx context.Context, run domain.Run, events []domain.Event, logf RunLogFunc) int {
	if len(events) == 0 {
		return 0
	}

	sections := g.aggregator.Aggregate(events)

	html, err := g.renderer.Render(run, sections, events)
	if err != nil {
		logf(domain.LevelError, "failed to render brief", map[string]any{"error": err.Error()})
		return 0
	}

	brief := domain.NewBrief(run.ID, html, events)
	if err := g.briefs.InsertBrief(ctx, brief); err != nil {
		// Delivery can still proceed; the brief snapshot is a separate concern.
		logf(domain.LevelError, "failed to persist brief", map[string]any{"error": err.Error()})
	}

	subject := fmt.Sprintf("Daily Competitive Intel Brief - %s", time.Now().UTC().Format("2006-01-02"))
	if err := g.mailer.Send(ctx, subject, html); err != nil {
		if errors.Is(err, ports.ErrNoRecipients) {
			logf(domain.LevelWarn, "no recipients configured, skipping send", nil)
		} else {
			logf(domain.LevelError, "failed to send brief", map[string]any{"error": err.Error()})
		}
		return 0
	}

	logf(domain.LevelInfo, "brief sent", map[string]any{"events": len(events)})
	return 1
}
