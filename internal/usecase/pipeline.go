package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"intelbrief/internal/domain"
	"intelbrief/internal/ports"
)

// RunLogFunc appends a run-scoped log entry.
type RunLogFunc func(level domain.LogLevel, message string, meta map[string]any)

// PipelineDeps wires all driven adapters into the run orchestrator.
type PipelineDeps struct {
	Store        ports.Store
	Fetcher      ports.PageFetcher
	Classifier   ports.Classifier
	Detector     *ChangeDetector
	Selector     *LinkSelector
	Gate         *DispatchGate
	Logger       *slog.Logger
	LinkFetchCap int
}

// Pipeline is the run orchestrator: it walks active sources, performs
// change detection, bounds fan-out into child links, classifies content,
// accumulates run counters, decides terminal status, and triggers
// aggregation and dispatch exactly once per run.
type Pipeline struct {
	store        ports.Store
	fetcher      ports.PageFetcher
	classifier   ports.Classifier
	detector     *ChangeDetector
	selector     *LinkSelector
	gate         *DispatchGate
	logger       *slog.Logger
	linkFetchCap int
	now          func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	linkFetchCap := deps.LinkFetchCap
	if linkFetchCap <= 0 {
		linkFetchCap = 3
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		store:        deps.Store,
		fetcher:      deps.Fetcher,
		classifier:   deps.Classifier,
		detector:     deps.Detector,
		selector:     deps.Selector,
		gate:         deps.Gate,
		logger:       logger,
		linkFetchCap: linkFetchCap,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// runStats is the single mutable accumulator for one run, owned
// exclusively by the goroutine executing that run and written back to the
// store only at finalization.
type runStats struct {
	sourcesTotal   int
	sourcesOK      int
	sourcesFailed  int
	itemsTotal     int
	itemsNew       int
	itemsUpdated   int
	itemsUnchanged int
	eventsCreated  int
}

// Execute drives one run to a terminal status. Per-source failures are
// isolated: they are counted and logged but never abort the run, so a
// triggered run always finishes.
func (p *Pipeline) Execute(ctx context.Context, run domain.Run) {
	logf := p.runLogger(ctx, run.ID)
	logf(domain.LevelInfo, "starting pipeline execution", nil)

	var stats runStats
	var events []domain.Event

	sources, err := p.store.ListActiveSources(ctx)
	if err != nil {
		logf(domain.LevelError, "failed to load sources", map[string]any{"error": err.Error()})
	} else {
		stats.sourcesTotal = len(sources)
		for _, src := range sources {
			logf(domain.LevelInfo, "processing source: "+src.Name, map[string]any{"url": src.URL})

			srcEvents, err := p.processSource(ctx, run.ID, src, &stats, logf)
			if err != nil {
				stats.sourcesFailed++
				logf(domain.LevelError, "failed to process source: "+src.Name, map[string]any{"error": err.Error()})
				continue
			}
			stats.sourcesOK++
			events = append(events, srcEvents...)
		}
	}

	status := terminalStatus(stats)
	run = applyStats(run, stats, status)

	run.EmailsSent = p.gate.Dispatch(ctx, run, events, logf)

	finished := p.now()
	run.FinishedAt = &finished
	if err := p.store.FinalizeRun(ctx, run); err != nil {
		logf(domain.LevelError, "failed to finalize run", map[string]any{"error": err.Error()})
	}

	logf(domain.LevelInfo, "pipeline completed with status: "+string(status), map[string]any{
		"sources_ok":     stats.sourcesOK,
		"sources_failed": stats.sourcesFailed,
		"items_total":    stats.itemsTotal,
		"events_created": stats.eventsCreated,
	})
}

// processSource handles one source in isolation: a root fetch failure is
// source-fatal, while each selected child link fails independently and is
// only skipped.
func (p *Pipeline) processSource(ctx context.Context, runID string, src domain.Source, stats *runStats, logf RunLogFunc) ([]domain.Event, error) {
	page, err := p.fetcher.Fetch(ctx, src.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", src.URL, err)
	}

	title := page.Title
	if title == "" {
		title = src.Name
	}

	selected := p.selector.Select(page.Links)
	logf(domain.LevelInfo, fmt.Sprintf("found %d relevant links from %s", len(selected), src.Name), nil)

	var events []domain.Event

	event, err := p.processPage(ctx, runID, src.ID, src.URL, title, page.Text, stats, logf)
	if err != nil {
		return nil, err
	}
	if event != nil {
		events = append(events, *event)
	}

	for i, link := range selected {
		if i >= p.linkFetchCap {
			break
		}

		linkPage, err := p.fetcher.Fetch(ctx, link)
		if err != nil {
			logf(domain.LevelWarn, "failed to process link: "+link, map[string]any{"error": err.Error()})
			continue
		}

		linkTitle := linkPage.Title
		if linkTitle == "" {
			linkTitle = link
		}

		linkEvent, err := p.processPage(ctx, runID, src.ID, link, linkTitle, linkPage.Text, stats, logf)
		if err != nil {
			logf(domain.LevelWarn, "failed to process link: "+link, map[string]any{"error": err.Error()})
			continue
		}
		if linkEvent != nil {
			events = append(events, *linkEvent)
		}
	}

	return events, nil
}

// processPage runs change detection and, on new or updated content,
// classification. Classifier errors are absorbed here: a response that
// cannot be parsed produces no event and never escalates beyond the log.
func (p *Pipeline) processPage(ctx context.Context, runID, sourceID, url, title, text string, stats *runStats, logf RunLogFunc) (*domain.Event, error) {
	action, item, err := p.detector.Detect(ctx, sourceID, url, title, text)
	if err != nil {
		return nil, err
	}

	stats.itemsTotal++
	switch action {
	case domain.ActionNew:
		stats.itemsNew++
	case domain.ActionUpdated:
		stats.itemsUpdated++
	case domain.ActionUnchanged:
		stats.itemsUnchanged++
		return nil, nil
	}

	classification, err := p.classifier.Classify(ctx, text, url, title)
	if err != nil {
		logf(domain.LevelError, "classification failed for "+url, map[string]any{"error": err.Error()})
		return nil, nil
	}
	if classification == nil {
		return nil, nil
	}

	event := domain.NewEvent(runID, item.ID, *classification)
	if err := p.store.InsertEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("persist event for %s: %w", url, err)
	}

	stats.eventsCreated++
	return &event, nil
}

// terminalStatus applies the run status rule: a perfect pass is success,
// any surviving source keeps the run partial, and zero successful sources
// (including an empty source list) is failure.
func terminalStatus(s runStats) domain.RunStatus {
	switch {
	case s.sourcesTotal > 0 && s.sourcesFailed == 0:
		return domain.StatusSuccess
	case s.sourcesOK > 0:
		return domain.StatusPartialFailure
	default:
		return domain.StatusFailure
	}
}

func applyStats(run domain.Run, s runStats, status domain.RunStatus) domain.Run {
	run.Status = status
	run.SourcesTotal = s.sourcesTotal
	run.SourcesOK = s.sourcesOK
	run.SourcesFailed = s.sourcesFailed
	run.ItemsTotal = s.itemsTotal
	run.ItemsNew = s.itemsNew
	run.ItemsUpdated = s.itemsUpdated
	run.ItemsUnchanged = s.itemsUnchanged
	run.EventsCreated = s.eventsCreated
	return run
}

// runLogger builds the RunLogFunc for a run: every entry is appended to
// the log store in production order and mirrored to the process logger.
func (p *Pipeline) runLogger(ctx context.Context, runID string) RunLogFunc {
	return func(level domain.LogLevel, message string, meta map[string]any) {
		entry := domain.NewRunLog(runID, level, message, meta)
		if err := p.store.AppendLog(ctx, entry); err != nil {
			p.logger.Error("failed to append run log", "run_id", runID, "error", err)
		}

		args := []any{"run_id", runID}
		for k, v := range meta {
			args = append(args, k, v)
		}
		switch level {
		case domain.LevelError:
			p.logger.Error(message, args...)
		case domain.LevelWarn:
			p.logger.Warn(message, args...)
		default:
			p.logger.Info(message, args...)
		}
	}
}
