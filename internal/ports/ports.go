package ports

import (
	"context"
	"errors"
	"time"

	"intelbrief/internal/domain"
)

// PageContent is the canonical fetch result: extracted text
// (markdown-equivalent), a best-effort title, and outbound links.
type PageContent struct {
	Text  string
	Title string
	Links []string
}

// PageFetcher retrieves and extracts a single page. A page whose
// extraction yields no text is an error, not an empty result.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*PageContent, error)
}

// Classifier turns page content into a structured intelligence record.
// A (nil, nil) return means "not relevant"; an error means the response
// could not be obtained or parsed.
type Classifier interface {
	Classify(ctx context.Context, text, url, title string) (*domain.Classification, error)
}

// ErrNoRecipients signals that the mailer has no configured recipients,
// so no delivery was attempted.
var ErrNoRecipients = errors.New("no recipients configured")

// ErrNotFound is returned by store lookups and mutations that match no record.
var ErrNotFound = errors.New("not found")

// Mailer delivers a rendered brief to the configured recipient list.
type Mailer interface {
	Send(ctx context.Context, subject, htmlBody string) error
}

// SourceStore manages the configured source list.
type SourceStore interface {
	ListSources(ctx context.Context) ([]domain.Source, error)
	ListActiveSources(ctx context.Context) ([]domain.Source, error)
	InsertSource(ctx context.Context, src domain.Source) error
	UpdateSource(ctx context.Context, id string, patch domain.SourcePatch) (*domain.Source, error)
	DeleteSource(ctx context.Context, id string) error
}

// ItemStore persists tracked pages keyed uniquely by URL. UpsertItem must
// be an atomic update-by-URL with insert-on-miss so concurrent runs cannot
// create duplicate items for the same URL.
type ItemStore interface {
	FindItemByURL(ctx context.Context, url string) (*domain.Item, error)
	UpsertItem(ctx context.Context, item domain.Item) error
	TouchItem(ctx context.Context, url string, seenAt time.Time) error
}

// EventStore appends immutable intelligence events.
type EventStore interface {
	InsertEvent(ctx context.Context, event domain.Event) error
}

// RunStore persists run records: once at creation, once at finalization.
type RunStore interface {
	InsertRun(ctx context.Context, run domain.Run) error
	FinalizeRun(ctx context.Context, run domain.Run) error
	GetRun(ctx context.Context, id string) (*domain.Run, error)
	LatestRun(ctx context.Context) (*domain.Run, error)
}

// LogStore appends run-scoped log entries and reads them back in
// chronological order.
type LogStore interface {
	AppendLog(ctx context.Context, entry domain.RunLog) error
	ListLogs(ctx context.Context, runID string) ([]domain.RunLog, error)
}

// BriefStore persists rendered briefs, at most one per run.
type BriefStore interface {
	InsertBrief(ctx context.Context, brief domain.Brief) error
	LatestBrief(ctx context.Context) (*domain.Brief, error)
}

// Store aggregates every persistence capability the application uses.
type Store interface {
	SourceStore
	ItemStore
	EventStore
	RunStore
	LogStore
	BriefStore
	Stats(ctx context.Context) (*domain.Stats, error)
}

// BriefRenderer turns a finished run and its grouped events into the
// HTML body of the executive brief.
type BriefRenderer interface {
	Render(run domain.Run, sections []domain.BriefSection, events []domain.Event) (string, error)
}

// Scheduler controls when pipeline runs are triggered.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
