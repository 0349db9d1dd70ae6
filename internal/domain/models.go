package domain

import (
	"time"

	"github.com/google/uuid"
)

// Source is a configured origin URL monitored for change.
type Source struct {
	ID        string    `bson:"id" json:"id"`
	Name      string    `bson:"name" json:"name"`
	URL       string    `bson:"url" json:"url"`
	Category  string    `bson:"category" json:"category"`
	Active    bool      `bson:"active" json:"active"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// NewSource builds a source with a fresh identifier.
func NewSource(name, url, category string, active bool) Source {
	return Source{
		ID:        uuid.NewString(),
		Name:      name,
		URL:       url,
		Category:  category,
		Active:    active,
		CreatedAt: time.Now().UTC(),
	}
}

// SourcePatch carries optional field updates for a source.
type SourcePatch struct {
	Name     *string `json:"name"`
	URL      *string `json:"url"`
	Category *string `json:"category"`
	Active   *bool   `json:"active"`
}

// Empty reports whether the patch changes nothing.
func (p SourcePatch) Empty() bool {
	return p.Name == nil && p.URL == nil && p.Category == nil && p.Active == nil
}

// Item is one tracked fetchable page, unique per URL.
type Item struct {
	ID          string    `bson:"id" json:"id"`
	SourceID    string    `bson:"source_id" json:"source_id"`
	URL         string    `bson:"url" json:"url"`
	Title       string    `bson:"title" json:"title"`
	ContentText string    `bson:"content_text" json:"content_text"`
	ContentType string    `bson:"content_type" json:"content_type"`
	ContentHash string    `bson:"content_hash" json:"content_hash"`
	FetchedAt   time.Time `bson:"fetched_at" json:"fetched_at"`
	LastSeenAt  time.Time `bson:"last_seen_at" json:"last_seen_at"`
}

// ChangeAction classifies a fetched page relative to stored state.
type ChangeAction string

const (
	ActionNew       ChangeAction = "new"
	ActionUpdated   ChangeAction = "updated"
	ActionUnchanged ChangeAction = "unchanged"
)

// EventType enumerates the intelligence categories the classifier emits.
type EventType string

const (
	EventPartnership   EventType = "partnership"
	EventFunding       EventType = "funding"
	EventCampaignDeal  EventType = "campaign_deal"
	EventPricingChange EventType = "pricing_change"
	EventAcquisition   EventType = "acquisition"
	EventHiringExec    EventType = "hiring_exec"
	EventOther         EventType = "other"
)

// NormalizeEventType maps unknown classifier labels to EventOther.
func NormalizeEventType(value string) EventType {
	switch EventType(value) {
	case EventPartnership, EventFunding, EventCampaignDeal,
		EventPricingChange, EventAcquisition, EventHiringExec:
		return EventType(value)
	default:
		return EventOther
	}
}

// Classification is the canonical shape returned by the classifier
// capability. Adapters normalize any provider-specific layout into it.
type Classification struct {
	Company          string         `json:"company"`
	EventType        string         `json:"event_type"`
	Title            string         `json:"title"`
	Summary          string         `json:"summary"`
	WhyItMatters     string         `json:"why_it_matters"`
	MaterialityScore int            `json:"materiality_score"`
	Confidence       float64        `json:"confidence"`
	KeyEntities      map[string]any `json:"key_entities"`
	EvidenceQuotes   []string       `json:"evidence_quotes"`
	SourceURL        string         `json:"source_url"`
}

// Event is an extracted intelligence record, immutable once created.
type Event struct {
	ID               string         `bson:"id" json:"id"`
	RunID            string         `bson:"run_id" json:"run_id"`
	ItemID           string         `bson:"item_id" json:"item_id"`
	Company          string         `bson:"company" json:"company"`
	EventType        EventType      `bson:"event_type" json:"event_type"`
	Title            string         `bson:"title" json:"title"`
	Summary          string         `bson:"summary" json:"summary"`
	WhyItMatters     string         `bson:"why_it_matters" json:"why_it_matters"`
	MaterialityScore int            `bson:"materiality_score" json:"materiality_score"`
	Confidence       float64        `bson:"confidence" json:"confidence"`
	KeyEntities      map[string]any `bson:"key_entities" json:"key_entities"`
	EvidenceQuotes   []string       `bson:"evidence_quotes" json:"evidence_quotes"`
	SourceURL        string         `bson:"source_url" json:"source_url"`
	CreatedAt        time.Time      `bson:"created_at" json:"created_at"`
}

// NewEvent materializes a classification against a run and item.
func NewEvent(runID, itemID string, c Classification) Event {
	return Event{
		ID:               uuid.NewString(),
		RunID:            runID,
		ItemID:           itemID,
		Company:          c.Company,
		EventType:        NormalizeEventType(c.EventType),
		Title:            c.Title,
		Summary:          c.Summary,
		WhyItMatters:     c.WhyItMatters,
		MaterialityScore: c.MaterialityScore,
		Confidence:       c.Confidence,
		KeyEntities:      c.KeyEntities,
		EvidenceQuotes:   c.EvidenceQuotes,
		SourceURL:        c.SourceURL,
		CreatedAt:        time.Now().UTC(),
	}
}

// RunStatus is the run state machine: running is the only non-terminal state.
type RunStatus string

const (
	StatusRunning        RunStatus = "running"
	StatusSuccess        RunStatus = "success"
	StatusPartialFailure RunStatus = "partial_failure"
	StatusFailure        RunStatus = "failure"
)

// Run is one execution of the ingest-classify-report pipeline.
type Run struct {
	ID             string     `bson:"id" json:"id"`
	StartedAt      time.Time  `bson:"started_at" json:"started_at"`
	FinishedAt     *time.Time `bson:"finished_at" json:"finished_at"`
	Status         RunStatus  `bson:"status" json:"status"`
	SourcesTotal   int        `bson:"sources_total" json:"sources_total"`
	SourcesOK      int        `bson:"sources_ok" json:"sources_ok"`
	SourcesFailed  int        `bson:"sources_failed" json:"sources_failed"`
	ItemsTotal     int        `bson:"items_total" json:"items_total"`
	ItemsNew       int        `bson:"items_new" json:"items_new"`
	ItemsUpdated   int        `bson:"items_updated" json:"items_updated"`
	ItemsUnchanged int        `bson:"items_unchanged" json:"items_unchanged"`
	EventsCreated  int        `bson:"events_created" json:"events_created"`
	EmailsSent     int        `bson:"emails_sent" json:"emails_sent"`
}

// NewRun creates a run in the running state.
func NewRun() Run {
	return Run{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Status:    StatusRunning,
	}
}

// LogLevel classifies run log entries.
type LogLevel string

const (
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// RunLog is an append-only log entry scoped to a run.
type RunLog struct {
	ID        string         `bson:"id" json:"id"`
	RunID     string         `bson:"run_id" json:"run_id"`
	Level     LogLevel       `bson:"level" json:"level"`
	Message   string         `bson:"message" json:"message"`
	Meta      map[string]any `bson:"meta" json:"meta"`
	CreatedAt time.Time      `bson:"created_at" json:"created_at"`
}

// NewRunLog builds a log entry stamped with the current time.
func NewRunLog(runID string, level LogLevel, message string, meta map[string]any) RunLog {
	if meta == nil {
		meta = map[string]any{}
	}
	return RunLog{
		ID:        uuid.NewString(),
		RunID:     runID,
		Level:     level,
		Message:   message,
		Meta:      meta,
		CreatedAt: time.Now().UTC(),
	}
}

// Brief is the persisted snapshot of a run's rendered summary, created at
// most once per run and only when the run produced events.
type Brief struct {
	ID        string    `bson:"id" json:"id"`
	RunID     string    `bson:"run_id" json:"run_id"`
	HTML      string    `bson:"html" json:"html"`
	Events    []Event   `bson:"events" json:"events"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// NewBrief snapshots the rendered summary and the flattened event list.
func NewBrief(runID, html string, events []Event) Brief {
	return Brief{
		ID:        uuid.NewString(),
		RunID:     runID,
		HTML:      html,
		Events:    events,
		CreatedAt: time.Now().UTC(),
	}
}

// BriefSection is one display bucket of a run's events. Total keeps the
// true match count even when Events is capped for display.
type BriefSection struct {
	Title  string  `json:"title"`
	Total  int     `json:"total"`
	Events []Event `json:"events"`
}

// Stats aggregates store-wide counts for the reporting API.
type Stats struct {
	TotalSources  int64 `json:"total_sources"`
	ActiveSources int64 `json:"active_sources"`
	TotalRuns     int64 `json:"total_runs"`
	TotalItems    int64 `json:"total_items"`
	TotalEvents   int64 `json:"total_events"`
	LatestRun     *Run  `json:"latest_run"`
}
