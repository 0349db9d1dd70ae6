package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"intelbrief/internal/config"
	"intelbrief/internal/domain"
	"intelbrief/internal/ports"
)

const logQueryLimit = 500

// defaultSources seed the sources collection on an empty database.
var defaultSources = []struct {
	Name     string
	URL      string
	Category string
}{
	{"Marriott News", "https://news.marriott.com/", "hotel"},
	{"Hilton Stories", "https://stories.hilton.com/", "hotel"},
	{"Airbnb News", "https://news.airbnb.com/", "accommodation"},
	{"Reuters Business", "https://www.reuters.com/business/", "news"},
	{"US Travel Association", "https://www.ustravel.org/", "association"},
	{"TravelZoo", "https://www.travelzoo.com/", "deals"},
}

// Mongo implements ports.Store on MongoDB.
type Mongo struct {
	client  *mongo.Client
	sources *mongo.Collection
	items   *mongo.Collection
	events  *mongo.Collection
	runs    *mongo.Collection
	runLogs *mongo.Collection
	briefs  *mongo.Collection
}

var _ ports.Store = (*Mongo)(nil)

// New connects, verifies the connection, creates indexes, and seeds the
// default source list when the collection is empty.
func New(ctx context.Context, cfg config.DatabaseConfig) (*Mongo, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	db := client.Database(cfg.Database)
	m := &Mongo{
		client:  client,
		sources: db.Collection("sources"),
		items:   db.Collection("items"),
		events:  db.Collection("events"),
		runs:    db.Collection("runs"),
		runLogs: db.Collection("run_logs"),
		briefs:  db.Collection("briefs"),
	}

	if err := m.ensureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("create indexes: %w", err)
	}
	if err := m.seedSources(ctx); err != nil {
		return nil, fmt.Errorf("seed sources: %w", err)
	}

	return m, nil
}

// Close disconnects the underlying client.
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// ensureIndexes enforces the per-URL item uniqueness invariant and keeps
// the latest-run and active-source queries cheap.
func (m *Mongo) ensureIndexes(ctx context.Context) error {
	_, err := m.items.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "url", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("items url index: %w", err)
	}

	_, err = m.sources.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "active", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("sources active index: %w", err)
	}

	_, err = m.runs.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "started_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("runs started_at index: %w", err)
	}

	_, err = m.runLogs.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "run_id", Value: 1}, {Key: "created_at", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("run_logs index: %w", err)
	}

	return nil
}

func (m *Mongo) seedSources(ctx context.Context) error {
	count, err := m.sources.CountDocuments(ctx, bson.M{})
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	docs := make([]any, 0, len(defaultSources))
	for _, s := range defaultSources {
		docs = append(docs, domain.NewSource(s.Name, s.URL, s.Category, true))
	}
	_, err = m.sources.InsertMany(ctx, docs)
	return err
}

// ListSources returns every configured source.
func (m *Mongo) ListSources(ctx context.Context) ([]domain.Source, error) {
	return m.findSources(ctx, bson.M{})
}

// ListActiveSources returns only sources flagged active.
func (m *Mongo) ListActiveSources(ctx context.Context) ([]domain.Source, error) {
	return m.findSources(ctx, bson.M{"active": true})
}

func (m *Mongo) findSources(ctx context.Context, filter bson.M) ([]domain.Source, error) {
	cursor, err := m.sources.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer cursor.Close(ctx)

	var sources []domain.Source
	if err := cursor.All(ctx, &sources); err != nil {
		return nil, fmt.Errorf("decode sources: %w", err)
	}
	return sources, nil
}

// InsertSource stores a new source.
func (m *Mongo) InsertSource(ctx context.Context, src domain.Source) error {
	if _, err := m.sources.InsertOne(ctx, src); err != nil {
		return fmt.Errorf("insert source: %w", err)
	}
	return nil
}

// UpdateSource applies a partial update and returns the updated source.
func (m *Mongo) UpdateSource(ctx context.Context, id string, patch domain.SourcePatch) (*domain.Source, error) {
	set := bson.M{}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.URL != nil {
		set["url"] = *patch.URL
	}
	if patch.Category != nil {
		set["category"] = *patch.Category
	}
	if patch.Active != nil {
		set["active"] = *patch.Active
	}

	result, err := m.sources.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": set})
	if err != nil {
		return nil, fmt.Errorf("update source: %w", err)
	}
	if result.MatchedCount == 0 {
		return nil, ports.ErrNotFound
	}

	var src domain.Source
	if err := m.sources.FindOne(ctx, bson.M{"id": id}).Decode(&src); err != nil {
		return nil, fmt.Errorf("reload source: %w", err)
	}
	return &src, nil
}

// DeleteSource removes a source by id.
func (m *Mongo) DeleteSource(ctx context.Context, id string) error {
	result, err := m.sources.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return fmt.Errorf("delete source: %w", err)
	}
	if result.DeletedCount == 0 {
		return ports.ErrNotFound
	}
	return nil
}

// FindItemByURL returns the tracked item for a URL, or nil when absent.
func (m *Mongo) FindItemByURL(ctx context.Context, url string) (*domain.Item, error) {
	var item domain.Item
	err := m.items.FindOne(ctx, bson.M{"url": url}).Decode(&item)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find item: %w", err)
	}
	return &item, nil
}

// UpsertItem writes item content keyed by URL in a single atomic update
// with insert-on-miss. Together with the unique URL index this keeps one
// item per URL even under concurrent runs.
func (m *Mongo) UpsertItem(ctx context.Context, item domain.Item) error {
	update := bson.M{
		"$set": bson.M{
			"source_id":    item.SourceID,
			"title":        item.Title,
			"content_text": item.ContentText,
			"content_type": item.ContentType,
			"content_hash": item.ContentHash,
			"last_seen_at": item.LastSeenAt,
		},
		"$setOnInsert": bson.M{
			"id":         item.ID,
			"url":        item.URL,
			"fetched_at": item.FetchedAt,
		},
	}

	_, err := m.items.UpdateOne(ctx, bson.M{"url": item.URL}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert item: %w", err)
	}
	return nil
}

// TouchItem refreshes the last-seen timestamp of an unchanged item.
func (m *Mongo) TouchItem(ctx context.Context, url string, seenAt time.Time) error {
	_, err := m.items.UpdateOne(ctx, bson.M{"url": url}, bson.M{"$set": bson.M{"last_seen_at": seenAt}})
	if err != nil {
		return fmt.Errorf("touch item: %w", err)
	}
	return nil
}

// InsertEvent appends an immutable event record.
func (m *Mongo) InsertEvent(ctx context.Context, event domain.Event) error {
	if _, err := m.events.InsertOne(ctx, event); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// InsertRun writes the run record in its initial running state.
func (m *Mongo) InsertRun(ctx context.Context, run domain.Run) error {
	if _, err := m.runs.InsertOne(ctx, run); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinalizeRun writes the terminal counters and status for a run.
func (m *Mongo) FinalizeRun(ctx context.Context, run domain.Run) error {
	update := bson.M{"$set": bson.M{
		"status":          run.Status,
		"finished_at":     run.FinishedAt,
		"sources_total":   run.SourcesTotal,
		"sources_ok":      run.SourcesOK,
		"sources_failed":  run.SourcesFailed,
		"items_total":     run.ItemsTotal,
		"items_new":       run.ItemsNew,
		"items_updated":   run.ItemsUpdated,
		"items_unchanged": run.ItemsUnchanged,
		"events_created":  run.EventsCreated,
		"emails_sent":     run.EmailsSent,
	}}

	result, err := m.runs.UpdateOne(ctx, bson.M{"id": run.ID}, update)
	if err != nil {
		return fmt.Errorf("finalize run: %w", err)
	}
	if result.MatchedCount == 0 {
		return ports.ErrNotFound
	}
	return nil
}

// GetRun loads one run by id.
func (m *Mongo) GetRun(ctx context.Context, id string) (*domain.Run, error) {
	var run domain.Run
	err := m.runs.FindOne(ctx, bson.M{"id": id}).Decode(&run)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find run: %w", err)
	}
	return &run, nil
}

// LatestRun returns the most recently started run, or nil when none exist.
func (m *Mongo) LatestRun(ctx context.Context) (*domain.Run, error) {
	var run domain.Run
	opts := options.FindOne().SetSort(bson.D{{Key: "started_at", Value: -1}})
	err := m.runs.FindOne(ctx, bson.M{}, opts).Decode(&run)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find latest run: %w", err)
	}
	return &run, nil
}

// AppendLog stores one run log entry.
func (m *Mongo) AppendLog(ctx context.Context, entry domain.RunLog) error {
	if _, err := m.runLogs.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("insert run log: %w", err)
	}
	return nil
}

// ListLogs returns a run's log entries in chronological order.
func (m *Mongo) ListLogs(ctx context.Context, runID string) ([]domain.RunLog, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(logQueryLimit)

	cursor, err := m.runLogs.Find(ctx, bson.M{"run_id": runID}, opts)
	if err != nil {
		return nil, fmt.Errorf("query run logs: %w", err)
	}
	defer cursor.Close(ctx)

	var logs []domain.RunLog
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, fmt.Errorf("decode run logs: %w", err)
	}
	return logs, nil
}

// InsertBrief stores the rendered brief for a run.
func (m *Mongo) InsertBrief(ctx context.Context, brief domain.Brief) error {
	if _, err := m.briefs.InsertOne(ctx, brief); err != nil {
		return fmt.Errorf("insert brief: %w", err)
	}
	return nil
}

// LatestBrief returns the most recently created brief, or nil when none exist.
func (m *Mongo) LatestBrief(ctx context.Context) (*domain.Brief, error) {
	var brief domain.Brief
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	err := m.briefs.FindOne(ctx, bson.M{}, opts).Decode(&brief)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find latest brief: %w", err)
	}
	return &brief, nil
}

// Stats aggregates store-wide counts for the reporting API.
func (m *Mongo) Stats(ctx context.Context) (*domain.Stats, error) {
	stats := &domain.Stats{}

	var err error
	if stats.TotalSources, err = m.sources.CountDocuments(ctx, bson.M{}); err != nil {
		return nil, fmt.Errorf("count sources: %w", err)
	}
	if stats.ActiveSources, err = m.sources.CountDocuments(ctx, bson.M{"active": true}); err != nil {
		return nil, fmt.Errorf("count active sources: %w", err)
	}
	if stats.TotalRuns, err = m.runs.CountDocuments(ctx, bson.M{}); err != nil {
		return nil, fmt.Errorf("count runs: %w", err)
	}
	if stats.TotalItems, err = m.items.CountDocuments(ctx, bson.M{}); err != nil {
		return nil, fmt.Errorf("count items: %w", err)
	}
	if stats.TotalEvents, err = m.events.CountDocuments(ctx, bson.M{}); err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}

	latest, err := m.LatestRun(ctx)
	if err != nil {
		return nil, err
	}
	stats.LatestRun = latest

	return stats, nil
}
