package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"intelbrief/internal/domain"
	"intelbrief/internal/ports"
)

// memStore is an in-memory ports.Store with per-operation error injection.
type memStore struct {
	mu sync.Mutex

	sources []domain.Source
	items   map[string]domain.Item
	events  []domain.Event
	runs    map[string]domain.Run
	logs    []domain.RunLog
	briefs  []domain.Brief

	listSourcesErr error
	upsertItemErr  error
	insertEventErr error
	insertBriefErr error
}

func newMemStore() *memStore {
	return &memStore{
		items: map[string]domain.Item{},
		runs:  map[string]domain.Run{},
	}
}

func (s *memStore) ListSources(ctx context.Context) ([]domain.Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Source(nil), s.sources...), nil
}

func (s *memStore) ListActiveSources(ctx context.Context) ([]domain.Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listSourcesErr != nil {
		return nil, s.listSourcesErr
	}
	var active []domain.Source
	for _, src := range s.sources {
		if src.Active {
			active = append(active, src)
		}
	}
	return active, nil
}

func (s *memStore) InsertSource(ctx context.Context, src domain.Source) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources = append(s.sources, src)
	return nil
}

func (s *memStore) UpdateSource(ctx context.Context, id string, patch domain.SourcePatch) (*domain.Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.sources {
		if s.sources[i].ID != id {
			continue
		}
		if patch.Name != nil {
			s.sources[i].Name = *patch.Name
		}
		if patch.URL != nil {
			s.sources[i].URL = *patch.URL
		}
		if patch.Category != nil {
			s.sources[i].Category = *patch.Category
		}
		if patch.Active != nil {
			s.sources[i].Active = *patch.Active
		}
		src := s.sources[i]
		return &src, nil
	}
	return nil, ports.ErrNotFound
}

func (s *memStore) DeleteSource(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.sources {
		if s.sources[i].ID == id {
			s.sources = append(s.sources[:i], s.sources[i+1:]...)
			return nil
		}
	}
	return ports.ErrNotFound
}

func (s *memStore) FindItemByURL(ctx context.Context, url string) (*domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item, ok := s.items[url]; ok {
		return &item, nil
	}
	return nil, nil
}

func (s *memStore) UpsertItem(ctx context.Context, item domain.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertItemErr != nil {
		return s.upsertItemErr
	}
	s.items[item.URL] = item
	return nil
}

func (s *memStore) TouchItem(ctx context.Context, url string, seenAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[url]
	if !ok {
		return ports.ErrNotFound
	}
	item.LastSeenAt = seenAt
	s.items[url] = item
	return nil
}

func (s *memStore) InsertEvent(ctx context.Context, event domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertEventErr != nil {
		return s.insertEventErr
	}
	s.events = append(s.events, event)
	return nil
}

func (s *memStore) InsertRun(ctx context.Context, run domain.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
	return nil
}

func (s *memStore) FinalizeRun(ctx context.Context, run domain.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[run.ID]; !ok {
		return ports.ErrNotFound
	}
	s.runs[run.ID] = run
	return nil
}

func (s *memStore) GetRun(ctx context.Context, id string) (*domain.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return &run, nil
}

func (s *memStore) LatestRun(ctx context.Context) (*domain.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *domain.Run
	for id := range s.runs {
		run := s.runs[id]
		if latest == nil || run.StartedAt.After(latest.StartedAt) {
			latest = &run
		}
	}
	return latest, nil
}

func (s *memStore) AppendLog(ctx context.Context, entry domain.RunLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, entry)
	return nil
}

func (s *memStore) ListLogs(ctx context.Context, runID string) ([]domain.RunLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.RunLog
	for _, l := range s.logs {
		if l.RunID == runID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *memStore) InsertBrief(ctx context.Context, brief domain.Brief) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertBriefErr != nil {
		return s.insertBriefErr
	}
	s.briefs = append(s.briefs, brief)
	return nil
}

func (s *memStore) LatestBrief(ctx context.Context) (*domain.Brief, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.briefs) == 0 {
		return nil, nil
	}
	brief := s.briefs[len(s.briefs)-1]
	return &brief, nil
}

func (s *memStore) Stats(ctx context.Context) (*domain.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &domain.Stats{
		TotalSources: int64(len(s.sources)),
		TotalItems:   int64(len(s.items)),
		TotalEvents:  int64(len(s.events)),
		TotalRuns:    int64(len(s.runs)),
	}, nil
}

var _ ports.Store = (*memStore)(nil)

// fakeFetcher serves canned pages by URL and fails everything else.
type fakeFetcher struct {
	pages map[string]*ports.PageContent
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (*ports.PageContent, error) {
	if page, ok := f.pages[url]; ok {
		return page, nil
	}
	return nil, fmt.Errorf("fetch %s: connection refused", url)
}

// fakeClassifier delegates to a per-test function.
type fakeClassifier struct {
	fn func(text, url, title string) (*domain.Classification, error)
}

func (f *fakeClassifier) Classify(ctx context.Context, text, url, title string) (*domain.Classification, error) {
	if f.fn == nil {
		return nil, nil
	}
	return f.fn(text, url, title)
}

// fakeMailer records sends and optionally fails them.
type fakeMailer struct {
	sent    []string
	sendErr error
}

func (f *fakeMailer) Send(ctx context.Context, subject, htmlBody string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, subject)
	return nil
}

// fakeRenderer returns a fixed body or an error.
type fakeRenderer struct {
	renderErr error
}

func (f *fakeRenderer) Render(run domain.Run, sections []domain.BriefSection, events []domain.Event) (string, error) {
	if f.renderErr != nil {
		return "", f.renderErr
	}
	return "<html>brief</html>", nil
}
