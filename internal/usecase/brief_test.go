package usecase

import (
	"fmt"
	"testing"

	"intelbrief/internal/domain"
)

func event(eventType domain.EventType, score int) domain.Event {
	return domain.Event{
		ID:               fmt.Sprintf("ev-%s-%d", eventType, score),
		EventType:        eventType,
		MaterialityScore: score,
	}
}

func sectionByTitle(t *testing.T, sections []domain.BriefSection, title string) domain.BriefSection {
	t.Helper()
	for _, s := range sections {
		if s.Title == title {
			return s
		}
	}
	t.Fatalf("section %q missing", title)
	return domain.BriefSection{}
}

func TestAggregateSectionMembership(t *testing.T) {
	t.Parallel()

	a := NewAggregator(70, 5)
	events := []domain.Event{
		event(domain.EventPartnership, 85),
		event(domain.EventFunding, 40),
		event(domain.EventCampaignDeal, 72),
		event(domain.EventOther, 90),
		event(domain.EventPricingChange, 10),
	}

	sections := a.Aggregate(events)
	if len(sections) != 4 {
		t.Fatalf("expected 4 sections, got %d", len(sections))
	}

	top := sectionByTitle(t, sections, "Top Movers")
	if top.Total != 3 {
		t.Fatalf("top movers total: expected 3, got %d", top.Total)
	}

	partnerships := sectionByTitle(t, sections, "Partnerships")
	if partnerships.Total != 1 || partnerships.Events[0].EventType != domain.EventPartnership {
		t.Fatalf("unexpected partnerships section: %+v", partnerships)
	}

	funding := sectionByTitle(t, sections, "Funding")
	if funding.Total != 1 {
		t.Fatalf("funding total: expected 1, got %d", funding.Total)
	}

	deals := sectionByTitle(t, sections, "Campaigns & Deals")
	if deals.Total != 1 {
		t.Fatalf("deals total: expected 1, got %d", deals.Total)
	}
}

func TestAggregateEventAppearsInMultipleSections(t *testing.T) {
	t.Parallel()

	a := NewAggregator(70, 5)
	sections := a.Aggregate([]domain.Event{event(domain.EventPartnership, 95)})

	if sectionByTitle(t, sections, "Top Movers").Total != 1 {
		t.Fatal("high-materiality partnership missing from top movers")
	}
	if sectionByTitle(t, sections, "Partnerships").Total != 1 {
		t.Fatal("partnership missing from its type section")
	}
}

func TestAggregateCapKeepsTrueTotal(t *testing.T) {
	t.Parallel()

	a := NewAggregator(70, 2)
	var events []domain.Event
	for i := 0; i < 7; i++ {
		e := event(domain.EventFunding, 30)
		e.ID = fmt.Sprintf("ev-%d", i)
		events = append(events, e)
	}

	funding := sectionByTitle(t, a.Aggregate(events), "Funding")
	if funding.Total != 7 {
		t.Fatalf("total must count all matches, got %d", funding.Total)
	}
	if len(funding.Events) != 2 {
		t.Fatalf("events must be capped at 2, got %d", len(funding.Events))
	}
	if funding.Events[0].ID != "ev-0" || funding.Events[1].ID != "ev-1" {
		t.Fatal("cap must keep the first matches in order")
	}
}

func TestAggregateEmptyInput(t *testing.T) {
	t.Parallel()

	for _, sec := range NewAggregator(70, 5).Aggregate(nil) {
		if sec.Total != 0 || len(sec.Events) != 0 {
			t.Fatalf("empty input produced non-empty section %q", sec.Title)
		}
	}
}
