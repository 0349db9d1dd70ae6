package usecase

import "intelbrief/internal/domain"

// Aggregator groups a run's events into display sections for the brief.
// Sections are independent filters over the same event list, so one event
// can appear in several sections. No event is mutated here.
type Aggregator struct {
	materialityThreshold int
	sectionItemCap       int
}

// NewAggregator sets the high-materiality threshold and per-section cap.
func NewAggregator(materialityThreshold, sectionItemCap int) *Aggregator {
	if materialityThreshold <= 0 {
		materialityThreshold = 70
	}
	if sectionItemCap <= 0 {
		sectionItemCap = 5
	}
	return &Aggregator{
		materialityThreshold: materialityThreshold,
		sectionItemCap:       sectionItemCap,
	}
}

// Aggregate derives the brief sections: top movers by materiality score,
// then one section per event type of interest. Each section keeps its true
// match count while capping the events kept for display.
func (a *Aggregator) Aggregate(events []domain.Event) []domain.BriefSection {
	return []domain.BriefSection{
		a.section("Top Movers", events, func(e domain.Event) bool {
			return e.MaterialityScore >= a.materialityThreshold
		}),
		a.section("Partnerships", events, typeIs(domain.EventPartnership)),
		a.section("Funding", events, typeIs(domain.EventFunding)),
		a.section("Campaigns & Deals", events, typeIs(domain.EventCampaignDeal)),
	}
}

func (a *Aggregator) section(title string, events []domain.Event, match func(domain.Event) bool) domain.BriefSection {
	sec := domain.BriefSection{Title: title}
	for _, e := range events {
		if !match(e) {
			continue
		}
		sec.Total++
		if len(sec.Events) < a.sectionItemCap {
			sec.Events = append(sec.Events, e)
		}
	}
	return sec
}

func typeIs(t domain.EventType) func(domain.Event) bool {
	return func(e domain.Event) bool { return e.EventType == t }
}
