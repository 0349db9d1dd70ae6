package usecase

import "strings"

// LinkSelector filters a page's outbound links down to a small, relevant,
// bounded set. It is a coarse prefilter: false positives are expected and
// corrected downstream by the classifier's not-relevant signal.
type LinkSelector struct {
	blockedDomains []string
	keywords       []string
	max            int
}

// NewLinkSelector builds a selector from the block list, keyword set, and cap.
func NewLinkSelector(blockedDomains, keywords []string, max int) *LinkSelector {
	return &LinkSelector{
		blockedDomains: lowerAll(blockedDomains),
		keywords:       lowerAll(keywords),
		max:            max,
	}
}

// Select returns at most the configured number of links, in their original
// relative order, rejecting blocked hosts and links without any relevance
// keyword in their URL text.
func (s *LinkSelector) Select(links []string) []string {
	if s.max <= 0 {
		return nil
	}

	selected := make([]string, 0, s.max)
	for _, link := range links {
		if s.Relevant(link) {
			selected = append(selected, link)
			if len(selected) == s.max {
				break
			}
		}
	}
	return selected
}

// Relevant reports whether a single link passes the block list and
// keyword prefilter.
func (s *LinkSelector) Relevant(link string) bool {
	lower := strings.ToLower(link)
	for _, domain := range s.blockedDomains {
		if strings.Contains(lower, domain) {
			return false
		}
	}
	for _, kw := range s.keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func lowerAll(values []string) []string {
	lowered := make([]string, len(values))
	for i, v := range values {
		lowered[i] = strings.ToLower(v)
	}
	return lowered
}
