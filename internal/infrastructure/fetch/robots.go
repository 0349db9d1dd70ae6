package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
)

// robotsGate checks robots.txt before fetching, caching one ruleset per
// host. A robots.txt that cannot be fetched or parsed permits everything.
type robotsGate struct {
	client    *http.Client
	userAgent string

	mu     sync.Mutex
	groups map[string]*robotstxt.Group
}

func newRobotsGate(client *http.Client, userAgent string) *robotsGate {
	return &robotsGate{
		client:    client,
		userAgent: userAgent,
		groups:    map[string]*robotstxt.Group{},
	}
}

func (g *robotsGate) Allowed(ctx context.Context, pageURL string) (bool, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return false, err
	}

	group, err := g.groupFor(ctx, u)
	if err != nil {
		return true, nil
	}
	if group == nil {
		return true, nil
	}
	return group.Test(u.Path), nil
}

func (g *robotsGate) groupFor(ctx context.Context, u *url.URL) (*robotstxt.Group, error) {
	key := u.Scheme + "://" + u.Host

	g.mu.Lock()
	group, ok := g.groups[key]
	g.mu.Unlock()
	if ok {
		return group, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, key+"/robots.txt", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt for %s: %w", u.Host, err)
	}

	group = data.FindGroup(g.userAgent)

	g.mu.Lock()
	g.groups[key] = group
	g.mu.Unlock()

	return group, nil
}
