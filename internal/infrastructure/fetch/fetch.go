package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/net/html/charset"

	"intelbrief/internal/ports"
)

// ErrNoContent marks a page that fetched fine but yielded no extractable
// text. Callers can tell it apart from transport failures.
var ErrNoContent = errors.New("page has no extractable content")

// HTTPError represents a non-2xx fetch response.
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d for %s", e.StatusCode, e.URL)
}

// ContentHandler extracts canonical page content from one response kind.
type ContentHandler interface {
	CanHandle(url, contentType string) bool
	Handle(pageURL string, body []byte) (*ports.PageContent, error)
}

// Options tunes the fetch client.
type Options struct {
	UserAgent     string
	Timeout       time.Duration
	RespectRobots bool
}

// Client implements ports.PageFetcher over plain HTTP with a handler chain:
// feed documents are parsed as RSS/Atom, everything else falls through to
// readability-based HTML extraction.
type Client struct {
	client    *http.Client
	handlers  []ContentHandler
	robots    *robotsGate
	userAgent string
}

var _ ports.PageFetcher = (*Client)(nil)

// New builds a fetch client with the default handler chain, most specific
// handler first.
func New(opts Options) *Client {
	if opts.UserAgent == "" {
		opts.UserAgent = "intelbrief/1.0"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	httpClient := &http.Client{Timeout: opts.Timeout}

	c := &Client{
		client:    httpClient,
		userAgent: opts.UserAgent,
		handlers: []ContentHandler{
			&FeedHandler{},
			NewHTMLHandler(),
		},
	}
	if opts.RespectRobots {
		c.robots = newRobotsGate(httpClient, opts.UserAgent)
	}
	return c
}

// Fetch retrieves pageURL, decodes its charset, and runs the first handler
// claiming the response. Empty extraction results fail with ErrNoContent.
func (c *Client) Fetch(ctx context.Context, pageURL string) (*ports.PageContent, error) {
	if c.robots != nil {
		allowed, err := c.robots.Allowed(ctx, pageURL)
		if err == nil && !allowed {
			return nil, fmt.Errorf("%s disallowed by robots.txt", pageURL)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: pageURL}
	}

	contentType := resp.Header.Get("Content-Type")
	reader, err := charset.NewReader(resp.Body, contentType)
	if err != nil {
		reader = resp.Body
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", pageURL, err)
	}

	for _, handler := range c.handlers {
		if handler.CanHandle(pageURL, contentType) {
			content, err := handler.Handle(pageURL, body)
			if err != nil {
				return nil, err
			}
			if content.Text == "" {
				return nil, fmt.Errorf("%s: %w", pageURL, ErrNoContent)
			}
			return content, nil
		}
	}

	return nil, fmt.Errorf("no content handler for %s (%s)", pageURL, contentType)
}
