package fetch

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/mmcdole/gofeed"

	"intelbrief/internal/ports"
)

// FeedHandler parses RSS/Atom documents: the feed description becomes the
// page text and every entry link becomes an outbound link.
type FeedHandler struct{}

func (h *FeedHandler) CanHandle(pageURL, contentType string) bool {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "rss") || strings.Contains(ct, "atom") || strings.Contains(ct, "xml") {
		return true
	}
	lower := strings.ToLower(pageURL)
	return strings.HasSuffix(lower, ".rss") || strings.HasSuffix(lower, ".xml") ||
		strings.HasSuffix(lower, "/rss") || strings.HasSuffix(lower, "/feed")
}

func (h *FeedHandler) Handle(pageURL string, body []byte) (*ports.PageContent, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", pageURL, err)
	}

	var text strings.Builder
	links := make([]string, 0, len(feed.Items))
	for _, item := range feed.Items {
		fmt.Fprintf(&text, "## %s\n\n%s\n\n", item.Title, item.Description)
		if item.Link != "" {
			links = append(links, item.Link)
		}
	}

	return &ports.PageContent{
		Text:  strings.TrimSpace(feed.Description + "\n\n" + text.String()),
		Title: feed.Title,
		Links: links,
	}, nil
}

// HTMLHandler is the fallback: readability isolates the main content,
// which is converted to markdown, while links come from the full document.
type HTMLHandler struct {
	converter *md.Converter
}

// NewHTMLHandler builds the fallback handler.
func NewHTMLHandler() *HTMLHandler {
	return &HTMLHandler{converter: md.NewConverter("", true, nil)}
}

func (h *HTMLHandler) CanHandle(pageURL, contentType string) bool {
	return true
}

func (h *HTMLHandler) Handle(pageURL string, body []byte) (*ports.PageContent, error) {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse url %s: %w", pageURL, err)
	}

	article, err := readability.FromReader(bytes.NewReader(body), parsedURL)
	if err != nil {
		return nil, fmt.Errorf("extract content %s: %w", pageURL, err)
	}

	markdown, err := h.converter.ConvertString(article.Content)
	if err != nil {
		return nil, fmt.Errorf("convert to markdown %s: %w", pageURL, err)
	}

	links, err := extractLinks(body, parsedURL)
	if err != nil {
		return nil, fmt.Errorf("extract links %s: %w", pageURL, err)
	}

	return &ports.PageContent{
		Text:  strings.TrimSpace(markdown),
		Title: article.Title,
		Links: links,
	}, nil
}

// extractLinks collects absolute outbound links from the raw document,
// dropping fragments, query strings, and non-navigational schemes.
func extractLinks(body []byte, base *url.URL) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var links []string
	seen := map[string]struct{}{}

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "javascript:") {
			return
		}

		parsed, err := url.Parse(href)
		if err != nil {
			return
		}

		resolved := base.ResolveReference(parsed)
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}
		resolved.Fragment = ""
		resolved.RawQuery = ""

		clean := resolved.String()
		if _, ok := seen[clean]; ok {
			return
		}
		seen[clean] = struct{}{}
		links = append(links, clean)
	})

	return links, nil
}
