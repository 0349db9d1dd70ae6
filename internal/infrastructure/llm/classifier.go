package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"intelbrief/internal/config"
	"intelbrief/internal/domain"
	"intelbrief/internal/ports"
)

// Classifier extracts structured intelligence from page content through an
// OpenAI-compatible chat completions API.
type Classifier struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	maxChars     int
	httpClient   *http.Client
}

var _ ports.Classifier = (*Classifier)(nil)

// NewClassifier builds a classifier from configuration.
func NewClassifier(cfg config.ClassifierConfig) *Classifier {
	maxChars := cfg.MaxChars
	if maxChars <= 0 {
		maxChars = 8000
	}
	return &Classifier{
		endpoint:     cfg.Endpoint,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
		maxChars:     maxChars,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Classify submits bounded page text with its URL and title and parses the
// model's JSON reply into the canonical classification shape. A literal
// "null" or empty reply means not relevant and returns (nil, nil).
func (c *Classifier) Classify(ctx context.Context, text, url, title string) (*domain.Classification, error) {
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return nil, fmt.Errorf("classifier misconfigured")
	}

	if len(text) > c.maxChars {
		text = text[:c.maxChars]
	}

	body, err := json.Marshal(map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": c.systemPrompt},
			{"role": "user", "content": fmt.Sprintf("URL: %s\nTitle: %s\n\nContent:\n%s", url, title, text)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classify request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("classifier error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("empty classifier response")
	}

	return parseClassification(parsed.Choices[0].Message.Content, url)
}

// parseClassification normalizes the model reply: fences and surrounding
// prose are stripped, "null" means not relevant, anything else must carry a
// JSON object matching the event shape.
func parseClassification(reply, url string) (*domain.Classification, error) {
	cleaned := cleanJSON([]byte(reply))
	if len(cleaned) == 0 || strings.EqualFold(string(cleaned), "null") {
		return nil, nil
	}

	start := bytes.IndexByte(cleaned, '{')
	end := bytes.LastIndexByte(cleaned, '}')
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in classifier reply")
	}

	var result domain.Classification
	if err := json.Unmarshal(cleaned[start:end+1], &result); err != nil {
		return nil, fmt.Errorf("parse classification: %w", err)
	}

	result.SourceURL = url
	return &result, nil
}

// cleanJSON strips markdown code fences and surrounding whitespace from
// model replies. Models often wrap JSON in ```json ... ``` blocks.
func cleanJSON(data []byte) []byte {
	s := bytes.TrimSpace(data)
	if len(s) == 0 {
		return s
	}

	if bytes.HasPrefix(s, []byte("```")) {
		if idx := bytes.IndexByte(s, '\n'); idx >= 0 {
			s = s[idx+1:]
		}
		if bytes.HasSuffix(s, []byte("```")) {
			s = s[:len(s)-3]
		}
		s = bytes.TrimSpace(s)
	}

	return s
}
