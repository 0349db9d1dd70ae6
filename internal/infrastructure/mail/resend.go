package mail

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
	"intelbrief/internal/ports"
)

// Mailer delivers briefs through a Resend-compatible email API.
type Mailer struct {
	endpoint   string
	apiKey     string
	from       string
	recipients []string
	client     *http.Client
}

var _ ports.Mailer = (*Mailer)(nil)

// NewMailer builds a mailer from configuration.
func NewMailer(cfg config.MailerConfig) *Mailer {
	return &Mailer{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		from:       cfg.From,
		recipients: cfg.Recipients,
		client:     &http.Client{Timeout: 15 * time.Second},
	}
}

// Send posts the rendered brief to the email API. An empty recipient list
// short-circuits with ports.ErrNoRecipients before any request is made.
func (m *Mailer) Send(ctx context.Context, subject, htmlBody string) error {
	if len(m.recipients) == 0 {
		return ports.ErrNoRecipients
	}
	if m.apiKey == "" || m.endpoint == "" || m.from == "" {
		return fmt.Errorf("mailer misconfigured")
	}

	body, err := json.Marshal(map[string]any{
		"from":    m.from,
		"to":      m.recipients,
		"subject": subject,
		"html":    htmlBody,
	})
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("email provider error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	return nil
}
