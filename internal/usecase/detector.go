package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"intelbrief/internal/domain"
	"intelbrief/internal/ports"
)

// ChangeDetector classifies fetched content as new, updated, or unchanged
// relative to the stored item for the same URL, and applies the matching
// persistence action.
type ChangeDetector struct {
	items           ports.ItemStore
	hashPrefixChars int
	contentMaxChars int
	now             func() time.Time
}

// NewChangeDetector wires the item store with the fingerprint bounds.
func NewChangeDetector(items ports.ItemStore, hashPrefixChars, contentMaxChars int) *ChangeDetector {
	if hashPrefixChars <= 0 {
		hashPrefixChars = 12000
	}
	if contentMaxChars <= 0 {
		contentMaxChars = 50000
	}
	return &ChangeDetector{
		items:           items,
		hashPrefixChars: hashPrefixChars,
		contentMaxChars: contentMaxChars,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// Fingerprint hashes a bounded prefix of the content text. The bound keeps
// hashing cost flat and ignores volatile tail content on long pages.
func (d *ChangeDetector) Fingerprint(text string) string {
	sum := sha256.Sum256([]byte(truncate(text, d.hashPrefixChars)))
	return hex.EncodeToString(sum[:])
}

// Detect compares fetched content against the stored item for url and
// persists the outcome: insert on new, overwrite on updated, timestamp
// refresh on unchanged. The write path goes through an atomic upsert keyed
// by URL, so two concurrent detections of the same URL cannot produce
// duplicate items.
func (d *ChangeDetector) Detect(ctx context.Context, sourceID, url, title, text string) (domain.ChangeAction, *domain.Item, error) {
	hash := d.Fingerprint(text)

	existing, err := d.items.FindItemByURL(ctx, url)
	if err != nil {
		return "", nil, fmt.Errorf("lookup item %s: %w", url, err)
	}

	if existing != nil && existing.ContentHash == hash {
		if err := d.items.TouchItem(ctx, url, d.now()); err != nil {
			return "", nil, fmt.Errorf("touch item %s: %w", url, err)
		}
		return domain.ActionUnchanged, existing, nil
	}

	now := d.now()
	item := domain.Item{
		ID:          uuid.NewString(),
		SourceID:    sourceID,
		URL:         url,
		Title:       title,
		ContentText: truncate(text, d.contentMaxChars),
		ContentType: "html",
		ContentHash: hash,
		FetchedAt:   now,
		LastSeenAt:  now,
	}

	action := domain.ActionNew
	if existing != nil {
		action = domain.ActionUpdated
		item.ID = existing.ID
		item.FetchedAt = existing.FetchedAt
	}

	if err := d.items.UpsertItem(ctx, item); err != nil {
		return "", nil, fmt.Errorf("persist item %s: %w", url, err)
	}

	return action, &item, nil
}

func truncate(text string, max int) string {
	if max > 0 && len(text) > max {
		return text[:max]
	}
	return text
}
