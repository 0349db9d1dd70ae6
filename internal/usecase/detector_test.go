package usecase

import (
	"context"
	"strings"
	"testing"

	"intelbrief/internal/domain"
)

func TestFingerprintIgnoresTailBeyondPrefix(t *testing.T) {
	t.Parallel()

	d := NewChangeDetector(newMemStore(), 10, 0)

	a := d.Fingerprint("0123456789 volatile tail one")
	b := d.Fingerprint("0123456789 volatile tail two")
	if a != b {
		t.Fatalf("hashes differ despite identical prefix: %s vs %s", a, b)
	}

	c := d.Fingerprint("0123456789")
	if a != c {
		t.Fatalf("prefix-only text should hash the same: %s vs %s", a, c)
	}

	other := d.Fingerprint("9876543210")
	if a == other {
		t.Fatal("different prefixes produced the same hash")
	}
}

func TestDetectNewItem(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	d := NewChangeDetector(store, 12000, 50000)

	action, item, err := d.Detect(context.Background(), "src-1", "https://example.com/press", "Press", "announcement body")
	if err != nil {
		t.Fatalf("Detect error: %v", err)
	}
	if action != domain.ActionNew {
		t.Fatalf("expected new, got %s", action)
	}
	if item.ID == "" {
		t.Fatal("new item has no id")
	}
	if item.SourceID != "src-1" {
		t.Fatalf("unexpected source id: %s", item.SourceID)
	}

	stored, _ := store.FindItemByURL(context.Background(), "https://example.com/press")
	if stored == nil {
		t.Fatal("item was not persisted")
	}
	if stored.ContentHash != d.Fingerprint("announcement body") {
		t.Fatal("stored hash does not match fingerprint")
	}
}

func TestDetectUnchangedTouchesOnly(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	d := NewChangeDetector(store, 12000, 50000)
	ctx := context.Background()

	_, first, err := d.Detect(ctx, "src-1", "https://example.com/a", "A", "same content")
	if err != nil {
		t.Fatalf("first Detect: %v", err)
	}

	action, second, err := d.Detect(ctx, "src-1", "https://example.com/a", "A", "same content")
	if err != nil {
		t.Fatalf("second Detect: %v", err)
	}
	if action != domain.ActionUnchanged {
		t.Fatalf("expected unchanged, got %s", action)
	}
	if second.ID != first.ID {
		t.Fatalf("identity changed across unchanged detection: %s vs %s", first.ID, second.ID)
	}

	stored, _ := store.FindItemByURL(ctx, "https://example.com/a")
	if !stored.LastSeenAt.After(first.LastSeenAt) && !stored.LastSeenAt.Equal(first.LastSeenAt) {
		t.Fatal("last_seen_at was not refreshed")
	}
}

func TestDetectUpdatedKeepsIdentity(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	d := NewChangeDetector(store, 12000, 50000)
	ctx := context.Background()

	_, first, err := d.Detect(ctx, "src-1", "https://example.com/b", "B", "version one")
	if err != nil {
		t.Fatalf("first Detect: %v", err)
	}

	action, second, err := d.Detect(ctx, "src-1", "https://example.com/b", "B", "version two")
	if err != nil {
		t.Fatalf("second Detect: %v", err)
	}
	if action != domain.ActionUpdated {
		t.Fatalf("expected updated, got %s", action)
	}
	if second.ID != first.ID {
		t.Fatal("updated item must keep the original id")
	}
	if !second.FetchedAt.Equal(first.FetchedAt) {
		t.Fatal("updated item must keep the original fetched_at")
	}
	if second.ContentText != "version two" {
		t.Fatalf("content was not replaced: %q", second.ContentText)
	}
}

func TestDetectCapsStoredContent(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	d := NewChangeDetector(store, 12000, 100)

	long := strings.Repeat("x", 500)
	_, item, err := d.Detect(context.Background(), "src-1", "https://example.com/long", "Long", long)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(item.ContentText) != 100 {
		t.Fatalf("content not capped: %d chars", len(item.ContentText))
	}
}
