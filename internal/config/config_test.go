package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoadDefaults(t *testing.T) {
	cfg := LoadFrom("")

	if cfg.Database.URI != "mongodb://localhost:27017" {
		t.Fatalf("unexpected database uri: %s", cfg.Database.URI)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Fatalf("unexpected http addr: %s", cfg.HTTP.Addr)
	}
	if cfg.Pipeline.HashPrefixChars != 12000 {
		t.Fatalf("unexpected hash prefix: %d", cfg.Pipeline.HashPrefixChars)
	}
	if cfg.Pipeline.LinkSelectCap != 8 || cfg.Pipeline.LinkFetchCap != 3 {
		t.Fatalf("unexpected link caps: %d/%d", cfg.Pipeline.LinkSelectCap, cfg.Pipeline.LinkFetchCap)
	}
	if cfg.Pipeline.MaterialityThreshold != 70 {
		t.Fatalf("unexpected threshold: %d", cfg.Pipeline.MaterialityThreshold)
	}
	if len(cfg.Pipeline.Keywords) == 0 || len(cfg.Pipeline.BlockedDomains) == 0 {
		t.Fatal("default keyword and block lists must not be empty")
	}
	if cfg.Classifier.SystemPrompt == "" {
		t.Fatal("default classifier prompt missing")
	}
}

func TestLoadFromFileMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
database:
  database: intelbrief_test
http:
  addr: ":9090"
scheduler:
  enabled: true
  interval: 1h
pipeline:
  linkFetchCap: 5
  keywords:
    - merger
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := LoadFrom(path)

	if cfg.Database.Database != "intelbrief_test" {
		t.Fatalf("file value not applied: %s", cfg.Database.Database)
	}
	// Untouched fields keep their defaults.
	if cfg.Database.URI != "mongodb://localhost:27017" {
		t.Fatalf("default lost in merge: %s", cfg.Database.URI)
	}
	if cfg.HTTP.Addr != ":9090" {
		t.Fatalf("http addr not applied: %s", cfg.HTTP.Addr)
	}
	if !cfg.Scheduler.Enabled || cfg.Scheduler.Interval.Std() != time.Hour {
		t.Fatalf("scheduler not applied: %+v", cfg.Scheduler)
	}
	if cfg.Pipeline.LinkFetchCap != 5 {
		t.Fatalf("link fetch cap not applied: %d", cfg.Pipeline.LinkFetchCap)
	}
	if diff := cmp.Diff([]string{"merger"}, cfg.Pipeline.Keywords); diff != "" {
		t.Fatalf("keywords not replaced (-want +got):\n%s", diff)
	}
	if cfg.Pipeline.LinkSelectCap != 8 {
		t.Fatalf("unset pipeline field lost its default: %d", cfg.Pipeline.LinkSelectCap)
	}
}

func TestLoadFromMissingFileFallsBack(t *testing.T) {
	cfg := LoadFrom(filepath.Join(t.TempDir(), "absent.yaml"))
	if cfg.HTTP.Addr != ":8080" {
		t.Fatalf("missing file must fall back to defaults, got %s", cfg.HTTP.Addr)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MONGO_URL", "mongodb://db.internal:27017")
	t.Setenv("DB_NAME", "intel_prod")
	t.Setenv("BRIEF_RECIPIENTS", " ceo@acme.example, strategy@acme.example ,")

	cfg := LoadFrom("")

	if cfg.Database.URI != "mongodb://db.internal:27017" {
		t.Fatalf("env uri not applied: %s", cfg.Database.URI)
	}
	if cfg.Database.Database != "intel_prod" {
		t.Fatalf("env db name not applied: %s", cfg.Database.Database)
	}
	want := []string{"ceo@acme.example", "strategy@acme.example"}
	if diff := cmp.Diff(want, cfg.Mailer.Recipients); diff != "" {
		t.Fatalf("recipients mismatch (-want +got):\n%s", diff)
	}
}
