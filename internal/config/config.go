package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like "30s".
type Duration time.Duration

// UnmarshalYAML parses duration strings through time.ParseDuration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

const (
	configPathEnv       = "INTELBRIEF_CONFIG"
	mongoURLEnv         = "MONGO_URL"
	mongoDatabaseEnv    = "DB_NAME"
	httpAddrEnv         = "HTTP_ADDR"
	classifierKeyEnv    = "CLASSIFIER_API_KEY"
	classifierModelEnv  = "CLASSIFIER_MODEL"
	mailerKeyEnv        = "RESEND_API_KEY"
	mailerFromEnv       = "BRIEF_FROM_EMAIL"
	mailerRecipientsEnv = "BRIEF_RECIPIENTS"
)

// Config holds high-level settings required across the application.
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	HTTP       HTTPConfig       `yaml:"http"`
	Logging    LoggingConfig    `yaml:"logging"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Fetch      FetchConfig      `yaml:"fetch"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Mailer     MailerConfig     `yaml:"mailer"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
}

// DatabaseConfig describes the MongoDB connection.
type DatabaseConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

// HTTPConfig describes the API listener.
type HTTPConfig struct {
	Addr        string   `yaml:"addr"`
	CORSOrigins []string `yaml:"corsOrigins"`
}

// LoggingConfig controls the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// SchedulerConfig defines the optional periodic run trigger.
type SchedulerConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Interval Duration `yaml:"interval"`
}

// FetchConfig tunes the page fetcher.
type FetchConfig struct {
	UserAgent     string   `yaml:"userAgent"`
	Timeout       Duration `yaml:"timeout"`
	RespectRobots bool     `yaml:"respectRobots"`
}

// ClassifierConfig defines how to reach the classification model.
type ClassifierConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"apiKey"`
	SystemPrompt string `yaml:"systemPrompt"`
	MaxChars     int    `yaml:"maxChars"`
}

// MailerConfig wires the email delivery provider.
type MailerConfig struct {
	Endpoint   string   `yaml:"endpoint"`
	APIKey     string   `yaml:"apiKey"`
	From       string   `yaml:"from"`
	Recipients []string `yaml:"recipients"`
}

// PipelineConfig carries the orchestrator and selector knobs.
type PipelineConfig struct {
	HashPrefixChars      int      `yaml:"hashPrefixChars"`
	ContentMaxChars      int      `yaml:"contentMaxChars"`
	LinkSelectCap        int      `yaml:"linkSelectCap"`
	LinkFetchCap         int      `yaml:"linkFetchCap"`
	Keywords             []string `yaml:"keywords"`
	BlockedDomains       []string `yaml:"blockedDomains"`
	MaterialityThreshold int      `yaml:"materialityThreshold"`
	SectionItemCap       int      `yaml:"sectionItemCap"`
}

// Load reads YAML configuration from the INTELBRIEF_CONFIG path (if set)
// and applies environment overrides.
func Load() Config {
	return LoadFrom(os.Getenv(configPathEnv))
}

// LoadFrom reads YAML configuration from an explicit path and applies
// environment overrides. An empty path means defaults plus environment.
func LoadFrom(path string) Config {
	cfg := defaultConfig()

	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(mongoURLEnv); v != "" {
		c.Database.URI = v
	}
	if v := os.Getenv(mongoDatabaseEnv); v != "" {
		c.Database.Database = v
	}
	if v := os.Getenv(httpAddrEnv); v != "" {
		c.HTTP.Addr = v
	}
	if v := os.Getenv(classifierKeyEnv); v != "" {
		c.Classifier.APIKey = v
	}
	if v := os.Getenv(classifierModelEnv); v != "" {
		c.Classifier.Model = v
	}
	if v := os.Getenv(mailerKeyEnv); v != "" {
		c.Mailer.APIKey = v
	}
	if v := os.Getenv(mailerFromEnv); v != "" {
		c.Mailer.From = v
	}
	if v := os.Getenv(mailerRecipientsEnv); v != "" {
		c.Mailer.Recipients = splitRecipients(v)
	}
}

func splitRecipients(value string) []string {
	parts := strings.Split(value, ",")
	recipients := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			recipients = append(recipients, trimmed)
		}
	}
	return recipients
}

func mergeConfig(base, override Config) Config {
	if override.Database.URI != "" {
		base.Database.URI = override.Database.URI
	}
	if override.Database.Database != "" {
		base.Database.Database = override.Database.Database
	}

	if override.HTTP.Addr != "" {
		base.HTTP.Addr = override.HTTP.Addr
	}
	if len(override.HTTP.CORSOrigins) > 0 {
		base.HTTP.CORSOrigins = override.HTTP.CORSOrigins
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	if override.Scheduler.Enabled {
		base.Scheduler.Enabled = true
	}
	if override.Scheduler.Interval > 0 {
		base.Scheduler.Interval = override.Scheduler.Interval
	}

	if override.Fetch.UserAgent != "" {
		base.Fetch.UserAgent = override.Fetch.UserAgent
	}
	if override.Fetch.Timeout > 0 {
		base.Fetch.Timeout = override.Fetch.Timeout
	}
	if override.Fetch.RespectRobots {
		base.Fetch.RespectRobots = true
	}

	if override.Classifier.Endpoint != "" {
		base.Classifier.Endpoint = override.Classifier.Endpoint
	}
	if override.Classifier.Model != "" {
		base.Classifier.Model = override.Classifier.Model
	}
	if override.Classifier.APIKey != "" {
		base.Classifier.APIKey = override.Classifier.APIKey
	}
	if override.Classifier.SystemPrompt != "" {
		base.Classifier.SystemPrompt = override.Classifier.SystemPrompt
	}
	if override.Classifier.MaxChars > 0 {
		base.Classifier.MaxChars = override.Classifier.MaxChars
	}

	if override.Mailer.Endpoint != "" {
		base.Mailer.Endpoint = override.Mailer.Endpoint
	}
	if override.Mailer.APIKey != "" {
		base.Mailer.APIKey = override.Mailer.APIKey
	}
	if override.Mailer.From != "" {
		base.Mailer.From = override.Mailer.From
	}
	if len(override.Mailer.Recipients) > 0 {
		base.Mailer.Recipients = override.Mailer.Recipients
	}

	if override.Pipeline.HashPrefixChars > 0 {
		base.Pipeline.HashPrefixChars = override.Pipeline.HashPrefixChars
	}
	if override.Pipeline.ContentMaxChars > 0 {
		base.Pipeline.ContentMaxChars = override.Pipeline.ContentMaxChars
	}
	if override.Pipeline.LinkSelectCap > 0 {
		base.Pipeline.LinkSelectCap = override.Pipeline.LinkSelectCap
	}
	if override.Pipeline.LinkFetchCap > 0 {
		base.Pipeline.LinkFetchCap = override.Pipeline.LinkFetchCap
	}
	if len(override.Pipeline.Keywords) > 0 {
		base.Pipeline.Keywords = override.Pipeline.Keywords
	}
	if len(override.Pipeline.BlockedDomains) > 0 {
		base.Pipeline.BlockedDomains = override.Pipeline.BlockedDomains
	}
	if override.Pipeline.MaterialityThreshold > 0 {
		base.Pipeline.MaterialityThreshold = override.Pipeline.MaterialityThreshold
	}
	if override.Pipeline.SectionItemCap > 0 {
		base.Pipeline.SectionItemCap = override.Pipeline.SectionItemCap
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Database: DatabaseConfig{
			URI:      "mongodb://localhost:27017",
			Database: "intelbrief",
		},
		HTTP: HTTPConfig{
			Addr:        ":8080",
			CORSOrigins: []string{"*"},
		},
		Logging: LoggingConfig{Level: "info"},
		Scheduler: SchedulerConfig{
			Enabled:  false,
			Interval: Duration(24 * time.Hour),
		},
		Fetch: FetchConfig{
			UserAgent:     "intelbrief/1.0",
			Timeout:       Duration(30 * time.Second),
			RespectRobots: false,
		},
		Classifier: ClassifierConfig{
			Endpoint:     "https://api.openai.com/v1/chat/completions",
			Model:        "gpt-4o-mini",
			MaxChars:     8000,
			SystemPrompt: defaultClassifierPrompt,
		},
		Mailer: MailerConfig{
			Endpoint: "https://api.resend.com/emails",
			From:     "onboarding@resend.dev",
		},
		Pipeline: PipelineConfig{
			HashPrefixChars: 12000,
			ContentMaxChars: 50000,
			LinkSelectCap:   8,
			LinkFetchCap:    3,
			Keywords: []string{
				"press", "news", "blog", "partnership", "partner", "alliance",
				"collaboration", "funding", "investment", "acquisition",
				"campaign", "deal", "package", "offer", "discount", "promotion",
				"vacation", "resort", "special offer", "announcement",
			},
			BlockedDomains: []string{
				"facebook.com", "twitter.com", "instagram.com", "linkedin.com",
				"youtube.com", "tiktok.com", "pinterest.com", "x.com",
			},
			MaterialityThreshold: 70,
			SectionItemCap:       5,
		},
	}
}

const defaultClassifierPrompt = `You are a competitive intelligence analyst for the tourism and hospitality industry.
Analyze the provided content and extract structured intelligence.
You MUST return ONLY valid JSON with NO markdown formatting, NO code blocks, NO explanation.

Return this exact JSON structure:
{
  "company": "string - company name mentioned",
  "event_type": "one of: partnership | funding | campaign_deal | pricing_change | acquisition | hiring_exec | other",
  "title": "string - brief title of the event",
  "summary": "1-2 sentences summarizing the key information",
  "why_it_matters": "1-2 sentences explaining relevance to tourism executives",
  "materiality_score": 0-100 integer indicating business impact,
  "confidence": 0-1 float indicating extraction confidence,
  "key_entities": {
    "partners": [],
    "campaigns": [],
    "packages": [],
    "discounts": [],
    "locations": [],
    "amounts": [],
    "dates": []
  },
  "evidence_quotes": ["2-3 short snippets from the content"],
  "source_url": "the source url"
}

If content is not relevant to tourism/hospitality intelligence, return null.`
