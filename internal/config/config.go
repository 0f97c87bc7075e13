// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Site    SiteConfig    `mapstructure:"site"`
	Crawl   CrawlConfig   `mapstructure:"crawl"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	DB      DBConfig      `mapstructure:"db"`
	Archive ArchiveConfig `mapstructure:"archive"`
	Events  EventsConfig  `mapstructure:"events"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// SiteConfig identifies the target site being cataloged.
type SiteConfig struct {
	BaseURL          string   `mapstructure:"base_url"`
	CategoryPath     string   `mapstructure:"category_path"`
	EmbedHosts       []string `mapstructure:"embed_hosts"`
	SeedFile         string   `mapstructure:"seed_file"`
	UseSeedOnEmpty   bool     `mapstructure:"use_seed_on_empty"`
	MediaExtension   string   `mapstructure:"media_extension"`
	ListingSelectors []string `mapstructure:"listing_selectors"`
}

// CrawlConfig governs orchestrator pacing and limits.
type CrawlConfig struct {
	MaxStudios      int `mapstructure:"max_studios"`
	PagesPerStudio  int `mapstructure:"pages_per_studio"`
	EnrichBatchSize int `mapstructure:"enrich_batch_size"`
	PageDelayMs     int `mapstructure:"page_delay_ms"`
	VideoDelayMs    int `mapstructure:"video_delay_ms"`
	StudioDelayMs   int `mapstructure:"studio_delay_ms"`
}

// HTTPConfig configures fetcher retry behavior.
type HTTPConfig struct {
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	MaxAttempts    int     `mapstructure:"max_attempts"`
	BackoffBaseMs  int     `mapstructure:"backoff_base_ms"`
	UserAgent      string  `mapstructure:"user_agent"`
	PerHostRPS     float64 `mapstructure:"per_host_rps"`
}

// DBConfig selects and configures the persistence gateway.
type DBConfig struct {
	Provider string `mapstructure:"provider"` // "memory" or "postgres"
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// ArchiveConfig controls raw page archiving.
type ArchiveConfig struct {
	Provider  string `mapstructure:"provider"` // "none", "local" or "gcs"
	BaseDir   string `mapstructure:"base_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// EventsConfig controls catalog event publishing.
type EventsConfig struct {
	Provider  string `mapstructure:"provider"` // "none", "memory" or "pubsub"
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CATALOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("site.base_url", "https://gay.xtapes.in")
	v.SetDefault("site.category_path", "/category/")
	v.SetDefault("site.embed_hosts", []string{"74k.io", "88z.io"})
	v.SetDefault("site.media_extension", ".mp4")
	v.SetDefault("site.use_seed_on_empty", true)
	v.SetDefault("crawl.max_studios", 5)
	v.SetDefault("crawl.pages_per_studio", 3)
	v.SetDefault("crawl.enrich_batch_size", 10)
	v.SetDefault("crawl.page_delay_ms", 2000)
	v.SetDefault("crawl.video_delay_ms", 3000)
	v.SetDefault("crawl.studio_delay_ms", 5000)
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("http.max_attempts", 3)
	v.SetDefault("http.backoff_base_ms", 2000)
	v.SetDefault("http.user_agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
	v.SetDefault("http.per_host_rps", 0)
	v.SetDefault("db.provider", "memory")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("archive.provider", "none")
	v.SetDefault("archive.prefix", "pages")
	v.SetDefault("events.provider", "none")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Site.BaseURL == "" {
		return fmt.Errorf("site.base_url is required")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.MaxAttempts <= 0 {
		return fmt.Errorf("http.max_attempts must be > 0")
	}
	if c.DB.Provider == "postgres" && c.DB.DSN == "" {
		return fmt.Errorf("db.dsn must be set when db.provider is postgres")
	}
	if c.Archive.Provider == "gcs" && c.Archive.GCSBucket == "" {
		return fmt.Errorf("archive.gcs_bucket must be set when archive.provider is gcs")
	}
	if c.Events.Provider == "pubsub" && (c.Events.ProjectID == "" || c.Events.Topic == "") {
		return fmt.Errorf("events.project_id and events.topic must be set when events.provider is pubsub")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	return nil
}

// FetchTimeout converts the configured per-attempt timeout into a Duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// BackoffBase converts the configured backoff base into a Duration.
func (c Config) BackoffBase() time.Duration {
	return time.Duration(c.HTTP.BackoffBaseMs) * time.Millisecond
}
