package config

import (
	"encoding/json"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/vango-dev/notes/internal/errors"
	"github.com/vango-dev/notes/pkg/router"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "notes.json"

	// DefaultAddr is the default listen address.
	DefaultAddr = "127.0.0.1:8000"

	// DefaultDatabase is the default SQLite database file.
	DefaultDatabase = "notes.db"

	// DefaultLogLevel is the default slog level name.
	DefaultLogLevel = "info"

	// DefaultAnalyticsTTL is how long an analytics report stays cached.
	DefaultAnalyticsTTL = "5m"

	// DefaultAnalyticsTopN is the number of words and n-grams reported.
	DefaultAnalyticsTopN = 10
)

// Config represents notes.json. Every field can be overridden by the
// environment variable named in its env tag.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string `json:"addr,omitempty" env:"NOTES_ADDR"`

	// Database is the SQLite DSN or file path.
	Database string `json:"database,omitempty" env:"NOTES_DB"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"logLevel,omitempty" env:"NOTES_LOG_LEVEL"`

	// Router configures navigation.
	Router RouterConfig `json:"router,omitempty"`

	// Analytics configures the report cache.
	Analytics AnalyticsConfig `json:"analytics,omitempty"`

	// Summarizer configures the Gemini client.
	Summarizer SummarizerConfig `json:"summarizer,omitempty"`

	// Export configures S3 snapshots.
	Export ExportConfig `json:"export,omitempty"`

	// Observability toggles metrics and tracing.
	Observability ObservabilityConfig `json:"observability,omitempty"`

	configPath string
}

// RouterConfig configures the navigation router.
type RouterConfig struct {
	// History is "path" (default) or "hash".
	History string `json:"history,omitempty" env:"NOTES_HISTORY"`

	// Base is the prefix the app is mounted under.
	Base string `json:"base,omitempty" env:"NOTES_BASE"`

	// MaxHistory caps per-connection navigation stacks.
	MaxHistory int `json:"maxHistory,omitempty" env:"NOTES_MAX_HISTORY"`
}

// AnalyticsConfig configures analytics.
type AnalyticsConfig struct {
	// CacheTTL is a Go duration string (e.g., "5m").
	CacheTTL string `json:"cacheTTL,omitempty" env:"NOTES_ANALYTICS_TTL"`

	// TopN is the number of words and n-grams reported.
	TopN int `json:"topN,omitempty" env:"NOTES_ANALYTICS_TOP_N"`
}

// SummarizerConfig configures the summarizer.
type SummarizerConfig struct {
	APIKey   string `json:"-" env:"NOTES_GEMINI_API_KEY"`
	Endpoint string `json:"endpoint,omitempty" env:"NOTES_GEMINI_ENDPOINT"`
}

// ExportConfig configures snapshot export.
type ExportConfig struct {
	Bucket    string `json:"bucket,omitempty" env:"NOTES_S3_BUCKET"`
	Prefix    string `json:"prefix,omitempty" env:"NOTES_S3_PREFIX"`
	Region    string `json:"region,omitempty" env:"NOTES_S3_REGION"`
	Endpoint  string `json:"endpoint,omitempty" env:"NOTES_S3_ENDPOINT"`
	AccessKey string `json:"-" env:"NOTES_S3_ACCESS_KEY"`
	SecretKey string `json:"-" env:"NOTES_S3_SECRET_KEY"`
	PathStyle bool   `json:"pathStyle,omitempty" env:"NOTES_S3_PATH_STYLE"`
}

// ObservabilityConfig toggles metrics and tracing.
type ObservabilityConfig struct {
	Metrics bool `json:"metrics,omitempty" env:"NOTES_METRICS"`
	Tracing bool `json:"tracing,omitempty" env:"NOTES_TRACING"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Addr:     DefaultAddr,
		Database: DefaultDatabase,
		LogLevel: DefaultLogLevel,
		Router: RouterConfig{
			History:    router.HistoryPath.String(),
			MaxHistory: router.DefaultMaxHistory,
		},
		Analytics: AnalyticsConfig{
			CacheTTL: DefaultAnalyticsTTL,
			TopN:     DefaultAnalyticsTopN,
		},
		Observability: ObservabilityConfig{
			Metrics: true,
		},
	}
}

// Load reads notes.json from dir.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("N100").
				WithDetail("No " + ConfigFileName + " found at " + path).
				Wrap(err)
		}
		return nil, errors.New("N101").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("N101").
			WithDetail("Failed to parse " + path + ": " + err.Error()).
			WithSuggestion("Check that the file is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()
	return cfg, nil
}

// Resolve loads path when given, otherwise notes.json in the working
// directory if present, otherwise defaults. Environment overrides are
// applied and the result validated.
func Resolve(path string) (*Config, error) {
	var cfg *Config
	var err error
	if path != "" {
		cfg, err = LoadFile(path)
	} else {
		cfg, err = Load(".")
		if errors.CodeOf(err) == "N100" {
			cfg, err = New(), nil
		}
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from NOTES_* environment variables. Unset
// variables leave the current value in place.
func (c *Config) ApplyEnv() error {
	if err := env.Parse(c); err != nil {
		return errors.New("N104").WithDetail("parse env: " + err.Error()).Wrap(err)
	}
	c.applyDefaults()
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

func (c *Config) applyDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.Database == "" {
		c.Database = DefaultDatabase
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Router.History == "" {
		c.Router.History = router.HistoryPath.String()
	}
	if c.Router.MaxHistory == 0 {
		c.Router.MaxHistory = router.DefaultMaxHistory
	}
	if c.Analytics.CacheTTL == "" {
		c.Analytics.CacheTTL = DefaultAnalyticsTTL
	}
	if c.Analytics.TopN == 0 {
		c.Analytics.TopN = DefaultAnalyticsTopN
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	_, port, err := net.SplitHostPort(c.Addr)
	if err != nil {
		return errors.New("N102").WithDetail(err.Error())
	}
	if n, err := strconv.Atoi(port); err != nil || n < 0 || n > 65535 {
		return errors.New("N102").WithDetail("Port must be between 0 and 65535")
	}
	if _, err := router.ParseHistoryMode(c.Router.History); err != nil {
		return errors.New("N103").WithDetail(err.Error())
	}
	if c.Router.MaxHistory < 0 {
		return errors.New("N101").WithField("router.maxHistory").WithDetail("maxHistory must not be negative")
	}
	if _, err := c.AnalyticsTTL(); err != nil {
		return errors.New("N101").WithField("analytics.cacheTTL").WithDetail(err.Error())
	}
	if c.Analytics.TopN < 0 {
		return errors.New("N101").WithField("analytics.topN").WithDetail("topN must not be negative")
	}
	if _, err := c.SlogLevel(); err != nil {
		return errors.New("N101").WithField("logLevel").WithDetail(err.Error())
	}
	return nil
}

// HistoryMode returns the parsed router history mode.
func (c *Config) HistoryMode() router.HistoryMode {
	mode, err := router.ParseHistoryMode(c.Router.History)
	if err != nil {
		return router.HistoryPath
	}
	return mode
}

// AnalyticsTTL returns the parsed analytics cache TTL.
func (c *Config) AnalyticsTTL() (time.Duration, error) {
	d, err := time.ParseDuration(c.Analytics.CacheTTL)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, errors.Newf("cacheTTL must not be negative")
	}
	return d, nil
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(strings.ToLower(c.LogLevel)))
	return level, err
}
