package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"notecal/internal/calendar"
	"notecal/internal/domain"
	"notecal/internal/ics"
	appLog "notecal/internal/log"
)

// Environment variables that override file values.
const (
	EnvFeedURLs   = "NOTECAL_FEED_URLS" // comma separated; replaces the feed list
	EnvOwnerEmail = "NOTECAL_OWNER_EMAIL"
	EnvLogLevel   = "NOTECAL_LOG_LEVEL"
	EnvListen     = "NOTECAL_LISTEN"
	EnvTimezone   = "NOTECAL_TIMEZONE"
	EnvCacheDir   = "NOTECAL_CACHE_DIR"
)

const (
	defaultListen              = "127.0.0.1:8080"
	defaultConcurrency         = 4
	defaultWatchCron           = "*/5 * * * *"
	defaultFetchTimeoutSeconds = 15
)

// FeedConfig describes a single ICS subscription.
type FeedConfig struct {
	// ID is an internal identifier used for logging and metrics.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// OwnerEmail, if set, replaces the global owner email for this feed
	// (e.g. a shared calendar of another account).
	OwnerEmail string `yaml:"owner_email,omitempty" json:"owner_email,omitempty"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for `notecal serve`.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone dates are rendered in. Empty means local.
	Timezone string `yaml:"timezone" json:"timezone"`

	// OwnerEmail identifies the user among attendees. Empty means every
	// event counts as attended.
	OwnerEmail string `yaml:"owner_email" json:"owner_email"`

	// IgnoredTitles are exact event summaries never offered for sync.
	IgnoredTitles []string `yaml:"ignored_titles" json:"ignored_titles"`

	FutureHours          int `yaml:"future_hours" json:"future_hours"`
	RecentHours          int `yaml:"recent_hours" json:"recent_hours"`
	SelectablePastDays   int `yaml:"selectable_past_days" json:"selectable_past_days"`
	SelectableFutureDays int `yaml:"selectable_future_days" json:"selectable_future_days"`

	// Feeds is the list of subscribed ICS sources.
	Feeds []FeedConfig `yaml:"feeds" json:"feeds"`

	// CacheDir enables the conditional-request body cache. Empty disables it.
	CacheDir string `yaml:"cache_dir,omitempty" json:"cache_dir,omitempty"`

	// Concurrency bounds parallel feed fetches.
	Concurrency int `yaml:"concurrency" json:"concurrency"`

	// FetchTimeoutSeconds bounds a single feed request.
	FetchTimeoutSeconds int `yaml:"fetch_timeout_seconds" json:"fetch_timeout_seconds"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// WatchCron is the default schedule for `notecal watch`.
	WatchCron string `yaml:"watch_cron" json:"watch_cron"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	d := calendar.DefaultSettings()
	return &Config{
		Listen:               defaultListen,
		IgnoredTitles:        []string{},
		FutureHours:          d.FutureHours,
		RecentHours:          d.RecentHours,
		SelectablePastDays:   d.SelectablePastDays,
		SelectableFutureDays: d.SelectableFutureDays,
		Feeds:                []FeedConfig{},
		Concurrency:          defaultConcurrency,
		FetchTimeoutSeconds:  defaultFetchTimeoutSeconds,
		LogLevel:             "info",
		WatchCron:            defaultWatchCron,
	}
}

// Normalize fills in missing/invalid values with sensible defaults so that
// partially-filled configs still behave correctly. A zero-width window is a
// valid setting; only negative windows are replaced.
func (c *Config) Normalize() {
	d := DefaultConfig()
	if c.Listen == "" {
		c.Listen = d.Listen
	}
	if c.FutureHours < 0 {
		c.FutureHours = d.FutureHours
	}
	if c.RecentHours < 0 {
		c.RecentHours = d.RecentHours
	}
	if c.SelectablePastDays < 0 {
		c.SelectablePastDays = d.SelectablePastDays
	}
	if c.SelectableFutureDays < 0 {
		c.SelectableFutureDays = d.SelectableFutureDays
	}
	if c.Concurrency <= 0 {
		c.Concurrency = d.Concurrency
	}
	if c.FetchTimeoutSeconds <= 0 {
		c.FetchTimeoutSeconds = d.FetchTimeoutSeconds
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.WatchCron == "" {
		c.WatchCron = d.WatchCron
	}
	if c.IgnoredTitles == nil {
		c.IgnoredTitles = []string{}
	}
	if c.Feeds == nil {
		c.Feeds = []FeedConfig{}
	}
	for i := range c.Feeds {
		c.Feeds[i].URL = strings.TrimSpace(c.Feeds[i].URL)
		if c.Feeds[i].ID == "" {
			c.Feeds[i].ID = "feed-" + strconv.Itoa(i+1)
		}
	}
}

// LoadDotEnv loads KEY=VALUE pairs from the given .env files into the
// process environment. Missing files are skipped; existing variables win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
		appLog.Debug("dotenv loaded", "path", p)
	}
	return nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist a default config is written with 0600
//     perms and returned.
//   - Otherwise the YAML is read over the defaults (keys left out keep
//     their default) and normalized.
//
// NOTECAL_* environment variables are applied on top in both cases; they
// are never written back to disk.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, domain.NewConfigurationError("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				cfg.ApplyEnv()
				return cfg, err
			}
			appLog.Info("default config written", "path", path)
			cfg.ApplyEnv()
			return cfg, nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, domain.NewConfigurationError("invalid config file "+path, err)
	}
	cfg.Normalize()
	cfg.ApplyEnv()

	return cfg, nil
}

// ApplyEnv overrides file values with NOTECAL_* environment variables.
func (c *Config) ApplyEnv() {
	if v, ok := os.LookupEnv(EnvFeedURLs); ok {
		feeds := make([]FeedConfig, 0)
		for _, u := range strings.Split(v, ",") {
			u = strings.TrimSpace(u)
			if u == "" {
				continue
			}
			feeds = append(feeds, FeedConfig{
				ID:  "env-" + strconv.Itoa(len(feeds)+1),
				URL: u,
			})
		}
		c.Feeds = feeds
		appLog.Debug("env", EnvFeedURLs, len(feeds))
	}
	if v, ok := os.LookupEnv(EnvOwnerEmail); ok {
		c.OwnerEmail = strings.TrimSpace(v)
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvListen); v != "" {
		c.Listen = v
	}
	if v, ok := os.LookupEnv(EnvTimezone); ok {
		c.Timezone = v
	}
	if v, ok := os.LookupEnv(EnvCacheDir); ok {
		c.CacheDir = v
	}
}

// Validate reports a configuration error when no usable feed is set.
func (c *Config) Validate() error {
	for _, f := range c.Feeds {
		if f.URL != "" {
			return nil
		}
	}
	return domain.ErrNoFeedConfigured
}

// FetchTimeout is FetchTimeoutSeconds as a duration.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

// Location resolves Timezone. Empty means time.Local.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, domain.NewConfigurationError("invalid timezone "+strconv.Quote(c.Timezone), err)
	}
	return loc, nil
}

// Settings builds the immutable snapshot records classify against.
func (c *Config) Settings() (calendar.Settings, error) {
	loc, err := c.Location()
	if err != nil {
		return calendar.Settings{}, err
	}
	return calendar.Settings{
		OwnerEmail:           c.OwnerEmail,
		IgnoredTitles:        append([]string(nil), c.IgnoredTitles...),
		FutureHours:          c.FutureHours,
		RecentHours:          c.RecentHours,
		SelectablePastDays:   c.SelectablePastDays,
		SelectableFutureDays: c.SelectableFutureDays,
		Location:             loc,
	}, nil
}

// Feed is one configured source together with the settings its records
// are built with.
type Feed struct {
	Source   ics.Source
	Settings calendar.Settings
}

// ResolveFeeds pairs every feed that has a URL with its settings, applying
// per-feed owner overrides to base.
func (c *Config) ResolveFeeds(base calendar.Settings) []Feed {
	out := make([]Feed, 0, len(c.Feeds))
	for _, f := range c.Feeds {
		if f.URL == "" {
			continue
		}
		s := base
		if f.OwnerEmail != "" {
			s = base.WithOwnerEmail(f.OwnerEmail)
		}
		out = append(out, Feed{
			Source:   ics.Source{ID: f.ID, URL: f.URL},
			Settings: s,
		})
	}
	return out
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600 (the file holds feed tokens).
func Save(path string, cfg *Config) error {
	if path == "" {
		return domain.NewConfigurationError("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".notecal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
