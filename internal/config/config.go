package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	appLog "github.com/richard-uk1/plannr/internal/log"
)

// OAuthConfig enables an OAuth2 authorization-code login for a source.
// The token obtained by `plannr login` is stored at TokenPath.
type OAuthConfig struct {
	ClientID     string   `yaml:"client_id" json:"client_id"`
	ClientSecret string   `yaml:"client_secret" json:"-"`
	AuthURL      string   `yaml:"auth_url" json:"auth_url"`
	TokenURL     string   `yaml:"token_url" json:"token_url"`
	Scopes       []string `yaml:"scopes,omitempty" json:"scopes,omitempty"`
	TokenPath    string   `yaml:"token_path" json:"token_path"`
	// RedirectURL must point at a loopback address; login listens there
	// for the authorization code.
	RedirectURL string `yaml:"redirect_url" json:"redirect_url"`
}

// SourceConfig describes a single calendar source. Exactly one of URL and
// Path is set.
type SourceConfig struct {
	// ID is an internal identifier used for de-dup and logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
	// URL is an ICS subscription endpoint.
	URL string `yaml:"url,omitempty" json:"url,omitempty"`
	// Path is a local .ics file, watched for changes by serve.
	Path  string       `yaml:"path,omitempty" json:"path,omitempty"`
	OAuth *OAuthConfig `yaml:"oauth,omitempty" json:"oauth,omitempty"`
}

// Key returns ID, falling back to Name and then to the location.
func (s SourceConfig) Key() string {
	switch {
	case s.ID != "":
		return s.ID
	case s.Name != "":
		return s.Name
	case s.URL != "":
		return s.URL
	}
	return s.Path
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone used as canonical display zone and for
	// floating times (e.g. "Europe/London").
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart is "monday" (default) or "sunday". It is the WKST used when
	// a recurrence rule does not name one.
	WeekStart string `yaml:"week_start" json:"week_start"`

	// RefreshCron is a cron-style schedule (e.g. "*/15 * * * *") for
	// refetching sources in serve.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// HorizonDays is the number of future days to expand.
	HorizonDays int `yaml:"horizon_days" json:"horizon_days"`

	// BackfillDays is the number of past days to expand.
	BackfillDays int `yaml:"backfill_days" json:"backfill_days"`

	// Strict selects strict parsing. Lenient parsing is opt-in.
	Strict bool `yaml:"strict" json:"strict"`

	LogLevel string `yaml:"log_level" json:"log_level"`

	// CacheDir holds the per-URL HTTP cache.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// MaxOccurrences caps expansion of a single recurring event.
	MaxOccurrences int `yaml:"max_occurrences" json:"max_occurrences"`

	Sources []SourceConfig `yaml:"sources" json:"sources"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen         = "127.0.0.1:8080"
	defaultTimezone       = "UTC"
	defaultRefreshCron    = "*/15 * * * *"
	defaultHorizonDays    = 14
	defaultBackfillDays   = 1
	defaultLogLevel       = "info"
	defaultCacheDir       = "./var/ics-cache"
	defaultMaxOccurrences = 5000
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:         defaultListen,
		Timezone:       defaultTimezone,
		WeekStart:      "monday",
		RefreshCron:    defaultRefreshCron,
		HorizonDays:    defaultHorizonDays,
		BackfillDays:   defaultBackfillDays,
		Strict:         true,
		LogLevel:       defaultLogLevel,
		CacheDir:       defaultCacheDir,
		MaxOccurrences: defaultMaxOccurrences,
		Sources:        []SourceConfig{},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly. Strict is left alone:
// a file that omits it parses leniently only if it says so.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	switch c.WeekStart {
	case "monday", "sunday":
	case "":
		c.WeekStart = "monday"
	default:
		appLog.Warn("unknown week_start; using monday", "week_start", c.WeekStart)
		c.WeekStart = "monday"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = defaultHorizonDays
	}
	if c.BackfillDays < 0 {
		c.BackfillDays = 0
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir
	}
	if c.MaxOccurrences <= 0 {
		c.MaxOccurrences = defaultMaxOccurrences
	}
	if c.Sources == nil {
		c.Sources = []SourceConfig{}
	}
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	if _, err := cron.ParseStandard(c.RefreshCron); err != nil {
		return fmt.Errorf("refresh %q: %w", c.RefreshCron, err)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	if _, err := appLog.ParseLevel(c.LogLevel); err != nil {
		return err
	}

	seen := make(map[string]bool, len(c.Sources))
	for i, s := range c.Sources {
		key := s.Key()
		if (s.URL == "") == (s.Path == "") {
			return fmt.Errorf("source %d (%s): exactly one of url and path must be set", i, key)
		}
		if seen[key] {
			return fmt.Errorf("source %d: duplicate id %q", i, key)
		}
		seen[key] = true
		if s.OAuth != nil {
			if s.URL == "" {
				return fmt.Errorf("source %s: oauth needs a url source", key)
			}
			if s.OAuth.ClientID == "" || s.OAuth.AuthURL == "" || s.OAuth.TokenURL == "" || s.OAuth.TokenPath == "" {
				return fmt.Errorf("source %s: oauth needs client_id, auth_url, token_url and token_path", key)
			}
		}
	}
	return nil
}

// Location returns the configured display zone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// WeekStartDay maps WeekStart to a time.Weekday.
func (c *Config) WeekStartDay() time.Weekday {
	if c.WeekStart == "sunday" {
		return time.Sunday
	}
	return time.Monday
}

// Source looks a source up by its key.
func (c *Config) Source(key string) (SourceConfig, bool) {
	for _, s := range c.Sources {
		if s.Key() == key {
			return s, true
		}
	}
	return SourceConfig{}, false
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			appLog.Info("wrote default config", "path", path)
			return cfg, nil
		}
		return nil, err
	}

	cfg := Config{Strict: true}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
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

	tmp, err := os.CreateTemp(dir, ".plannr-config-*.tmp")
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

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
