package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/caarlos0/env"
	"gopkg.in/yaml.v3"

	"tzcal/internal/tzconv"
)

// NOTE: This file provides the configuration model and full YAML-based
// load/save behavior, including first-run config creation and 0600
// permissions.

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA reference zone. "Today", "now", column dates,
	// hour labels and the current-time indicator are computed in it.
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart controls which weekday is treated as the first day of the week
	// in calendar views. Supported values:
	//   - "monday" (default)
	//   - "sunday"
	WeekStart string `yaml:"week_start" json:"week_start"`

	// HourHeightPx is the pixel height of one hour row.
	HourHeightPx float64 `yaml:"hour_height_px" json:"hour_height_px"`

	// RefreshCron is the cron spec of the live clock. The default refreshes
	// once per minute; "@every 1s" gives per-second zone readouts.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// Timezones is the catalog of selectable display zones.
	Timezones []string `yaml:"timezones" json:"timezones"`

	// MaxTimezones caps how many zones can be selected at once.
	MaxTimezones int `yaml:"max_timezones" json:"max_timezones"`

	// DefaultTimezones are selected when the server starts.
	DefaultTimezones []string `yaml:"default_timezones" json:"default_timezones"`

	// DefaultView is the initial view mode: day, week or month.
	DefaultView string `yaml:"default_view" json:"default_view"`

	// DataPath is the bbolt file holding events.
	DataPath string `yaml:"data_path" json:"data_path"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen       = "127.0.0.1:8080"
	defaultTimezone     = "UTC"
	defaultWeekStart    = "monday"
	defaultHourHeightPx = 48
	defaultRefreshCron  = "* * * * *"
	defaultMaxTimezones = 3
	defaultView         = "week"
	defaultDataPath     = "/var/lib/tzcal/events.db"
)

// defaultCatalog mirrors the zone list of the UI selectors.
var defaultCatalog = []string{
	"UTC",
	"America/Los_Angeles",
	"America/New_York",
	"America/Chicago",
	"Europe/London",
	"Europe/Paris",
	"Asia/Tokyo",
	"Asia/Shanghai",
	"Asia/Singapore",
	"Australia/Sydney",
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:           defaultListen,
		Timezone:         defaultTimezone,
		WeekStart:        defaultWeekStart,
		HourHeightPx:     defaultHourHeightPx,
		RefreshCron:      defaultRefreshCron,
		Timezones:        slices.Clone(defaultCatalog),
		MaxTimezones:     defaultMaxTimezones,
		DefaultTimezones: []string{},
		DefaultView:      defaultView,
		DataPath:         defaultDataPath,
		BasicAuth:        nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs (e.g., older versions) still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	switch c.WeekStart {
	case "monday", "sunday":
		// ok
	default:
		// Unknown value; fall back to monday to avoid surprising layouts.
		c.WeekStart = defaultWeekStart
	}
	if c.HourHeightPx <= 0 {
		c.HourHeightPx = defaultHourHeightPx
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if len(c.Timezones) == 0 {
		c.Timezones = slices.Clone(defaultCatalog)
	}
	if c.MaxTimezones <= 0 {
		c.MaxTimezones = defaultMaxTimezones
	}
	if c.DefaultTimezones == nil {
		c.DefaultTimezones = []string{}
	}
	switch c.DefaultView {
	case "day", "week", "month":
	default:
		c.DefaultView = defaultView
	}
	if c.DataPath == "" {
		c.DataPath = defaultDataPath
	}
}

// Validate reports settings Normalize cannot repair.
func (c *Config) Validate() error {
	var errs []error
	if _, err := tzconv.Location(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	for _, z := range c.Timezones {
		if _, err := tzconv.Location(z); err != nil {
			errs = append(errs, fmt.Errorf("timezones: %w", err))
		}
	}
	for _, z := range c.DefaultTimezones {
		if !slices.Contains(c.Timezones, z) {
			errs = append(errs, fmt.Errorf("default_timezones: %q is not in timezones", z))
		}
	}
	if len(c.DefaultTimezones) > c.MaxTimezones {
		errs = append(errs, fmt.Errorf("default_timezones: %d zones exceed max_timezones %d", len(c.DefaultTimezones), c.MaxTimezones))
	}
	return errors.Join(errs...)
}

// envOverrides are read from the environment after the file is loaded.
type envOverrides struct {
	Listen      string `env:"TZCAL_LISTEN"`
	Timezone    string `env:"TZCAL_TIMEZONE"`
	DataPath    string `env:"TZCAL_DATA_PATH"`
	RefreshCron string `env:"TZCAL_REFRESH"`
}

// ApplyEnv overrides file values with TZCAL_* environment variables.
func (c *Config) ApplyEnv() error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("config: parse environment: %w", err)
	}
	if o.Listen != "" {
		c.Listen = o.Listen
	}
	if o.Timezone != "" {
		c.Timezone = o.Timezone
	}
	if o.DataPath != "" {
		c.DataPath = o.DataPath
	}
	if o.RefreshCron != "" {
		c.RefreshCron = o.RefreshCron
	}
	return nil
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
//
// Environment overrides are applied in both cases and are never written
// back to the file.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	cfg, err := loadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return cfg, nil
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
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

	tmp, err := os.CreateTemp(dir, ".tzcal-config-*.tmp")
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
