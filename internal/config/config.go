// Package config loads and validates the beadsmap TOML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration is a time.Duration that unmarshals from TOML strings like "500ms" or "168h".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

type Config struct {
	General  General  `toml:"general"`
	API      API      `toml:"api"`
	Viewport Viewport `toml:"viewport"`
	Timeline Timeline `toml:"timeline"`
	Watch    Watch    `toml:"watch"`
	Sources  []Source `toml:"sources"`
}

type General struct {
	LogLevel string `toml:"log_level"`
	StateDB  string `toml:"state_db"`
}

type API struct {
	Bind     string      `toml:"bind"`
	Security APISecurity `toml:"security"`
}

// APISecurity guards the endpoints that change stored sources.
type APISecurity struct {
	Enabled          bool     `toml:"enabled"`
	AllowedTokens    []string `toml:"allowed_tokens"`
	RequireLocalOnly bool     `toml:"require_local_only"`
}

type Viewport struct {
	PixelsPerDay float64 `toml:"pixels_per_day"`
	DaysBefore   int     `toml:"days_before"`
	DaysAhead    int     `toml:"days_ahead"`
}

type Timeline struct {
	RecentCloseWindow Duration `toml:"recent_close_window"`
	IncludeAllClosed  bool     `toml:"include_all_closed"`
	Collapsed         []string `toml:"collapsed"`
}

type Watch struct {
	Enabled  *bool    `toml:"enabled"` // default true
	Debounce Duration `toml:"debounce"`
}

// On reports whether source files should be watched.
func (w Watch) On() bool {
	return w.Enabled == nil || *w.Enabled
}

// Source is a JSONL file (or a .beads directory) imported under Key.
type Source struct {
	Key   string `toml:"key"`
	Label string `toml:"label"`
	Path  string `toml:"path"`
}

const (
	defaultStateDB  = "~/.beadsmap/state.db"
	defaultBind     = "127.0.0.1:8787"
	minPixelsPerDay = 4
	maxPixelsPerDay = 80
)

// Load reads and validates a beadsmap TOML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Default returns a validated config with every default applied, used when
// no config file exists.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

func applyDefaults(cfg *Config) {
	if cfg.General.LogLevel == "" {
		cfg.General.LogLevel = "info"
	}
	if cfg.General.StateDB == "" {
		cfg.General.StateDB = defaultStateDB
	}
	if cfg.API.Bind == "" {
		cfg.API.Bind = defaultBind
	}

	if cfg.Viewport.PixelsPerDay == 0 {
		cfg.Viewport.PixelsPerDay = 16
	}
	if cfg.Viewport.DaysBefore == 0 {
		cfg.Viewport.DaysBefore = 7
	}
	if cfg.Viewport.DaysAhead == 0 {
		cfg.Viewport.DaysAhead = 56
	}

	if cfg.Timeline.RecentCloseWindow.Duration == 0 {
		cfg.Timeline.RecentCloseWindow.Duration = 7 * 24 * time.Hour
	}
	if cfg.Timeline.Collapsed == nil {
		cfg.Timeline.Collapsed = []string{"Unscheduled"}
	}

	if cfg.Watch.Debounce.Duration == 0 {
		cfg.Watch.Debounce.Duration = 500 * time.Millisecond
	}

	for i := range cfg.Sources {
		if cfg.Sources[i].Label == "" {
			cfg.Sources[i].Label = filepath.Base(cfg.Sources[i].Path)
		}
	}
}

func validate(cfg *Config) error {
	switch strings.ToLower(strings.TrimSpace(cfg.General.LogLevel)) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", cfg.General.LogLevel)
	}

	if ppd := cfg.Viewport.PixelsPerDay; ppd < minPixelsPerDay || ppd > maxPixelsPerDay {
		return fmt.Errorf("viewport.pixels_per_day %v outside [%d, %d]", ppd, minPixelsPerDay, maxPixelsPerDay)
	}
	if cfg.Viewport.DaysBefore < 0 || cfg.Viewport.DaysAhead < 0 {
		return fmt.Errorf("viewport days must not be negative")
	}
	if cfg.Timeline.RecentCloseWindow.Duration < 0 {
		return fmt.Errorf("timeline.recent_close_window must not be negative")
	}
	if cfg.Watch.Debounce.Duration < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}

	if cfg.API.Security.Enabled && len(cfg.API.Security.AllowedTokens) == 0 {
		return fmt.Errorf("api.security.enabled requires at least one allowed token")
	}

	seen := make(map[string]struct{}, len(cfg.Sources))
	paths := make(map[string]string, len(cfg.Sources))
	for i, src := range cfg.Sources {
		if strings.TrimSpace(src.Key) == "" {
			return fmt.Errorf("source %d missing key", i)
		}
		if strings.TrimSpace(src.Path) == "" {
			return fmt.Errorf("source %q missing path", src.Key)
		}
		if _, dup := seen[src.Key]; dup {
			return fmt.Errorf("duplicate source key %q", src.Key)
		}
		seen[src.Key] = struct{}{}
		path := filepath.Clean(ExpandHome(src.Path))
		if other, dup := paths[path]; dup {
			return fmt.Errorf("sources %q and %q share path %s", other, src.Key, path)
		}
		paths[path] = src.Key
	}

	if cfg.General.StateDB != "" && cfg.General.StateDB != defaultStateDB && cfg.General.StateDB != ":memory:" {
		dir := ExpandHome(filepath.Dir(cfg.General.StateDB))
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("state_db directory %q does not exist: %w", dir, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("state_db parent path %q is not a directory", dir)
		}
	}

	return nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if len(path) == 0 {
		return path
	}
	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
