package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/insightpilot/insightpilot/internal/confidence"
)

// Config is the on-disk configuration of insightpilot
type Config struct {
	DataDir  string            `yaml:"data_dir"`
	LogMode  string            `yaml:"log_mode"`
	Learning confidence.Config `yaml:"learning"`
	Prune    PruneConfig       `yaml:"prune"`
	Inbox    InboxConfig       `yaml:"inbox"`

	// Path is the file the configuration was loaded from
	Path string `yaml:"-"`
}

// PruneConfig controls the periodic removal of stale patterns
type PruneConfig struct {
	Interval   time.Duration `yaml:"interval"`
	MaxAgeDays int           `yaml:"max_age_days"`
}

// InboxConfig controls the directory the daemon learns from
type InboxConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Dir      string        `yaml:"dir"`
	Debounce time.Duration `yaml:"debounce"`
}

func DefaultConfigDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".insightpilot")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// Default returns the built-in configuration
func Default() *Config {
	dir := DefaultConfigDir()
	return &Config{
		DataDir:  filepath.Join(dir, "data"),
		LogMode:  "dev",
		Learning: confidence.DefaultConfig(),
		Prune: PruneConfig{
			Interval:   24 * time.Hour,
			MaxAgeDays: 90,
		},
		Inbox: InboxConfig{
			Enabled:  true,
			Dir:      filepath.Join(dir, "inbox"),
			Debounce: 500 * time.Millisecond,
		},
		Path: DefaultConfigPath(),
	}
}

// Load reads the file at path over the defaults. An empty path means the
// default location; a missing file yields the defaults. INSIGHTPILOT_DATA_DIR
// and INSIGHTPILOT_LOG_MODE override the file.
func Load(path string) (*Config, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = DefaultConfigPath()
	}
	path = expandUserPath(path)

	cfg := Default()
	cfg.Path = path

	b, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if err == nil {
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	if v := strings.TrimSpace(os.Getenv("INSIGHTPILOT_DATA_DIR")); v != "" {
		cfg.DataDir = v
	}
	if v := strings.TrimSpace(os.Getenv("INSIGHTPILOT_LOG_MODE")); v != "" {
		cfg.LogMode = v
	}

	cfg.DataDir = expandUserPath(cfg.DataDir)
	cfg.Inbox.Dir = expandUserPath(cfg.Inbox.Dir)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the values Load cannot fix up
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("data_dir is required")
	}
	if err := c.Learning.Validate(); err != nil {
		return fmt.Errorf("learning: %w", err)
	}
	if c.Prune.Interval < 0 {
		return fmt.Errorf("prune.interval must not be negative")
	}
	if c.Prune.MaxAgeDays < 0 {
		return fmt.Errorf("prune.max_age_days must not be negative")
	}
	if c.Inbox.Enabled && strings.TrimSpace(c.Inbox.Dir) == "" {
		return fmt.Errorf("inbox.dir is required when the inbox is enabled")
	}
	return nil
}

func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "patterns.db")
}

func (c *Config) PIDPath() string {
	return filepath.Join(c.DataDir, "daemon.pid")
}

// ProcessedDir is where the daemon moves inbox files it has learned from
func (c *Config) ProcessedDir() string {
	return filepath.Join(c.Inbox.Dir, "processed")
}

func expandUserPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}
	return path
}

// DefaultFile is the commented configuration written by init
const DefaultFile = `# InsightPilot Configuration

# Where the pattern database lives
data_dir: ~/.insightpilot/data

# dev | prod
log_mode: dev

# Confidence tuning
learning:
  base_confidence: 0.3
  accept_boost: 0.15
  reject_penalty: 0.2
  time_decay_days: 30
  decay_factor: 0.3
  max_accept_impact: 10
  max_reject_impact: 5
  suggest_threshold: 0.5
  auto_apply_threshold: 0.8

# Stale, low-value patterns are removed periodically by the daemon
prune:
  interval: 24h
  max_age_days: 90

# Saved records dropped here as JSON are learned from by the daemon
inbox:
  enabled: true
  dir: ~/.insightpilot/inbox
  debounce: 500ms
`
