package marker

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/ccmark/fetch"
	"github.com/hazyhaar/ccmark/vocab"
)

// Config holds the service configuration.
type Config struct {
	Listen string `yaml:"listen"`
	// DBPath locates the custom vocabulary database. Empty = no persistence,
	// vocabulary edits are rejected.
	DBPath string `yaml:"db_path"`
	// Selectors replace the default comment-container selectors.
	Selectors []string `yaml:"selectors"`

	RescanDelay   time.Duration `yaml:"rescan_delay"`
	RescanMaxWait time.Duration `yaml:"rescan_max_wait"`
	WatchInterval time.Duration `yaml:"watch_interval"`
	WatchDebounce time.Duration `yaml:"watch_debounce"`

	// Sanitize runs untrusted input through the HTML sanitiser before
	// highlighting. Default: true.
	Sanitize *bool `yaml:"sanitize"`
	MaxBody  int64 `yaml:"max_body"`

	Fetch FetchConfig `yaml:"fetch"`

	// Vocabulary is merged under the stored custom vocabulary.
	Vocabulary vocab.Custom `yaml:"vocabulary"`

	Logger *slog.Logger `yaml:"-"`
}

// FetchConfig controls page retrieval.
type FetchConfig struct {
	Mode      string        `yaml:"mode"` // http | browser | auto
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
	Browser   BrowserConfig `yaml:"browser"`
}

// BrowserConfig controls Chrome.
type BrowserConfig struct {
	Remote           string        `yaml:"remote"`
	Headful          bool          `yaml:"headful"`
	WaitStable       time.Duration `yaml:"wait_stable"`
	ResourceBlocking []string      `yaml:"resource_blocking"`
}

// LoadConfigFile reads a YAML config file and applies defaults.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("marker: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("marker: %s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Validate checks values defaults cannot repair.
func (c *Config) Validate() error {
	if _, err := fetch.ParseMode(c.Fetch.Mode); err != nil {
		return err
	}
	return c.Vocabulary.Validate()
}

// SanitizeEnabled reports whether input is sanitised.
func (c *Config) SanitizeEnabled() bool {
	return c.Sanitize == nil || *c.Sanitize
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = ":8086"
	}
	if c.RescanDelay <= 0 {
		c.RescanDelay = 50 * time.Millisecond
	}
	if c.RescanMaxWait <= 0 {
		c.RescanMaxWait = time.Second
	}
	if c.WatchInterval <= 0 {
		c.WatchInterval = time.Second
	}
	if c.WatchDebounce <= 0 {
		c.WatchDebounce = 200 * time.Millisecond
	}
	if c.MaxBody <= 0 {
		c.MaxBody = 4 << 20
	}
	if c.Fetch.Mode == "" {
		c.Fetch.Mode = string(fetch.ModeAuto)
	}
	if c.Fetch.Timeout <= 0 {
		c.Fetch.Timeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
