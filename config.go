package a11ywatch

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hazyhaar/a11ywatch/internal/sink"
	"github.com/hazyhaar/a11ywatch/internal/source"
	"gopkg.in/yaml.v3"
)

// Config is the top-level service configuration.
type Config struct {
	// Listen is the HTTP address of `a11ywatch serve`.
	Listen string `yaml:"listen"`
	// DBPath holds audit history and stored rule settings.
	DBPath string `yaml:"db_path"`
	// MaxBodyBytes caps API request bodies, inline HTML included.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
	// Retention prunes audits older than this. Zero keeps everything.
	Retention time.Duration `yaml:"retention"`

	Settings SettingsConfig `yaml:"settings"`
	Fetch    FetchConfig    `yaml:"fetch"`
	Browser  BrowserConfig  `yaml:"browser"`
	Sinks    []sink.Config  `yaml:"sinks"`
	Pages    []PageConfig   `yaml:"pages"`
}

// SettingsConfig locates rule settings. Entries stored in the database
// override entries of the file.
type SettingsConfig struct {
	File string `yaml:"file"` // .yaml, .yml or .toml
	// Watch reloads the file on change and polls the database table.
	Watch        bool          `yaml:"watch"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// FetchConfig tunes the HTTP source.
type FetchConfig struct {
	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"`
}

// BrowserConfig enables browser snapshots for script-rendered pages.
type BrowserConfig struct {
	Enabled              bool `yaml:"enabled"`
	source.BrowserConfig `yaml:",inline"`
}

// PageConfig schedules recurring audits of one URL.
type PageConfig struct {
	URL      string        `yaml:"url"`
	Interval time.Duration `yaml:"interval"`
	Mode     string        `yaml:"mode"` // auto | http | browser
}

// LoadConfigFile reads a YAML configuration file and applies defaults.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "a11ywatch: read config")
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "a11ywatch: parse config %s", path)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultConfig returns the configuration used without a file.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = ":8090"
	}
	if c.DBPath == "" {
		c.DBPath = "data/a11ywatch.db"
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 8 << 20
	}
	if c.Settings.PollInterval <= 0 {
		c.Settings.PollInterval = time.Second
	}
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = source.DefaultUserAgent
	}
	if c.Fetch.Timeout <= 0 {
		c.Fetch.Timeout = 30 * time.Second
	}
	if c.Browser.NavigateTimeout <= 0 {
		c.Browser.NavigateTimeout = 30 * time.Second
	}
	for i := range c.Pages {
		if c.Pages[i].Interval <= 0 {
			c.Pages[i].Interval = 4 * time.Hour
		}
		if c.Pages[i].Mode == "" {
			c.Pages[i].Mode = "auto"
		}
	}
}

func (c *Config) validate() error {
	for _, p := range c.Pages {
		if err := validateURL(p.URL); err != nil {
			return errors.Wrap(err, "a11ywatch: pages")
		}
		if _, err := parseMode(p.Mode); err != nil {
			return errors.Wrapf(err, "a11ywatch: page %s", p.URL)
		}
	}
	return nil
}
