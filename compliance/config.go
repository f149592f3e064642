// Package compliance implements the card loading-state compliance harness:
// it drives a Chromium instance through cold-load and warm-return cycles
// over paginated batches of dashboard cards, samples each card's DOM state,
// evaluates the histories against the behavioral criteria, and aggregates
// the verdicts into a report.
package compliance

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level harness configuration.
type Config struct {
	// BaseURL of the dashboard under test, e.g. http://localhost:5173.
	BaseURL string `yaml:"base_url"`

	// RemoteBrowser is the WebSocket URL of an external Chromium.
	// Empty = launch a local one.
	RemoteBrowser string `yaml:"remote_browser"`
	Headful       bool   `yaml:"headful"`

	// BatchSize is the diagnostic route's page size.
	BatchSize int `yaml:"batch_size"`

	// PollInterval is the in-page sampler cadence.
	PollInterval time.Duration `yaml:"poll_interval"`

	// GraceSamples is the warm-return grace window, in samples.
	GraceSamples int `yaml:"grace_samples"`

	// LoadTimeout bounds the cold-phase wait for cards to settle.
	// Expiry is not an error; partial histories are evaluated as-is.
	LoadTimeout time.Duration `yaml:"load_timeout"`

	// ManifestTimeout bounds per-batch manifest waits. WarmupTimeout
	// applies to the very first navigation only, which additionally pays
	// one-time bundle compilation cost.
	ManifestTimeout time.Duration `yaml:"manifest_timeout"`
	WarmupTimeout   time.Duration `yaml:"warmup_timeout"`

	// WarmWatch is the fixed observation window per warm-return batch.
	WarmWatch time.Duration `yaml:"warm_watch"`

	// ForceRefresh clicks each card's refresh affordance after the cold
	// load settles, giving the incremental-refresh criterion signal that
	// auto-refresh timers rarely provide within the window.
	ForceRefresh bool `yaml:"force_refresh"`

	// CompanionAddr is the listen address for the companion mock;
	// port 0 picks an ephemeral port.
	CompanionAddr string `yaml:"companion_addr"`

	// OutputDir receives compliance-report.json and compliance-summary.md.
	OutputDir string `yaml:"output_dir"`

	Mock MockConfig `yaml:"mock"`
}

// MockConfig sets the injected network latencies.
type MockConfig struct {
	StreamDelay   time.Duration `yaml:"stream_delay"`
	RESTDelayMin  time.Duration `yaml:"rest_delay_min"`
	RESTDelayMax  time.Duration `yaml:"rest_delay_max"`
	CatchAllDelay time.Duration `yaml:"catch_all_delay"`
}

// LoadConfigFile reads a YAML configuration file and applies defaults.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("compliance: read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("compliance: parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultConfig returns a Config for baseURL with all defaults applied.
func DefaultConfig(baseURL string) *Config {
	cfg := &Config{BaseURL: baseURL}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.BatchSize <= 0 {
		c.BatchSize = 8
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 50 * time.Millisecond
	}
	if c.GraceSamples <= 0 {
		c.GraceSamples = 10
	}
	if c.LoadTimeout <= 0 {
		c.LoadTimeout = 15 * time.Second
	}
	if c.ManifestTimeout <= 0 {
		c.ManifestTimeout = 60 * time.Second
	}
	if c.WarmupTimeout <= 0 {
		c.WarmupTimeout = 180 * time.Second
	}
	if c.WarmWatch <= 0 {
		c.WarmWatch = 2 * time.Second
	}
	if c.CompanionAddr == "" {
		c.CompanionAddr = "127.0.0.1:0"
	}
	if c.OutputDir == "" {
		c.OutputDir = "test-results"
	}
}

func (c *Config) validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("compliance: base_url is required")
	}
	return nil
}
