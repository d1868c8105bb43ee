// Package config holds the run settings and pass list consumed by the gather
// engine. Configuration is loaded from YAML with zero-value fallbacks so a
// partial file still produces a usable run.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPassName is used for a pass whose name is left unset. Pass names key
// the per-pass trace and protocol-log maps in the final bundle.
const DefaultPassName = "defaultPass"

// Throttling describes the simulated network and CPU conditions applied to
// throttled passes.
type Throttling struct {
	RTTMs                 int     `yaml:"rtt_ms"`
	ThroughputKbps        float64 `yaml:"throughput_kbps"`
	UploadThroughputKbps  float64 `yaml:"upload_throughput_kbps"`
	CPUSlowdownMultiplier float64 `yaml:"cpu_slowdown_multiplier"`
}

// Settings are the run-wide knobs shared by every pass.
type Settings struct {
	DisableStorageReset    bool              `yaml:"disable_storage_reset"`
	DisableDeviceEmulation bool              `yaml:"disable_device_emulation"`
	BlockedURLPatterns     []string          `yaml:"blocked_url_patterns"`
	ExtraHeaders           map[string]string `yaml:"extra_headers"`
	Throttling             Throttling        `yaml:"throttling"`
	MaxWaitForLoadMs       int               `yaml:"max_wait_for_load_ms"`
}

// MaxWaitForLoad returns the page-load deadline.
func (s Settings) MaxWaitForLoad() time.Duration {
	if s.MaxWaitForLoadMs <= 0 {
		return 45 * time.Second
	}
	return time.Duration(s.MaxWaitForLoadMs) * time.Millisecond
}

// PassSpec is the YAML-level description of one pass. Gatherers are named
// here and resolved to instances by the caller.
type PassSpec struct {
	Name               string   `yaml:"name"`
	Gatherers          []string `yaml:"gatherers"`
	UseThrottling      bool     `yaml:"use_throttling"`
	RecordTrace        bool     `yaml:"record_trace"`
	BlockedURLPatterns []string `yaml:"blocked_url_patterns"`
	BlankPage          string   `yaml:"blank_page"`
	BlankDurationMs    int      `yaml:"blank_duration_ms"`
}

// Config is the full file shape.
type Config struct {
	Settings Settings   `yaml:"settings"`
	Passes   []PassSpec `yaml:"passes"`
}

// Default returns the canonical single-pass configuration: one throttled,
// trace-recording pass carrying the default gatherer set.
func Default() Config {
	return Config{
		Settings: Settings{
			Throttling: Throttling{
				RTTMs:                 150,
				ThroughputKbps:        1638.4,
				UploadThroughputKbps:  675,
				CPUSlowdownMultiplier: 4,
			},
		},
		Passes: []PassSpec{{
			Name:          DefaultPassName,
			UseThrottling: true,
			RecordTrace:   true,
			Gatherers: []string{
				"viewport-dimensions",
				"meta-elements",
				"network-requests",
				"http-redirect",
			},
		}},
	}
}

// Load reads a YAML config file and normalizes it.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	if len(c.Passes) == 0 {
		c.Passes = Default().Passes
	}
	for i := range c.Passes {
		if c.Passes[i].Name == "" {
			c.Passes[i].Name = DefaultPassName
		}
	}
}
