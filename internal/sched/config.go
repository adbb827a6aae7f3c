package sched

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	yaml "github.com/goccy/go-yaml"
)

// Config mirrors config.yml (or config.toml) for the host driver.
type Config struct {
	TickMS    int             `yaml:"tick_ms" toml:"tick_ms"`       // 1 (by default)
	RunTicks  int             `yaml:"run_ticks" toml:"run_ticks"`   // 0 = stop when the join's continuation ran
	LogLevel  string          `yaml:"log_level" toml:"log_level"`   // info
	LogFormat string          `yaml:"log_format" toml:"log_format"` // text | json
	CSVPath   string          `yaml:"csv_path" toml:"csv_path"`     // empty = no CSV trace
	Join      JoinConfig      `yaml:"join" toml:"join"`
	Blinkers  []BlinkerConfig `yaml:"blinkers" toml:"blinkers"`
}

// JoinConfig selects how the driver joins its blinkers.
type JoinConfig struct {
	Policy       string `yaml:"policy" toml:"policy"`               // all | any
	TimeoutTicks int    `yaml:"timeout_ticks" toml:"timeout_ticks"` // 0 = no timeout
}

// BlinkerConfig describes one periodic blink task.
type BlinkerConfig struct {
	Name        string `yaml:"name" toml:"name"`
	PeriodTicks int    `yaml:"period_ticks" toml:"period_ticks"`
	Toggles     int    `yaml:"toggles" toml:"toggles"`
}

// If the config file is not found, we use default values
func defaultConfig() Config {
	return Config{
		TickMS:    1,
		LogLevel:  "info",
		LogFormat: "text",
		Join:      JoinConfig{Policy: "all", TimeoutTicks: 2000},
		Blinkers: []BlinkerConfig{
			{Name: "led0", PeriodTicks: 100, Toggles: 6},
			{Name: "led1", PeriodTicks: 250, Toggles: 4},
		},
	}
}

// Load reads YAML or TOML (by extension) and overrides defaults.
// An empty path or a missing file yields the defaults; a malformed file is an error.
func Load(path string) (Config, error) {
	cfg := defaultConfig()

	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	default:
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.clamp()
	return cfg, nil
}

// sanity clamps
func (cfg *Config) clamp() {
	if cfg.TickMS <= 0 {
		cfg.TickMS = 1
	}
	if cfg.RunTicks < 0 {
		cfg.RunTicks = 0
	}
	if cfg.Join.TimeoutTicks < 0 {
		cfg.Join.TimeoutTicks = 0
	}
	if p := strings.ToLower(cfg.Join.Policy); p != "any" {
		cfg.Join.Policy = "all"
	} else {
		cfg.Join.Policy = p
	}
	if len(cfg.Blinkers) > MaxSubordinates {
		cfg.Blinkers = cfg.Blinkers[:MaxSubordinates]
	}
	for i := range cfg.Blinkers {
		b := &cfg.Blinkers[i]
		if b.Name == "" {
			b.Name = fmt.Sprintf("led%d", i)
		}
		if b.PeriodTicks <= 0 {
			b.PeriodTicks = 100
		}
		if b.Toggles < 0 {
			b.Toggles = 0
		}
	}
}

// JoinPolicy returns the configured policy.
func (cfg Config) JoinPolicy() Policy {
	if cfg.Join.Policy == "any" {
		return Any
	}
	return All
}
