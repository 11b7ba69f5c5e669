package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Runtime   RuntimeConfig   `toml:"runtime"`
	Logging   LoggingConfig   `toml:"logging"`
	Scene     SceneConfig     `toml:"scene"`
	Scripting ScriptingConfig `toml:"scripting"`
}

type RuntimeConfig struct {
	Workers   int           `toml:"workers"` // 0 = GOMAXPROCS
	TickRate  time.Duration `toml:"tick_rate"`
	FixedHz   float64       `toml:"fixed_hz"`
	Execution string        `toml:"execution"`  // "parallel" or "sequential"
	MaxPasses uint64        `toml:"max_passes"` // 0 = run until signalled
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

type SceneConfig struct {
	Path string `toml:"path"` // empty = start with an empty world
}

type ScriptingConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse decodes TOML over the defaults. name is only used in errors.
func Parse(data []byte, name string) (*Config, error) {
	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", name, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", name, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Runtime.TickRate <= 0:
		return fmt.Errorf("runtime.tick_rate must be positive, got %s", c.Runtime.TickRate)
	case c.Runtime.FixedHz <= 0:
		return fmt.Errorf("runtime.fixed_hz must be positive, got %g", c.Runtime.FixedHz)
	case c.Runtime.Workers < 0:
		return fmt.Errorf("runtime.workers must not be negative, got %d", c.Runtime.Workers)
	}
	switch c.Runtime.Execution {
	case "parallel", "sequential":
	default:
		return fmt.Errorf("runtime.execution must be parallel or sequential, got %q", c.Runtime.Execution)
	}
	return nil
}

// Default returns the configuration used when no file is given.
func Default() *Config { return defaults() }

func defaults() *Config {
	return &Config{
		Runtime: RuntimeConfig{
			TickRate:  16 * time.Millisecond,
			FixedHz:   60,
			Execution: "parallel",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Scripting: ScriptingConfig{
			Dir: "scripts",
		},
	}
}
