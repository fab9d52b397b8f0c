package config

import (
	"fmt"
	"os"
	"time"

	"github.com/me/clustersim/internal/engine"
	"gopkg.in/yaml.v3"
)

// ServerConfig holds configuration for the clustersim server.
type ServerConfig struct {
	Addr          string        `yaml:"addr"`           // Listen address (default ":8080")
	LogLevel      string        `yaml:"log_level"`      // debug, info, warn, error
	LogFormat     string        `yaml:"log_format"`     // text, json
	DBPath        string        `yaml:"db_path"`        // SQLite path (default ~/.clustersim/clustersim.db, ":memory:" for testing)
	TickInterval  time.Duration `yaml:"tick_interval"`  // 0 disables the automatic tick driver
	AutosaveEvery int           `yaml:"autosave_every"` // Ticks between automatic snapshots, 0 = off
	Engine        engine.Config `yaml:"engine"`
}

// DefaultServerConfig returns the defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:      ":8080",
		LogLevel:  "info",
		LogFormat: "text",
		Engine:    engine.DefaultConfig(),
	}
}

// Load reads a YAML file over the defaults. Keys missing from the file keep
// their default values.
func Load(path string) (ServerConfig, error) {
	cfg := DefaultServerConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects negative sizes and intervals.
func (c ServerConfig) Validate() error {
	switch {
	case c.TickInterval < 0:
		return fmt.Errorf("tick_interval must not be negative")
	case c.AutosaveEvery < 0:
		return fmt.Errorf("autosave_every must not be negative")
	case c.Engine.Buckets < 0, c.Engine.QueueCapacity < 0, c.Engine.NodeCapacity < 0:
		return fmt.Errorf("engine sizes must not be negative")
	case c.Engine.MaxPending < 0, c.Engine.MaxNodes < 0:
		return fmt.Errorf("engine limits must not be negative")
	}
	return nil
}
