// Package config handles global configuration loading using viper.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/Albert24GG/pcom-assignments/internal/log"
)

// Config is the optional top-level netkit configuration. Every field has a
// working default; command-line arguments always take precedence.
type Config struct {
	Log     log.LoggerConfig `mapstructure:"log"`
	Metrics MetricsConfig    `mapstructure:"metrics"`
	Broker  BrokerConfig     `mapstructure:"broker"`
	Router  RouterConfig     `mapstructure:"router"`
}

// MetricsConfig configures the optional Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
	Path    string `mapstructure:"path"`
}

// BrokerConfig tunes the topic broker server.
type BrokerConfig struct {
	// WriteTimeout bounds a single best-effort response write to a
	// subscriber socket.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// EventQueue is the capacity of the server event channel.
	EventQueue int `mapstructure:"event_queue"`
}

// RouterConfig tunes the dataplane router.
type RouterConfig struct {
	// Capture holds link-capture options decoded by the link layer
	// (snap length, ring sizes, bpf filter override).
	Capture map[string]interface{} `mapstructure:"capture"`
}

// Default returns the configuration used when no config file is given.
func Default() *Config {
	return &Config{
		Log: *log.DefaultConfig(),
		Metrics: MetricsConfig{
			Listen: "127.0.0.1:9167",
			Path:   "/metrics",
		},
		Broker: BrokerConfig{
			WriteTimeout: 5 * time.Second,
			EventQueue:   256,
		},
	}
}

// Load reads the YAML configuration at path. An empty path returns the
// defaults without touching the filesystem.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(path)

	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.pattern", cfg.Log.Pattern)
	v.SetDefault("log.time", cfg.Log.Time)
	v.SetDefault("metrics.listen", cfg.Metrics.Listen)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
	v.SetDefault("broker.write_timeout", cfg.Broker.WriteTimeout)
	v.SetDefault("broker.event_queue", cfg.Broker.EventQueue)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}
	if len(cfg.Log.Appenders) == 0 {
		cfg.Log.Appenders = log.DefaultConfig().Appenders
	}

	return cfg, nil
}
