// Package config loads node configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level node configuration.
type Config struct {
	Node NodeConfig `mapstructure:"node"`
}

// NodeConfig configures one lockstep node.
type NodeConfig struct {
	OperatorID          string   `mapstructure:"operator_id"`
	ListenAddr          string   `mapstructure:"listen_addr"`
	Peers               []string `mapstructure:"peers"`
	RebroadcastInterval string   `mapstructure:"rebroadcast_interval"`
}

// Load reads and validates the config at configPath. Environment
// variables override file values, with dots replaced by underscores
// (NODE_LISTEN_ADDR overrides node.listen_addr).
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("node.listen_addr", "/ip4/0.0.0.0/tcp/9000")
	v.SetDefault("node.rebroadcast_interval", "2s")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// Validate checks required fields and value formats.
func (c *Config) Validate() error {
	if c.Node.OperatorID == "" {
		return fmt.Errorf("node.operator_id is required")
	}
	if c.Node.ListenAddr == "" {
		return fmt.Errorf("node.listen_addr is required")
	}
	if _, err := c.RebroadcastInterval(); err != nil {
		return fmt.Errorf("invalid node.rebroadcast_interval: %w", err)
	}
	return nil
}

// RebroadcastInterval parses the configured rebroadcast interval.
func (c *Config) RebroadcastInterval() (time.Duration, error) {
	if c.Node.RebroadcastInterval == "" {
		return 0, nil
	}
	return time.ParseDuration(c.Node.RebroadcastInterval)
}
