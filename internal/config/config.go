// Package config loads server configuration from a YAML file with
// HELIOS_-prefixed environment overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Game     GameConfig     `mapstructure:"game"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig selects the document-store backend.
type DatabaseConfig struct {
	// Mode is "memory" or "postgres".
	Mode string `mapstructure:"mode"`
	DSN  string `mapstructure:"dsn"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// GameConfig holds the rule knobs.
type GameConfig struct {
	RoundLimit       int `mapstructure:"round_limit"`
	MaxUndoDepth     int `mapstructure:"max_undo_depth"`
	BoardSystems     int `mapstructure:"board_systems"`
	StartingMinerals int `mapstructure:"starting_minerals"`
}

// Load reads configuration from path. A missing file is not an error;
// defaults and environment variables still apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("HELIOS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("database.mode", "memory")
	v.SetDefault("database.dsn", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("game.round_limit", 5)
	v.SetDefault("game.max_undo_depth", 10)
	v.SetDefault("game.board_systems", 12)
	v.SetDefault("game.starting_minerals", 5)
}

func (c *Config) validate() error {
	switch c.Database.Mode {
	case "memory":
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required when database.mode is postgres")
		}
	default:
		return fmt.Errorf("unknown database.mode %q", c.Database.Mode)
	}
	if c.Game.RoundLimit < 1 {
		return fmt.Errorf("game.round_limit must be at least 1, got %d", c.Game.RoundLimit)
	}
	if c.Game.MaxUndoDepth < 1 {
		return fmt.Errorf("game.max_undo_depth must be at least 1, got %d", c.Game.MaxUndoDepth)
	}
	return nil
}
