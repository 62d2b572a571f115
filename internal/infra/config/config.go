// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Session SessionConfig `yaml:"session"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig represents server configuration.
type ServerConfig struct {
	Addr string `yaml:"addr" default:":8080"`
}

// SessionConfig represents jam session defaults.
type SessionConfig struct {
	RoundDurationSec     int `yaml:"round_duration_sec" default:"300" validate:"gt=0"`
	MaxRounds            int `yaml:"max_rounds" default:"8" validate:"gte=1"`
	CountdownIntervalSec int `yaml:"countdown_interval_sec" default:"1" validate:"gte=1"`
}

// LogConfig represents logging configuration.
type LogConfig struct {
	Output string `yaml:"output" default:"stdout" validate:"oneof=stdout stderr file"`
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	File   string `yaml:"file"`
}

// Load loads configuration from a YAML file. A missing path yields the
// defaults. Environment variables take precedence over file values.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read config file")
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.Wrap(err, "failed to parse config file")
		}
	}

	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("JAMBOX_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("JAMBOX_ROUND_DURATION_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Session.RoundDurationSec = n
		}
	}
	if v := os.Getenv("JAMBOX_MAX_ROUNDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Session.MaxRounds = n
		}
	}
	if v := os.Getenv("JAMBOX_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}
	if c.Log.Output == "file" && c.Log.File == "" {
		return errors.New("log.file is required when log.output is file")
	}
	return nil
}
