package config

import (
	"net"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	HTTPPort          int
	LogLevel          string
	DeviceIdleTimeout time.Duration
	SweepInterval     time.Duration
	MatchRetention    time.Duration
}

// Load reads configuration from a .env file in the working directory,
// overridden by real environment variables.
func Load() *Config {
	v := viper.New()
	v.AddConfigPath(".")
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("HTTP_PORT", 8080)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DEVICE_IDLE_TIMEOUT", "300s")
	v.SetDefault("SWEEP_INTERVAL", "30s")
	v.SetDefault("MATCH_RETENTION", "10m")

	if err := v.ReadInConfig(); err != nil {
		log.Debug().Msg("config: no .env file, using environment variables")
	}

	cfg := &Config{
		HTTPPort:          v.GetInt("HTTP_PORT"),
		LogLevel:          v.GetString("LOG_LEVEL"),
		DeviceIdleTimeout: v.GetDuration("DEVICE_IDLE_TIMEOUT"),
		SweepInterval:     v.GetDuration("SWEEP_INTERVAL"),
		MatchRetention:    v.GetDuration("MATCH_RETENTION"),
	}

	if cfg.DeviceIdleTimeout <= 0 {
		log.Warn().Msg("config: DEVICE_IDLE_TIMEOUT must be positive; falling back to 300s")
		cfg.DeviceIdleTimeout = 300 * time.Second
	}
	if cfg.SweepInterval <= 0 {
		log.Warn().Msg("config: SWEEP_INTERVAL must be positive; falling back to 30s")
		cfg.SweepInterval = 30 * time.Second
	}
	if cfg.MatchRetention <= 0 {
		log.Warn().Msg("config: MATCH_RETENTION must be positive; falling back to 10m")
		cfg.MatchRetention = 10 * time.Minute
	}
	return cfg
}

func (c *Config) HTTPAddr() string {
	return net.JoinHostPort("0.0.0.0", strconv.Itoa(c.HTTPPort))
}

// Redacted returns a view safe for logging
func (c *Config) Redacted() map[string]any {
	return map[string]any{
		"httpPort":          c.HTTPPort,
		"logLevel":          c.LogLevel,
		"deviceIdleTimeout": c.DeviceIdleTimeout.String(),
		"sweepInterval":     c.SweepInterval.String(),
		"matchRetention":    c.MatchRetention.String(),
	}
}
