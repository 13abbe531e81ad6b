// Package config loads micwire's YAML configuration and converts it into
// the typed capture parameters used by the audio pipeline.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/emmett/micwire/internal/audio"
	"github.com/emmett/micwire/internal/codec"
)

// Config represents the application configuration.
type Config struct {
	// Audio settings
	Audio struct {
		Device      string `yaml:"device"`      // exact input device name, empty = default
		SampleRate  int    `yaml:"sample_rate"` // target rate in Hz (48000, 24000, 16000, 12000, 8000)
		FrameSize   int    `yaml:"frame_size"`  // 48 kHz reference samples (2880..120)
		Application string `yaml:"application"` // voip, audio, lowdelay
		Disabled    bool   `yaml:"disabled"`
	} `yaml:"audio"`

	// NATS packet transport settings
	NATS struct {
		URL      string `yaml:"url"`
		Subject  string `yaml:"subject"`
		StreamID string `yaml:"stream_id"`
	} `yaml:"nats"`

	// Metrics settings
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr"`
	} `yaml:"metrics"`

	// Log settings
	Log struct {
		Level string `yaml:"level"` // debug, info, warn, error
	} `yaml:"log"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Audio.SampleRate = 48000
	cfg.Audio.FrameSize = 480
	cfg.Audio.Application = "audio"

	cfg.NATS.URL = "nats://localhost:4222"
	cfg.NATS.Subject = "micwire.packets"

	cfg.Metrics.Addr = ":9090"

	cfg.Log.Level = "info"

	return cfg
}

// Load loads configuration from file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// systemConfigPath is a variable so tests can point it away from the host.
var systemConfigPath = "/etc/micwire/config.yaml"

// LoadWithFallback attempts to load configuration from multiple locations.
// Priority: explicit path > ~/.micwirerc > /etc/micwire/config.yaml.
func LoadWithFallback(explicitPath string) (*Config, error) {
	if explicitPath != "" {
		return Load(explicitPath)
	}

	homeDir, err := os.UserHomeDir()
	if err == nil {
		userConfigPath := filepath.Join(homeDir, ".micwirerc")
		if _, err := os.Stat(userConfigPath); err == nil {
			cfg, err := Load(userConfigPath)
			if err == nil {
				return cfg, nil
			}
		}
	}

	if _, err := os.Stat(systemConfigPath); err == nil {
		cfg, err := Load(systemConfigPath)
		if err == nil {
			return cfg, nil
		}
	}

	// No config file found, return defaults
	return DefaultConfig(), nil
}

// Save saves the configuration to a file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// CaptureConfig converts the audio section into typed capture parameters.
// This is the one layer that rejects invalid values with errors; the
// capture path itself only logs and starves.
func (c *Config) CaptureConfig() (audio.CaptureConfig, error) {
	rate, err := audio.ParseSampleRate(c.Audio.SampleRate)
	if err != nil {
		return audio.CaptureConfig{}, err
	}
	frame, err := audio.ParseFrameSize(c.Audio.FrameSize)
	if err != nil {
		return audio.CaptureConfig{}, err
	}
	app, err := codec.ParseApplication(c.Audio.Application)
	if err != nil {
		return audio.CaptureConfig{}, err
	}

	return audio.CaptureConfig{
		Device:      c.Audio.Device,
		SampleRate:  rate,
		FrameSize:   frame,
		Application: app,
		Disabled:    c.Audio.Disabled,
	}, nil
}

// SlogLevel maps the configured log level onto a slog.Level. Unknown
// values fall back to info.
func (c *Config) SlogLevel() slog.Level {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
