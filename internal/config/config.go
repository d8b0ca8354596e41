// Package config loads and persists glanced's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// PushConfig selects and tunes the delivery collaborator.
type PushConfig struct {
	// Mode is "log" (development, updates only logged) or "webhook"
	// (updates POSTed to URL).
	Mode string `yaml:"mode"`
	URL  string `yaml:"url"`
	// RatePerMinute caps webhook deliveries. Zero means the default (60).
	RatePerMinute int `yaml:"rate_per_minute"`
}

// FeedConfig points at the shared fallback data sources. Either URL may
// be empty, in which case that fallback is simply absent.
type FeedConfig struct {
	ICSURL  string `yaml:"ics_url"`
	MailURL string `yaml:"mail_url"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen"`

	// Database is the SQLite path. Empty means the default under
	// ~/.glanced.
	Database string `yaml:"database"`

	// RotateSeconds is the rotation cadence. Each tick re-scores every
	// registered device.
	RotateSeconds int `yaml:"rotate_seconds"`

	// RefreshMinutes is the fallback feed refresh cadence.
	RefreshMinutes int `yaml:"refresh_minutes"`

	// SnapshotMinutes is how often the device registry is persisted.
	SnapshotMinutes int `yaml:"snapshot_minutes"`

	Push  PushConfig `yaml:"push"`
	Feeds FeedConfig `yaml:"feeds"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:          "127.0.0.1:8000",
		RotateSeconds:   60,
		RefreshMinutes:  5,
		SnapshotMinutes: 5,
		Push:            PushConfig{Mode: "log", RatePerMinute: 60},
	}
}

// Normalize fills in missing/zero values so partially-filled configs
// still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8000"
	}
	if c.RotateSeconds <= 0 {
		c.RotateSeconds = 60
	}
	if c.RefreshMinutes <= 0 {
		c.RefreshMinutes = 5
	}
	if c.SnapshotMinutes <= 0 {
		c.SnapshotMinutes = 5
	}
	switch c.Push.Mode {
	case "log", "webhook":
	default:
		c.Push.Mode = "log"
	}
	if c.Push.RatePerMinute <= 0 {
		c.Push.RatePerMinute = 60
	}
}

// Validate reports configuration that Normalize cannot repair.
func (c *Config) Validate() error {
	if c.Push.Mode == "webhook" && c.Push.URL == "" {
		return errors.New("push mode is webhook but push.url is empty")
	}
	return nil
}

// RotateInterval returns the rotation cadence as a duration.
func (c *Config) RotateInterval() time.Duration {
	return time.Duration(c.RotateSeconds) * time.Second
}

// RefreshInterval returns the feed refresh cadence as a duration.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshMinutes) * time.Minute
}

// SnapshotInterval returns the persistence cadence as a duration.
func (c *Config) SnapshotInterval() time.Duration {
	return time.Duration(c.SnapshotMinutes) * time.Minute
}

// DefaultPath returns the default config location, ~/.glanced/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".glanced", "config.yaml"), nil
}

// Load reads configuration from the given YAML path. On first run (file
// missing) a default config is written with 0600 perms and returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600
// permissions, creating the parent directory if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".glanced-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
