package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/julianstephens/calgrid/internal/constants"
)

// AsyncConfig selects, per operation kind, whether mutations go through the remote
// backend (true) or stay local (false).
type AsyncConfig struct {
	Add    bool `yaml:"add"`
	Update bool `yaml:"update"`
	Delete bool `yaml:"delete"`
}

// SimulateConfig puts a simulated network in front of the storage backend.
type SimulateConfig struct {
	Enabled       bool          `yaml:"enabled"`
	AddLatency    time.Duration `yaml:"add_latency"`
	UpdateLatency time.Duration `yaml:"update_latency"`
	DeleteLatency time.Duration `yaml:"delete_latency"`
	FailureRate   float64       `yaml:"failure_rate"`
}

// OffsiteConfig is the S3 bucket backups are pushed to.
type OffsiteConfig struct {
	Bucket   string `yaml:"bucket"`
	Prefix   string `yaml:"prefix,omitempty"`
	Region   string `yaml:"region,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty"`
}

// Config is the top-level application configuration.
type Config struct {
	// Database is a SQLite file path or a PostgreSQL connection string without a password.
	Database string `yaml:"database"`

	Debug bool `yaml:"debug"`

	// Timeout bounds each remote operation. Zero disables the timeout.
	Timeout time.Duration `yaml:"timeout"`

	Async    AsyncConfig    `yaml:"async"`
	Simulate SimulateConfig `yaml:"simulate"`

	// WaitForRemote turns off optimistic apply: async mutations change local state
	// only after the remote confirms them.
	WaitForRemote bool `yaml:"wait_for_remote"`

	// MetricsAddr, when set, serves Prometheus metrics while the TUI runs.
	MetricsAddr string `yaml:"metrics_addr"`

	// BackupSchedule is a cron spec for SQLite backups while the TUI runs. Empty
	// disables scheduled backups.
	BackupSchedule string `yaml:"backup_schedule"`

	// Offsite is used by `backup push`; credentials come from the environment.
	Offsite OffsiteConfig `yaml:"offsite"`
}

// DefaultConfig returns an in-memory default configuration rooted at dir.
func DefaultConfig(dir string) *Config {
	return &Config{
		Database: filepath.Join(dir, constants.DefaultDBFile),
		Timeout:  constants.DefaultRemoteTimeout,
		Async:    AsyncConfig{Add: true, Update: true, Delete: true},
		Simulate: SimulateConfig{
			AddLatency:    constants.DefaultAddLatency,
			UpdateLatency: constants.DefaultUpdateLatency,
			DeleteLatency: constants.DefaultDeleteLatency,
			FailureRate:   constants.DefaultFailureRate,
		},
		MetricsAddr:    constants.DefaultMetricsAddress,
		BackupSchedule: constants.DefaultBackupSchedule,
	}
}

// Normalize fills zero values left by partial or older files.
func (c *Config) Normalize(dir string) {
	if c.Database == "" {
		c.Database = filepath.Join(dir, constants.DefaultDBFile)
	}
	if c.Timeout < 0 {
		c.Timeout = 0
	}
	if c.Simulate.AddLatency == 0 {
		c.Simulate.AddLatency = constants.DefaultAddLatency
	}
	if c.Simulate.UpdateLatency == 0 {
		c.Simulate.UpdateLatency = constants.DefaultUpdateLatency
	}
	if c.Simulate.DeleteLatency == 0 {
		c.Simulate.DeleteLatency = constants.DefaultDeleteLatency
	}
}

// Validate reports settings that cannot be normalized away.
func (c *Config) Validate() error {
	if c.Simulate.FailureRate < 0 || c.Simulate.FailureRate > 1 {
		return fmt.Errorf("simulate.failure_rate must be between 0 and 1, got %v", c.Simulate.FailureRate)
	}
	return nil
}

// IsPostgres reports whether Database is a PostgreSQL connection string.
func (c *Config) IsPostgres() bool {
	return IsPostgresURL(c.Database)
}

// IsPostgresURL reports whether s looks like a PostgreSQL URL.
func IsPostgresURL(s string) bool {
	return strings.HasPrefix(s, "postgres://") || strings.HasPrefix(s, "postgresql://")
}

// Load reads the YAML file at path. A missing file is created with defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}
	dir := filepath.Dir(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig(dir)
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	cfg := DefaultConfig(dir)
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	cfg.Normalize(dir)
	if !cfg.IsPostgres() {
		expanded, err := ExpandPath(cfg.Database)
		if err != nil {
			return nil, err
		}
		cfg.Database = expanded
	}

	return cfg, cfg.Validate()
}

// Save writes cfg atomically with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	dir := filepath.Dir(path)
	cfg.Normalize(dir)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+constants.AppName+"-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// ExpandPath resolves a leading "~" to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
