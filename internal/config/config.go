package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration
type Config struct {
	Restore RestoreConfig `yaml:"restore"`
	Policy  PolicyConfig  `yaml:"policy"`
	Lock    LockConfig    `yaml:"lock"`
	Journal JournalConfig `yaml:"journal"`
}

// RestoreConfig holds restore target settings
type RestoreConfig struct {
	// Destination is the live directory replaced by a restore.
	Destination string `yaml:"destination"`
	// StagingDir overrides the default staging location next to the
	// destination. Must live on the same filesystem as the destination.
	StagingDir string `yaml:"staging_dir"`
	// KeepBackup retains the pre-restore destination tree instead of
	// removing it after a successful swap.
	KeepBackup bool `yaml:"keep_backup"`
}

// PolicyConfig holds extraction policy ceilings and allowances
type PolicyConfig struct {
	MaxFiles    int64 `yaml:"max_files"`
	MaxBytes    int64 `yaml:"max_bytes"`
	AllowPax    bool  `yaml:"allow_pax"`
	AllowSparse bool  `yaml:"allow_sparse"`
}

// LockConfig holds cross-process lock settings
type LockConfig struct {
	// Path of the lock record. Empty means "<destination>.lock".
	Path string `yaml:"path"`
	// StaleSeconds is the age after which a lock record from a dead or
	// silent owner is reclaimed.
	StaleSeconds int64 `yaml:"stale_seconds"`
}

// JournalConfig holds restore-run journal settings
type JournalConfig struct {
	// DBPath is the SQLite database recording restore runs. Empty
	// disables the journal.
	DBPath string `yaml:"db_path"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Policy: PolicyConfig{
			MaxFiles:    0,
			MaxBytes:    0,
			AllowPax:    false,
			AllowSparse: false,
		},
		Lock: LockConfig{
			StaleSeconds: 3600,
		},
	}
}

// Load reads a config file from the given path
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FindConfigFile searches for a config file in standard locations
func FindConfigFile() (string, error) {
	searchPaths := []string{
		"projectrestore.yaml",
		"/etc/projectrestore/projectrestore.yaml",
	}

	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths,
			filepath.Join(home, ".config", "projectrestore", "projectrestore.yaml"),
		)
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", searchPaths)
}

// Validate rejects configurations that can never produce a safe restore
func (c *Config) Validate() error {
	if c.Policy.MaxFiles < 0 {
		return fmt.Errorf("policy.max_files must not be negative: %d", c.Policy.MaxFiles)
	}
	if c.Policy.MaxBytes < 0 {
		return fmt.Errorf("policy.max_bytes must not be negative: %d", c.Policy.MaxBytes)
	}
	if c.Lock.StaleSeconds <= 0 {
		return fmt.Errorf("lock.stale_seconds must be positive: %d", c.Lock.StaleSeconds)
	}
	return nil
}

// LockPath returns the configured lock path, or the default derived
// from the destination.
func (c *Config) LockPath() string {
	if c.Lock.Path != "" {
		return c.Lock.Path
	}
	return c.Restore.Destination + ".lock"
}
