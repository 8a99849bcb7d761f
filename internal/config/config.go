// Package config loads the daemon configuration from YAML with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full daemon configuration.
type Config struct {
	// DataDir holds the backup database and default draft file.
	DataDir string `mapstructure:"data_dir"`

	// DraftPath is the draft JSON file watched for external restores.
	// Defaults to <data_dir>/draft.json.
	DraftPath string `mapstructure:"draft_path"`

	Engine    Engine    `mapstructure:"engine"`
	Watch     Watch     `mapstructure:"watch"`
	Dashboard Dashboard `mapstructure:"dashboard"`
	Log       Log       `mapstructure:"log"`
}

// Engine configures the reconciliation engine.
type Engine struct {
	QueueSize              int           `mapstructure:"queue_size"`
	IntegrityMaxChecks     int           `mapstructure:"integrity_max_checks"`
	IntegrityDisableWindow time.Duration `mapstructure:"integrity_disable_window"`
	CleanupCooldown        time.Duration `mapstructure:"cleanup_cooldown"`
	IssueHistory           int           `mapstructure:"issue_history"`
}

// Watch configures the form watchers.
type Watch struct {
	MainImageDebounce   time.Duration `mapstructure:"main_image_debounce"`
	IntegrityInterval   time.Duration `mapstructure:"integrity_interval"`
	PlaceholderDebounce time.Duration `mapstructure:"placeholder_debounce"`
}

// Dashboard configures the WebSocket dashboard.
type Dashboard struct {
	Enabled       bool          `mapstructure:"enabled"`
	Port          int           `mapstructure:"port"`
	StatsInterval time.Duration `mapstructure:"stats_interval"`
}

// Log configures file logging with rotation.
type Log struct {
	// File is the log destination; empty logs to stderr only.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// Default returns the production defaults.
func Default() *Config {
	home, _ := os.UserHomeDir()
	dataDir := filepath.Join(home, ".mediasync")

	return &Config{
		DataDir: dataDir,
		Engine: Engine{
			QueueSize:              256,
			IntegrityMaxChecks:     10,
			IntegrityDisableWindow: 30 * time.Second,
			CleanupCooldown:        3 * time.Second,
			IssueHistory:           100,
		},
		Watch: Watch{
			MainImageDebounce:   200 * time.Millisecond,
			IntegrityInterval:   1 * time.Second,
			PlaceholderDebounce: 500 * time.Millisecond,
		},
		Dashboard: Dashboard{
			Enabled:       false,
			Port:          8477,
			StatsInterval: 5 * time.Second,
		},
		Log: Log{
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 30,
			Compress:   true,
		},
	}
}

// Load reads the configuration file at path, falling back to
// mediasync.yaml in the current directory and ~/.mediasync when path is
// empty. A missing file yields the defaults; a malformed file is an
// error.
//
// Every key can be overridden through the environment with a MEDIASYNC_
// prefix, e.g. MEDIASYNC_DASHBOARD_PORT=9000.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("mediasync")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".mediasync"))
		}
	}

	v.SetEnvPrefix("MEDIASYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Only a missing file in the default search path is tolerated;
		// an explicit path must exist and parse.
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	if cfg.DraftPath == "" {
		cfg.DraftPath = filepath.Join(cfg.DataDir, "draft.json")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the daemon cannot run with.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir cannot be empty")
	}
	if c.Engine.QueueSize <= 0 {
		return fmt.Errorf("engine.queue_size must be positive, got %d", c.Engine.QueueSize)
	}
	if c.Engine.IntegrityMaxChecks <= 0 {
		return fmt.Errorf("engine.integrity_max_checks must be positive, got %d", c.Engine.IntegrityMaxChecks)
	}
	if c.Dashboard.Enabled && (c.Dashboard.Port < 0 || c.Dashboard.Port > 65535) {
		return fmt.Errorf("dashboard.port out of range: %d", c.Dashboard.Port)
	}
	return nil
}

// BackupDBPath returns the backup database location under DataDir.
func (c *Config) BackupDBPath() string {
	return filepath.Join(c.DataDir, "backup.db")
}

func setDefaults(v *viper.Viper) {
	def := Default()
	v.SetDefault("data_dir", def.DataDir)
	v.SetDefault("engine.queue_size", def.Engine.QueueSize)
	v.SetDefault("engine.integrity_max_checks", def.Engine.IntegrityMaxChecks)
	v.SetDefault("engine.integrity_disable_window", def.Engine.IntegrityDisableWindow)
	v.SetDefault("engine.cleanup_cooldown", def.Engine.CleanupCooldown)
	v.SetDefault("engine.issue_history", def.Engine.IssueHistory)
	v.SetDefault("watch.main_image_debounce", def.Watch.MainImageDebounce)
	v.SetDefault("watch.integrity_interval", def.Watch.IntegrityInterval)
	v.SetDefault("watch.placeholder_debounce", def.Watch.PlaceholderDebounce)
	v.SetDefault("dashboard.enabled", def.Dashboard.Enabled)
	v.SetDefault("dashboard.port", def.Dashboard.Port)
	v.SetDefault("dashboard.stats_interval", def.Dashboard.StatsInterval)
	v.SetDefault("log.max_size_mb", def.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", def.Log.MaxBackups)
	v.SetDefault("log.max_age_days", def.Log.MaxAgeDays)
	v.SetDefault("log.compress", def.Log.Compress)
}
