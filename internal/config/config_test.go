package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestLoad_Defaults verifies a missing config file yields the production
// defaults.
func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Engine.QueueSize != 256 {
		t.Errorf("QueueSize = %d, want 256", cfg.Engine.QueueSize)
	}
	if cfg.Engine.IntegrityMaxChecks != 10 {
		t.Errorf("IntegrityMaxChecks = %d, want 10", cfg.Engine.IntegrityMaxChecks)
	}
	if cfg.Engine.IntegrityDisableWindow != 30*time.Second {
		t.Errorf("IntegrityDisableWindow = %v, want 30s", cfg.Engine.IntegrityDisableWindow)
	}
	if cfg.Watch.MainImageDebounce != 200*time.Millisecond {
		t.Errorf("MainImageDebounce = %v, want 200ms", cfg.Watch.MainImageDebounce)
	}
	if cfg.Dashboard.Enabled {
		t.Error("dashboard should default to disabled")
	}
	if cfg.DraftPath != filepath.Join(cfg.DataDir, "draft.json") {
		t.Errorf("DraftPath = %q, want derived from DataDir", cfg.DraftPath)
	}
}

// TestLoad_File verifies explicit values override the defaults and the
// rest fall through.
func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mediasync.yaml")
	content := `
data_dir: /var/lib/mediasync
engine:
  queue_size: 32
  cleanup_cooldown: 10s
watch:
  main_image_debounce: 50ms
dashboard:
  enabled: true
  port: 9000
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.DataDir != "/var/lib/mediasync" {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
	if cfg.Engine.QueueSize != 32 {
		t.Errorf("QueueSize = %d, want 32", cfg.Engine.QueueSize)
	}
	if cfg.Engine.CleanupCooldown != 10*time.Second {
		t.Errorf("CleanupCooldown = %v, want 10s", cfg.Engine.CleanupCooldown)
	}
	if cfg.Watch.MainImageDebounce != 50*time.Millisecond {
		t.Errorf("MainImageDebounce = %v, want 50ms", cfg.Watch.MainImageDebounce)
	}
	if !cfg.Dashboard.Enabled || cfg.Dashboard.Port != 9000 {
		t.Errorf("Dashboard = %+v", cfg.Dashboard)
	}
	// Untouched key keeps its default.
	if cfg.Engine.IntegrityMaxChecks != 10 {
		t.Errorf("IntegrityMaxChecks = %d, want default 10", cfg.Engine.IntegrityMaxChecks)
	}
	if cfg.BackupDBPath() != filepath.Join("/var/lib/mediasync", "backup.db") {
		t.Errorf("BackupDBPath() = %q", cfg.BackupDBPath())
	}
}

// TestLoad_MissingExplicitFile verifies an explicit path must exist.
func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("Load() with missing explicit file should fail")
	}
}

// TestLoad_MalformedFile verifies broken YAML is an error, not silent
// defaults.
func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mediasync.yaml")
	if err := os.WriteFile(path, []byte("engine: [broken"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("Load() with malformed file should fail")
	}
}

// TestValidate verifies the rejection cases.
func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"empty data dir", func(c *Config) { c.DataDir = "" }, "data_dir"},
		{"zero queue", func(c *Config) { c.Engine.QueueSize = 0 }, "queue_size"},
		{"zero max checks", func(c *Config) { c.Engine.IntegrityMaxChecks = 0 }, "integrity_max_checks"},
		{"bad port", func(c *Config) { c.Dashboard.Enabled = true; c.Dashboard.Port = 70000 }, "port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() should fail")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}
