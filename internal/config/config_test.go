package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Engine.PoolSize != 10 {
		t.Errorf("PoolSize = %d, want 10", cfg.Engine.PoolSize)
	}
	if cfg.Classifier.NewUserThreshold != 10 {
		t.Errorf("NewUserThreshold = %d, want 10", cfg.Classifier.NewUserThreshold)
	}

	// Rate bands must keep their relative ordering.
	c := cfg.Classifier
	if !(c.SevereRate < c.StrugglingRate && c.StrugglingRate < c.ProgressRate &&
		c.ProgressRate < c.ExcelRate && c.ExcelRate < c.ExpertRate) {
		t.Errorf("classifier rate bands out of order: %+v", c)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load with missing file: %v", err)
	}
	if cfg.Server.Port != DefaultConfig().Server.Port {
		t.Errorf("missing file should yield defaults, got port %d", cfg.Server.Port)
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
[server]
port = 9000

[classifier]
new_user_threshold = 15
`
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("PORT", "9100")
	t.Setenv("DB_HOST", "db.internal")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// Env wins over file.
	if cfg.Server.Port != 9100 {
		t.Errorf("Port = %d, want 9100", cfg.Server.Port)
	}
	if cfg.Database.Host != "db.internal" {
		t.Errorf("DB host = %q, want db.internal", cfg.Database.Host)
	}
	// File wins over defaults.
	if cfg.Classifier.NewUserThreshold != 15 {
		t.Errorf("NewUserThreshold = %d, want 15", cfg.Classifier.NewUserThreshold)
	}
	// Untouched values stay at defaults.
	if cfg.Engine.PoolSize != 10 {
		t.Errorf("PoolSize = %d, want 10", cfg.Engine.PoolSize)
	}
}
