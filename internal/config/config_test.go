package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseDefaultConfig(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse default config: %v", err)
	}

	if cfg.Storage.Backend != BackendSQLite {
		t.Errorf("expected backend 'sqlite', got %q", cfg.Storage.Backend)
	}
	if cfg.Storage.JSONFile != "wonder.json" {
		t.Errorf("expected json_file 'wonder.json', got %q", cfg.Storage.JSONFile)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("expected port 8000, got %d", cfg.Server.Port)
	}
	if cfg.Logging.Format != "console" {
		t.Errorf("expected console log format, got %q", cfg.Logging.Format)
	}
}

func TestParseMinimalConfig(t *testing.T) {
	data := []byte(`
storage:
  backend: json
server:
  port: 9000
`)
	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("failed to parse minimal config: %v", err)
	}

	if cfg.Storage.Backend != BackendJSON {
		t.Errorf("expected backend 'json', got %q", cfg.Storage.Backend)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	// Defaults should still be set for unspecified fields
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("expected default host, got %q", cfg.Server.Host)
	}
	if cfg.Storage.JSONFile != "wonder.json" {
		t.Errorf("expected default json_file, got %q", cfg.Storage.JSONFile)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, DefaultConfigYAML, 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Storage.Backend != BackendSQLite {
		t.Errorf("expected sqlite backend from file, got %q", cfg.Storage.Backend)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("failed to load defaults: %v", err)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("expected default port, got %d", cfg.Server.Port)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("WONDERPICK_STORAGE_BACKEND", "json")
	t.Setenv("WONDERPICK_PORT", "9100")
	t.Setenv("WONDERPICK_DATA_DIR", "/srv/wonder")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Storage.Backend != BackendJSON {
		t.Errorf("expected env backend 'json', got %q", cfg.Storage.Backend)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("expected env port 9100, got %d", cfg.Server.Port)
	}
	if cfg.JSONPath() != filepath.Join("/srv/wonder", "wonder.json") {
		t.Errorf("unexpected json path %q", cfg.JSONPath())
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("storage:\n  backend: redis\n"), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestResolveConfigPathExplicitMissing(t *testing.T) {
	if _, err := ResolveConfigPath(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config")
	}
}

func TestGetDataDir(t *testing.T) {
	cfg := &Config{}
	defaultDir := cfg.GetDataDir()
	if defaultDir == "" {
		t.Error("expected non-empty default data dir")
	}

	cfg.Storage.DataDir = "/custom/path"
	if cfg.GetDataDir() != "/custom/path" {
		t.Errorf("expected '/custom/path', got %q", cfg.GetDataDir())
	}
	if cfg.SQLitePath() != filepath.Join("/custom/path", "wonderpick.db") {
		t.Errorf("unexpected sqlite path %q", cfg.SQLitePath())
	}

	cfg.Storage.JSONFile = "/abs/wonder.json"
	if cfg.JSONPath() != "/abs/wonder.json" {
		t.Errorf("expected absolute json path kept, got %q", cfg.JSONPath())
	}
}
