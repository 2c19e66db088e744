package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Worker.RequestTimeout.Std() != 30*time.Second {
		t.Fatalf("requestTimeout = %v, want 30s", cfg.Worker.RequestTimeout.Std())
	}
	if !cfg.Graph.AutoSave {
		t.Fatalf("autoSave = false, want true")
	}
	if cfg.GraphDSN() != ":memory:" {
		t.Fatalf("graph dsn = %q, want :memory:", cfg.GraphDSN())
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	t.Setenv("TRPG_REQUEST_TIMEOUT", "5s")
	t.Setenv("TRPG_GRAPH_AUTOSAVE", "false")
	t.Setenv("TRPG_SEED_TITLE", "Seed From Env")

	cfgPath := filepath.Join(t.TempDir(), "scenario.yaml")
	content := `
dataDir: "/var/lib/trpg"
logLevel: "debug"
relational:
  dsn: ":memory:"
worker:
  requestTimeout: "10s"
seed:
  title: "Seed From File"
`
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.DataDir != "/var/lib/trpg" {
		t.Fatalf("dataDir = %q", cfg.DataDir)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("logLevel = %q", cfg.LogLevel)
	}
	if cfg.RelationalDSN() != ":memory:" {
		t.Fatalf("relational dsn = %q", cfg.RelationalDSN())
	}
	if cfg.Worker.RequestTimeout.Std() != 5*time.Second {
		t.Fatalf("requestTimeout = %v, want 5s", cfg.Worker.RequestTimeout.Std())
	}
	if cfg.Graph.AutoSave {
		t.Fatalf("autoSave = true, want false")
	}
	if cfg.Seed.Title != "Seed From Env" {
		t.Fatalf("seed title = %q", cfg.Seed.Title)
	}
	if cfg.GraphDumpDir() != filepath.Join("/var/lib/trpg", "graph") {
		t.Fatalf("dump dir = %q", cfg.GraphDumpDir())
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("TRPG_REQUEST_TIMEOUT", "soon")
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for invalid duration")
	}
}

func TestLoadRejectsMalformedDotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, DotEnvPath), []byte("TRPG_SEED_TITLE=\"unterminated\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Chdir(dir)
	if _, err := Load("absent.yaml"); err == nil {
		t.Fatal("expected error for malformed .env")
	}
}

func TestMissingDotEnvIsIgnored(t *testing.T) {
	if err := loadDotEnv(filepath.Join(t.TempDir(), DotEnvPath)); err != nil {
		t.Fatalf("load missing .env: %v", err)
	}
}
