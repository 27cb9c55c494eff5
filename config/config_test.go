package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleYAML = `
server:
  port: 9090
  allowedOrigins: ["https://arena.example"]
database:
  uri: mongodb://localhost:27017/arena
redis:
  addr: localhost:6379
jwt:
  secret: from-file
debate:
  openingLimit: 2500
  graduationThreshold: 7
  notifyTimeout: 3s
  stanceRateWindow: 30s
`

// chdir moves to dir for the test so no stray .env is picked up.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadConfig(t *testing.T) {
	chdir(t, t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("DEBATEARENA_PORT", "")
	t.Setenv("LOG_LEVEL", "")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != 9090 || cfg.Server.AllowedOrigins[0] != "https://arena.example" {
		t.Errorf("Unexpected server section %+v", cfg.Server)
	}
	if cfg.JWT.Secret != "from-env" {
		t.Errorf("Expected env to override secret, got %q", cfg.JWT.Secret)
	}
	if cfg.Debate.OpeningLimit != 2500 || cfg.Debate.GraduationThreshold != 7 || cfg.Debate.NotifyTimeout != 3*time.Second {
		t.Errorf("Unexpected debate section %+v", cfg.Debate)
	}
	if cfg.Debate.StanceRateWindow != 30*time.Second {
		t.Errorf("Expected 30s stance window, got %v", cfg.Debate.StanceRateWindow)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Expected default log level, got %q", cfg.Log.Level)
	}
}

func TestLoadConfigWithoutFile(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DEBATEARENA_PORT", "7000")
	t.Setenv("DEBATEARENA_ALLOWED_ORIGINS", "http://a,http://b")
	t.Setenv("MONGO_URI", "")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != 7000 || len(cfg.Server.AllowedOrigins) != 2 {
		t.Errorf("Unexpected overrides %+v", cfg.Server)
	}
	if cfg.Database.URI != "" {
		t.Errorf("Expected in-memory default, got %q", cfg.Database.URI)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	chdir(t, t.TempDir())
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Error("Expected error for missing file")
	}

	t.Setenv("DEBATEARENA_PORT", "eighty")
	if _, err := LoadConfig(""); err == nil {
		t.Error("Expected error for non-numeric port")
	}
}
