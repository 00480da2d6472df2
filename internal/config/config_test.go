package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sample = `
server:
  port: "9090"
  baseURL: "http://quiz.example"
redis:
  addr: "localhost:6379"
  ttl: "2m"
quiz:
  cacheSize: 64
  tickInterval: "500ms"
anticheat:
  enabled: true
  minReaction: "250ms"
`

func TestLoadYAMLWithEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("QUIZ_REDIS_ADDR", "redis:6380")
	t.Setenv("QUIZ_SERVER_BASE_URL", "https://play.example")
	t.Setenv("QUIZ_ANTICHEAT_STRICT_NONCE", "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Quiz.CacheSize != 64 || !cfg.AntiCheat.Enabled {
		t.Fatalf("yaml values not loaded: %+v", cfg)
	}
	if cfg.Redis.Addr != "redis:6380" || cfg.Server.BaseURL != "https://play.example" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if !cfg.AntiCheat.StrictNonce {
		t.Fatalf("expected strict nonce from env")
	}
	if got := TTLDuration(cfg.AntiCheat.MinReaction, time.Second); got != 250*time.Millisecond {
		t.Fatalf("unexpected min reaction %v", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("QUIZ_POSTGRES_URL", "postgres://quiz@localhost/quiz")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing file must not fail: %v", err)
	}
	if cfg.Postgres.URL != "postgres://quiz@localhost/quiz" {
		t.Fatalf("expected env only config, got %+v", cfg)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	_ = os.WriteFile(path, []byte("server: [unclosed"), 0o600)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestTTLDuration(t *testing.T) {
	if TTLDuration("", time.Minute) != time.Minute {
		t.Fatalf("empty should fall back")
	}
	if TTLDuration("bogus", time.Minute) != time.Minute {
		t.Fatalf("invalid should fall back")
	}
	if TTLDuration("3s", time.Minute) != 3*time.Second {
		t.Fatalf("expected parsed value")
	}
}
