package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_PATH", path)
}

func TestLoadConfig_DefaultsApplied(t *testing.T) {
	writeConfig(t, `
http:
  addr: ":8082"
postgres:
  dsn: "postgres://localhost/test"
cron:
  secret: "tick"
`)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Logging.Service != "schedule-service" || cfg.Logging.Env != "dev" {
		t.Fatalf("logging defaults: %+v", cfg.Logging)
	}
	if got := cfg.StaleWindow(); got != 45*time.Second {
		t.Fatalf("stale window = %v, want 45s", got)
	}
	if got := cfg.GraceWindow(); got != 3*time.Minute {
		t.Fatalf("grace window = %v, want 3m", got)
	}
}

func TestLoadConfig_PresenceWindowsParsed(t *testing.T) {
	writeConfig(t, `
http:
  addr: ":8082"
postgres:
  dsn: "postgres://localhost/test"
cron:
  secret: "tick"
presence:
  staleWindow: "30s"
  graceWindow: "5m"
`)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := cfg.StaleWindow(); got != 30*time.Second {
		t.Fatalf("stale window = %v, want 30s", got)
	}
	if got := cfg.GraceWindow(); got != 5*time.Minute {
		t.Fatalf("grace window = %v, want 5m", got)
	}
}

func TestLoadConfig_MissingSecretRejected(t *testing.T) {
	t.Setenv("CRON_SECRET", "")
	writeConfig(t, `
http:
  addr: ":8082"
postgres:
  dsn: "postgres://localhost/test"
`)

	if _, err := LoadConfig(); err == nil {
		t.Fatal("want error without cron secret")
	}
}

func TestLoadConfig_SecretFromEnv(t *testing.T) {
	t.Setenv("CRON_SECRET", "env-tick")
	writeConfig(t, `
http:
  addr: ":8082"
postgres:
  dsn: "postgres://localhost/test"
`)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Cron.Secret != "env-tick" {
		t.Fatalf("secret = %q", cfg.Cron.Secret)
	}
}
