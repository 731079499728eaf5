package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.DBDriver != DriverMemory || cfg.ServerAddr != ":8080" || !cfg.EnrichOnRead || !cfg.SeedOnStart {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.EnrichConcurrency != 4 || cfg.LockTTL != 30*time.Second || cfg.TokenTTL != time.Hour {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.RedisAddr != "" || cfg.MetricsEnabled || cfg.OtelEnabled {
		t.Fatalf("optional integrations should default off: %+v", cfg)
	}
	if len(cfg.CORSOrigins) == 0 {
		t.Fatalf("expected default CORS origins")
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_SQLITE_PATH", "/tmp/kf.db")
	t.Setenv("ENRICH_CONCURRENCY", "9")
	t.Setenv("ENRICH_ON_READ", "false")
	t.Setenv("SERVER_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.DBDriver != DriverSQLite || cfg.SQLitePath != "/tmp/kf.db" || cfg.EnrichConcurrency != 9 || cfg.EnrichOnRead {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if strings.Join(cfg.CORSOrigins, "|") != "https://a.example|https://b.example" {
		t.Fatalf("origins=%v", cfg.CORSOrigins)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "koreafit.yaml")
	doc := "db:\n  driver: postgres\n  postgres:\n    host: db.internal\n    port: 6543\nvotes:\n  burst: 2\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(configPathEnv, path)
	t.Setenv("VOTES_BURST", "4")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.DBDriver != DriverPostgres || cfg.Postgres.Host != "db.internal" || cfg.Postgres.Port != 6543 {
		t.Fatalf("file not applied: %+v", cfg.Postgres)
	}
	if cfg.VotesBurst != 4 {
		t.Fatalf("env should win over file: burst=%d", cfg.VotesBurst)
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	tests := map[string]map[string]string{
		"unknown driver":    {"DB_DRIVER": "mongo"},
		"zero concurrency":  {"ENRICH_CONCURRENCY": "0"},
		"postgres w/o host": {"DB_DRIVER": "postgres", "DB_POSTGRES_HOST": " "},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := LoadConfig(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	t.Setenv(configPathEnv, "/nonexistent/koreafit.yaml")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error for missing explicit config file")
	}
}

func TestWireReposMemory(t *testing.T) {
	cfg := Config{DBDriver: DriverMemory}
	theDB, err := openDB(nil, cfg)
	if err != nil || theDB != nil {
		t.Fatalf("memory driver should not open a database: %v", err)
	}
}
