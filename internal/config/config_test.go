package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SQLITE_PATH", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("RATE_LIMIT_WHITELIST", "")

	cfg := Load()
	if cfg.Port != "8080" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.Env != "development" || !cfg.IsDevelopment() {
		t.Errorf("Env = %q", cfg.Env)
	}
	if cfg.SQLitePath != "./data/codeshare.db" {
		t.Errorf("SQLitePath = %q", cfg.SQLitePath)
	}
	if cfg.DatabaseURL != "" || cfg.RedisURL != "" {
		t.Errorf("unexpected backends: %q %q", cfg.DatabaseURL, cfg.RedisURL)
	}
}

func TestLoadWhitelist(t *testing.T) {
	t.Setenv("RATE_LIMIT_WHITELIST", "10.0.0.1, 192.168.0.0/16 ,")

	cfg := Load()
	want := []string{"10.0.0.1", "192.168.0.0/16"}
	if len(cfg.RateLimitWhitelist) != len(want) {
		t.Fatalf("whitelist = %v", cfg.RateLimitWhitelist)
	}
	for i := range want {
		if cfg.RateLimitWhitelist[i] != want[i] {
			t.Errorf("whitelist[%d] = %q, want %q", i, cfg.RateLimitWhitelist[i], want[i])
		}
	}
}

func TestProductionRequiresSharedBackends(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")

	defer func() {
		if recover() == nil {
			t.Error("expected panic for production without DATABASE_URL")
		}
	}()
	Load()
}
