package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("unexpected http addr: %q", cfg.HTTPAddr)
	}
	if !cfg.IsDev() {
		t.Fatal("expected dev mode by default")
	}
	if cfg.PGMaxOpenConns != 25 || cfg.PGMaxIdleConns != 10 {
		t.Fatalf("unexpected pool bounds: %d/%d", cfg.PGMaxOpenConns, cfg.PGMaxIdleConns)
	}
	if cfg.TokenTTL != time.Hour {
		t.Fatalf("unexpected token ttl: %v", cfg.TokenTTL)
	}
	if cfg.RateLimitRPS != 50 || cfg.RateLimitBurst != 100 {
		t.Fatalf("unexpected rate limits: %v/%d", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("KORTIO_ENV", "production")
	t.Setenv("KORTIO_HTTP_ADDR", ":9090")
	t.Setenv("KORTIO_PG_DSN", "  postgres://kortio:secret@db/kortio  ")
	t.Setenv("KORTIO_TOKEN_TTL", "30m")
	t.Setenv("KORTIO_REQUIRE_AUTH", "true")

	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.IsDev() {
		t.Fatal("expected production mode")
	}
	if cfg.HTTPAddr != ":9090" {
		t.Fatalf("unexpected http addr: %q", cfg.HTTPAddr)
	}
	if cfg.PGDSN != "postgres://kortio:secret@db/kortio" {
		t.Fatalf("expected trimmed DSN, got %q", cfg.PGDSN)
	}
	if cfg.TokenTTL != 30*time.Minute {
		t.Fatalf("unexpected token ttl: %v", cfg.TokenTTL)
	}
	if !cfg.RequireAuth {
		t.Fatal("expected auth required")
	}
}

func TestLoadRejectsNonPositiveOverrides(t *testing.T) {
	t.Setenv("KORTIO_PG_MAX_OPEN_CONNS", "-3")
	t.Setenv("KORTIO_RATE_LIMIT_BURST", "0")

	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.PGMaxOpenConns != 25 {
		t.Fatalf("expected default pool size, got %d", cfg.PGMaxOpenConns)
	}
	if cfg.RateLimitBurst != 100 {
		t.Fatalf("expected default burst, got %d", cfg.RateLimitBurst)
	}
}
