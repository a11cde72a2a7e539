package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_PORT", "")
	t.Setenv("TICKETS_STALE_AFTER_HOURS", "")
	t.Setenv("NATS_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.App.Addr() != "0.0.0.0:8080" {
		t.Fatalf("unexpected addr %s", cfg.App.Addr())
	}
	if cfg.Tickets.StaleAfter != 48*time.Hour {
		t.Fatalf("expected 48h stale window, got %s", cfg.Tickets.StaleAfter)
	}
	if cfg.NATS.URL != "" {
		t.Fatalf("expected in-process broker by default")
	}
	if cfg.CRM.SyncSchedule != "@every 5m" {
		t.Fatalf("unexpected sync schedule %q", cfg.CRM.SyncSchedule)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TICKETS_STALE_AFTER_HOURS", "24")
	t.Setenv("CRM_TIMEOUT", "3s")
	t.Setenv("AUTHZ_GRANT_CACHE_TTL", "not-a-duration")
	t.Setenv("CRM_BASE_URL", "https://crm.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Tickets.StaleAfter != 24*time.Hour {
		t.Fatalf("expected 24h, got %s", cfg.Tickets.StaleAfter)
	}
	if cfg.CRM.Timeout != 3*time.Second {
		t.Fatalf("expected 3s, got %s", cfg.CRM.Timeout)
	}
	if cfg.Authz.GrantCacheTTL != 5*time.Minute {
		t.Fatalf("invalid duration should fall back, got %s", cfg.Authz.GrantCacheTTL)
	}
	if !cfg.CRM.Configured() {
		t.Fatalf("expected CRM configured")
	}
}

func TestLoadRejectsBadRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "abc")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid REDIS_DB")
	}
}
