package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.Timezone != "Asia/Singapore" {
		t.Errorf("expected default timezone Asia/Singapore, got %s", cfg.Timezone)
	}
	if cfg.ViewingDurationMins != 45 {
		t.Errorf("expected default viewing duration 45, got %d", cfg.ViewingDurationMins)
	}
	if cfg.LLMTimeout != 20*time.Second {
		t.Errorf("expected default LLM timeout 20s, got %s", cfg.LLMTimeout)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("VIEWING_DURATION_MINS", "30")
	t.Setenv("LLM_TIMEOUT", "5s")
	t.Setenv("REDIS_TLS", "true")
	t.Setenv("DASHBOARD_CORS_ORIGINS", "https://app.example.com, https://staging.example.com")

	cfg := Load()

	if cfg.Port != "9000" {
		t.Errorf("expected port 9000, got %s", cfg.Port)
	}
	if cfg.ViewingDurationMins != 30 {
		t.Errorf("expected viewing duration 30, got %d", cfg.ViewingDurationMins)
	}
	if cfg.LLMTimeout != 5*time.Second {
		t.Errorf("expected LLM timeout 5s, got %s", cfg.LLMTimeout)
	}
	if !cfg.RedisTLS {
		t.Error("expected RedisTLS true")
	}
	if len(cfg.DashboardCORSOrigins) != 2 {
		t.Fatalf("expected 2 CORS origins, got %d", len(cfg.DashboardCORSOrigins))
	}
	if cfg.DashboardCORSOrigins[1] != "https://staging.example.com" {
		t.Errorf("unexpected second origin: %s", cfg.DashboardCORSOrigins[1])
	}
}

func TestGetEnvAsIntIgnoresGarbage(t *testing.T) {
	t.Setenv("HISTORY_WINDOW", "not-a-number")
	cfg := Load()
	if cfg.HistoryWindow != 20 {
		t.Errorf("expected fallback history window 20, got %d", cfg.HistoryWindow)
	}
}
