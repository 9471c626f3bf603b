package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.App.Name != "checkin-service" {
		t.Fatalf("app name = %q", cfg.App.Name)
	}
	if cfg.Presence.RefreshInterval() != 15*time.Second {
		t.Fatalf("refresh interval = %v", cfg.Presence.RefreshInterval())
	}
	if cfg.Presence.TokenTTL() != 30*time.Second {
		t.Fatalf("token ttl = %v", cfg.Presence.TokenTTL())
	}
	if cfg.Presence.Cooldown() != 10*time.Minute {
		t.Fatalf("cooldown = %v", cfg.Presence.Cooldown())
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9000")
	t.Setenv("PRESENCE_REFRESH_INTERVAL_SECONDS", "5")
	t.Setenv("CHECK_COOLDOWN_MINUTES", "2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.App.Addr(); got != "0.0.0.0:9000" {
		t.Fatalf("addr = %q", got)
	}
	if cfg.Presence.RefreshInterval() != 5*time.Second {
		t.Fatalf("refresh interval = %v", cfg.Presence.RefreshInterval())
	}
	if cfg.Presence.Cooldown() != 2*time.Minute {
		t.Fatalf("cooldown = %v", cfg.Presence.Cooldown())
	}
}

func TestDurationsFallBackOnNonPositiveValues(t *testing.T) {
	p := PresenceConfig{}
	if p.RefreshInterval() != 15*time.Second || p.TokenTTL() != 30*time.Second || p.Cooldown() != 10*time.Minute {
		t.Fatal("zero-valued presence config must use protocol defaults")
	}
}
