package config

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/activation")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("BREVO_API_KEY", "")
	t.Setenv("CORS_ORIGINS", "http://localhost:3000")
	t.Setenv("CORS_ALLOW_ALL", "false")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.EmailEnabled {
		t.Fatal("expected email disabled without a Brevo key")
	}
	if cfg.GetFollowupDelay() != 24*time.Hour {
		t.Fatalf("expected 24h followup delay, got %s", cfg.GetFollowupDelay())
	}
	if cfg.GetWorkdayStart() != "09:00" || cfg.GetWorkdayEnd() != "17:00" {
		t.Fatalf("unexpected workday window %s-%s", cfg.GetWorkdayStart(), cfg.GetWorkdayEnd())
	}
	if cfg.IsControlTowerEnabled() || cfg.IsSMSEnabled() || cfg.IsMinIOEnabled() {
		t.Fatal("expected optional integrations to be disabled by default")
	}
}

func TestLoadRejectsWildcardCORSWithCredentials(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CORS_ORIGINS", "*")
	t.Setenv("CORS_ALLOW_CREDENTIALS", "true")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for wildcard CORS with credentials")
	}
}

func TestLoadRejectsBadWorkday(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("WORKDAY_START", "9am")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for malformed WORKDAY_START")
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when DATABASE_URL is empty")
	}
}
