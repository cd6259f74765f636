package config

import (
	"testing"
	"time"
)

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := Load(); err == nil {
		t.Error("expected error when DATABASE_URL is unset")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/triage_test")
	t.Setenv("ENV", "development")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8000" {
		t.Errorf("port = %s, want 8000", cfg.Port)
	}
	if !cfg.IsDev() {
		t.Error("ENV=development should report IsDev")
	}
	if cfg.RuleFreshness() != 24*time.Hour {
		t.Errorf("rule freshness = %s, want 24h", cfg.RuleFreshness())
	}
	if cfg.DBMaxConns != 20 || cfg.DBMinConns != 5 {
		t.Errorf("pool bounds = %d/%d, want 20/5", cfg.DBMaxConns, cfg.DBMinConns)
	}
}

func TestLoad_RequiresJWTSecretOutsideDev(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/triage_test")
	t.Setenv("ENV", "production")
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Error("expected error without JWT_SECRET in production")
	}

	t.Setenv("JWT_SECRET", "secret")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.IsDev() {
		t.Error("ENV=production should not report IsDev")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/triage_test")
	t.Setenv("ENV", "development")
	t.Setenv("PORT", "9999")
	t.Setenv("RULE_FRESHNESS_HOURS", "6")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "9999" {
		t.Errorf("port = %s, want 9999", cfg.Port)
	}
	if cfg.RuleFreshness() != 6*time.Hour {
		t.Errorf("rule freshness = %s, want 6h", cfg.RuleFreshness())
	}
}
