package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("RP_CODE_LENGTH", "")
	t.Setenv("PAGE_SIZE", "")

	cfg := Load()
	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Errorf("expected default env development, got %s", cfg.Env)
	}
	if cfg.RPCodeLength != 8 {
		t.Errorf("expected default code length 8, got %d", cfg.RPCodeLength)
	}
	if cfg.RPCodeChars != "abcdefhjknpstxyz23456789" {
		t.Errorf("unexpected code alphabet %q", cfg.RPCodeChars)
	}
	if cfg.PageSize != 20 {
		t.Errorf("expected default page size 20, got %d", cfg.PageSize)
	}
	if !cfg.IsDevelopment() {
		t.Error("expected development mode")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("RP_CODE_LENGTH", "12")
	t.Setenv("MAX_TITLE_LENGTH", "50")

	cfg := Load()
	if cfg.Port != "9999" {
		t.Errorf("expected port 9999, got %s", cfg.Port)
	}
	if cfg.RPCodeLength != 12 {
		t.Errorf("expected code length 12, got %d", cfg.RPCodeLength)
	}
	if cfg.MaxTitleLen != 50 {
		t.Errorf("expected max title 50, got %d", cfg.MaxTitleLen)
	}
}

func TestLoadBadIntFallsBack(t *testing.T) {
	t.Setenv("PAGE_SIZE", "not a number")

	cfg := Load()
	if cfg.PageSize != 20 {
		t.Errorf("expected fallback page size 20, got %d", cfg.PageSize)
	}
}

func TestProductionRequiresDurableStore(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SQLITE_PATH", "")

	defer func() {
		if recover() == nil {
			t.Error("expected panic without a durable store in production")
		}
	}()
	Load()
}
