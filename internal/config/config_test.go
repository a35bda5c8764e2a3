package config

import "testing"

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")
	t.Setenv("MANAGER_PIN", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
	if cfg.ManagerPIN != "" {
		t.Fatalf("expected empty MANAGER_PIN when unset, got %q", cfg.ManagerPIN)
	}
}

func TestLoadNormalizesCallbackBaseURL(t *testing.T) {
	t.Setenv("CALLBACK_BASE_URL", "https://pokladna.example.cz/")

	cfg := Load()
	if cfg.CallbackBaseURL != "https://pokladna.example.cz" {
		t.Fatalf("expected trailing slash stripped, got %q", cfg.CallbackBaseURL)
	}
}

func TestLoadFallsBackOnBadNumbers(t *testing.T) {
	t.Setenv("SMTP_PORT", "not-a-port")
	t.Setenv("REPORT_CACHE_TTL_SECONDS", "-5")

	cfg := Load()
	if cfg.SMTPPort != 587 {
		t.Fatalf("expected default SMTP port 587, got %d", cfg.SMTPPort)
	}
	if cfg.ReportCacheTTLSeconds != 120 {
		t.Fatalf("expected default report cache TTL 120, got %d", cfg.ReportCacheTTLSeconds)
	}
}
