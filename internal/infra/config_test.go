package infra

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("AUTH_JWT_SECRET", "test-secret")
	t.Setenv("LEDGER_DRIVER", "")
	t.Setenv("AUTH_MODE", "")
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("TRUST_PROXY_HEADERS", "")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "")
	t.Setenv("STORAGE_PUBLIC_BASE_URL", "")
	t.Setenv("GENERATION_MAX_CONCURRENCY", "")
	t.Setenv("GENERATION_TIMEOUT", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.StoragePublicBaseURL != "http://localhost:8080/static" {
		t.Fatalf("StoragePublicBaseURL mismatch: got %q", cfg.StoragePublicBaseURL)
	}
	if cfg.GenerationMaxConcurrency != 5 {
		t.Fatalf("GenerationMaxConcurrency = %d, want 5", cfg.GenerationMaxConcurrency)
	}
	if cfg.GenerationTimeout != 3*time.Minute {
		t.Fatalf("GenerationTimeout = %s, want 3m", cfg.GenerationTimeout)
	}
	if cfg.OpenAIModel != "gpt-image-1.5" {
		t.Fatalf("OpenAIModel = %q", cfg.OpenAIModel)
	}
	if cfg.StorageBucket != "onlook_public" {
		t.Fatalf("StorageBucket = %q", cfg.StorageBucket)
	}
	if cfg.CreditsZeroOnError {
		t.Fatalf("CreditsZeroOnError should default to false")
	}
	if cfg.TrustProxy {
		t.Fatalf("TrustProxy should default to false")
	}
}

func TestLoadConfigInheritsPortInPublicBaseURL(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "1919")
	t.Setenv("STORAGE_PUBLIC_BASE_URL", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.StoragePublicBaseURL != "http://localhost:1919/static" {
		t.Fatalf("StoragePublicBaseURL mismatch: got %q", cfg.StoragePublicBaseURL)
	}
}

func TestLoadConfigRequiresDatabaseForPostgresLedger(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DATABASE_URL", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error without DATABASE_URL")
	}

	t.Setenv("LEDGER_DRIVER", "memory")
	t.Setenv("LEDGER_MEMORY_SEED", "")
	if _, err := LoadConfig(); err != nil {
		t.Fatalf("memory ledger should not need DATABASE_URL: %v", err)
	}
}

func TestLoadConfigMemoryLedgerSeed(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("LEDGER_DRIVER", "memory")
	t.Setenv("LEDGER_MEMORY_SEED", "user-a:3, user-b:0")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.LedgerSeed["user-a"] != 3 || len(cfg.LedgerSeed) != 2 {
		t.Fatalf("LedgerSeed = %v", cfg.LedgerSeed)
	}

	t.Setenv("LEDGER_MEMORY_SEED", "user-a:-1")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error for negative seed")
	}
	t.Setenv("LEDGER_MEMORY_SEED", "user-a")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error for entry without credits")
	}
}

func TestLoadConfigAuthModes(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("AUTH_JWT_SECRET", "")
	t.Setenv("AUTH_JWKS_URL", "")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error when jwt mode has no key material")
	}

	t.Setenv("AUTH_MODE", "remote")
	t.Setenv("AUTH_BASE_URL", "")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error when remote mode has no base url")
	}

	t.Setenv("AUTH_BASE_URL", "https://project.supabase.co/")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.AuthBaseURL != "https://project.supabase.co" {
		t.Fatalf("AuthBaseURL = %q", cfg.AuthBaseURL)
	}
}

func TestLoadConfigParsesListsAndDurations(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://app.example.com , ,http://localhost:8081")
	t.Setenv("GENERATION_TIMEOUT", "90s")
	t.Setenv("GENERATION_MAX_CONCURRENCY", "0")
	t.Setenv("CREDITS_ZERO_ON_ERROR", "true")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	expected := []string{"https://app.example.com", "http://localhost:8081"}
	if len(cfg.AllowedOrigins) != len(expected) {
		t.Fatalf("AllowedOrigins mismatch: %#v", cfg.AllowedOrigins)
	}
	for i, origin := range expected {
		if cfg.AllowedOrigins[i] != origin {
			t.Fatalf("AllowedOrigins[%d] = %q, want %q", i, cfg.AllowedOrigins[i], origin)
		}
	}
	if cfg.GenerationTimeout != 90*time.Second {
		t.Fatalf("GenerationTimeout = %s", cfg.GenerationTimeout)
	}
	if cfg.GenerationMaxConcurrency != 5 {
		t.Fatalf("non-positive concurrency should fall back to 5, got %d", cfg.GenerationMaxConcurrency)
	}
	if !cfg.CreditsZeroOnError {
		t.Fatalf("CreditsZeroOnError should be true")
	}
}

func TestLoadConfigRejectsUnknownStorageDriver(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("STORAGE_DRIVER", "ftp")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error for unknown storage driver")
	}
}
