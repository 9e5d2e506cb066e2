package config

import (
	"os"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "config_*.yaml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	t.Cleanup(func() { os.Remove(tmpFile.Name()) })

	if _, err := tmpFile.Write([]byte(content)); err != nil {
		t.Fatalf("Failed to write to temp file: %v", err)
	}
	tmpFile.Close()

	return tmpFile.Name()
}

func TestLoad_EnvSubstitution(t *testing.T) {
	os.Setenv("TEST_REDIS_URL", "redis://localhost:6380")
	defer os.Unsetenv("TEST_REDIS_URL")

	path := writeTempConfig(t, `
redis:
  url: ${TEST_REDIS_URL}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Redis.URL != "redis://localhost:6380" {
		t.Errorf("Expected URL redis://localhost:6380, got %s", cfg.Redis.URL)
	}
}

func TestLoad_Defaults(t *testing.T) {
	path := writeTempConfig(t, `
providers:
  - id: alpha_vantage
    requests_per_window: 5
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Cache.Prefix != "dd:" {
		t.Errorf("Expected default prefix dd:, got %s", cfg.Cache.Prefix)
	}
	if cfg.Cache.DefaultTTL != Duration(time.Hour) {
		t.Errorf("Expected default TTL 1h, got %v", cfg.Cache.DefaultTTL)
	}

	p := cfg.Providers[0]
	if p.Window != "minute" {
		t.Errorf("Expected default window minute, got %s", p.Window)
	}
	if p.Timeout != Duration(30*time.Second) {
		t.Errorf("Expected default timeout 30s, got %v", p.Timeout)
	}
	if p.CacheTTL != Duration(time.Hour) {
		t.Errorf("Expected provider TTL to inherit cache default, got %v", p.CacheTTL)
	}
}

func TestLoad_DurationStrings(t *testing.T) {
	path := writeTempConfig(t, `
retry:
  max_attempts: 5
  initial_delay: 500ms
  max_delay: 30s
providers:
  - id: alpha_vantage
    timeout: 1m30s
    cache_ttl: 6h
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Retry.InitialDelay != Duration(500*time.Millisecond) {
		t.Errorf("Expected initial delay 500ms, got %v", cfg.Retry.InitialDelay)
	}
	if cfg.Retry.MaxDelay != Duration(30*time.Second) {
		t.Errorf("Expected max delay 30s, got %v", cfg.Retry.MaxDelay)
	}
	if cfg.Providers[0].Timeout != Duration(90*time.Second) {
		t.Errorf("Expected timeout 1m30s, got %v", cfg.Providers[0].Timeout)
	}
	if cfg.Providers[0].CacheTTL != Duration(6*time.Hour) {
		t.Errorf("Expected cache TTL 6h, got %v", cfg.Providers[0].CacheTTL)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := writeTempConfig(t, `
retry:
  initial_delay: soon
`)

	if _, err := Load(path); err == nil {
		t.Fatal("Expected error for unparseable duration")
	}
}

func TestLoad_MissingProviderID(t *testing.T) {
	path := writeTempConfig(t, `
providers:
  - requests_per_window: 5
`)

	if _, err := Load(path); err == nil {
		t.Fatal("Expected error for provider without id")
	}
}

func TestProviderConfig_Domain(t *testing.T) {
	p := ProviderConfig{
		ID:                "alpha_vantage",
		RequestsPerWindow: 5,
		Window:            "minute",
		MaxConcurrent:     2,
		Fallbacks:         []string{"yahoo_finance"},
		Timeout:           Duration(10 * time.Second),
		CacheTTL:          Duration(time.Hour),
	}

	d := p.Domain()
	if d.Window != time.Minute {
		t.Errorf("Expected 1m window, got %v", d.Window)
	}
	if len(d.Fallbacks) != 1 || d.Fallbacks[0] != "yahoo_finance" {
		t.Errorf("Unexpected fallbacks: %v", d.Fallbacks)
	}
}
