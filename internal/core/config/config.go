package config

import (
	"fmt"
	"time"

	"github.com/vietddude/diligence/internal/core/domain"
	redisclient "github.com/vietddude/diligence/internal/infra/redis"
)

// Duration wraps time.Duration so YAML values like "500ms" or "1h" parse.
// Plain integers are taken as nanoseconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err == nil {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", raw, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var n int64
	if err := unmarshal(&n); err != nil {
		return err
	}
	*d = Duration(n)
	return nil
}

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server    ServerConfig       `yaml:"server"`
	Redis     redisclient.Config `yaml:"redis"`
	Cache     CacheConfig        `yaml:"cache"`
	Retry     RetryConfig        `yaml:"retry"`
	Logging   LoggingConfig      `yaml:"logging"`
	Providers []ProviderConfig   `yaml:"providers"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// CacheConfig holds response cache settings.
type CacheConfig struct {
	Prefix     string   `yaml:"prefix"`
	DefaultTTL Duration `yaml:"default_ttl"`
}

// RetryConfig holds retry engine settings.
type RetryConfig struct {
	MaxAttempts  int      `yaml:"max_attempts"`
	InitialDelay Duration `yaml:"initial_delay"`
	MaxDelay     Duration `yaml:"max_delay"`
	Jitter       Duration `yaml:"jitter"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// ProviderConfig holds settings for an upstream data provider.
type ProviderConfig struct {
	ID                string   `yaml:"id"`
	BaseURL           string   `yaml:"base_url"`
	APIKeyEnv         string   `yaml:"api_key_env"`
	RequestsPerWindow int      `yaml:"requests_per_window"`
	Window            string   `yaml:"window"` // second, minute, hour, day, month
	MaxConcurrent     int      `yaml:"max_concurrent"`
	Fallbacks         []string `yaml:"fallbacks"`
	Timeout           Duration `yaml:"timeout"`
	CacheTTL          Duration `yaml:"cache_ttl"`
}

// Domain converts the YAML shape into the immutable provider config.
func (p ProviderConfig) Domain() domain.ProviderConfig {
	fallbacks := make([]domain.ProviderID, 0, len(p.Fallbacks))
	for _, f := range p.Fallbacks {
		fallbacks = append(fallbacks, domain.ProviderID(f))
	}

	return domain.ProviderConfig{
		ID:                domain.ProviderID(p.ID),
		RequestsPerWindow: p.RequestsPerWindow,
		Window:            domain.WindowUnit(p.Window).Duration(),
		MaxConcurrent:     p.MaxConcurrent,
		Fallbacks:         fallbacks,
		DefaultTimeout:    time.Duration(p.Timeout),
		DefaultCacheTTL:   time.Duration(p.CacheTTL),
	}
}
