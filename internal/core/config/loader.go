package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))

	var cfg AppConfig
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Set defaults if necessary
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Cache.Prefix == "" {
		cfg.Cache.Prefix = "dd:"
	}
	if cfg.Cache.DefaultTTL == 0 {
		cfg.Cache.DefaultTTL = Duration(time.Hour)
	}

	for i := range cfg.Providers {
		if cfg.Providers[i].ID == "" {
			return nil, fmt.Errorf("provider %d: id is required", i)
		}
		if cfg.Providers[i].Window == "" {
			cfg.Providers[i].Window = "minute"
		}
		if cfg.Providers[i].Timeout == 0 {
			cfg.Providers[i].Timeout = Duration(30 * time.Second)
		}
		if cfg.Providers[i].CacheTTL == 0 {
			cfg.Providers[i].CacheTTL = cfg.Cache.DefaultTTL
		}
	}

	return &cfg, nil
}
