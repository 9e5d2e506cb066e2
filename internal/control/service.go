// Package control wires the data-access core together from configuration and
// manages its lifecycle: redis (optional), cache, rate limiter, retry engine,
// manager, and the operational HTTP server.
package control

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/vietddude/diligence/internal/core/config"
	"github.com/vietddude/diligence/internal/infra/cache"
	redisclient "github.com/vietddude/diligence/internal/infra/redis"
	"github.com/vietddude/diligence/internal/infra/upstream"
	"github.com/vietddude/diligence/internal/infra/upstream/ratelimit"
	"github.com/vietddude/diligence/internal/infra/upstream/retry"
	"github.com/vietddude/diligence/internal/infra/upstream/transport"
)

// Service is the main application struct managing the core's lifecycle.
type Service struct {
	cfg         config.AppConfig
	manager     *upstream.Manager
	redisClient *redisclient.Client
	server      *Server
	log         *slog.Logger
}

// NewService creates a Service with all dependencies initialized. A missing
// or unreachable redis degrades to local-only caching rather than failing.
func NewService(cfg config.AppConfig) (*Service, error) {
	log := slog.Default()

	// 1. Remote cache store (optional)
	var (
		redisClient *redisclient.Client
		remote      cache.RemoteStore
	)
	if cfg.Redis.URL != "" {
		client, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			log.Warn("Redis unavailable, using local cache only", "error", err)
		} else {
			redisClient = client
			remote = client
			log.Info("Using Redis response cache")
		}
	} else {
		log.Info("No Redis configured, using local cache only")
	}

	// 2. Core components
	responseCache := cache.New(remote, cfg.Cache.Prefix, log)
	limiter := ratelimit.New(log)

	retryCfg := retry.Config{
		MaxAttempts:  cfg.Retry.MaxAttempts,
		InitialDelay: time.Duration(cfg.Retry.InitialDelay),
		MaxDelay:     time.Duration(cfg.Retry.MaxDelay),
		Jitter:       time.Duration(cfg.Retry.Jitter),
	}
	engine := retry.NewEngine(retryCfg, log)

	manager := upstream.NewManager(responseCache, limiter, engine, log)

	// 3. Providers
	for _, p := range cfg.Providers {
		apiKey := ""
		if p.APIKeyEnv != "" {
			apiKey = os.Getenv(p.APIKeyEnv)
			if apiKey == "" {
				log.Warn("API key env var is empty", "provider", p.ID, "env", p.APIKeyEnv)
			}
		}

		t := transport.NewHTTPJSON(transport.HTTPConfig{
			BaseURL: p.BaseURL,
			APIKey:  apiKey,
		})
		if err := manager.RegisterProvider(p.Domain(), t); err != nil {
			return nil, fmt.Errorf("failed to register provider %s: %w", p.ID, err)
		}
	}

	s := &Service{
		cfg:         cfg,
		manager:     manager,
		redisClient: redisClient,
		log:         log,
	}
	s.server = NewServer(manager, cfg.Server.Port)

	return s, nil
}

// Manager exposes the request coordinator to embedding callers (agents).
func (s *Service) Manager() *upstream.Manager {
	return s.manager
}

// Start launches the operational HTTP server.
func (s *Service) Start(ctx context.Context) error {
	go func() {
		if err := s.server.Start(); err != nil {
			s.log.Error("HTTP server stopped", "error", err)
		}
	}()
	s.log.Info("Service started", "port", s.cfg.Server.Port, "providers", len(s.cfg.Providers))
	return nil
}

// Stop drains the core and shuts the HTTP server down.
func (s *Service) Stop(ctx context.Context) error {
	s.manager.Shutdown()

	if err := s.server.Stop(ctx); err != nil {
		return fmt.Errorf("failed to stop http server: %w", err)
	}
	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			return fmt.Errorf("failed to close redis: %w", err)
		}
	}
	return nil
}
