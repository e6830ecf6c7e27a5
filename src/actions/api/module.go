// Package api serves the survey web form and admin endpoints.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ltyyb/surveybot/src/actions/core"
	"github.com/ltyyb/surveybot/src/api/webserver"
	sharedconfig "github.com/ltyyb/surveybot/src/config"
	"github.com/ltyyb/surveybot/src/logging"
)

var _ core.Module = (*Module)(nil)

// Module runs the HTTP server.
type Module struct {
	cfg    *sharedconfig.APIConfig
	server *http.Server
	memory *webserver.RateLimiter
	addr   string

	cancel context.CancelFunc
	wg     sync.WaitGroup
	log    zerolog.Logger
}

// NewModule builds the router. With a Redis client the rate limit is shared
// across replicas, otherwise it is kept in process.
func NewModule(cfg *sharedconfig.APIConfig, rdb *redis.Client, deps webserver.Deps) (*Module, error) {
	if cfg == nil {
		return nil, fmt.Errorf("api: config is nil")
	}
	log := logging.For("api")

	if deps.RSAKey == nil && cfg.RSAKeyPath != "" {
		key, err := webserver.LoadPrivateKey(cfg.RSAKeyPath)
		if err != nil {
			return nil, fmt.Errorf("api: %w", err)
		}
		deps.RSAKey = key
	}
	if deps.RSAKey == nil {
		log.Warn().Msg("no RSA key configured, user registration endpoint disabled")
	}
	if cfg.JWTSecret == "" {
		log.Warn().Msg("no JWT secret configured, admin endpoints disabled")
	}

	m := &Module{cfg: cfg, log: log}
	if cfg.RateLimit > 0 && deps.Limiter == nil {
		if rdb != nil {
			deps.Limiter = webserver.NewRedisLimiter(rdb, cfg.RateLimit, cfg.RateWindow)
		} else {
			m.memory = webserver.NewRateLimiter(cfg.RateLimit, cfg.RateWindow)
			deps.Limiter = m.memory
		}
	}

	gin.SetMode(gin.ReleaseMode)
	m.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           webserver.New(*cfg, deps),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return m, nil
}

// Name implements core.Module.
func (m *Module) Name() string { return "api" }

// Start binds the listener before returning so port conflicts fail startup.
func (m *Module) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", m.server.Addr)
	if err != nil {
		return fmt.Errorf("api: listen %s: %w", m.server.Addr, err)
	}

	runtimeCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	if m.memory != nil {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.memory.Run(runtimeCtx)
		}()
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if err := m.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.log.Error().Err(err).Msg("http server stopped")
		}
	}()
	m.addr = ln.Addr().String()
	m.log.Info().Str("addr", m.addr).Msg("listening")
	return nil
}

// Addr is the bound listener address, empty before Start.
func (m *Module) Addr() string { return m.addr }

// Stop drains in-flight requests for up to ten seconds.
func (m *Module) Stop(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := m.server.Shutdown(shutdownCtx); err != nil {
		m.log.Warn().Err(err).Msg("http shutdown")
	}
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}
