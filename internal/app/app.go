// Package app wires configuration, backend, caches and services into a
// runnable panel. Both the HTTP server and the CLI subcommands build on it.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/tekinformatica/painel-go/internal/config"
	"github.com/tekinformatica/painel-go/internal/domain"
	"github.com/tekinformatica/painel-go/internal/handler"
	"github.com/tekinformatica/painel-go/internal/infra/cache"
	"github.com/tekinformatica/painel-go/internal/infra/observability"
	"github.com/tekinformatica/painel-go/internal/infra/postgres"
	"github.com/tekinformatica/painel-go/internal/infra/resilience"
	"github.com/tekinformatica/painel-go/internal/infra/supabase"
	"github.com/tekinformatica/painel-go/internal/jobs"
	"github.com/tekinformatica/painel-go/internal/lifecycle"
	"github.com/tekinformatica/painel-go/internal/port"
	"github.com/tekinformatica/painel-go/internal/service"
)

const cacheKeyPrefix = "painel:"

// App holds the wired dependencies.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Metrics  *observability.Metrics
	Backend  port.Backend
	Clock    port.Clock
	Services handler.Services

	location *time.Location
	closers  []func()
}

// New builds the application. clock may be nil, in which case the wall
// clock in cfg.Timezone is used.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, clock port.Clock) (*App, error) {
	a := &App{
		Config:   cfg,
		Logger:   logger,
		Metrics:  observability.NewMetrics(),
		location: time.UTC,
	}

	sys, err := lifecycle.NewSystemClock(cfg.Timezone)
	if err != nil {
		logger.Warn("unknown timezone, using UTC", zap.String("timezone", cfg.Timezone), zap.Error(err))
	}
	a.location = sys.Location
	a.Clock = sys
	if clock != nil {
		a.Clock = clock
	}

	backend, err := a.newBackend(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Backend = backend

	costCache := a.newTierCostCache(ctx)

	settings := service.NewSettingsService(backend, costCache, logger)
	customers := service.NewCustomerService(backend, backend, settings, a.Clock, a.Metrics, logger)
	a.Services = handler.Services{
		Customers:   customers,
		RenewalLogs: service.NewRenewalLogService(backend),
		Settings:    settings,
		Dashboard:   service.NewDashboardService(backend, settings, a.Clock, cfg.DashboardExpiringDays, a.Metrics, logger),
		Whatsapp:    service.NewWhatsappService(backend, settings, a.Clock, logger),
	}
	return a, nil
}

func (a *App) resilienceConfig() resilience.Config {
	return resilience.Config{
		MaxRetries:     a.Config.MaxRetries,
		InitialBackoff: a.Config.InitialBackoff,
		MaxConcurrency: a.Config.MaxConcurrency,
	}
}

func (a *App) newBackend(ctx context.Context) (port.Backend, error) {
	cfg := a.Config
	if cfg.Backend() == "postgres" {
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, int32(cfg.MaxConcurrency))
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.closers = append(a.closers, pool.Close)

		store := postgres.NewStore(pool, a.resilienceConfig(), a.Logger)
		store.OnError(a.Metrics.IncrExternalError)
		a.Logger.Info("using Postgres as data backend")
		return store, nil
	}

	a.Logger.Info("using Supabase as data backend", zap.String("supabase_url", cfg.SupabaseURL))
	client := supabase.NewClient(
		&http.Client{Timeout: cfg.HTTPTimeout},
		cfg.SupabaseURL,
		cfg.SupabaseAnonKey,
		cfg.SupabaseServiceKey,
		resilience.NewCircuitBreaker("supabase", a.Metrics.BreakerStateChanged),
		a.resilienceConfig(),
		a.Logger,
	)
	client.OnError(a.Metrics.IncrExternalError)
	return client, nil
}

// newTierCostCache prefers Redis when configured. An unreachable Redis
// falls back to the in-memory cache.
func (a *App) newTierCostCache(ctx context.Context) port.Cache[domain.TierCosts] {
	if addr := a.Config.RedisAddr; addr != "" {
		rc, err := cache.NewRedisClient(ctx, addr)
		if err == nil {
			a.closers = append(a.closers, func() { _ = rc.Close() })
			a.Logger.Info("tier cost cache: redis", zap.String("addr", addr))
			return cache.NewRedis[domain.TierCosts](rc, cacheKeyPrefix, a.Config.CacheTTL, a.Logger).
				Observe("tier-costs", a.Metrics)
		}
		a.Logger.Warn("redis unavailable, using in-memory cache", zap.String("addr", addr), zap.Error(err))
	}

	mem := cache.New[domain.TierCosts](a.Config.CacheTTL).Observe("tier-costs", a.Metrics)
	a.closers = append(a.closers, mem.Stop)
	return mem
}

// Router builds the HTTP handler.
func (a *App) Router() http.Handler {
	return handler.NewRouter(a.Services, a.Backend, handler.Options{
		CORSOrigins:    a.Config.CORSOrigins,
		JWTSecret:      a.Config.JWTSecret,
		RequestTimeout: a.Config.RequestTimeout,
	}, a.Metrics, a.Logger)
}

// Scheduler registers the background jobs enabled by the configuration.
func (a *App) Scheduler() (*jobs.Scheduler, error) {
	hour, minute, err := a.Config.SyncTime()
	if err != nil {
		return nil, err
	}
	return jobs.NewScheduler(a.Services.Customers, a.Services.Customers, jobs.Options{
		SyncHour:        hour,
		SyncMinute:      minute,
		SnapshotRefresh: a.Config.SnapshotRefresh,
		Location:        a.location,
	}, a.Metrics, a.Logger)
}

// Close releases pools, clients and cache janitors in reverse order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
