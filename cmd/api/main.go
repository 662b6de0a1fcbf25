package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/orderdraft/api/routes"
	"github.com/angelmondragon/orderdraft/internal/drafts"
	"github.com/angelmondragon/orderdraft/pkg/adminapi"
	"github.com/angelmondragon/orderdraft/pkg/config"
	"github.com/angelmondragon/orderdraft/pkg/instance"
	"github.com/angelmondragon/orderdraft/pkg/logger"
	"github.com/angelmondragon/orderdraft/pkg/metrics"
	"github.com/angelmondragon/orderdraft/pkg/redis"
)

const (
	shutdownTimeout   = 15 * time.Second
	sweepInterval     = 10 * time.Minute
	readHeaderTimeout = 10 * time.Second
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "orderdraft-api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "orderdraft-api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	var (
		redisClient *redis.Client
		pinger      redis.Pinger
		idemStore   redis.IdempotencyStore
	)
	if cfg.Redis.Enabled() {
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer func() {
			if err := client.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		redisClient, pinger, idemStore = client, client, client
	}

	backend, err := adminapi.NewClient(cfg.Backend.BaseURL,
		adminapi.WithHTTPClient(&http.Client{Timeout: cfg.Backend.Timeout}),
		adminapi.WithServiceToken(cfg.Backend.ServiceToken),
		adminapi.WithBreaker(adminapi.BreakerSettings{
			MaxRequests:      cfg.Backend.BreakerMaxRequests,
			Interval:         cfg.Backend.BreakerInterval,
			OpenTimeout:      cfg.Backend.BreakerOpenTimeout,
			FailureThreshold: cfg.Backend.BreakerFailureThreshold,
			OnStateChange: func(name string, from, to gobreaker.State) {
				stateCtx := logg.WithFields(context.Background(), map[string]any{
					"breaker": name,
					"from":    from.String(),
					"to":      to.String(),
				})
				logg.Warn(stateCtx, "backend breaker state changed")
			},
		}),
	)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var (
		store       drafts.Store
		guard       drafts.SubmitGuard
		memoryStore *drafts.MemoryStore
	)
	if cfg.Drafts.UsesRedis() {
		redisStore, err := drafts.NewRedisStore(redisClient, cfg.Drafts.TTL)
		if err != nil {
			return err
		}
		redisGuard, err := drafts.NewRedisGuard(redisClient, cfg.Drafts.SubmitLockTTL)
		if err != nil {
			return err
		}
		store, guard = redisStore, redisGuard
	} else {
		memoryStore = drafts.NewMemoryStore(cfg.Drafts.TTL)
		store, guard = memoryStore, drafts.NewMemoryGuard()
	}

	draftService, err := drafts.NewService(drafts.ServiceParams{
		Store:         store,
		Guard:         guard,
		Backend:       backend,
		Pricing:       drafts.PricingFromConfig(cfg.Drafts),
		CheckEligible: cfg.Drafts.CheckEligible,
		Metrics:       metrics.NewDraftMetrics(registry),
		Logger:        logg,
	})
	if err != nil {
		return err
	}

	addr := ":" + cfg.App.Port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"addr":        addr,
		"instance":    instance.GetID(),
		"draft_store": cfg.Drafts.Store,
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, pinger, idemStore, registry, backend, draftService),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logg.Info(logCtx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if memoryStore != nil {
		g.Go(func() error {
			sweepExpired(gctx, logg, memoryStore)
			return nil
		})
	}

	return g.Wait()
}

// sweepExpired drops expired in-memory drafts until ctx ends.
func sweepExpired(ctx context.Context, logg *logger.Logger, store *drafts.MemoryStore) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := store.Sweep(); removed > 0 {
				logg.Info(logg.WithField(ctx, "removed", removed), "expired drafts swept")
			}
		}
	}
}
