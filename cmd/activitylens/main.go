package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/activitylens/pkg/api"
	"github.com/platinummonkey/activitylens/pkg/config"
	"github.com/platinummonkey/activitylens/pkg/httputil"
	"github.com/platinummonkey/activitylens/pkg/observability"
	"github.com/platinummonkey/activitylens/pkg/presenter"
	"github.com/platinummonkey/activitylens/pkg/resolver"
	"github.com/platinummonkey/activitylens/pkg/storage/redisstore"
	"github.com/platinummonkey/activitylens/pkg/storage/sqlstore"
	"github.com/platinummonkey/activitylens/pkg/translation"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

const dbStatsInterval = 15 * time.Second

func main() {
	configPath := flag.String("config", getEnv("ACTIVITYLENS_CONFIG", "activitylens.yaml"), "Path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "activitylens: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.Level(), os.Stdout).
		WithField("service", "activitylens").
		WithField("version", version)

	if err := run(context.Background(), cfg, logger); err != nil {
		logger.WithError(err).Error("activitylens stopped with error")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *observability.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	promRegistry := prometheus.NewRegistry()
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(promRegistry)
		promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	db, dialect, err := sqlstore.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Infof("Connected to %s database", dialect)

	activities, err := sqlstore.NewActivityStore(db, dialect, cfg.Database.ActivityTable, sqlstore.WithActivityMetrics(metrics))
	if err != nil {
		return err
	}
	if cfg.Database.EnsureSchema {
		if err := activities.EnsureSchema(ctx); err != nil {
			return err
		}
	}

	entities, err := sqlstore.NewEntityStore(db, dialect, cfg.Entities, sqlstore.WithEntityMetrics(metrics))
	if err != nil {
		return err
	}

	var redisClient *redis.Client
	var wrap sqlstore.FetchWrapper
	if cfg.Redis.URL != "" {
		redisClient, err = redisstore.NewClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		cache := redisstore.NewCache(redisClient, cfg.Redis.TTL,
			redisstore.WithLogger(logger.WithField("component", "entity_cache")),
			redisstore.WithMetrics(metrics),
		)
		wrap = cache.Wrap
		logger.Info("Redis entity cache enabled")
	}

	registry := resolver.NewRegistry()
	if err := entities.Register(registry, wrap); err != nil {
		return fmt.Errorf("failed to register entity types: %w", err)
	}

	catalog, err := translation.NewCatalog(translation.Options{
		Dir:            cfg.Translations.Dir,
		Locale:         cfg.Translations.Locale,
		FallbackLocale: cfg.Translations.FallbackLocale,
		Logger:         logger,
		Metrics:        metrics,
	})
	if err != nil {
		return err
	}
	translations := translation.NewCache(catalog, cfg.Translations.CacheSize, cfg.Translations.CacheTTL, metrics)

	p := presenter.New(cfg.Resolution, registry,
		presenter.WithTranslator(translations),
		presenter.WithLogger(logger.WithField("component", "presenter")),
		presenter.WithMetrics(metrics),
	)

	apiServer := api.NewServer(p, activities,
		api.WithTranslations(translations),
		api.WithLogger(logger),
	)
	if metrics != nil {
		apiServer.Router().Use(observability.HTTPMetricsMiddleware(metrics))
	}

	apiHandler := httputil.Chain(
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(logger),
		httputil.RecoveryMiddleware(logger),
	)(apiServer)

	mux := http.NewServeMux()
	mux.Handle("/activities", apiHandler)
	mux.Handle("/activities/", apiHandler)
	observability.RegisterHealthRoutes(mux, observability.NewHealthChecker(db, redisClient, version))
	if metrics != nil {
		observability.RegisterMetricsEndpoint(mux, promRegistry)
	}

	var handler http.Handler = mux
	if providers != nil {
		handler = otelhttp.NewHandler(mux, "activitylens")
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	shutdown := observability.NewShutdownManager(logger, server, cfg.Server.ShutdownTimeout)
	if providers != nil {
		shutdown.RegisterShutdownFunc(providers.Shutdown)
	}
	shutdown.RegisterShutdownFunc(func(context.Context) error { return db.Close() })
	if redisClient != nil {
		shutdown.RegisterShutdownFunc(func(context.Context) error { return redisClient.Close() })
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Infof("Starting activitylens on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	if cfg.Translations.Watch && cfg.Translations.Dir != "" {
		g.Go(func() error {
			return catalog.Watch(gctx)
		})
	}

	if metrics != nil {
		g.Go(func() error {
			observeDBStats(gctx, db, metrics)
			return nil
		})
	}

	// the other goroutines stop once shutdown has run
	g.Go(func() error {
		defer cancel()
		return shutdown.Wait(gctx)
	})

	return g.Wait()
}

// observeDBStats publishes connection pool gauges until ctx is done.
func observeDBStats(ctx context.Context, db *sql.DB, metrics *observability.Metrics) {
	ticker := time.NewTicker(dbStatsInterval)
	defer ticker.Stop()

	for {
		metrics.ObserveDBStats(db.Stats())
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
