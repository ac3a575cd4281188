package main

import (
	"context"
	"expvar"
	"fmt"
	"os"
	"runtime"
	"time"

	"catalog/internal/assets"
	"catalog/internal/auth"
	"catalog/internal/cache"
	"catalog/internal/config"
	"catalog/internal/db"
	"catalog/internal/domain/storage"
	"catalog/internal/idgen"
	"catalog/internal/metrics"
	"catalog/internal/objectstore"
	"catalog/internal/ratelimiter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger creates a new zap logger with color.
func NewLogger(level string) (*zap.SugaredLogger, error) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder

	consoleEncoder := zapcore.NewConsoleEncoder(encoderCfg)

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	core := zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stdout), lvl)
	return zap.New(core).Sugar(), nil
}

var version = "1.0.0"

//	@title			Catalog Admin API
//	@description	Admin API for the ProSmart and Hydralite product catalogs.

//	@contact.name	API Support

//	@BasePath					/v1
//	@securityDefinitions.apikey	ApiKeyAuth
//	@in							header
//	@name						Authorization
//	@description

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger, err := NewLogger(cfg.App.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error creating logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Database
	client, err := db.New(cfg.Mongo)
	if err != nil {
		logger.Fatal(err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Close(ctx)
	}()
	logger.Info("database connection pool established")

	if cfg.Mongo.EnsureIndexesBoot {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := client.EnsureIndexes(ctx); err != nil {
			logger.Warnw("ensure indexes failed", "error", err)
		}
		cancel()
	}

	// Remote asset store
	objects, err := objectstore.New(cfg)
	if err != nil {
		logger.Fatal(err)
	}
	if m, ok := objects.(*objectstore.Minio); ok {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := m.EnsureBucket(ctx); err != nil {
			logger.Fatal(err)
		}
		cancel()
	}
	logger.Infow("asset store ready", "backend", objects.Name())

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	assetMetrics := metrics.NewAssetMetrics(registry)

	reconciler, err := assets.NewReconciler(objects, logger.Named("assets"), assetMetrics, assets.Config{
		UploadConcurrency: cfg.Assets.UploadConcurrency,
		Timeout:           cfg.Assets.Timeout,
		CompensateOnAbort: cfg.Assets.CompensateOnAbort,
	})
	if err != nil {
		logger.Fatal(err)
	}

	ids, err := idgen.New()
	if err != nil {
		logger.Fatal(err)
	}

	rateLimiter := ratelimiter.NewFixedWindowLimiter(cfg.RateLimiter.Requests, cfg.RateLimiter.Window)
	stop := make(chan struct{})
	defer close(stop)
	go rateLimiter.Run(stop)

	app := &application{
		config:        cfg,
		logger:        logger,
		store:         storage.NewContainer(client),
		db:            client,
		objects:       objects,
		assets:        reconciler,
		ids:           ids,
		cache:         cache.New(cfg.Cache.Size, cfg.Cache.TTL),
		authenticator: auth.NewJWTAuthenticator(cfg.Auth.SessionSecret, cfg.Auth.Issuer, cfg.Auth.SessionTTL),
		rateLimiter:   rateLimiter,
		registry:      registry,
	}

	//Metrics collected http://localhost:8080/v1/debug/vars
	expvar.NewString("version").Set(version)
	expvar.Publish("asset_backend", expvar.Func(func() any {
		return objects.Name()
	}))
	expvar.Publish("cache_entries", expvar.Func(func() any {
		return app.cache.Len()
	}))
	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))

	mux := app.mount()

	logger.Fatal(app.run(mux))
}
