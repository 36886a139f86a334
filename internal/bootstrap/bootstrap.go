// Package bootstrap wires configuration into the running import pipeline.
// Both the HTTP server and the importer CLI start from here.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/application/importer"
	"github.com/storefront/backend/internal/application/media"
	"github.com/storefront/backend/internal/application/transform"
	"github.com/storefront/backend/internal/domain/pricing"
	"github.com/storefront/backend/internal/infrastructure/cache"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/contentstore"
	"github.com/storefront/backend/internal/infrastructure/marketplace"
	"github.com/storefront/backend/internal/infrastructure/persistence"
	"github.com/storefront/backend/internal/infrastructure/storage"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
)

// Telemetry holds the OpenTelemetry providers and the profiler
type Telemetry struct {
	Tracer   *telemetry.TracerProvider
	Meter    *telemetry.MeterProvider
	Logs     *telemetry.LoggerProvider
	Profiler *telemetry.Profiler
}

// SetupTelemetry starts tracing, metrics, log export and profiling as configured.
// The returned logger also ships records to the OTLP collector when log export is on.
func SetupTelemetry(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Telemetry, *zap.Logger, error) {
	tc := cfg.Telemetry
	t := &Telemetry{}
	var err error

	t.Tracer, err = telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           tc.Enabled,
		CollectorEndpoint: tc.CollectorEndpoint,
		SamplingRatio:     tc.SamplingRatio,
		ServiceName:       tc.ServiceName,
		Insecure:          tc.Insecure,
	}, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start tracing: %w", err)
	}

	t.Meter, err = telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           tc.Enabled && tc.MetricsEnabled,
		CollectorEndpoint: tc.CollectorEndpoint,
		ExportInterval:    tc.MetricsInterval,
		ServiceName:       tc.ServiceName,
		Insecure:          tc.Insecure,
	}, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start metrics: %w", err)
	}

	t.Logs, err = telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           tc.Enabled && tc.LogsEnabled,
		CollectorEndpoint: tc.CollectorEndpoint,
		ServiceName:       tc.ServiceName,
		Insecure:          tc.Insecure,
	}, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start log export: %w", err)
	}
	log = telemetry.Bridge(log, tc.ServiceName, t.Logs)

	pc := cfg.Profiler
	t.Profiler, err = telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           pc.Enabled,
		ServerAddress:     pc.ServerAddress,
		ApplicationName:   pc.ApplicationName,
		BasicAuthUser:     pc.BasicAuthUser,
		BasicAuthPassword: pc.BasicAuthPassword,
		ProfileCPU:        true,
		ProfileAlloc:      true,
		ProfileInuse:      true,
		ProfileGoroutines: true,
	}, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start profiler: %w", err)
	}
	if pc.Enabled && pc.SpanProfiles && t.Tracer.IsEnabled() {
		if err := t.Tracer.EnableSpanProfiles(); err != nil {
			log.Warn("Failed to enable span profiles", zap.Error(err))
		}
	}
	return t, log, nil
}

// Shutdown flushes and stops every provider
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if t.Profiler != nil {
		errs = append(errs, t.Profiler.Stop())
	}
	if t.Tracer != nil {
		errs = append(errs, t.Tracer.Shutdown(ctx))
	}
	if t.Meter != nil {
		errs = append(errs, t.Meter.Shutdown(ctx))
	}
	if t.Logs != nil {
		errs = append(errs, t.Logs.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

// App is the assembled import pipeline and the connections it owns
type App struct {
	DB             *persistence.Database
	Redis          *redis.Client
	Mongo          *mongo.Client
	PricingConfigs pricing.ConfigRepository
	Orchestrator   *importer.Orchestrator
	Bulk           *importer.BulkImporter

	closers []io.Closer
}

// New connects the relational store, the content store, the pricing cache and the
// asset store, then builds the orchestrator on top of them.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger, t *Telemetry) (*App, error) {
	app := &App{}
	ok := false
	defer func() {
		if !ok {
			_ = app.Close(context.Background())
		}
	}()

	db, err := persistence.NewDatabase(&cfg.Database,
		persistence.WithLogger(log),
		persistence.WithTracing(telemetry.DBTracingConfig{
			Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
			LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
			DBSystem:        "postgresql",
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = db
	log.Info("Database connected")

	app.Mongo, err = contentstore.NewMongoClient(ctx, &cfg.Mongo)
	if err != nil {
		return nil, err
	}
	contentStore := contentstore.NewMongoStore(
		app.Mongo.Database(cfg.Mongo.Database).Collection(cfg.Mongo.Collection),
		contentstore.WithLogger(log.Named("contentstore")),
	)
	if err := contentStore.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("failed to create content store indexes: %w", err)
	}
	log.Info("Content store connected", zap.String("database", cfg.Mongo.Database))

	var pricingConfigs pricing.ConfigRepository = persistence.NewGormPricingConfigRepository(db.DB)
	if cfg.Redis.Enabled {
		app.Redis, err = cache.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			return nil, err
		}
		pricingConfigs = cache.NewPricingConfigCache(pricingConfigs, app.Redis,
			cache.WithTTL(cfg.Redis.TTL), cache.WithLogger(log.Named("cache")))
		log.Info("Pricing config cache enabled", zap.String("addr", cfg.Redis.Addr()))
	}
	app.PricingConfigs = pricingConfigs

	assets, err := storage.NewAssetStore(ctx, &cfg.Storage, log.Named("storage"))
	if err != nil {
		return nil, fmt.Errorf("failed to create asset store: %w", err)
	}

	httpClient := &http.Client{Timeout: cfg.Marketplace.Timeout}
	fetcher, closer, err := marketplace.NewFetcher(&cfg.Marketplace, httpClient, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create marketplace fetcher: %w", err)
	}
	app.closers = append(app.closers, closer)

	ic := cfg.Import
	images := media.NewProcessor(assets,
		media.WithLogger(log.Named("media")),
		media.WithDownloader(media.NewHTTPDownloader(&http.Client{Timeout: ic.ImageTimeout})),
		media.WithOptions(media.Options{
			MaxImages:    ic.MaxImages,
			Concurrency:  ic.ImageConcurrency,
			MaxDimension: ic.MaxImageDimension,
			MinDimension: ic.MinImageDimension,
			Quality:      ic.ImageQuality,
			MaxBytes:     ic.MaxImageBytes,
			ImageTimeout: ic.ImageTimeout,
			BatchTimeout: ic.ImageBatchTimeout,
		}),
	)

	calc := pricing.NewCalculator()
	tcfg := transform.DefaultConfig()
	tcfg.SKUPrefix = ic.SKUPrefix
	tcfg.BrandName = ic.BrandName

	opts := []importer.Option{
		importer.WithLogger(log.Named("importer")),
		importer.WithConfig(importer.Config{
			FetchTimeout: ic.FetchTimeout,
			StoreTimeout: ic.StoreTimeout,
			Compensation: importer.CompensationMode(ic.Compensation),
		}),
		importer.WithPreviewAssetStore(storage.NewDiscardAssetStore()),
	}
	if t != nil && t.Meter != nil {
		metrics, err := telemetry.NewImportMetrics(t.Meter.Meter("storefront/importer"))
		if err != nil {
			log.Warn("Import metrics unavailable", zap.Error(err))
		} else {
			opts = append(opts, importer.WithMetrics(metrics))
		}
	}

	app.Orchestrator = importer.NewOrchestrator(importer.Dependencies{
		Fetcher:        fetcher,
		PricingConfigs: pricingConfigs,
		Calculator:     calc,
		Transformer:    transform.NewTransformer(calc, transform.WithConfig(tcfg)),
		Images:         images,
		AssetStore:     assets,
		ContentStore:   contentStore,
		TxScope:        persistence.NewGormTransactionScope(db.DB),
		SourceRepo:     persistence.NewGormProductSourceRepository(db.DB),
	}, opts...)
	app.Bulk = importer.NewBulkImporter(app.Orchestrator, ic.BulkParallelism, log.Named("bulk"))

	ok = true
	return app, nil
}

// HealthChecks returns a probe per external dependency
func (a *App) HealthChecks() map[string]func(context.Context) error {
	checks := map[string]func(context.Context) error{}
	if a.DB != nil {
		checks["postgres"] = a.DB.Ping
	}
	if a.Mongo != nil {
		checks["mongodb"] = func(ctx context.Context) error { return a.Mongo.Ping(ctx, nil) }
	}
	if a.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return a.Redis.Ping(ctx).Err() }
	}
	return checks
}

// Close releases every connection the app opened
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.Mongo != nil {
		disconnectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		errs = append(errs, a.Mongo.Disconnect(disconnectCtx))
		cancel()
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}
