// Package app wires every dependency and runs the server.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/torneiradigital/pos-server/internal/backup"
	"github.com/torneiradigital/pos-server/internal/cache"
	"github.com/torneiradigital/pos-server/internal/domain/product"
	"github.com/torneiradigital/pos-server/internal/domain/report"
	"github.com/torneiradigital/pos-server/internal/domain/sale"
	"github.com/torneiradigital/pos-server/internal/handler"
	"github.com/torneiradigital/pos-server/internal/storage/postgres"
	"github.com/torneiradigital/pos-server/pkg/health"
	"github.com/torneiradigital/pos-server/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Report cache: shared Redis when configured, per-process memory
	// otherwise.
	var cacheStore cache.Store = cache.NewMemory()
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return errors.Wrap(err, "parse redis url")
		}
		redisClient = redis.NewClient(opts)
		defer func() { _ = redisClient.Close() }()
		cacheStore = cache.NewRedis(redisClient, "pos:")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
	if redisClient != nil {
		healthSvc.AddReadinessCheck("redis", 2*time.Second, func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)

	// Repositories.
	productRepo := postgres.NewProductRepository(pool)
	customerRepo := postgres.NewCustomerRepository(pool)
	saleRepo := postgres.NewSaleRepository(pool)
	apikeyRepo := postgres.NewAPIKeyRepository(pool)
	reportRepo := postgres.NewReportRepository(pool)

	// The barcode prefilter is seeded from the catalog at startup.
	barcodes, err := product.NewBarcodeFilter(ctx, productRepo)
	if err != nil {
		return errors.Wrap(err, "build barcode filter")
	}

	// Domain services.
	finalizer := sale.NewFinalizer(saleRepo, productRepo, lg)
	manager := sale.NewManager(saleRepo, finalizer, lg)
	reports := report.NewService(reportRepo, cache.NewLoader(cacheStore, cfg.CacheTTL))

	// HTTP handlers.
	h := handler.New(
		handler.Config{LowStockThreshold: cfg.LowStock},
		productRepo,
		barcodes,
		customerRepo,
		saleRepo,
		manager,
		finalizer,
		reports,
	)
	security := handler.NewSecurity(apikeyRepo, []byte(cfg.APIKeyPepper))

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", http.StripPrefix("/api", security.Authenticate(h.Routes())))

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(cfg.CORS.Origins),
			httpmiddleware.RateLimit(httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("pos-api", m.MeterProvider(), m.TracerProvider()),
			httpmiddleware.LogRequests(),
		),
	}

	// Periodic local backup, when configured.
	if cfg.Backup.Dir != "" {
		exporter := backup.NewExporter(pool, cfg.Backup.Dir, lg)
		go exporter.Sweep(ctx, cfg.Backup.Interval)
	}

	healthSvc.SetReady(true)

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
