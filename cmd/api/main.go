// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/ammerola/phoneshop-be/internal/adapters/db"
	redis_a "github.com/ammerola/phoneshop-be/internal/adapters/redis_adapter"
	"github.com/ammerola/phoneshop-be/internal/adapters/storage"
	"github.com/ammerola/phoneshop-be/internal/core/ports"
	"github.com/ammerola/phoneshop-be/internal/core/services"
	"github.com/ammerola/phoneshop-be/internal/handlers"
	"github.com/ammerola/phoneshop-be/internal/handlers/middleware"
	"github.com/ammerola/phoneshop-be/internal/pkg/config"
	"github.com/ammerola/phoneshop-be/internal/pkg/logger"
	"github.com/ammerola/phoneshop-be/internal/workers"
)

// Build information injected at compile time
var (
	Version   = "dev"
	BuildTime = "unknown"
	GoVersion = "unknown"
)

func main() {
	slogger := logger.SetupLogger("debug", "json")

	slogger.Info("starting phone shop ledger api",
		slog.String("version", Version),
		slog.String("build_time", BuildTime),
		slog.String("go_version", GoVersion),
	)

	cfg, err := config.Load(slogger)
	if err != nil {
		slogger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Reconfigure logger with loaded settings
	slogger = logger.SetupLogger(cfg.App.LogLevel, cfg.App.LogFormat)
	slogger.Info("configuration loaded",
		slog.String("environment", cfg.App.Environment),
		slog.String("log_level", cfg.App.LogLevel),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := loadSecrets(ctx, cfg, slogger); err != nil {
		slogger.Error("failed to load secrets", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if cfg.Database.AutoMigrate {
		if err := runMigrations(ctx, cfg, slogger); err != nil {
			slogger.Error("failed to run migrations", slog.String("error", err.Error()))
			if cfg.IsProduction() {
				os.Exit(1)
			}
		}
	}

	deps, err := initializeDependencies(ctx, cfg, slogger)
	if err != nil {
		slogger.Error("failed to initialize dependencies", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer deps.cleanup()

	server := setupHTTPServer(ctx, cfg, deps, slogger)

	serverErrors := make(chan error, 1)
	go func() {
		slogger.Info("starting HTTP server",
			slog.String("address", cfg.GetServerAddress()),
		)
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slogger.Error("server error", slog.String("error", err.Error()))
		}
	case <-ctx.Done():
		slogger.Info("shutdown signal received")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slogger.Error("failed to gracefully shutdown server", slog.String("error", err.Error()))
			server.Close()
		}

		slogger.Info("server shutdown complete")
	}
}

// dependencies holds all application dependencies
type dependencies struct {
	database       *db.Database
	redisClient    *redis.Client
	asynqClient    *asynq.Client
	asynqInspector *asynq.Inspector
	routes         *handlers.Routes
}

func (d *dependencies) cleanup() {
	if d.asynqInspector != nil {
		d.asynqInspector.Close()
	}
	if d.asynqClient != nil {
		d.asynqClient.Close()
	}
	if d.redisClient != nil {
		d.redisClient.Close()
	}
	if d.database != nil {
		d.database.Close()
	}
}

func initializeDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*dependencies, error) {
	deps := &dependencies{}

	logger.Info("connecting to database",
		slog.String("host", cfg.Database.Host),
		slog.String("database", cfg.Database.Name),
	)

	database, err := db.NewDatabase(ctx, &db.Config{
		Host:               cfg.Database.Host,
		Port:               cfg.Database.Port,
		User:               cfg.Database.User,
		Password:           cfg.Database.Password,
		Database:           cfg.Database.Name,
		SSLMode:            cfg.Database.SSLMode,
		MaxConnections:     cfg.Database.MaxConnections,
		MinConnections:     cfg.Database.MinConnections,
		MaxConnLifetime:    cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:    cfg.Database.MaxConnIdleTime,
		HealthCheckPeriod:  cfg.Database.HealthCheckPeriod,
		ConnectTimeout:     cfg.Database.ConnectTimeout,
		EnableQueryLogging: cfg.Database.EnableQueryLogging,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	deps.database = database

	// The read cache is optional; the ledger is correct without it.
	var cache ports.LedgerCache
	redisClient := redis.NewClient(&redis.Options{
		Addr:         cfg.GetRedisAddr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		MaxRetries:   cfg.Redis.MaxRetries,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		PoolTimeout:  cfg.Redis.PoolTimeout,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, ledger cache disabled",
			slog.String("addr", cfg.GetRedisAddr()),
			slog.String("error", err.Error()))
		redisClient.Close()
		redisClient = nil
	} else {
		deps.redisClient = redisClient
		cache = redis_a.NewCacheManager(redis_a.NewCache(redisClient, cfg.Redis.TTL, logger), cfg.Ledger.CacheTTL, logger)
	}

	asynqRedisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Asynq.RedisAddr,
		Password: cfg.Asynq.RedisPassword,
		DB:       cfg.Asynq.RedisDB,
	}
	deps.asynqClient = asynq.NewClient(asynqRedisOpt)
	deps.asynqInspector = asynq.NewInspector(asynqRedisOpt)
	queue := workers.NewQueue(deps.asynqClient, cfg.Asynq.RetryMax, logger)

	objectStorage, err := newObjectStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	scope := db.NewTransactionScope(database, logger)
	customers := services.NewCustomerResolver(cfg.Ledger.PhoneRegion, logger)

	auditor := services.NewLedgerAuditor(scope, logger)
	exporter := services.NewLedgerExporter(scope, objectStorage, cfg.Ledger.ExportPrefix, cfg.Ledger.ExportURLTTL, logger)

	deps.routes = &handlers.Routes{
		Purchases: handlers.NewPurchaseHandler(services.NewPurchaseService(scope, customers, logger), cache, logger),
		Sales:     handlers.NewSaleHandler(services.NewSaleService(scope, customers, logger), cache, logger),
		Repairs:   handlers.NewRepairHandler(services.NewRepairService(scope, logger), cache, logger),
		Inventory: handlers.NewInventoryHandler(services.NewInventoryService(scope, logger), cache, logger),
		Ledger:    handlers.NewLedgerHandler(auditor, exporter, queue, logger),
		Health: handlers.NewHealthHandler(
			database,
			redisClient,
			deps.asynqInspector,
			cfg.App.Version,
			cfg.App.Environment,
			logger,
		),
	}

	logger.Info("all dependencies initialized successfully",
		slog.Bool("cache_enabled", cache != nil))
	return deps, nil
}

func newObjectStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ports.ObjectStorage, error) {
	if cfg.AWS.S3Bucket == "" {
		logger.Info("no export bucket configured, writing exports to disk",
			slog.String("dir", cfg.Ledger.LocalExportDir))
		return storage.NewLocalStorage(cfg.Ledger.LocalExportDir, logger), nil
	}

	s3Storage, err := storage.NewS3Storage(ctx, &storage.S3Config{
		Region:          cfg.AWS.Region,
		Bucket:          cfg.AWS.S3Bucket,
		AccessKeyID:     cfg.AWS.AccessKeyID,
		SecretAccessKey: cfg.AWS.SecretAccessKey,
		Endpoint:        cfg.AWS.S3Endpoint,
		UsePathStyle:    cfg.AWS.UsePathStyle,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize S3 storage: %w", err)
	}
	return s3Storage, nil
}

func setupHTTPServer(ctx context.Context, cfg *config.Config, deps *dependencies, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	deps.routes.Register(mux)

	mws := []func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.Logger(logger),
		middleware.Recovery(logger),
	}
	if cfg.Security.SecureHeaders {
		mws = append(mws, middleware.SecureHeaders)
	}
	if len(cfg.Security.AllowedOrigins) > 0 {
		mws = append(mws, middleware.CORS(cfg.Security.AllowedOrigins))
	}
	mws = append(mws,
		middleware.RateLimit(ctx, cfg.Security.RateLimitRequests, cfg.Security.RateLimitDuration),
		middleware.MaxBody(cfg.Server.MaxBodyBytes),
	)
	// Inline exports and reconciles may run longer than the write deadline
	// allows; leave a second for the 504 body.
	if cfg.Server.WriteTimeout > 2*time.Second {
		mws = append(mws, middleware.Timeout(cfg.Server.WriteTimeout-time.Second))
	}

	return &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        middleware.Chain(mux, mws...),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}
}

// loadSecrets overlays credentials from AWS Secrets Manager when configured.
func loadSecrets(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.AWS.SecretsName == "" {
		return nil
	}
	sm, err := config.NewAWSSecretsManager(ctx, cfg.AWS.Region, cfg.AWS.SecretsName, logger)
	if err != nil {
		return err
	}
	return config.ApplySecrets(ctx, cfg, sm)
}

func runMigrations(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("running database migrations")

	migrationConfig := &db.MigrationConfig{
		DatabaseURL: cfg.GetDatabaseURL(),
		SourcePath:  cfg.Database.MigrationPath,
		TableName:   "schema_migrations",
		SchemaName:  "public",
	}

	return db.MigrateLedgerSchema(ctx, migrationConfig, logger, 3)
}
