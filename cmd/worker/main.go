// cmd/worker/main.go
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ammerola/phoneshop-be/internal/adapters/db"
	"github.com/ammerola/phoneshop-be/internal/adapters/storage"
	"github.com/ammerola/phoneshop-be/internal/core/ports"
	"github.com/ammerola/phoneshop-be/internal/core/services"
	"github.com/ammerola/phoneshop-be/internal/pkg/config"
	"github.com/ammerola/phoneshop-be/internal/pkg/logger"
	"github.com/ammerola/phoneshop-be/internal/workers"
)

// cleanupSchedule prunes expired local exports.
const cleanupSchedule = "@every 1h"

func main() {
	// Setup logger
	slogger := logger.SetupLogger("info", "json")

	// Load configuration
	cfg, err := config.Load(slogger)
	if err != nil {
		slogger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Reconfigure logger with loaded settings
	slogger = logger.SetupLogger(cfg.App.LogLevel, cfg.App.LogFormat)
	slogger.Info("starting ledger worker",
		slog.String("environment", cfg.App.Environment),
		slog.String("redis_addr", cfg.Asynq.RedisAddr))

	ctx := context.Background()

	if cfg.AWS.SecretsName != "" {
		sm, err := config.NewAWSSecretsManager(ctx, cfg.AWS.Region, cfg.AWS.SecretsName, slogger)
		if err == nil {
			err = config.ApplySecrets(ctx, cfg, sm)
		}
		if err != nil {
			slogger.Error("failed to load secrets", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	database, err := initDatabase(ctx, cfg, slogger)
	if err != nil {
		slogger.Error("failed to initialize database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer database.Close()

	objectStorage, local, err := initStorage(ctx, cfg, slogger)
	if err != nil {
		slogger.Error("failed to initialize export storage", slog.String("error", err.Error()))
		os.Exit(1)
	}

	scope := db.NewTransactionScope(database, slogger)
	ledgerProcessor := workers.NewLedgerProcessor(
		services.NewLedgerAuditor(scope, slogger),
		services.NewLedgerExporter(scope, objectStorage, cfg.Ledger.ExportPrefix, cfg.Ledger.ExportURLTTL, slogger),
		slogger,
	)

	// Bucket lifecycle rules expire S3 exports; only disk exports need pruning.
	var cleanupProcessor *workers.CleanupProcessor
	if local {
		cleanupProcessor = workers.NewCleanupProcessor(cfg.Ledger.LocalExportDir, slogger)
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Asynq.RedisAddr,
		Password: cfg.Asynq.RedisPassword,
		DB:       cfg.Asynq.RedisDB,
	}

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency:     cfg.Asynq.Concurrency,
		Queues:          cfg.Asynq.Queues,
		StrictPriority:  cfg.Asynq.StrictPriority,
		ErrorHandler:    asynq.ErrorHandlerFunc(handleError),
		RetryDelayFunc:  workers.RetryDelay,
		ShutdownTimeout: cfg.Asynq.ShutdownTimeout,
		HealthCheckFunc: healthCheck,
		Logger:          workers.NewAsynqLogger(slogger),
	})

	scheduler, err := initScheduler(redisOpt, cfg, local, slogger)
	if err != nil {
		slogger.Error("failed to register periodic tasks", slog.String("error", err.Error()))
		os.Exit(1)
	}

	mux := workers.NewServeMux(ledgerProcessor, cleanupProcessor, slogger)

	// Handle shutdown gracefully
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Run(mux); err != nil {
			slogger.Error("failed to run worker server", slog.String("error", err.Error()))
			shutdown <- syscall.SIGTERM
		}
	}()

	if scheduler != nil {
		go func() {
			if err := scheduler.Run(); err != nil {
				slogger.Error("failed to run scheduler", slog.String("error", err.Error()))
				shutdown <- syscall.SIGTERM
			}
		}()
	}

	slogger.Info("worker started successfully",
		slog.Int("concurrency", cfg.Asynq.Concurrency),
		slog.Any("queues", cfg.Asynq.Queues),
		slog.Bool("scheduler", scheduler != nil))

	// Wait for shutdown signal
	sig := <-shutdown
	slogger.Info("shutdown signal received", slog.String("signal", sig.String()))

	if scheduler != nil {
		scheduler.Shutdown()
	}
	srv.Shutdown()
	slogger.Info("worker shutdown complete")
}

func initDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*db.Database, error) {
	dbConfig := &db.Config{
		Host:               cfg.Database.Host,
		Port:               cfg.Database.Port,
		User:               cfg.Database.User,
		Password:           cfg.Database.Password,
		Database:           cfg.Database.Name,
		SSLMode:            cfg.Database.SSLMode,
		MaxConnections:     10, // Fewer connections for worker
		MinConnections:     2,
		MaxConnLifetime:    cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:    cfg.Database.MaxConnIdleTime,
		HealthCheckPeriod:  cfg.Database.HealthCheckPeriod,
		ConnectTimeout:     cfg.Database.ConnectTimeout,
		EnableQueryLogging: cfg.Database.EnableQueryLogging,
	}

	return db.NewDatabase(ctx, dbConfig, logger)
}

// initStorage reports whether exports land on local disk.
func initStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ports.ObjectStorage, bool, error) {
	if cfg.AWS.S3Bucket == "" {
		return storage.NewLocalStorage(cfg.Ledger.LocalExportDir, logger), true, nil
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
		return nil, false, err
	}
	return s3Storage, false, nil
}

// initScheduler returns nil when there is nothing periodic to run.
func initScheduler(redisOpt asynq.RedisClientOpt, cfg *config.Config, local bool, logger *slog.Logger) (*asynq.Scheduler, error) {
	if cfg.Asynq.ReconcileCron == "" && !local {
		return nil, nil
	}

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
		Location: time.UTC,
		Logger:   workers.NewAsynqLogger(logger),
	})

	if cfg.Asynq.ReconcileCron != "" {
		task, err := workers.NewReconcileTask(workers.TriggerSchedule, cfg.Asynq.RetryMax)
		if err != nil {
			return nil, err
		}
		entryID, err := scheduler.Register(cfg.Asynq.ReconcileCron, task)
		if err != nil {
			return nil, err
		}
		logger.Info("scheduled ledger reconcile",
			slog.String("cron", cfg.Asynq.ReconcileCron),
			slog.String("entry_id", entryID))
	}

	if local {
		task, err := workers.NewCleanupExportsTask(cfg.Ledger.ExportURLTTL)
		if err != nil {
			return nil, err
		}
		if _, err := scheduler.Register(cleanupSchedule, task); err != nil {
			return nil, err
		}
		logger.Info("scheduled export cleanup",
			slog.String("cron", cleanupSchedule),
			slog.Duration("max_age", cfg.Ledger.ExportURLTTL))
	}

	return scheduler, nil
}

func handleError(ctx context.Context, task *asynq.Task, err error) {
	slog.ErrorContext(ctx, "task processing failed",
		slog.String("type", task.Type()),
		slog.String("payload", string(task.Payload())),
		slog.String("error", err.Error()))
}

func healthCheck(err error) {
	if err != nil {
		slog.Error("worker health check failed", slog.String("error", err.Error()))
	}
}
