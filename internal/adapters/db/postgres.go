// internal/adapters/db/postgres.go
package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
)

// Config describes the ledger's Postgres pool. Zero durations keep the pgx
// defaults.
type Config struct {
	Host               string
	Port               string
	User               string
	Password           string
	Database           string
	SSLMode            string
	MaxConnections     int32
	MinConnections     int32
	MaxConnLifetime    time.Duration
	MaxConnIdleTime    time.Duration
	HealthCheckPeriod  time.Duration
	ConnectTimeout     time.Duration
	EnableQueryLogging bool
}

// URL renders the postgres:// form shared by the pool and golang-migrate.
func (c *Config) URL() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, c.Port),
		Path:   "/" + c.Database,
	}
	q := url.Values{}
	if c.SSLMode != "" {
		q.Set("sslmode", c.SSLMode)
	}
	if c.ConnectTimeout > 0 {
		q.Set("connect_timeout", fmt.Sprint(int(c.ConnectTimeout.Seconds())))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Database owns the pgx pool behind every ledger repository.
type Database struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewDatabase(ctx context.Context, config *Config, logger *slog.Logger) (*Database, error) {
	if config == nil {
		return nil, errors.New("database config is required")
	}

	poolConfig, err := pgxpool.ParseConfig(config.URL())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	applyPoolSettings(poolConfig, config, logger)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("ledger database connected",
		slog.String("host", config.Host),
		slog.String("database", config.Database),
		slog.Int("max_connections", int(poolConfig.MaxConns)))

	return &Database{pool: pool, logger: logger.With(slog.String("component", "postgres"))}, nil
}

func applyPoolSettings(pc *pgxpool.Config, c *Config, logger *slog.Logger) {
	if c.MaxConnections > 0 {
		pc.MaxConns = c.MaxConnections
	}
	if c.MinConnections > 0 {
		pc.MinConns = c.MinConnections
	}
	if c.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = c.MaxConnLifetime
	}
	if c.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = c.MaxConnIdleTime
	}
	if c.HealthCheckPeriod > 0 {
		pc.HealthCheckPeriod = c.HealthCheckPeriod
	}

	// Ledger statements are few and repeated; cache their descriptions.
	pc.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheDescribe
	pc.ConnConfig.StatementCacheCapacity = 256

	if c.EnableQueryLogging {
		pc.ConnConfig.Tracer = &tracelog.TraceLog{
			Logger:   tracelog.LoggerFunc(slogTrace(logger.With(slog.String("component", "pgx")))),
			LogLevel: tracelog.LogLevelDebug,
		}
	}
}

func slogTrace(logger *slog.Logger) func(context.Context, tracelog.LogLevel, string, map[string]any) {
	levels := map[tracelog.LogLevel]slog.Level{
		tracelog.LogLevelError: slog.LevelError,
		tracelog.LogLevelWarn:  slog.LevelWarn,
		tracelog.LogLevelInfo:  slog.LevelInfo,
	}
	return func(ctx context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
		lvl, ok := levels[level]
		if !ok {
			lvl = slog.LevelDebug
		}
		attrs := make([]slog.Attr, 0, len(data))
		for k, v := range data {
			attrs = append(attrs, slog.Any(k, v))
		}
		logger.LogAttrs(ctx, lvl, msg, attrs...)
	}
}

// Pool exposes the pool for integration tests.
func (db *Database) Pool() *pgxpool.Pool {
	return db.pool
}

func (db *Database) Close() {
	db.pool.Close()
	db.logger.Info("ledger database closed")
}

func (db *Database) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// Health reports pool pressure and the applied schema version. Callers ping
// first, so a failure here only annotates the report.
func (db *Database) Health(ctx context.Context) map[string]interface{} {
	stats := db.pool.Stat()
	health := map[string]interface{}{
		"total_connections":    stats.TotalConns(),
		"idle_connections":     stats.IdleConns(),
		"acquired_connections": stats.AcquiredConns(),
		"max_connections":      stats.MaxConns(),
		"empty_acquire_count":  stats.EmptyAcquireCount(),
		"acquire_wait":         stats.AcquireDuration().String(),
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	var version int64
	var dirty bool
	err := db.pool.QueryRow(ctx, `SELECT version, dirty FROM schema_migrations LIMIT 1`).Scan(&version, &dirty)
	switch {
	case err == nil:
		health["schema_version"] = version
		health["schema_dirty"] = dirty
	case errors.Is(err, pgx.ErrNoRows):
		health["schema_version"] = "none"
	default:
		health["schema_error"] = err.Error()
	}
	return health
}

// inTx runs fn in a transaction with opts. fn's error is returned as is so
// domain errors keep their kind; only begin and commit failures are wrapped.
func (db *Database) inTx(ctx context.Context, opts pgx.TxOptions, fn func(pgx.Tx) error) (err error) {
	tx, err := db.pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			db.logger.ErrorContext(ctx, "rollback failed", slog.String("error", rbErr.Error()))
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// querier is satisfied by both the pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanOne maps pgx.ErrNoRows to (nil, nil).
func scanOne[T any](row pgx.Row, scanner func(rowScanner) (*T, error)) (*T, error) {
	entity, err := scanner(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entity, nil
}

func scanMany[T any](rows pgx.Rows, scanner func(rowScanner) (*T, error)) ([]*T, error) {
	defer rows.Close()

	var results []*T
	for rows.Next() {
		entity, err := scanner(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}
