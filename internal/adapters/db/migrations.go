// internal/adapters/db/migrations.go
package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// MigrationsFS carries the ledger schema so binaries need no SQL on disk.
//
//go:embed migrations/*.sql
var MigrationsFS embed.FS

type MigrationConfig struct {
	DatabaseURL string
	// SourcePath overrides the embedded migrations when set.
	SourcePath       string
	TableName        string
	SchemaName       string
	ForceDirty       bool
	StatementTimeout time.Duration
}

func (c *MigrationConfig) withDefaults() MigrationConfig {
	out := *c
	if out.TableName == "" {
		out.TableName = "schema_migrations"
	}
	if out.SchemaName == "" {
		out.SchemaName = "public"
	}
	if out.StatementTimeout <= 0 {
		out.StatementTimeout = 10 * time.Minute
	}
	return out
}

// SchemaState is the migration table's view of the ledger schema.
type SchemaState struct {
	Version uint
	Dirty   bool
}

// Migrator applies the ledger schema over a short-lived database/sql handle.
type Migrator struct {
	m      *migrate.Migrate
	sqlDB  *sql.DB
	cfg    MigrationConfig
	logger *slog.Logger
}

// errUnreachable marks failures worth retrying: the database is not up yet.
var errUnreachable = errors.New("database unreachable")

func NewMigrator(ctx context.Context, config *MigrationConfig, logger *slog.Logger) (*Migrator, error) {
	if config == nil || config.DatabaseURL == "" {
		return nil, fmt.Errorf("migration config requires a database url")
	}
	cfg := config.withDefaults()

	sqlDB, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("%w: %v", errUnreachable, err)
	}

	m, err := newMigrate(sqlDB, cfg)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}

	return &Migrator{
		m:      m,
		sqlDB:  sqlDB,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "migrator")),
	}, nil
}

func newMigrate(sqlDB *sql.DB, cfg MigrationConfig) (*migrate.Migrate, error) {
	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{
		MigrationsTable:  cfg.TableName,
		SchemaName:       cfg.SchemaName,
		StatementTimeout: cfg.StatementTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres driver: %w", err)
	}

	if cfg.SourcePath != "" {
		m, err := migrate.NewWithDatabaseInstance("file://"+cfg.SourcePath, "postgres", driver)
		if err != nil {
			return nil, fmt.Errorf("failed to load migrations from %s: %w", cfg.SourcePath, err)
		}
		return m, nil
	}

	source, err := iofs.New(MigrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to bind embedded migrations: %w", err)
	}
	return m, nil
}

func (mg *Migrator) State() (SchemaState, error) {
	version, dirty, err := mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return SchemaState{}, nil
	}
	if err != nil {
		return SchemaState{}, fmt.Errorf("failed to read schema version: %w", err)
	}
	return SchemaState{Version: version, Dirty: dirty}, nil
}

// Up brings the schema to the latest version. A dirty schema is an error
// unless ForceDirty is set, which marks the failed version as applied.
func (mg *Migrator) Up(ctx context.Context) (SchemaState, error) {
	before, err := mg.State()
	if err != nil {
		return before, err
	}

	if before.Dirty {
		if !mg.cfg.ForceDirty {
			return before, fmt.Errorf("ledger schema is dirty at version %d", before.Version)
		}
		mg.logger.WarnContext(ctx, "forcing dirty schema version",
			slog.Uint64("version", uint64(before.Version)))
		if err := mg.m.Force(int(before.Version)); err != nil {
			return before, fmt.Errorf("failed to force version: %w", err)
		}
	}

	if err := mg.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return before, fmt.Errorf("failed to apply migrations: %w", err)
	}

	after, err := mg.State()
	if err != nil {
		return after, err
	}
	mg.logger.InfoContext(ctx, "ledger schema up to date",
		slog.Uint64("from_version", uint64(before.Version)),
		slog.Uint64("version", uint64(after.Version)))
	return after, nil
}

func (mg *Migrator) Close() error {
	sourceErr, dbErr := mg.m.Close()
	if err := errors.Join(sourceErr, dbErr); err != nil {
		return fmt.Errorf("failed to close migrator: %w", err)
	}
	if err := mg.sqlDB.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// MigrateLedgerSchema runs Up, retrying only while the database is
// unreachable. Errors from the migrations themselves are returned at once.
func MigrateLedgerSchema(ctx context.Context, config *MigrationConfig, logger *slog.Logger, attempts int) error {
	if attempts < 1 {
		attempts = 1
	}

	wait := time.Second
	for attempt := 1; ; attempt++ {
		err := migrateOnce(ctx, config, logger)
		if err == nil {
			return nil
		}
		if !errors.Is(err, errUnreachable) || attempt == attempts {
			return fmt.Errorf("migrations failed after %d attempt(s): %w", attempt, err)
		}

		logger.WarnContext(ctx, "database not reachable, retrying migrations",
			slog.Int("attempt", attempt),
			slog.Duration("wait", wait),
			slog.String("error", err.Error()))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
}

func migrateOnce(ctx context.Context, config *MigrationConfig, logger *slog.Logger) error {
	mg, err := NewMigrator(ctx, config, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := mg.Close(); err != nil {
			logger.WarnContext(ctx, "failed to close migrator", slog.String("error", err.Error()))
		}
	}()

	_, err = mg.Up(ctx)
	return err
}
