// test/helpers/helpers.go
package helpers

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ammerola/phoneshop-be/internal/adapters/db"
	"github.com/ammerola/phoneshop-be/internal/core/domain"
	"github.com/ammerola/phoneshop-be/internal/core/ports"
	"github.com/ammerola/phoneshop-be/internal/pkg/config"
)

// TestDB represents a test database instance
type TestDB struct {
	PgxPool  *pgxpool.Pool
	Database *db.Database
	Resource *dockertest.Resource
	Pool     *dockertest.Pool
	Config   *db.Config
}

// TestRedis represents a test Redis instance
type TestRedis struct {
	Client *redis.Client
	Server *miniredis.Miniredis
}

// TestLogger returns a test logger
func TestLogger() *slog.Logger {
	if testing.Verbose() {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// SetupTestDB starts a PostgreSQL container and applies the embedded ledger schema.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	pool, err := dockertest.NewPool("")
	require.NoError(t, err, "Could not connect to Docker")

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16-alpine",
		Env: []string{
			"POSTGRES_USER=test",
			"POSTGRES_PASSWORD=test",
			"POSTGRES_DB=test_ledger",
			"listen_addresses = '*'",
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	require.NoError(t, err, "Could not start PostgreSQL container")

	t.Cleanup(func() {
		if err := pool.Purge(resource); err != nil {
			t.Logf("Could not purge resource: %s", err)
		}
	})

	dbConfig := &db.Config{
		Host:               "localhost",
		Port:               resource.GetPort("5432/tcp"),
		User:               "test",
		Password:           "test",
		Database:           "test_ledger",
		SSLMode:            "disable",
		MaxConnections:     8,
		MinConnections:     1,
		MaxConnLifetime:    time.Hour,
		MaxConnIdleTime:    time.Minute * 30,
		HealthCheckPeriod:  time.Minute,
		ConnectTimeout:     time.Second * 10,
		EnableQueryLogging: testing.Verbose(),
	}

	var database *db.Database
	err = pool.Retry(func() error {
		ctx := context.Background()
		var err error
		database, err = db.NewDatabase(ctx, dbConfig, TestLogger())
		if err != nil {
			return err
		}
		return database.Ping(ctx)
	})
	require.NoError(t, err, "Could not connect to PostgreSQL")
	t.Cleanup(database.Close)

	migrationConfig := &db.MigrationConfig{
		DatabaseURL: dbConfig.URL(),
		TableName:   "schema_migrations",
		SchemaName:  "public",
	}
	err = db.MigrateLedgerSchema(context.Background(), migrationConfig, TestLogger(), 3)
	require.NoError(t, err, "Could not run migrations")

	return &TestDB{
		PgxPool:  database.Pool(),
		Database: database,
		Resource: resource,
		Pool:     pool,
		Config:   dbConfig,
	}
}

// SetupTestRedis creates a mock Redis instance for testing
func SetupTestRedis(t *testing.T) *TestRedis {
	t.Helper()

	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	t.Cleanup(func() {
		client.Close()
	})

	return &TestRedis{
		Client: client,
		Server: mr,
	}
}

// LoadTestConfig returns a test configuration
func LoadTestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name:        "test-api",
			Environment: "test",
			Version:     "test",
			LogLevel:    "debug",
			LogFormat:   "text",
			Debug:       true,
		},
		Database: config.DatabaseConfig{
			Host:               "localhost",
			Port:               "5432",
			User:               "test",
			Password:           "test",
			Name:               "test_ledger",
			SSLMode:            "disable",
			MaxConnections:     10,
			MinConnections:     2,
			EnableQueryLogging: true,
		},
		Redis: config.RedisConfig{
			Host:     "localhost",
			Port:     "6379",
			DB:       0,
			TTL:      time.Hour,
			PoolSize: 10,
		},
		Asynq: config.AsynqConfig{
			RedisAddr:   "localhost:6379",
			RedisDB:     1,
			Concurrency: 1,
			Queues:      map[string]int{"default": 1},
		},
		Ledger: config.LedgerConfig{
			PhoneRegion:    "US",
			CacheTTL:       time.Minute,
			ExportPrefix:   "test-exports",
			ExportURLTTL:   time.Hour,
			LocalExportDir: os.TempDir(),
		},
		Security: config.SecurityConfig{
			RateLimitRequests: 100,
			RateLimitDuration: time.Minute,
			AllowedOrigins:    []string{"*"},
			SecureHeaders:     false,
			RequestIDHeader:   "X-Request-ID",
		},
		Server: config.ServerConfig{
			Host:         "localhost",
			Port:         "8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			MaxBodyBytes: 1 << 20,
		},
	}
}

// Dec parses a decimal literal and panics on malformed input.
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func DecPtr(s string) *decimal.Decimal {
	d := Dec(s)
	return &d
}

func Ptr[T any](v T) *T {
	return &v
}

var imeiSeq atomic.Int64

// NextIMEI returns a fresh 15-digit IMEI for this test binary.
func NextIMEI() string {
	return fmt.Sprintf("35%013d", imeiSeq.Add(1))
}

// NewPurchaseLine returns a single GOOD phone priced at 150.
func NewPurchaseLine(overrides ...func(*ports.PurchaseLine)) ports.PurchaseLine {
	line := ports.PurchaseLine{
		IMEI:          NextIMEI(),
		Brand:         "Apple",
		Model:         "iPhone 13",
		Storage:       "128GB",
		Color:         "Midnight",
		Condition:     domain.ConditionGood,
		PurchasePrice: Dec("150"),
	}
	for _, override := range overrides {
		override(&line)
	}
	return line
}

// NewPurchaseInput builds a PAY_LATER purchase of one line with an inline customer.
func NewPurchaseInput(overrides ...func(*ports.CreatePurchaseInput)) ports.CreatePurchaseInput {
	in := ports.CreatePurchaseInput{
		Customer: ports.CustomerRef{Inline: &domain.CustomerInput{
			PhoneNumber: "+1 415 555 0100",
			FullName:    Ptr("Dana Seller"),
		}},
		PaymentMethod: "cash",
		PaymentType:   domain.PaymentPayLater,
		Items:         []ports.PurchaseLine{NewPurchaseLine()},
	}
	for _, override := range overrides {
		override(&in)
	}
	return in
}

// NewItem returns an active IN_STOCK item that is not linked to anything.
func NewItem(overrides ...func(*domain.InventoryItem)) *domain.InventoryItem {
	now := time.Now().UTC()
	item := &domain.InventoryItem{
		ID:        uuid.New(),
		IMEI:      NextIMEI(),
		Brand:     "Samsung",
		Model:     "Galaxy S22",
		Storage:   "256GB",
		Condition: domain.ConditionUsed,
		Status:    domain.StatusInStock,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, override := range overrides {
		override(item)
	}
	return item
}

// AssertEventuallyWithTimeout asserts that a condition is met within a timeout
func AssertEventuallyWithTimeout(t *testing.T, condition func() bool, timeout time.Duration, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}

	t.Errorf("Condition not met within %v: %s", timeout, msg)
}

// TruncateAllTables clears every ledger table between tests.
func TruncateAllTables(t *testing.T, db *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()
	_, err := db.Exec(ctx, `TRUNCATE TABLE
		repair_entries, repairs, payment_activities, sale_items, purchase_items,
		inventory_items, sales, purchases, customers, users
		CASCADE`)
	require.NoError(t, err, "Failed to truncate ledger tables")
}
