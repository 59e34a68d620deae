package integration

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/seu-repo/ocpp-central/internal/adapter/cache"
	pgstore "github.com/seu-repo/ocpp-central/internal/adapter/storage/postgres"
	"github.com/seu-repo/ocpp-central/internal/ports"
)

// TestEnv holds the shared backing services for the integration suite.
type TestEnv struct {
	DB    *gorm.DB
	Repos ports.RepositoryProvider
	Cache ports.Cache

	postgresContainer testcontainers.Container
	redisContainer    testcontainers.Container
	ctx               context.Context
}

var testEnv *TestEnv

// SetupTestEnvironment returns the shared environment, starting containers
// on first use. CI environments can point DATABASE_URL / REDIS_URL at
// external services instead.
func SetupTestEnvironment(t *testing.T) *TestEnv {
	if testing.Short() {
		t.Skip("integration tests skipped in short mode")
	}
	if testEnv != nil {
		return testEnv
	}

	ctx := context.Background()
	logger := zap.NewNop()

	dsn := os.Getenv("DATABASE_URL")
	redisURL := os.Getenv("REDIS_URL")

	env := &TestEnv{ctx: ctx}

	if dsn == "" {
		postgresContainer, err := tcpostgres.RunContainer(ctx,
			testcontainers.WithImage("postgres:16-alpine"),
			tcpostgres.WithDatabase("csms_test"),
			tcpostgres.WithUsername("csms"),
			tcpostgres.WithPassword("csms_test"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second),
			),
		)
		if err != nil {
			t.Fatalf("Failed to start postgres container: %v", err)
		}
		env.postgresContainer = postgresContainer

		host, err := postgresContainer.Host(ctx)
		if err != nil {
			t.Fatalf("Failed to get postgres host: %v", err)
		}
		port, err := postgresContainer.MappedPort(ctx, "5432")
		if err != nil {
			t.Fatalf("Failed to get postgres port: %v", err)
		}
		dsn = fmt.Sprintf("postgres://csms:csms_test@%s:%s/csms_test?sslmode=disable", host, port.Port())
	}

	if redisURL == "" {
		redisContainer, err := tcredis.RunContainer(ctx,
			testcontainers.WithImage("redis:7-alpine"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("Ready to accept connections").
					WithStartupTimeout(60*time.Second),
			),
		)
		if err != nil {
			t.Fatalf("Failed to start redis container: %v", err)
		}
		env.redisContainer = redisContainer

		host, err := redisContainer.Host(ctx)
		if err != nil {
			t.Fatalf("Failed to get redis host: %v", err)
		}
		port, err := redisContainer.MappedPort(ctx, "6379")
		if err != nil {
			t.Fatalf("Failed to get redis port: %v", err)
		}
		redisURL = fmt.Sprintf("redis://%s:%s", host, port.Port())
	}

	db, err := pgstore.NewConnection(dsn, logger)
	if err != nil {
		t.Fatalf("Failed to connect to postgres: %v", err)
	}
	if err := pgstore.RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	env.DB = db
	env.Repos = pgstore.NewProvider(db, logger)

	redisCache, err := cache.NewRedisCache(redisURL, logger)
	if err != nil {
		t.Fatalf("Failed to connect to redis: %v", err)
	}
	env.Cache = redisCache

	testEnv = env
	return testEnv
}

// CleanDatabase truncates all tables between tests.
func CleanDatabase(t *testing.T, db *gorm.DB) {
	tables := []string{
		"transaction_billings",
		"charging_profiles",
		"reservations",
		"transactions",
		"connectors",
		"charge_points",
		"id_tags",
		"tariffs",
	}
	for _, table := range tables {
		if err := db.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error; err != nil {
			t.Logf("Failed to truncate %s: %v", table, err)
		}
	}
}
