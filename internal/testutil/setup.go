package testutil

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/fabienpiette/partfox/internal/config"
	"github.com/fabienpiette/partfox/internal/database"
)

// SetupTestDB creates a migrated SQLite database in a temporary directory
func SetupTestDB(t *testing.T) *database.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := database.Initialize(dbPath)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// SetupTestRedis starts a Redis container for testing. Callers skip it
// under -short.
func SetupTestRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	mappedPort, err := redisContainer.MappedPort(ctx, "6379")
	require.NoError(t, err)

	host, err := redisContainer.Host(ctx)
	require.NoError(t, err)

	redisClient := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", host, mappedPort.Port()),
		DB:   0,
	})

	err = redisClient.Ping(ctx).Err()
	require.NoError(t, err)

	cleanup := func() {
		redisClient.Close()
		if err := redisContainer.Terminate(ctx); err != nil {
			t.Logf("Warning: failed to terminate redis container: %v", err)
		}
	}

	return redisClient, cleanup
}

// GetTestConfig returns a configuration for testing. The catalog points at
// catalogURL with a static token; Redis is disabled.
func GetTestConfig(t *testing.T, catalogURL string) *config.Config {
	t.Helper()

	return &config.Config{
		Environment: "test",
		Server: config.ServerConfig{
			Port:                8080,
			Host:                "localhost",
			ReadTimeoutSeconds:  30,
			WriteTimeoutSeconds: 30,
			IdleTimeoutSeconds:  120,
		},
		Database: config.DatabaseConfig{
			Path: filepath.Join(t.TempDir(), "test.db"),
		},
		Redis: config.RedisConfig{
			Enabled: false,
			Host:    "localhost",
			Port:    6379,
			DB:      1,
		},
		Log: config.LogConfig{
			Level: "debug",
		},
		Catalog: config.CatalogConfig{
			BaseURL:            catalogURL,
			StaticToken:        "test-static-token",
			TimeoutSeconds:     5,
			RateLimitRequests:  1000,
			RateLimitWindow:    1,
			RetryCount:         0,
			TokenMinTTLSeconds: 30,
		},
		Search: config.SearchConfig{
			PageSize:          15,
			TermPageSize:      500,
			CategoryPageSize:  5000,
			DetailPageSize:    200,
			CacheTTL:          5,
			ReferenceCacheTTL: 1,
			HistoryEnabled:    true,
		},
		Autocomplete: config.AutocompleteConfig{
			HistorySize:    4,
			Similarity:     "distance",
			MaxDistance:    2,
			MinRatio:       0.6,
			MaxSuggestions: 8,
			LivePageSize:   20,
		},
	}
}

// SetupTestLogger creates a logger for testing. Output is discarded unless
// the test runs with -v.
func SetupTestLogger(t *testing.T) *logrus.Logger {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)
	logger.SetFormatter(&logrus.TextFormatter{
		DisableColors:   true,
		TimestampFormat: time.RFC3339,
	})

	if !testing.Verbose() {
		logger.SetOutput(io.Discard)
	}

	return logger
}

// WaitForCondition waits for a condition to be true with timeout
func WaitForCondition(t *testing.T, condition func() bool, timeout time.Duration, message string) {
	t.Helper()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	timeoutCh := time.After(timeout)

	for {
		if condition() {
			return
		}
		select {
		case <-ticker.C:
		case <-timeoutCh:
			t.Fatalf("Timeout waiting for condition: %s", message)
		}
	}
}
