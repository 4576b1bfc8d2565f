// Package testutils holds helpers shared by package tests: throwaway
// databases, a Redis container and HTTP request plumbing for fiber apps.
package testutils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/amirasaad/finboard/infra"
	"github.com/amirasaad/finboard/pkg/config"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewTestDB opens a private in-memory SQLite database with the schema
// migrated.
func NewTestDB(tb testing.TB) *gorm.DB {
	tb.Helper()
	db, err := infra.NewDBConnection(&config.DB{
		Driver:          "sqlite",
		Url:             "file::memory:?_foreign_keys=off",
		ConnMaxLifetime: time.Hour,
		AutoMigrate:     true,
	}, "test")
	require.NoError(tb, err)
	tb.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// skipWithoutDocker skips tb when no healthy container provider is
// reachable. Provider discovery panics when Docker is missing entirely.
func skipWithoutDocker(tb testing.TB) {
	tb.Helper()
	if t, ok := tb.(*testing.T); ok {
		testcontainers.SkipIfProviderIsNotHealthy(t)
		return
	}
	defer func() {
		if r := recover(); r != nil {
			tb.Skipf("container provider unavailable: %v", r)
		}
	}()
	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		tb.Skipf("container provider unavailable: %v", err)
	}
	defer provider.Close() //nolint:errcheck
	if err := provider.Health(context.Background()); err != nil {
		tb.Skipf("container provider unhealthy: %v", err)
	}
}

// StartRedis starts a throwaway Redis container and returns a client for
// it. The test is skipped when no container runtime is available.
func StartRedis(tb testing.TB) *redis.Client {
	tb.Helper()
	if testing.Short() {
		tb.Skip("skipping Redis container in short mode")
	}
	skipWithoutDocker(tb)
	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7.2-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		tb.Skipf("redis container unavailable: %v", err)
	}
	tb.Cleanup(func() { _ = container.Terminate(ctx) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(tb, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	tb.Cleanup(func() { _ = client.Close() })
	require.NoError(tb, client.Ping(ctx).Err())
	return client
}

// StartPostgres starts a throwaway Postgres container, applies the
// versioned migrations and returns a connection to it. The test is skipped
// when no container runtime is available.
func StartPostgres(tb testing.TB) *gorm.DB {
	tb.Helper()
	if testing.Short() {
		tb.Skip("skipping Postgres container in short mode")
	}
	skipWithoutDocker(tb)
	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:15-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_DB":       "testdb",
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		tb.Skipf("postgres container unavailable: %v", err)
	}
	tb.Cleanup(func() { _ = container.Terminate(ctx) })

	endpoint, err := container.PortEndpoint(ctx, "5432/tcp", "")
	require.NoError(tb, err)

	db, err := infra.NewDBConnection(&config.DB{
		Driver:          "postgres",
		Url:             fmt.Sprintf("postgres://test:test@%s/testdb?sslmode=disable", endpoint),
		MaxOpenConns:    5,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
	}, "test")
	require.NoError(tb, err)
	tb.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	require.NoError(tb, infra.RunMigrations(db, DiscardLogger()))
	return db
}

// MakeRequest sends a request through app.Test. A non-empty body is sent
// as JSON and a non-empty token as a bearer credential.
func MakeRequest(tb testing.TB, app *fiber.App, method, path, body, token string) *http.Response {
	tb.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(tb, err)
	return resp
}

// DecodeJSON reads resp's body into a T.
func DecodeJSON[T any](tb testing.TB, resp *http.Response) T {
	tb.Helper()
	defer resp.Body.Close() //nolint:errcheck
	var out T
	require.NoError(tb, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// ReadBody returns resp's body as a string.
func ReadBody(tb testing.TB, resp *http.Response) string {
	tb.Helper()
	defer resp.Body.Close() //nolint:errcheck
	b, err := io.ReadAll(resp.Body)
	require.NoError(tb, err)
	return string(b)
}
