package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestDB is a throwaway Postgres instance with the full schema applied.
type TestDB struct {
	Pool      *pgxpool.Pool
	ConnStr   string
	container *postgres.PostgresContainer
}

// SetupTestDB starts a Postgres container and runs all migrations
// against it. Call Teardown when the test binary is done with it.
func SetupTestDB(ctx context.Context) (*TestDB, error) {
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("linksight_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("start postgres container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, terminate(ctx, container, fmt.Errorf("container connection string: %w", err))
	}

	if err := applyMigrations(connStr); err != nil {
		return nil, terminate(ctx, container, fmt.Errorf("apply migrations: %w", err))
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, terminate(ctx, container, fmt.Errorf("open pool: %w", err))
	}

	return &TestDB{Pool: pool, ConnStr: connStr, container: container}, nil
}

// Cleanup resets all rows and identity sequences between tests.
func (t *TestDB) Cleanup(ctx context.Context) {
	if t == nil || t.Pool == nil {
		return
	}
	_, _ = t.Pool.Exec(ctx, "TRUNCATE TABLE visits, urls, users RESTART IDENTITY CASCADE")
}

// Teardown closes the pool and terminates the container.
func (t *TestDB) Teardown(ctx context.Context) {
	if t.Pool != nil {
		t.Pool.Close()
	}
	if t.container != nil {
		_ = t.container.Terminate(ctx)
	}
}

// terminate tears the container down after a setup failure and keeps
// the original error.
func terminate(ctx context.Context, c testcontainers.Container, err error) error {
	_ = c.Terminate(ctx)
	return err
}

// applyMigrations runs the schema files relative to this source file so
// tests work regardless of the package they run from.
func applyMigrations(connStr string) error {
	_, filename, _, _ := runtime.Caller(0)
	schemaDir := filepath.Join(filepath.Dir(filename), "../../migrations/schema")

	m, err := migrate.New("file://"+schemaDir, connStr)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}
