// Package testutil provides a Postgres database for integration tests.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB is a schema-initialized database plus the container backing it, if any
type TestDB struct {
	DB        *gorm.DB
	container *postgres.PostgresContainer
}

// StartPostgres connects to the database named by TEST_DB_* variables or, when TEST_DB_HOST
// is unset, starts a postgres:18-alpine container. The schema and seed data under db/ are applied.
func StartPostgres(ctx context.Context) (*TestDB, error) {
	dsn, container, err := resolveDSN(ctx)
	if err != nil {
		return nil, err
	}
	tdb := &TestDB{container: container}

	tdb.DB, err = gorm.Open(pgdriver.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		tdb.Terminate(ctx)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := applySQL(tdb.DB, "init_pg_db.sql", true); err != nil {
		tdb.Terminate(ctx)
		return nil, err
	}
	if err := applySQL(tdb.DB, "pg_test_data.sql", false); err != nil {
		tdb.Terminate(ctx)
		return nil, err
	}

	return tdb, nil
}

// Terminate stops the container started by StartPostgres
func (t *TestDB) Terminate(ctx context.Context) {
	if t == nil || t.container == nil {
		return
	}
	if err := t.container.Terminate(ctx); err != nil {
		fmt.Printf("Failed to terminate PostgreSQL container: %v\n", err)
	}
}

// Truncate empties the given tables; used by tests that cannot run inside a rolled back transaction
func (t *TestDB) Truncate(tables ...string) error {
	for _, table := range tables {
		if err := t.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)).Error; err != nil {
			return fmt.Errorf("failed to truncate %s: %w", table, err)
		}
	}
	return nil
}

func resolveDSN(ctx context.Context) (string, *postgres.PostgresContainer, error) {
	if host := os.Getenv("TEST_DB_HOST"); host != "" {
		dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			host,
			envOr("TEST_DB_PORT", "5432"),
			envOr("TEST_DB_USER", "postgres"),
			envOr("TEST_DB_PASSWORD", "postgres"),
			envOr("TEST_DB_NAME", "test_db"))
		fmt.Printf("Using external database: %s\n", host)
		return dsn, nil, nil
	}

	container, err := postgres.Run(ctx,
		"postgres:18-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		return "", nil, fmt.Errorf("failed to start PostgreSQL container: %w", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return "", nil, fmt.Errorf("failed to get connection string: %w", err)
	}
	return dsn, container, nil
}

func applySQL(db *gorm.DB, name string, required bool) error {
	dir, err := dbDir()
	if err != nil {
		return err
	}

	path := filepath.Join(dir, name)
	content, err := os.ReadFile(path) //nolint:gosec,G304
	if err != nil {
		if !required && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", name, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if _, err := sqlDB.Exec(string(content)); err != nil {
		return fmt.Errorf("failed to execute %s: %w", name, err)
	}
	return nil
}

// dbDir walks up from the working directory to the module root and returns its db/ directory
func dbDir() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return filepath.Join(dir, "db"), nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("module root not found")
		}
		dir = parent
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
