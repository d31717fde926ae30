package testhelpers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/poi-ingest/internal/config"
	"github.com/poi-ingest/internal/repository/sqldb"
)

// TestDB represents a test database connection
type TestDB struct {
	DB     *sqldb.DB
	Logger *zap.Logger
}

// NewSQLiteForTest открывает чистую SQLite базу во временном каталоге и применяет миграции
func NewSQLiteForTest(t *testing.T) *TestDB {
	t.Helper()

	logger := zap.NewNop()
	db, err := sqldb.New(&config.DatabaseConfig{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "poi.db"),
	}, logger)
	if err != nil {
		t.Fatalf("Failed to open sqlite: %v", err)
	}

	if err := db.Migrate(context.Background()); err != nil {
		_ = db.Close()
		t.Fatalf("Failed to migrate sqlite: %v", err)
	}

	tdb := &TestDB{DB: db, Logger: logger}
	t.Cleanup(tdb.Close)
	return tdb
}

// SetupTestDB initializes a PostgreSQL test database connection.
// Тест пропускается, если база недоступна.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	// Priority:
	// 1. Environment variables
	// 2. Default values

	host := getEnv("TEST_DB_HOST", "localhost")
	port := getEnv("TEST_DB_PORT", "5433")
	user := getEnv("TEST_DB_USER", "postgres")
	password := getEnv("TEST_DB_PASSWORD", "postgres")
	dbname := getEnv("TEST_DB_NAME", "poi_ingest_test")
	sslmode := getEnv("TEST_DB_SSLMODE", "disable")

	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode,
	)

	// Retry connection with exponential backoff to wait for DB recovery
	var db *sqlx.DB
	var err error
	maxRetries := 3
	retryDelay := 200 * time.Millisecond

	for i := 0; i < maxRetries; i++ {
		db, err = sqlx.Connect("postgres", connStr)
		if err == nil {
			break
		}

		if i < maxRetries-1 {
			t.Logf("Database not ready (attempt %d/%d), waiting %v...", i+1, maxRetries, retryDelay)
			time.Sleep(retryDelay)
			retryDelay *= 2 // exponential backoff
		}
	}

	if err != nil {
		t.Skipf("PostgreSQL not available after %d attempts: %v", maxRetries, err)
	}

	logger := zap.NewNop()
	tdb := &TestDB{
		DB:     sqldb.NewDBForTest(db, logger),
		Logger: logger,
	}

	if err := tdb.DB.Migrate(context.Background()); err != nil {
		tdb.Close()
		t.Fatalf("Failed to apply migrations: %v", err)
	}

	return tdb
}

// Close closes the database connection
func (tdb *TestDB) Close() {
	if tdb.DB != nil {
		_ = tdb.DB.Close()
		tdb.DB = nil
	}
}

// Cleanup удаляет все точки интереса
func (tdb *TestDB) Cleanup(ctx context.Context) error {
	if _, err := tdb.DB.ExecContext(ctx, "DELETE FROM points_of_interest"); err != nil {
		return fmt.Errorf("cleanup points_of_interest: %w", err)
	}
	return nil
}

// getEnv gets environment variable or returns default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
