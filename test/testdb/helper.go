package testdb

import (
	"os"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/selivandex/news-pulse/internal/adapters/database"
)

// TestDB is a migrated PostgreSQL database whose tables are emptied after each test
type TestDB struct {
	DB *database.DB
}

// Setup connects to TEST_DATABASE_URL and applies migrations.
// The test is skipped when the variable is not set.
func Setup(t *testing.T) *TestDB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}

	conn, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	db := database.Wrap(conn)
	if err := database.RunMigrations(db.Conn()); err != nil {
		conn.Close()
		t.Fatalf("failed to migrate test database: %v", err)
	}

	tdb := &TestDB{DB: db}
	tdb.truncate(t)

	t.Cleanup(func() {
		tdb.truncate(t)
		if err := db.Close(); err != nil {
			t.Logf("warning: failed to close database: %v", err)
		}
	})

	return tdb
}

// SQL returns the sqlx handle repositories are built on
func (tdb *TestDB) SQL() *sqlx.DB {
	return tdb.DB.DB()
}

func (tdb *TestDB) truncate(t *testing.T) {
	t.Helper()

	if _, err := tdb.DB.DB().Exec(`TRUNCATE articles, topic_stats, market_pulse`); err != nil {
		t.Fatalf("failed to truncate tables: %v", err)
	}
}

// Exec executes SQL against the test database
func (tdb *TestDB) Exec(t *testing.T, query string, args ...interface{}) {
	t.Helper()

	if _, err := tdb.DB.DB().Exec(query, args...); err != nil {
		t.Fatalf("failed to execute query: %v\nQuery: %s", err, query)
	}
}

// Count returns SELECT COUNT(*) of a table with an optional WHERE clause
func (tdb *TestDB) Count(t *testing.T, table, where string, args ...interface{}) int {
	t.Helper()

	query := "SELECT COUNT(*) FROM " + table
	if where != "" {
		query += " WHERE " + where
	}

	var count int
	if err := tdb.DB.DB().Get(&count, query, args...); err != nil {
		t.Fatalf("failed to count %s: %v", table, err)
	}
	return count
}
