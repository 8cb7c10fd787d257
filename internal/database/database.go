// Package database opens the SQL backend behind the account store and makes
// sure the accounts table exists.
package database

import (
	"context"
	"embed"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Driver names as registered with database/sql.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

const (
	defaultPingTimeout  = 5 * time.Second
	defaultConnMaxIdle  = 2 * time.Minute
	defaultConnMaxLife  = 30 * time.Minute
	defaultMaxIdleConns = 5
	defaultMaxOpenConns = 25

	sqliteBusyTimeoutMillis = 5000
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Open connects to the backend named by rawURL, verifies the connection and
// bootstraps the schema. rawURL is sqlite://<path> (or a bare file path) or a
// postgres:// URL.
func Open(ctx context.Context, rawURL string) (*sqlx.DB, error) {
	driver, dsn, err := ParseURL(rawURL)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	db.SetConnMaxIdleTime(defaultConnMaxIdle)
	db.SetConnMaxLifetime(defaultConnMaxLife)
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetMaxOpenConns(defaultMaxOpenConns)
	if driver == DriverSQLite && strings.Contains(dsn, "mode=memory") {
		// The in-memory database lives only as long as its connection.
		db.SetMaxOpenConns(1)
		db.SetConnMaxIdleTime(0)
		db.SetConnMaxLifetime(0)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", driver, err)
	}

	if err := EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// EnsureSchema creates the accounts table if it does not exist yet.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	ddl, err := schemaFS.ReadFile("schema/" + db.DriverName() + ".sql")
	if err != nil {
		return fmt.Errorf("no schema for driver %s: %w", db.DriverName(), err)
	}
	if _, err := db.ExecContext(ctx, string(ddl)); err != nil {
		return fmt.Errorf("failed to create accounts table: %w", err)
	}
	return nil
}

// ParseURL maps a DATABASE_URL to a database/sql driver name and DSN.
func ParseURL(rawURL string) (driver, dsn string, err error) {
	rawURL = strings.TrimSpace(rawURL)
	switch {
	case rawURL == "":
		return "", "", fmt.Errorf("database url is empty")
	case strings.HasPrefix(rawURL, "postgres://"), strings.HasPrefix(rawURL, "postgresql://"):
		if _, err := url.Parse(rawURL); err != nil {
			return "", "", fmt.Errorf("invalid postgres url: %w", err)
		}
		return DriverPostgres, rawURL, nil
	case strings.HasPrefix(rawURL, "sqlite://"):
		return DriverSQLite, sqliteDSN(strings.TrimPrefix(rawURL, "sqlite://")), nil
	case strings.HasPrefix(rawURL, "sqlite3://"):
		return DriverSQLite, sqliteDSN(strings.TrimPrefix(rawURL, "sqlite3://")), nil
	case strings.Contains(rawURL, "://"):
		return "", "", fmt.Errorf("unsupported database url scheme in %q", rawURL)
	default:
		return DriverSQLite, sqliteDSN(rawURL), nil
	}
}

func sqliteDSN(path string) string {
	if path == "" || path == ":memory:" {
		return "file::memory:?mode=memory&cache=shared&_foreign_keys=on"
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	// Immediate transactions take the write lock at BEGIN, so a read-then-write
	// transaction waits on the busy timeout instead of failing mid-way.
	return fmt.Sprintf("file:%s%s_busy_timeout=%d&_journal_mode=WAL&_txlock=immediate&_foreign_keys=on",
		strings.TrimPrefix(path, "file:"), sep, sqliteBusyTimeoutMillis)
}
