package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "github.com/tursodatabase/libsql-client-go/libsql"

	"github.com/joshdurbin/linkvault/internal/repository/sqlstore"
)

const (
	driverSQLite = "sqlite3"
	driverLibSQL = "libsql"
)

// New opens a SQLite database and applies migrations.
// Remote libsql:// and wss:// URLs are served by the libsql driver; anything
// else is treated as a local file path (or :memory:).
func New(databasePath string) (*sqlstore.Store, error) {
	driver, dsn := driverFor(databasePath)

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection serializes writers; immediate transactions then never
	// fail on a read-to-write lock upgrade.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := sqlstore.New(db, sqlstore.SQLite)
	if err := store.Migrate(ctx, Migrations()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// driverFor picks the driver and DSN for a database path
func driverFor(databasePath string) (string, string) {
	if strings.HasPrefix(databasePath, "libsql://") || strings.HasPrefix(databasePath, "wss://") {
		return driverLibSQL, databasePath
	}

	// Foreign keys, WAL mode and busy timeout are per-connection settings
	params := "_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate"
	if databasePath == ":memory:" {
		return driverSQLite, "file::memory:?" + params
	}
	return driverSQLite, "file:" + databasePath + "?" + params
}
