// Package sqlite provides a SQLite-backed storage driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"entgo.io/ent/dialect"
	_ "github.com/mattn/go-sqlite3"

	"github.com/authorid/authorid/pkg/storage/sqlstore"
)

// Driver implements storage.Driver using SQLite via the shared SQL store.
type Driver struct {
	*sqlstore.Store
}

// NewDriver creates a new SQLite-backed driver.
// The dbPath can be a file path or ":memory:" for an in-memory database.
func NewDriver(ctx context.Context, dbPath string) (*Driver, error) {
	// Open the database using the github.com/mattn/go-sqlite3 driver (registered as "sqlite3")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps ":memory:" databases alive and serializes
	// writers, which SQLite requires anyway.
	db.SetMaxOpenConns(1)

	// SQLite-specific pragmas
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store, err := sqlstore.New(ctx, db, dialect.SQLite)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Driver{Store: store}, nil
}
