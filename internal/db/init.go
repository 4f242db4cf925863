// Package db opens the relational store backing boards and accounts and
// applies its schema. PostgreSQL DSNs are served by lib/pq; anything else is
// treated as a SQLite database path served by modernc.org/sqlite.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect names the SQL flavor of an open database. Its value doubles as the
// database/sql driver name.
type Dialect string

const (
	// Postgres is served by github.com/lib/pq.
	Postgres Dialect = "postgres"
	// SQLite is served by modernc.org/sqlite.
	SQLite Dialect = "sqlite"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS accounts (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS passwords (
    account_id TEXT PRIMARY KEY REFERENCES accounts(id) ON DELETE CASCADE,
    hash TEXT NOT NULL,
    salt TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS boards (
    id BIGSERIAL PRIMARY KEY,
    name TEXT NOT NULL,
    color TEXT NOT NULL DEFAULT '',
    account_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_boards_account ON boards(account_id);

CREATE TABLE IF NOT EXISTS board_columns (
    id BIGSERIAL PRIMARY KEY,
    board_id BIGINT NOT NULL REFERENCES boards(id) ON DELETE CASCADE,
    name TEXT NOT NULL DEFAULT '',
    sort_order BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_board_columns_board ON board_columns(board_id, sort_order);

CREATE TABLE IF NOT EXISTS items (
    id BIGSERIAL PRIMARY KEY,
    column_id BIGINT NOT NULL REFERENCES board_columns(id) ON DELETE CASCADE,
    title TEXT NOT NULL,
    content TEXT,
    sort_order BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_items_column ON items(column_id, sort_order);
`

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS accounts (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS passwords (
    account_id TEXT PRIMARY KEY REFERENCES accounts(id) ON DELETE CASCADE,
    hash TEXT NOT NULL,
    salt TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS boards (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    color TEXT NOT NULL DEFAULT '',
    account_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_boards_account ON boards(account_id);

CREATE TABLE IF NOT EXISTS board_columns (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    board_id INTEGER NOT NULL REFERENCES boards(id) ON DELETE CASCADE,
    name TEXT NOT NULL DEFAULT '',
    sort_order INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_board_columns_board ON board_columns(board_id, sort_order);

CREATE TABLE IF NOT EXISTS items (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    column_id INTEGER NOT NULL REFERENCES board_columns(id) ON DELETE CASCADE,
    title TEXT NOT NULL,
    content TEXT,
    sort_order INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_items_column ON items(column_id, sort_order);
`

// DialectFor picks the dialect for a DSN.
func DialectFor(dsn string) Dialect {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return Postgres
	}
	return SQLite
}

// Rebind rewrites '?' placeholders into the dialect's native form.
// Queries in this module never contain a literal question mark.
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Open connects to the database named by dsn, verifies the connection and
// creates the schema if it does not exist yet.
func Open(ctx context.Context, dsn string) (*sql.DB, Dialect, error) {
	dialect := DialectFor(dsn)

	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, dialect, fmt.Errorf("open %s: %w", dialect, err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, dialect, fmt.Errorf("ping %s: %w", dialect, err)
	}

	switch dialect {
	case SQLite:
		if err := configureSQLite(ctx, db); err != nil {
			_ = db.Close()
			return nil, dialect, err
		}
	case Postgres:
		db.SetConnMaxIdleTime(5 * time.Minute)
		db.SetConnMaxLifetime(30 * time.Minute)
		db.SetMaxIdleConns(10)
		db.SetMaxOpenConns(20)
	}

	if _, err := db.ExecContext(ctx, schemaFor(dialect)); err != nil {
		_ = db.Close()
		return nil, dialect, fmt.Errorf("create schema: %w", err)
	}

	return db, dialect, nil
}

func configureSQLite(ctx context.Context, db *sql.DB) error {
	// One connection: a single writer, and ":memory:" stays one database.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return nil
}

func schemaFor(dialect Dialect) string {
	if dialect == Postgres {
		return postgresSchema
	}
	return sqliteSchema
}
