// Package database persists generated layouts in SQLite or PostgreSQL.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/lawnchairsociety/roomgen/internal/logger"
)

// Database wraps the connection together with its dialect.
type Database struct {
	db      *sql.DB
	dialect Dialect
	qb      *QueryBuilder
}

// Open connects to the configured database and migrates the schema.
func Open(cfg Config) (*Database, error) {
	dialect := NewDialect(DialectType(cfg.Driver))

	var dsn string
	switch dialect.(type) {
	case *PostgresDialect:
		dsn = cfg.Postgres.ConnString()
	default:
		if cfg.SQLitePath == "" {
			return nil, fmt.Errorf("database: sqlite path is empty")
		}
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = cfg.SQLitePath
	}

	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, ok := dialect.(*SQLiteDialect); ok {
		// PRAGMAs are per connection
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.Postgres.ConnMaxLifetime)
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
	}

	for _, stmt := range dialect.InitStatements() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init statement %q failed: %w", stmt, err)
		}
	}

	d := &Database{db: db, dialect: dialect, qb: NewQueryBuilder(dialect)}
	if err := d.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Debug("database opened", "driver", dialect.DriverName())
	return d, nil
}

// OpenSQLite opens or creates the SQLite database at path.
func OpenSQLite(path string) (*Database, error) {
	return Open(DefaultConfig(path))
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// Dialect returns the active dialect.
func (d *Database) Dialect() Dialect {
	return d.dialect
}

// migrate creates the schema if it doesn't exist.
func (d *Database) migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS layouts (
			id ` + d.dialect.SerialPrimaryKey() + `,
			digest TEXT UNIQUE NOT NULL,
			seed BIGINT NOT NULL,
			room_count INTEGER NOT NULL,
			block_count INTEGER NOT NULL,
			generated_at TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS layout_rooms (
			layout_id BIGINT NOT NULL REFERENCES layouts(id) ON DELETE CASCADE,
			room_index INTEGER NOT NULL,
			partitioned BOOLEAN NOT NULL,
			door_count INTEGER NOT NULL,
			PRIMARY KEY (layout_id, room_index)
		)`,

		`CREATE TABLE IF NOT EXISTS layout_blocks (
			layout_id BIGINT NOT NULL REFERENCES layouts(id) ON DELETE CASCADE,
			room_index INTEGER NOT NULL,
			position INTEGER NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			side_up TEXT NOT NULL,
			side_right TEXT NOT NULL,
			side_down TEXT NOT NULL,
			side_left TEXT NOT NULL,
			PRIMARY KEY (layout_id, room_index, position),
			UNIQUE (layout_id, x, y)
		)`,

		`CREATE TABLE IF NOT EXISTS layout_neighbors (
			layout_id BIGINT NOT NULL REFERENCES layouts(id) ON DELETE CASCADE,
			room_index INTEGER NOT NULL,
			neighbor_index INTEGER NOT NULL,
			PRIMARY KEY (layout_id, room_index, neighbor_index)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_layout_blocks_room ON layout_blocks(layout_id, room_index)`,
	}

	for _, m := range migrations {
		if _, err := d.db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// DB returns the underlying sql.DB for advanced operations.
func (d *Database) DB() *sql.DB {
	return d.db
}
