package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"

	"database/sql"
)

// DB wraps the sqlite connection pool.
type DB struct {
	*sql.DB
	logger *zerolog.Logger
}

var (
	ErrNotFound               = errors.New("not found")
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrSlotTaken              = errors.New("slot already taken")
)

// NewDB opens the database and creates tables if they don't exist.
// _txlock=immediate makes every write transaction take the sqlite write lock
// at BEGIN, so the conflict check and the reservation insert inside one
// transaction are serialized against concurrent creates.
func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_txlock=immediate"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	instance := &DB{DB: db, logger: logger}

	if err := instance.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("Database initialized")
	return instance, nil
}

func (db *DB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS spaces (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			owner_id INTEGER NOT NULL,
			address TEXT NOT NULL,
			lat REAL,
			lng REAL,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			is_available BOOLEAN NOT NULL DEFAULT 1,
			hourly_rate REAL NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS availability_rules (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			space_id INTEGER NOT NULL,
			kind TEXT NOT NULL,
			weekday INTEGER,
			date TEXT,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			enabled BOOLEAN NOT NULL DEFAULT 1,
			hourly_rate REAL NOT NULL DEFAULT 0,
			FOREIGN KEY(space_id) REFERENCES spaces(id)
		)`,

		`CREATE TABLE IF NOT EXISTS reservations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			uuid TEXT UNIQUE NOT NULL,
			space_id INTEGER NOT NULL,
			requester_id INTEGER NOT NULL,
			start_time DATETIME NOT NULL,
			end_time DATETIME NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			payment_status TEXT NOT NULL DEFAULT 'unpaid',
			total_amount REAL NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			cancelled_at DATETIME,
			completed_at DATETIME,
			version INTEGER NOT NULL DEFAULT 1,
			FOREIGN KEY(space_id) REFERENCES spaces(id)
		)`,

		// Serves the conflict query: space_id + status filter + window bounds.
		`CREATE INDEX IF NOT EXISTS idx_reservations_space_status_start
			ON reservations(space_id, status, start_time)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_requester ON reservations(requester_id)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_status_end ON reservations(status, end_time)`,

		`CREATE INDEX IF NOT EXISTS idx_rules_space ON availability_rules(space_id)`,
		`CREATE INDEX IF NOT EXISTS idx_spaces_active ON spaces(is_active, is_available)`,
		`CREATE INDEX IF NOT EXISTS idx_spaces_owner ON spaces(owner_id)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

// Ping verifies the connection with a bounded deadline.
func (db *DB) Ping(ctx context.Context) error {
	ctxPing, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	return db.PingContext(ctxPing)
}

func (db *DB) Close() error {
	return db.DB.Close()
}
