// Package ledger is the authoritative store of booked slots.
// All booking invariants are enforced here, inside single transactions.
package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

// Ledger wraps the sqlite connection holding slot occupancy and user records.
type Ledger struct {
	*sql.DB
	logger *zerolog.Logger
}

var (
	// ErrSlotTaken is returned when the (slot, time) pair is already occupied.
	ErrSlotTaken = errors.New("slot already taken")
	// ErrAlreadyBooked is returned when the user already holds an active booking.
	ErrAlreadyBooked = errors.New("user already has an active booking")
	// ErrNoBooking is returned by DeleteBooking when there is nothing to cancel.
	ErrNoBooking = errors.New("no active booking")
	// ErrBadTimeSlot is returned for a time outside the fixed offered set.
	ErrBadTimeSlot = errors.New("time is not an offered slot")
)

// Open initializes the sqlite database and creates tables if they don't exist.
func Open(path string, logger *zerolog.Logger) (*Ledger, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// WAL mode and busy timeout: concurrent handlers share one file.
	// _txlock=immediate takes the write lock at BEGIN, so the check-then-insert
	// transactions in this package serialize instead of failing on upgrade.
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

	l := &Ledger{DB: db, logger: logger}
	if err := l.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("Ledger database initialized")
	return l, nil
}

func (l *Ledger) createTables() error {
	queries := []string{
		// Occupancy index: set-by-value, the unique index is the last line of
		// defense against double booking.
		`CREATE TABLE IF NOT EXISTS booked_slots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			slot_key TEXT NOT NULL,
			time_slot TEXT NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_booked_slots_key_time ON booked_slots(slot_key, time_slot)`,

		// One active record per user.
		`CREATE TABLE IF NOT EXISTS user_records (
			user_id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			day_label TEXT NOT NULL,
			slot_key TEXT NOT NULL,
			time_slot TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_user_records_slot ON user_records(slot_key, time_slot)`,
		`CREATE INDEX IF NOT EXISTS idx_user_records_created ON user_records(created_at)`,
	}

	for _, query := range queries {
		if _, err := l.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

func (l *Ledger) Close() error {
	return l.DB.Close()
}
