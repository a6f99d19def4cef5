// Package persistence provides SQLite-backed storage for affinity records,
// the event journal, and session metadata.
package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/tetherbound/internal/affinity"
	"github.com/talgya/tetherbound/internal/engine"
)

// DB wraps a SQLite connection for session state persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS affinity_records (
		player_id TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		affinity REAL NOT NULL,
		betrayals INTEGER NOT NULL,
		last_ability_use REAL NOT NULL,
		PRIMARY KEY (player_id, entity_id)
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		clock REAL NOT NULL,
		kind TEXT NOT NULL,
		description TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS session_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_clock ON events(clock);
	CREATE INDEX IF NOT EXISTS idx_records_player ON affinity_records(player_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveRecords writes all affinity records to the database (full replace).
func (db *DB) SaveRecords(records []*affinity.Record) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM affinity_records"); err != nil {
		return err
	}

	stmt, err := tx.Preparex(`INSERT INTO affinity_records
		(player_id, entity_id, affinity, betrayals, last_ability_use)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		_, err := stmt.Exec(r.PlayerID, string(r.EntityID), r.Affinity, r.Betrayals, r.LastAbilityUse)
		if err != nil {
			return fmt.Errorf("insert record %s/%s: %w", r.PlayerID, r.EntityID, err)
		}
	}

	return tx.Commit()
}

// LoadRecords reads every persisted affinity record.
func (db *DB) LoadRecords() ([]affinity.Record, error) {
	var records []affinity.Record
	err := db.conn.Select(&records,
		"SELECT player_id, entity_id, affinity, betrayals, last_ability_use FROM affinity_records")
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	return records, nil
}

// SaveEvents appends events to the journal table.
func (db *DB) SaveEvents(events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range events {
		_, err := tx.Exec(
			"INSERT INTO events (clock, kind, description) VALUES (?, ?, ?)",
			e.Clock, e.Kind, e.Description,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// RecentEvents returns the most recent N persisted events.
func (db *DB) RecentEvents(limit int) ([]engine.Event, error) {
	var events []engine.Event
	err := db.conn.Select(&events,
		"SELECT clock, kind, description FROM events ORDER BY id DESC LIMIT ?",
		limit,
	)
	return events, err
}

// SaveMeta stores a key-value pair in session metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO session_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value. Missing keys return empty, not an error.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM session_meta WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// SaveSession flushes the full persistent surface of a session: every
// affinity record, the pending event journal, and the clock.
func (db *DB) SaveSession(s *engine.Session) error {
	records := s.Ledger.All()
	slog.Info("saving session state", "records", len(records), "events", len(s.Events))

	if err := db.SaveRecords(records); err != nil {
		return fmt.Errorf("save records: %w", err)
	}
	if err := db.SaveEvents(s.Events); err != nil {
		return fmt.Errorf("save events: %w", err)
	}
	if err := db.SaveMeta("clock", strconv.FormatFloat(s.Clock, 'f', -1, 64)); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}

	// Journaled events are durable now; drop them from memory.
	s.Events = s.Events[:0]
	return nil
}

// LoadClock restores the persisted session clock, or 0 for a fresh session.
func (db *DB) LoadClock() (float64, error) {
	v, err := db.GetMeta("clock")
	if err != nil || v == "" {
		return 0, err
	}
	clock, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", v, err)
	}
	return clock, nil
}
