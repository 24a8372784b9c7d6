package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
}

var _ Store = (*DB)(nil)

// OpenDB opens (or creates) the SQLite database
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates tables if they don't exist
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL DEFAULT '',
		avatar TEXT NOT NULL DEFAULT '',
		pass_hash TEXT NOT NULL DEFAULT '',
		google_id TEXT UNIQUE,
		is_guest INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS room_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_type TEXT NOT NULL,
		room TEXT NOT NULL,
		identity TEXT NOT NULL DEFAULT '',
		data TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_room_events_created ON room_events(created_at);
	`
	_, err := db.conn.Exec(schema)
	if err != nil {
		Log.WithError(err).Error("db migration failed")
	}
	return err
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

const accountCols = "id, email, name, avatar, pass_hash, COALESCE(google_id, ''), is_guest, created_at"

func scanAccount(row *sql.Row) (*Account, error) {
	a := &Account{}
	err := row.Scan(&a.ID, &a.Email, &a.Name, &a.Avatar, &a.PassHash, &a.GoogleID, &a.Guest, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// CreateAccount inserts a password account
func (db *DB) CreateAccount(ctx context.Context, email, name, passHash string) (*Account, error) {
	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO accounts (email, name, pass_hash) VALUES (?, ?, ?)",
		email, name, passHash,
	)
	if isUniqueViolation(err) {
		return nil, ErrUserExists
	}
	if err != nil {
		return nil, err
	}
	return db.AccountByEmail(ctx, email)
}

// CreateGuest inserts a guest account (no password)
func (db *DB) CreateGuest(ctx context.Context, email, name string) (*Account, error) {
	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO accounts (email, name, is_guest) VALUES (?, ?, 1)",
		email, name,
	)
	if isUniqueViolation(err) {
		return nil, ErrUserExists
	}
	if err != nil {
		return nil, err
	}
	return db.AccountByEmail(ctx, email)
}

// AccountByEmail returns an account by email
func (db *DB) AccountByEmail(ctx context.Context, email string) (*Account, error) {
	return scanAccount(db.conn.QueryRowContext(ctx,
		"SELECT "+accountCols+" FROM accounts WHERE email = ?", email))
}

// UpsertGoogleAccount links a Google identity, creating the account on first login
func (db *DB) UpsertGoogleAccount(ctx context.Context, googleID, email, name, avatar string) (*Account, error) {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO accounts (email, name, avatar, google_id) VALUES (?, ?, ?, ?)
		ON CONFLICT(email) DO UPDATE SET
			name = excluded.name,
			avatar = excluded.avatar,
			google_id = excluded.google_id`,
		email, name, avatar, googleID,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert google account: %w", err)
	}
	return db.AccountByEmail(ctx, email)
}

// GetSetting returns a stored setting, "" when unset
func (db *DB) GetSetting(ctx context.Context, key string) (string, error) {
	var v string
	err := db.conn.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return v, err
}

// SetSetting stores a setting
func (db *DB) SetSetting(ctx context.Context, key, value string) error {
	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}

// InsertEvents writes a batch of room events in one transaction
func (db *DB) InsertEvents(ctx context.Context, events []RoomEvent) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO room_events (event_type, room, identity, data, created_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, evt := range events {
		if _, err := stmt.ExecContext(ctx, evt.Type, evt.Room, evt.Identity, evt.Data, evt.Timestamp.UTC().Format(time.RFC3339)); err != nil {
			return fmt.Errorf("insert %s: %w", evt.Type, err)
		}
	}
	return tx.Commit()
}

// EventCounts returns counts per event type since the given time
func (db *DB) EventCounts(ctx context.Context, since time.Time) (map[string]int, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT event_type, COUNT(*) FROM room_events
		WHERE created_at >= ?
		GROUP BY event_type`, since.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]int)
	for rows.Next() {
		var evtType string
		var count int
		if err := rows.Scan(&evtType, &count); err != nil {
			return nil, err
		}
		result[evtType] = count
	}
	return result, rows.Err()
}
