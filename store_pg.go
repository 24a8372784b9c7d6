package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore is the Postgres implementation of Store
type PGStore struct {
	Pool *pgxpool.Pool
}

var _ Store = (*PGStore)(nil)

const pgSchema = `
CREATE TABLE IF NOT EXISTS accounts (
	id BIGSERIAL PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL DEFAULT '',
	avatar TEXT NOT NULL DEFAULT '',
	pass_hash TEXT NOT NULL DEFAULT '',
	google_id TEXT UNIQUE,
	is_guest BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS room_events (
	id BIGSERIAL PRIMARY KEY,
	event_type TEXT NOT NULL,
	room TEXT NOT NULL,
	identity TEXT NOT NULL DEFAULT '',
	data TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_room_events_created ON room_events(created_at);
`

// OpenPGStore connects a pool and applies the schema
func OpenPGStore(ctx context.Context, dsn string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	return &PGStore{Pool: pool}, nil
}

// Close releases the pool
func (s *PGStore) Close() error {
	s.Pool.Close()
	return nil
}

func pgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

const pgAccountCols = "id, email, name, avatar, pass_hash, COALESCE(google_id, ''), is_guest, created_at"

func (s *PGStore) scanAccount(row pgx.Row) (*Account, error) {
	a := &Account{}
	err := row.Scan(&a.ID, &a.Email, &a.Name, &a.Avatar, &a.PassHash, &a.GoogleID, &a.Guest, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *PGStore) CreateAccount(ctx context.Context, email, name, passHash string) (*Account, error) {
	a, err := s.scanAccount(s.Pool.QueryRow(ctx,
		`INSERT INTO accounts (email, name, pass_hash) VALUES ($1, $2, $3)
		 RETURNING `+pgAccountCols, email, name, passHash))
	if pgUniqueViolation(err) {
		return nil, ErrUserExists
	}
	return a, err
}

func (s *PGStore) CreateGuest(ctx context.Context, email, name string) (*Account, error) {
	a, err := s.scanAccount(s.Pool.QueryRow(ctx,
		`INSERT INTO accounts (email, name, is_guest) VALUES ($1, $2, TRUE)
		 RETURNING `+pgAccountCols, email, name))
	if pgUniqueViolation(err) {
		return nil, ErrUserExists
	}
	return a, err
}

func (s *PGStore) AccountByEmail(ctx context.Context, email string) (*Account, error) {
	return s.scanAccount(s.Pool.QueryRow(ctx,
		"SELECT "+pgAccountCols+" FROM accounts WHERE email = $1", email))
}

func (s *PGStore) UpsertGoogleAccount(ctx context.Context, googleID, email, name, avatar string) (*Account, error) {
	return s.scanAccount(s.Pool.QueryRow(ctx,
		`INSERT INTO accounts (email, name, avatar, google_id) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (email) DO UPDATE SET
			name = EXCLUDED.name,
			avatar = EXCLUDED.avatar,
			google_id = EXCLUDED.google_id
		 RETURNING `+pgAccountCols, email, name, avatar, googleID))
}

func (s *PGStore) GetSetting(ctx context.Context, key string) (string, error) {
	var v string
	err := s.Pool.QueryRow(ctx, "SELECT value FROM settings WHERE key = $1", key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return v, err
}

func (s *PGStore) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO settings (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, key, value)
	return err
}

// InsertEvents writes a batch of room events with one round trip
func (s *PGStore) InsertEvents(ctx context.Context, events []RoomEvent) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, evt := range events {
		batch.Queue(
			`INSERT INTO room_events (event_type, room, identity, data, created_at) VALUES ($1, $2, $3, $4, $5)`,
			evt.Type, evt.Room, evt.Identity, evt.Data, evt.Timestamp.UTC(),
		)
	}
	return s.Pool.SendBatch(ctx, batch).Close()
}

func (s *PGStore) EventCounts(ctx context.Context, since time.Time) (map[string]int, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT event_type, COUNT(*) FROM room_events WHERE created_at >= $1 GROUP BY event_type`,
		since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]int)
	for rows.Next() {
		var evtType string
		var count int64
		if err := rows.Scan(&evtType, &count); err != nil {
			return nil, err
		}
		result[evtType] = int(count)
	}
	return result, rows.Err()
}
