package main

import (
	"context"
	"errors"
	"strings"
	"time"
)

var ErrUserExists = errors.New("account already exists")

// Account is a registered, Google or guest user
type Account struct {
	ID        int64
	Email     string
	Name      string
	Avatar    string
	PassHash  string
	GoogleID  string
	Guest     bool
	CreatedAt time.Time
}

// Info returns the display metadata carried in room tokens
func (a *Account) Info() UserInfo {
	return UserInfo{Name: a.Name, Email: a.Email, Avatar: a.Avatar}
}

// Store persists accounts, settings and the room event log. Lookups return
// (nil, nil) when nothing matches.
type Store interface {
	CreateAccount(ctx context.Context, email, name, passHash string) (*Account, error)
	CreateGuest(ctx context.Context, email, name string) (*Account, error)
	AccountByEmail(ctx context.Context, email string) (*Account, error)
	UpsertGoogleAccount(ctx context.Context, googleID, email, name, avatar string) (*Account, error)

	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error

	InsertEvents(ctx context.Context, events []RoomEvent) error
	EventCounts(ctx context.Context, since time.Time) (map[string]int, error)

	Close() error
}

// OpenStore picks the backend from the DSN: postgres:// URLs use Postgres,
// anything else is a SQLite file path.
func OpenStore(ctx context.Context, dsn string) (Store, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return OpenPGStore(ctx, dsn)
	}
	return OpenDB(dsn)
}
