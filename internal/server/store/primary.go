package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PrimaryHandle talks to the authoritative relational store.
type PrimaryHandle struct {
	handle
	timeout time.Duration
}

// OpenPrimary prepares a pgx-backed pool. No connection is made here: the
// primary may be down at startup, and the pool dials lazily.
func OpenPrimary(dsn string, timeout time.Duration) (*PrimaryHandle, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxIdleTime(time.Minute)
	return NewPrimaryHandle(db, PostgresDialect{}, timeout), nil
}

// NewPrimaryHandle wraps an existing pool. Tests use it to put a SQLite file
// in the primary's place.
func NewPrimaryHandle(db *sql.DB, dialect Dialect, timeout time.Duration) *PrimaryHandle {
	return &PrimaryHandle{
		handle:  handle{role: RolePrimary, dialect: dialect, db: db},
		timeout: timeout,
	}
}

// Ping checks reachability within the configured timeout.
func (h *PrimaryHandle) Ping(ctx context.Context) error {
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}
	return h.handle.Ping(ctx)
}
