// Package store wraps the two persistence backends behind one Handle type.
//
// The primary is a network PostgreSQL database that may be unreachable at
// any moment. The mirror is a local SQLite file that is always available and
// additionally owns the offline queue. Repositories are written once against
// Handle; each backend's Dialect resolves placeholder style, timestamp
// encoding and error classification, so callers never branch on backend.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/dmitrijs2005/timekeeper/internal/dbx"
)

// Role identifies which backend a Handle talks to.
type Role int

const (
	RolePrimary Role = iota
	RoleMirror
)

func (r Role) String() string {
	switch r {
	case RolePrimary:
		return "primary"
	case RoleMirror:
		return "mirror"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// Handle is a connection to one backend, or a transaction on it.
type Handle interface {
	Role() Role
	Dialect() Dialect
	// DB returns the executor for statements; inside WithTx it is the transaction.
	DB() dbx.DBTX
	// WithTx runs fn in a transaction. fn must use the Handle it receives,
	// not the outer one. Nested calls reuse the open transaction.
	WithTx(ctx context.Context, fn func(ctx context.Context, h Handle) error) error
	Ping(ctx context.Context) error
	Close() error
}

// handle is the shared *sql.DB-backed implementation.
type handle struct {
	role    Role
	dialect Dialect
	db      *sql.DB
}

func (h *handle) Role() Role       { return h.role }
func (h *handle) Dialect() Dialect { return h.dialect }
func (h *handle) DB() dbx.DBTX     { return h.db }

// SQL exposes the pool, for migrations.
func (h *handle) SQL() *sql.DB { return h.db }

func (h *handle) WithTx(ctx context.Context, fn func(ctx context.Context, h Handle) error) error {
	err := dbx.WithTx(ctx, h.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, &txHandle{role: h.role, dialect: h.dialect, tx: tx})
	})
	return h.dialect.Classify(err)
}

func (h *handle) Ping(ctx context.Context) error {
	return h.dialect.Classify(h.db.PingContext(ctx))
}

func (h *handle) Close() error {
	return h.db.Close()
}

type txHandle struct {
	role    Role
	dialect Dialect
	tx      *sql.Tx
}

func (t *txHandle) Role() Role       { return t.role }
func (t *txHandle) Dialect() Dialect { return t.dialect }
func (t *txHandle) DB() dbx.DBTX     { return t.tx }

func (t *txHandle) WithTx(ctx context.Context, fn func(ctx context.Context, h Handle) error) error {
	return fn(ctx, t)
}

func (t *txHandle) Ping(context.Context) error { return nil }
func (t *txHandle) Close() error               { return nil }

// Fail classifies a driver error for h. Not-found is returned bare so callers
// can compare it directly; everything else gets the "db error" prefix.
func Fail(h Handle, err error) error {
	if err == nil {
		return nil
	}
	err = h.Dialect().Classify(err)
	if errors.Is(err, common.ErrorNotFound) {
		return common.ErrorNotFound
	}
	return fmt.Errorf("%s db error: %w", h.Role(), err)
}
