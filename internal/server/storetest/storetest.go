// Package storetest builds throwaway store handles for tests: a migrated
// mirror, a SQLite file standing in for the primary, and a primary that can
// never be reached.
package storetest

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/dmitrijs2005/timekeeper/internal/server/migrations"
	"github.com/dmitrijs2005/timekeeper/internal/server/store"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"
)

// Migrate applies the mirror schema. Both test backends use it.
func Migrate(ctx context.Context, db *sql.DB, _ store.Dialect) error {
	p, err := goose.NewProvider(goose.DialectSQLite3, db, migrations.SQLite())
	if err != nil {
		return err
	}
	_, err = p.Up(ctx)
	return err
}

// Mirror opens a fresh mirror in t's temp dir.
func Mirror(t testing.TB) *store.MirrorHandle {
	t.Helper()
	h, err := store.OpenMirror(context.Background(), filepath.Join(t.TempDir(), "local.db"), Migrate)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return h
}

// Primary opens a SQLite file behind a PrimaryHandle.
func Primary(t testing.TB) *store.PrimaryHandle {
	t.Helper()
	m, err := store.OpenMirror(context.Background(), filepath.Join(t.TempDir(), "primary.db"), Migrate)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return store.NewPrimaryHandle(m.SQL(), store.SQLiteDialect{}, time.Second)
}

// unreachableDialect reports every failure as a connectivity problem.
type unreachableDialect struct{ store.SQLiteDialect }

func (unreachableDialect) Classify(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", common.ErrStoreUnavailable, err)
}

// Unreachable returns a primary whose every call fails with ErrStoreUnavailable.
func Unreachable(t testing.TB) *store.PrimaryHandle {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+filepath.Join(t.TempDir(), "missing", "primary.db")+"?mode=rw")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return store.NewPrimaryHandle(db, unreachableDialect{}, time.Second)
}
