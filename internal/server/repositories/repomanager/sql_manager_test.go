package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/timekeeper/internal/server/repositories/queue"
	"github.com/dmitrijs2005/timekeeper/internal/server/repositories/records"
	"github.com/dmitrijs2005/timekeeper/internal/server/repositories/users"
	"github.com/dmitrijs2005/timekeeper/internal/server/store"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type unknownDialect struct{ store.SQLiteDialect }

func (unknownDialect) Name() string { return "oracle" }

func TestManager_VendsRepositories(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	h := store.NewPrimaryHandle(db, store.PostgresDialect{}, 0)
	m := NewRepositoryManager()

	assert.IsType(t, &users.SQLRepository{}, m.Users(h))
	assert.IsType(t, &records.SQLRepository{}, m.Records(h))
	assert.IsType(t, &queue.SQLRepository{}, m.Queue(h))
}

func TestRunMigrations_PicksDialect(t *testing.T) {
	orig := gooseUp
	t.Cleanup(func() { gooseUp = orig })

	var got []goose.Dialect
	gooseUp = func(ctx context.Context, d goose.Dialect, db *sql.DB, fsys fs.FS) error {
		got = append(got, d)
		_, err := fs.Stat(fsys, "00001_init.sql")
		return err
	}

	m := NewRepositoryManager()
	require.NoError(t, m.RunMigrations(context.Background(), nil, store.PostgresDialect{}))
	require.NoError(t, m.RunMigrations(context.Background(), nil, store.SQLiteDialect{}))
	assert.Equal(t, []goose.Dialect{goose.DialectPostgres, goose.DialectSQLite3}, got)

	require.Error(t, m.RunMigrations(context.Background(), nil, unknownDialect{}))
}

func TestRunMigrations_PropagatesError(t *testing.T) {
	orig := gooseUp
	t.Cleanup(func() { gooseUp = orig })

	boom := errors.New("boom")
	gooseUp = func(context.Context, goose.Dialect, *sql.DB, fs.FS) error { return boom }

	err := NewRepositoryManager().RunMigrations(context.Background(), nil, store.PostgresDialect{})
	require.ErrorIs(t, err, boom)
}

func TestOpenMirror_AppliesSchemaIdempotently(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "local.db")
	m := NewRepositoryManager()

	h, err := m.OpenMirror(ctx, path)
	require.NoError(t, err)
	require.NoError(t, h.Close())

	// reopening re-runs goose against an up-to-date schema
	h, err = m.OpenMirror(ctx, path)
	require.NoError(t, err)
	defer h.Close()

	for _, table := range []string{"Users", "TimeRecords", "OfflineQueue"} {
		var n int
		err := h.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n)
		require.NoError(t, err, table)
		assert.Zero(t, n)
	}
}
