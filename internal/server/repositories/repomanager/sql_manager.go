// Package repomanager vends repositories bound to a store.Handle and owns
// schema migrations (via goose) for both backends.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/dmitrijs2005/timekeeper/internal/server/migrations"
	"github.com/dmitrijs2005/timekeeper/internal/server/repositories/queue"
	"github.com/dmitrijs2005/timekeeper/internal/server/repositories/records"
	"github.com/dmitrijs2005/timekeeper/internal/server/repositories/users"
	"github.com/dmitrijs2005/timekeeper/internal/server/store"
	"github.com/pressly/goose/v3"
)

// SQLRepositoryManager serves both the primary and the mirror; the handle
// passed in picks the backend.
type SQLRepositoryManager struct{}

func NewRepositoryManager() *SQLRepositoryManager {
	return &SQLRepositoryManager{}
}

func (m *SQLRepositoryManager) Users(h store.Handle) users.Repository {
	return users.NewRepository(h)
}

func (m *SQLRepositoryManager) Records(h store.Handle) records.Repository {
	return records.NewRepository(h)
}

func (m *SQLRepositoryManager) Queue(h store.Handle) queue.Repository {
	return queue.NewRepository(h)
}

// gooseUp is a seam for testing the goose provider.
var gooseUp = func(ctx context.Context, dialect goose.Dialect, db *sql.DB, fsys fs.FS) error {
	p, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return err
	}
	_, err = p.Up(ctx)
	return err
}

// RunMigrations applies the embedded migrations matching dialect.
func (m *SQLRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB, dialect store.Dialect) error {
	var (
		gd   goose.Dialect
		fsys fs.FS
	)
	switch dialect.Name() {
	case "postgres":
		gd, fsys = goose.DialectPostgres, migrations.Postgres()
	case "sqlite":
		gd, fsys = goose.DialectSQLite3, migrations.SQLite()
	default:
		return fmt.Errorf("no migrations for dialect %q", dialect.Name())
	}
	if err := gooseUp(ctx, gd, db, fsys); err != nil {
		return dialect.Classify(err)
	}
	return nil
}

// OpenMirror opens the local store with its schema in place.
func (m *SQLRepositoryManager) OpenMirror(ctx context.Context, path string) (*store.MirrorHandle, error) {
	return store.OpenMirror(ctx, path, m.RunMigrations)
}
