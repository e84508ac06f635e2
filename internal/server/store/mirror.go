package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	"github.com/dmitrijs2005/timekeeper/internal/filex"
	_ "modernc.org/sqlite"
)

// Migrator brings a freshly opened database to the current schema.
type Migrator func(ctx context.Context, db *sql.DB, dialect Dialect) error

// MirrorHandle is the local SQLite store. It is opened once per process and
// restricted to a single connection, so writers are serialized by the pool
// rather than by SQLite lock retries.
type MirrorHandle struct {
	handle
	path string
}

func mirrorDSN(path string) string {
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(NORMAL)")
	return "file:" + path + "?" + q.Encode()
}

// OpenMirror opens (creating if needed) the SQLite file at path and applies
// migrate before returning, so the schema always exists.
func OpenMirror(ctx context.Context, path string, migrate Migrator) (*MirrorHandle, error) {
	abs, err := filex.EnsureParentDir(path)
	if err != nil {
		return nil, fmt.Errorf("mirror dir: %w", err)
	}

	db, err := sql.Open("sqlite", mirrorDSN(abs))
	if err != nil {
		return nil, err
	}

	dialect := SQLiteDialect{}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, dialect.Classify(err)
	}
	if migrate != nil {
		if err := migrate(ctx, db, dialect); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("mirror migrations: %w", err)
		}
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return &MirrorHandle{handle: handle{role: RoleMirror, dialect: dialect, db: db}, path: path}, nil
}

// Path returns the file backing the mirror.
func (h *MirrorHandle) Path() string { return h.path }
