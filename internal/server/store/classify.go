package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

func unavailable(err error) error { return fmt.Errorf("%w: %w", common.ErrStoreUnavailable, err) }
func failed(err error) error      { return fmt.Errorf("%w: %w", common.ErrQueryFailed, err) }
func conflict(err error) error {
	return fmt.Errorf("%w: %w: %w", common.ErrQueryFailed, common.ErrConflict, err)
}

// classified reports whether err already carries a taxonomy sentinel.
func classified(err error) bool {
	return errors.Is(err, common.ErrStoreUnavailable) ||
		errors.Is(err, common.ErrQueryFailed) ||
		errors.Is(err, common.ErrorNotFound)
}

// transport errors look the same for both drivers.
func transport(err error) bool {
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	return strings.Contains(err.Error(), "sql: database is closed")
}

func (PostgresDialect) Classify(err error) error {
	if err == nil || classified(err) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrorNotFound
	}
	var ce *pgconn.ConnectError
	if errors.As(err, &ce) || pgconn.Timeout(err) || transport(err) {
		return unavailable(err)
	}
	var pe *pgconn.PgError
	if errors.As(err, &pe) {
		switch {
		case pe.Code == "23505":
			return conflict(err)
		// 08: connection exception; 57P01..03: shutdown / cannot connect now.
		case strings.HasPrefix(pe.Code, "08"), strings.HasPrefix(pe.Code, "57P0"):
			return unavailable(err)
		}
	}
	return failed(err)
}

func (SQLiteDialect) Classify(err error) error {
	if err == nil || classified(err) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrorNotFound
	}
	if transport(err) {
		return unavailable(err)
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code()
		switch {
		case code == sqlite3.SQLITE_CONSTRAINT_UNIQUE, code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return conflict(err)
		}
		switch code & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED, sqlite3.SQLITE_CANTOPEN, sqlite3.SQLITE_IOERR, sqlite3.SQLITE_NOTADB:
			return unavailable(err)
		}
	}
	return failed(err)
}
