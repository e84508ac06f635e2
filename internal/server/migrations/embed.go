// Package migrations embeds the goose SQL migrations for both backends.
// The primary (PostgreSQL) and the mirror (SQLite) keep the same table and
// column names so repositories can share their SQL.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed postgres/*.sql sqlite/*.sql
var Migrations embed.FS

// Postgres returns the migration tree for the primary store.
func Postgres() fs.FS {
	sub, _ := fs.Sub(Migrations, "postgres")
	return sub
}

// SQLite returns the migration tree for the local mirror.
func SQLite() fs.FS {
	sub, _ := fs.Sub(Migrations, "sqlite")
	return sub
}
