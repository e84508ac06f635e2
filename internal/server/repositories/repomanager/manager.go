package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/timekeeper/internal/server/repositories/queue"
	"github.com/dmitrijs2005/timekeeper/internal/server/repositories/records"
	"github.com/dmitrijs2005/timekeeper/internal/server/repositories/users"
	"github.com/dmitrijs2005/timekeeper/internal/server/store"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB, dialect store.Dialect) error
	Users(h store.Handle) users.Repository
	Records(h store.Handle) records.Repository
	Queue(h store.Handle) queue.Repository
}
