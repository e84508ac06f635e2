// Package queue is the mirror's OfflineQueue: punches accepted while the
// primary was unreachable, held until reconciliation confirms them upstream.
// Only the mirror has this table.
package queue

import (
	"context"

	"github.com/dmitrijs2005/timekeeper/internal/server/models"
)

type Repository interface {
	Enqueue(ctx context.Context, entry *models.QueueEntry) error
	// ListForOwner returns entries owned by matricula, plus entries with an
	// unknown owner whose user id is one of userIDs, oldest first.
	ListForOwner(ctx context.Context, matricula string, userIDs ...int64) ([]models.QueueEntry, error)
	Delete(ctx context.Context, id int64) error
	// Owners lists the distinct (matricula, user id) pairs present in the queue.
	Owners(ctx context.Context) ([]models.Owner, error)
	Count(ctx context.Context) (int, error)
	BackfillOwners(ctx context.Context) (int64, error)
}
