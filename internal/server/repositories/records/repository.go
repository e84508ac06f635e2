// Package records stores confirmed punches (the TimeRecords table) in either
// backend. Rows are immutable once inserted; the only update is filling in an
// unknown owner on the mirror.
package records

import (
	"context"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/server/models"
)

// Range bounds a timestamp query to [From, To). A zero bound is open.
type Range struct {
	From time.Time
	To   time.Time
}

type Repository interface {
	Insert(ctx context.Context, rec *models.TimeRecord) error
	// ListByMatricula returns the owner's records in rng, newest first.
	ListByMatricula(ctx context.Context, matricula string, rng Range) ([]models.TimeRecord, error)
	// Signatures returns the signature of every record owned by matricula.
	Signatures(ctx context.Context, matricula string) (map[models.Signature]struct{}, error)
	// ListOwned returns records owned by matricula, plus records with an
	// unknown owner whose user id is localUserID, oldest first.
	ListOwned(ctx context.Context, matricula string, localUserID int64) ([]models.TimeRecord, error)
	// HealOwner fills in the owner of a record stored without one.
	HealOwner(ctx context.Context, id int64, matricula, name string) error
	// Report returns records in rng ordered by owner then time; an empty
	// matricula selects every owner.
	Report(ctx context.Context, matricula string, rng Range) ([]models.TimeRecord, error)
	// DeleteByOwner removes every record of a user; used when the user is deleted.
	DeleteByOwner(ctx context.Context, userID int64, matricula string) (int64, error)
	// Owners returns the distinct (matricula, user id) pairs that own records.
	Owners(ctx context.Context) ([]models.Owner, error)
	// BackfillOwners sets matricula and name on records whose user id is a known local user.
	BackfillOwners(ctx context.Context) (int64, error)
}
