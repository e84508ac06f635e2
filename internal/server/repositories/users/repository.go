// Package users stores identity rows. The same implementation serves the
// primary and the mirror; the store.Handle it is bound to decides which.
package users

import (
	"context"

	"github.com/dmitrijs2005/timekeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByMatricula(ctx context.Context, matricula string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	// Update rewrites the row with user.ID.
	Update(ctx context.Context, user *models.User) error
	// UpdateByMatricula rewrites the row currently keyed by matricula.
	UpdateByMatricula(ctx context.Context, matricula string, user *models.User) error
	// Upsert inserts user or, when its matricula exists, overwrites credential, name and role.
	Upsert(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id int64) error
	DeleteByMatricula(ctx context.Context, matricula string) error
}
