package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/timekeeper/internal/logging"
	"github.com/dmitrijs2005/timekeeper/internal/server/auth"
	"github.com/dmitrijs2005/timekeeper/internal/server/models"
)

// AdminAccount is the account guaranteed to exist in the mirror.
type AdminAccount struct {
	Matricula string
	Password  string
	Name      string
}

// Bootstrap prepares the mirror for offline use: it seeds the default admin
// when absent and fills in owners of local rows stored before their user was known.
func Bootstrap(ctx context.Context, stores *Stores, admin AdminAccount, log logging.Logger) error {
	log = log.With("module", "bootstrap")
	users := stores.Repos.Users(stores.Mirror)

	_, err := users.GetByMatricula(ctx, admin.Matricula)
	switch {
	case notFound(err):
		hash, err := auth.HashPassword(admin.Password)
		if err != nil {
			return fmt.Errorf("hash admin password: %w", err)
		}
		u := &models.User{Matricula: admin.Matricula, Password: hash, Name: admin.Name, Role: models.RoleAdmin}
		if _, err := users.Create(ctx, u); err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
		log.Info(ctx, "default admin created", "matricula", admin.Matricula)
	case err != nil:
		return fmt.Errorf("look up admin: %w", err)
	}

	healed, err := stores.Repos.Records(stores.Mirror).BackfillOwners(ctx)
	if err != nil {
		return fmt.Errorf("backfill records: %w", err)
	}
	queued, err := stores.Repos.Queue(stores.Mirror).BackfillOwners(ctx)
	if err != nil {
		return fmt.Errorf("backfill queue: %w", err)
	}
	if healed+queued > 0 {
		log.Info(ctx, "local rows backfilled", "records", healed, "queue", queued)
	}
	return nil
}
