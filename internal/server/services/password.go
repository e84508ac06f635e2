package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/dmitrijs2005/timekeeper/internal/logging"
	"github.com/dmitrijs2005/timekeeper/internal/server/auth"
	"github.com/dmitrijs2005/timekeeper/internal/server/models"
)

// ResetPassword replaces matricula's credential in the primary (when
// reachable) and in the mirror. A user known only to the primary is copied
// into the mirror so the new password works offline.
func ResetPassword(ctx context.Context, stores *Stores, matricula, password string, log logging.Logger) error {
	matricula = strings.TrimSpace(matricula)
	if matricula == "" || password == "" {
		return fmt.Errorf("%w: matricula and password are required", common.ErrorValidation)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	var upstream *models.User
	if stores.online() {
		repo := stores.Repos.Users(stores.Primary)
		u, err := repo.GetByMatricula(ctx, matricula)
		switch {
		case err == nil:
			u.Password = hash
			if err := repo.Update(ctx, u); err != nil {
				return err
			}
			upstream = u
			log.Info(ctx, "password reset in primary", "matricula", matricula)
		case notFound(err):
		case unavailable(err):
			log.Warn(ctx, "primary unavailable, resetting mirror only", "matricula", matricula, "error", err)
		default:
			return err
		}
	}

	repo := stores.Repos.Users(stores.Mirror)
	local, err := repo.GetByMatricula(ctx, matricula)
	switch {
	case err == nil:
		local.Password = hash
		if err := repo.UpdateByMatricula(ctx, matricula, local); err != nil {
			return err
		}
	case notFound(err) && upstream != nil:
		copied := *upstream
		if err := repo.Upsert(ctx, &copied); err != nil {
			return err
		}
	default:
		return err
	}
	log.Info(ctx, "password reset in mirror", "matricula", matricula)
	return nil
}
