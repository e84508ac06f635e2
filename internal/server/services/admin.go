package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/dmitrijs2005/timekeeper/internal/logging"
	"github.com/dmitrijs2005/timekeeper/internal/server/auth"
	"github.com/dmitrijs2005/timekeeper/internal/server/models"
	"github.com/dmitrijs2005/timekeeper/internal/server/store"
)

// AdminService manages users on the active store. Ids are those of the
// active store; changes made on the primary are mirrored by matricula.
type AdminService struct {
	stores *Stores
	log    logging.Logger
}

func NewAdminService(stores *Stores, log logging.Logger) *AdminService {
	return &AdminService{stores: stores, log: log.With("module", "admin")}
}

func (s *AdminService) ListUsers(ctx context.Context) ([]models.User, error) {
	h := s.stores.active()
	users, err := s.stores.Repos.Users(h).List(ctx)
	if err != nil && unavailable(err) && h.Role() == store.RolePrimary {
		users, err = s.stores.Repos.Users(s.stores.Mirror).List(ctx)
	}
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []models.User{}
	}
	return users, nil
}

// GetUser reads one user from the active store.
func (s *AdminService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	h := s.stores.active()
	u, err := s.stores.Repos.Users(h).GetByID(ctx, id)
	if err != nil && unavailable(err) && h.Role() == store.RolePrimary {
		u, err = s.stores.Repos.Users(s.stores.Mirror).GetByID(ctx, id)
	}
	return u, err
}

func (s *AdminService) CreateUser(ctx context.Context, matricula, password, name string, role models.Role) (*models.User, error) {
	return createUser(ctx, s.stores, s.log, matricula, password, name, role)
}

// apply merges patch into u. It reports whether anything was set.
func apply(u *models.User, patch models.UserPatch, hash string) bool {
	changed := false
	if patch.Matricula != nil && *patch.Matricula != "" {
		u.Matricula, changed = *patch.Matricula, true
	}
	if patch.Name != nil && *patch.Name != "" {
		u.Name, changed = *patch.Name, true
	}
	if patch.Role != nil && *patch.Role != "" {
		u.Role, changed = *patch.Role, true
	}
	if hash != "" {
		u.Password, changed = hash, true
	}
	return changed
}

func (s *AdminService) UpdateUser(ctx context.Context, id int64, patch models.UserPatch) (*models.User, error) {
	if patch.Role != nil && *patch.Role != "" {
		if _, err := models.ParseRole(string(*patch.Role)); err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrorValidation, err)
		}
	}

	var hash string
	if patch.Password != nil && *patch.Password != "" {
		h, err := auth.HashPassword(*patch.Password)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
		}
		hash = h
	}

	h := s.stores.active()
	repo := s.stores.Repos.Users(h)

	u, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	oldMatricula := u.Matricula

	if !apply(u, patch, hash) {
		return nil, fmt.Errorf("%w: nothing to update", common.ErrorValidation)
	}
	if err := repo.Update(ctx, u); err != nil {
		return nil, err
	}

	if h.Role() == store.RolePrimary {
		s.mirrorUpdate(ctx, oldMatricula, patch, hash)
	}
	s.log.Info(ctx, "user updated", "id", id, "matricula", u.Matricula)
	return u, nil
}

func (s *AdminService) mirrorUpdate(ctx context.Context, oldMatricula string, patch models.UserPatch, hash string) {
	repo := s.stores.Repos.Users(s.stores.Mirror)
	local, err := repo.GetByMatricula(ctx, oldMatricula)
	if err != nil {
		if !notFound(err) {
			s.log.Warn(ctx, "mirror user lookup failed", "matricula", oldMatricula, "error", err)
		}
		return
	}
	apply(local, patch, hash)
	if err := repo.UpdateByMatricula(ctx, oldMatricula, local); err != nil {
		s.log.Warn(ctx, "mirroring user update failed", "matricula", oldMatricula, "error", err)
	}
}

// DeleteUser removes the user and their records from the active store.
func (s *AdminService) DeleteUser(ctx context.Context, id int64) error {
	n, err := s.BulkDelete(ctx, []int64{id})
	if err != nil {
		return err
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// BulkDelete removes every listed user in one transaction and returns how
// many existed. Unknown ids are skipped.
func (s *AdminService) BulkDelete(ctx context.Context, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, fmt.Errorf("%w: no users selected", common.ErrorValidation)
	}

	h := s.stores.active()
	var matriculas []string

	err := h.WithTx(ctx, func(ctx context.Context, tx store.Handle) error {
		users := s.stores.Repos.Users(tx)
		recs := s.stores.Repos.Records(tx)
		for _, id := range ids {
			u, err := users.GetByID(ctx, id)
			if notFound(err) {
				continue
			}
			if err != nil {
				return err
			}
			if _, err := recs.DeleteByOwner(ctx, u.ID, u.Matricula); err != nil {
				return err
			}
			if err := users.Delete(ctx, u.ID); err != nil {
				return err
			}
			matriculas = append(matriculas, u.Matricula)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if h.Role() == store.RolePrimary {
		repo := s.stores.Repos.Users(s.stores.Mirror)
		for _, m := range matriculas {
			if err := repo.DeleteByMatricula(ctx, m); err != nil && !notFound(err) {
				s.log.Warn(ctx, "mirroring user deletion failed", "matricula", m, "error", err)
			}
		}
	}

	s.log.Info(ctx, "users deleted", "count", len(matriculas))
	return len(matriculas), nil
}
