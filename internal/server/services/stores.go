// Package services contains the time-clock business logic: routing punches
// to the primary or the offline queue, merging history across stores,
// reconciling the queue back into the primary, and the user, admin and
// report operations built on top of them.
package services

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/dmitrijs2005/timekeeper/internal/logging"
	"github.com/dmitrijs2005/timekeeper/internal/server/probe"
	"github.com/dmitrijs2005/timekeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/timekeeper/internal/server/store"
)

// Stores bundles both backends with the primary's availability signal.
type Stores struct {
	Primary store.Handle
	Mirror  store.Handle
	Status  probe.Status
	Repos   repomanager.RepositoryManager
}

func (s *Stores) online() bool {
	return s.Status.Available()
}

// active is the store identity and report operations run against: the
// primary when reachable, otherwise the mirror.
func (s *Stores) active() store.Handle {
	if s.online() {
		return s.Primary
	}
	return s.Mirror
}

func unavailable(err error) bool {
	return errors.Is(err, common.ErrStoreUnavailable)
}

func notFound(err error) bool {
	return errors.Is(err, common.ErrorNotFound)
}

// owner is what the two stores know about one matricula.
type owner struct {
	Matricula string
	PrimaryID int64
	LocalID   int64
	Name      string
	// online is true when the primary answered the lookup.
	online bool
}

// id is the user id written with new rows: the primary's when known.
func (o owner) id() int64 {
	if o.PrimaryID != 0 {
		return o.PrimaryID
	}
	return o.LocalID
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// resolveOwner looks matricula up in the primary (when reachable) and in the
// mirror. The primary's name wins when both have one.
func (s *Stores) resolveOwner(ctx context.Context, matricula string, log logging.Logger) owner {
	o := owner{Matricula: matricula}

	if s.online() {
		u, err := s.Repos.Users(s.Primary).GetByMatricula(ctx, matricula)
		switch {
		case err == nil:
			o.PrimaryID, o.Name, o.online = u.ID, u.Name, true
		case notFound(err):
			o.online = true
		default:
			o.online = !unavailable(err)
			log.Warn(ctx, "primary user lookup failed", "matricula", matricula, "error", err)
		}
	}

	u, err := s.Repos.Users(s.Mirror).GetByMatricula(ctx, matricula)
	switch {
	case err == nil:
		o.LocalID = u.ID
		o.Name = firstNonEmpty(o.Name, u.Name)
	case !notFound(err):
		log.Warn(ctx, "mirror user lookup failed", "matricula", matricula, "error", err)
	}
	return o
}
