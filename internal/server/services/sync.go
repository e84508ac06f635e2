package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/dmitrijs2005/timekeeper/internal/logging"
	"github.com/dmitrijs2005/timekeeper/internal/server/models"
	"github.com/dmitrijs2005/timekeeper/internal/server/store"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// DefaultSweepLimit bounds how many matriculas ReconcileAll works on at once.
const DefaultSweepLimit = 4

// SyncService moves queued punches into the primary and refreshes the
// mirror's user cache. Concurrent reconciles of one matricula are coalesced;
// correctness across overlapping runs comes from signature de-duplication.
type SyncService struct {
	stores     *Stores
	log        logging.Logger
	group      singleflight.Group
	sweepLimit int
	wg         sync.WaitGroup
}

func NewSyncService(stores *Stores, log logging.Logger) *SyncService {
	return &SyncService{stores: stores, log: log.With("module", "sync"), sweepLimit: DefaultSweepLimit}
}

// Reconcile migrates every locally held punch of matricula. Row failures are
// reported in the result and leave the row queued; the returned error is set
// only when the mirror itself cannot be read.
func (s *SyncService) Reconcile(ctx context.Context, matricula string) (*models.SyncResult, error) {
	return s.reconcileShared(ctx, matricula, true)
}

func (s *SyncService) reconcileShared(ctx context.Context, matricula string, refresh bool) (*models.SyncResult, error) {
	if matricula == "" {
		return nil, fmt.Errorf("%w: matricula is required", common.ErrorValidation)
	}

	v, err, _ := s.group.Do(matricula, func() (any, error) {
		// coalesced callers must not inherit the first caller's cancellation
		return s.reconcile(context.WithoutCancel(ctx), matricula, refresh)
	})
	if err != nil {
		return nil, err
	}

	// callers coalesced by the group share one result
	res := *v.(*models.SyncResult)
	res.Errors = append([]string{}, res.Errors...)
	return &res, nil
}

// ReconcileAsync runs Reconcile in the background, detached from ctx's cancellation.
func (s *SyncService) ReconcileAsync(ctx context.Context, matricula string) {
	ctx = context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.log.Error(ctx, "background reconcile panicked", "matricula", matricula, "panic", r)
			}
		}()

		res, err := s.Reconcile(ctx, matricula)
		if err != nil {
			s.log.Error(ctx, "background reconcile failed", "matricula", matricula, "error", err)
			return
		}
		if res.Migrated > 0 || len(res.Errors) > 0 {
			s.log.Info(ctx, "background reconcile done", "matricula", matricula, "migrated", res.Migrated, "errors", len(res.Errors))
		}
	}()
}

// Wait blocks until background reconciles have finished.
func (s *SyncService) Wait() {
	s.wg.Wait()
}

func (s *SyncService) reconcile(ctx context.Context, matricula string, refresh bool) (*models.SyncResult, error) {
	o := s.stores.resolveOwner(ctx, matricula, s.log)
	if !o.online {
		return s.promote(ctx, o)
	}

	res, err := s.push(ctx, o)
	if err != nil || !refresh {
		return res, err
	}

	if err := s.RefreshUsers(ctx); err != nil {
		s.log.Warn(ctx, "user refresh after reconcile failed", "error", err)
	}
	return res, nil
}

// promote moves queued punches into the mirror's own TimeRecords while the
// primary is unreachable, so local history survives until the next push.
func (s *SyncService) promote(ctx context.Context, o owner) (*models.SyncResult, error) {
	res := &models.SyncResult{Errors: []string{}}

	entries, err := s.stores.Repos.Queue(s.stores.Mirror).ListForOwner(ctx, o.Matricula, o.LocalID, o.PrimaryID)
	if err != nil {
		return nil, err
	}

	for _, e := range entries {
		rec := e.TimeRecord
		rec.ID = 0
		rec.UserID = o.id()
		rec.Matricula = o.Matricula
		rec.UserName = firstNonEmpty(o.Name, e.UserName)

		err := s.stores.Mirror.WithTx(ctx, func(ctx context.Context, tx store.Handle) error {
			if err := s.stores.Repos.Records(tx).Insert(ctx, &rec); err != nil {
				return err
			}
			return s.stores.Repos.Queue(tx).Delete(ctx, e.ID)
		})
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("queue entry %d: %v", e.ID, err))
			continue
		}
		res.Migrated++
	}

	if res.Migrated > 0 {
		s.log.Info(ctx, "queued punches promoted to mirror history", "matricula", o.Matricula, "count", res.Migrated)
	}
	return res, nil
}

// push inserts into the primary every local punch whose signature the
// primary does not have yet, and drains the queue.
func (s *SyncService) push(ctx context.Context, o owner) (*models.SyncResult, error) {
	primary := s.stores.Repos.Records(s.stores.Primary)
	mirror := s.stores.Repos.Records(s.stores.Mirror)
	q := s.stores.Repos.Queue(s.stores.Mirror)

	sigs, err := primary.Signatures(ctx, o.Matricula)
	if err != nil {
		if unavailable(err) {
			s.log.Warn(ctx, "primary lost during reconcile, promoting locally", "matricula", o.Matricula, "error", err)
			return s.promote(ctx, o)
		}
		return &models.SyncResult{Errors: []string{fmt.Sprintf("reading primary records: %v", err)}}, nil
	}

	res := &models.SyncResult{Errors: []string{}}

	// insert reports whether the caller may continue with the next row.
	insert := func(src models.TimeRecord, label string) bool {
		sig := src.Signature()
		if _, ok := sigs[sig]; ok {
			return true
		}
		rec := models.TimeRecord{
			UserID:       o.PrimaryID,
			Matricula:    o.Matricula,
			UserName:     firstNonEmpty(o.Name, src.UserName),
			RecordType:   src.RecordType,
			Timestamp:    src.Timestamp,
			Neighborhood: src.Neighborhood,
			City:         src.City,
		}
		if err := primary.Insert(ctx, &rec); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", label, err))
			return !unavailable(err)
		}
		sigs[sig] = struct{}{}
		res.Migrated++
		return true
	}

	local, err := mirror.ListOwned(ctx, o.Matricula, o.LocalID)
	if err != nil {
		return nil, err
	}
	for _, rec := range local {
		if !insert(rec, fmt.Sprintf("local record %d", rec.ID)) {
			return res, nil
		}
		if rec.Matricula == "" {
			if err := mirror.HealOwner(ctx, rec.ID, o.Matricula, o.Name); err != nil {
				s.log.Warn(ctx, "healing local record owner failed", "id", rec.ID, "error", err)
			}
		}
	}

	entries, err := q.ListForOwner(ctx, o.Matricula, o.LocalID, o.PrimaryID)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		before := len(res.Errors)
		if !insert(e.TimeRecord, fmt.Sprintf("queue entry %d", e.ID)) {
			return res, nil
		}
		if len(res.Errors) > before {
			continue
		}
		// inserted now, or already present upstream
		if err := q.Delete(ctx, e.ID); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("queue entry %d: %v", e.ID, err))
		}
	}

	s.log.Info(ctx, "reconcile finished", "matricula", o.Matricula, "migrated", res.Migrated, "errors", len(res.Errors))
	return res, nil
}

// ReconcileAll reconciles every owner of a queued punch or of a mirror
// TimeRecord and returns the number of punches migrated. Per-owner failures
// are logged, not returned.
func (s *SyncService) ReconcileAll(ctx context.Context) (int, error) {
	matriculas, err := s.sweepOwners(ctx)
	if err != nil {
		return 0, err
	}

	var (
		total atomic.Int64
		g     errgroup.Group
	)
	g.SetLimit(s.sweepLimit)
	for _, m := range matriculas {
		g.Go(func() error {
			res, err := s.reconcileShared(ctx, m, false)
			if err != nil {
				s.log.Error(ctx, "reconcile failed", "matricula", m, "error", err)
				return nil
			}
			total.Add(int64(res.Migrated))
			if len(res.Errors) > 0 {
				s.log.Warn(ctx, "reconcile left rows queued", "matricula", m, "errors", res.Errors)
			}
			return nil
		})
	}
	_ = g.Wait()

	if s.stores.online() {
		if err := s.RefreshUsers(ctx); err != nil {
			s.log.Warn(ctx, "user refresh after sweep failed", "error", err)
		}
	}

	n := int(total.Load())
	s.log.Info(ctx, "sweep finished", "owners", len(matriculas), "migrated", n)
	return n, nil
}

// sweepOwners lists the matriculas holding local punches. Promoted punches
// live in the mirror's TimeRecords, so the queue alone is not enough.
func (s *SyncService) sweepOwners(ctx context.Context) ([]string, error) {
	queued, err := s.stores.Repos.Queue(s.stores.Mirror).Owners(ctx)
	if err != nil {
		return nil, err
	}
	promoted, err := s.stores.Repos.Records(s.stores.Mirror).Owners(ctx)
	if err != nil {
		return nil, err
	}

	seen := map[string]struct{}{}
	var matriculas []string
	for _, ow := range append(queued, promoted...) {
		m := ow.Matricula
		if m == "" {
			u, err := s.stores.Repos.Users(s.stores.Mirror).GetByID(ctx, ow.UserID)
			if err != nil {
				s.log.Warn(ctx, "local punches with unknown owner", "user_id", ow.UserID, "error", err)
				continue
			}
			m = u.Matricula
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		matriculas = append(matriculas, m)
	}
	return matriculas, nil
}

// RefreshUsers copies every primary user into the mirror, keyed by matricula.
func (s *SyncService) RefreshUsers(ctx context.Context) error {
	if !s.stores.online() {
		return fmt.Errorf("refresh users: %w", common.ErrStoreUnavailable)
	}

	users, err := s.stores.Repos.Users(s.stores.Primary).List(ctx)
	if err != nil {
		return fmt.Errorf("refresh users: %w", err)
	}

	return s.stores.Mirror.WithTx(ctx, func(ctx context.Context, tx store.Handle) error {
		repo := s.stores.Repos.Users(tx)
		for i := range users {
			if err := repo.Upsert(ctx, &users[i]); err != nil {
				return fmt.Errorf("refresh user %s: %w", users[i].Matricula, err)
			}
		}
		return nil
	})
}
