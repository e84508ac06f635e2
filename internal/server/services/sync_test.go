package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/dmitrijs2005/timekeeper/internal/server/models"
	"github.com/dmitrijs2005/timekeeper/internal/server/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Scenario A: two offline punches reach the primary once it is back.
func TestReconcile_AfterRecovery(t *testing.T) {
	f := newFixture(t, false)
	f.addUser(f.stores.Primary, "U1", "Ana", models.RoleUser, "pw")

	for range 2 {
		res, err := f.punch.Punch(f.ctx, "U1", centro("in"))
		require.NoError(t, err)
		require.True(t, res.Queued)
	}

	f.status.set(true)
	res, err := f.sync.Reconcile(f.ctx, "U1")
	require.NoError(t, err)

	assert.Equal(t, 2, res.Migrated)
	assert.Empty(t, res.Errors)
	assert.Zero(t, f.queueLen())

	recs := f.primaryRecords("U1")
	require.Len(t, recs, 2)
	for _, r := range recs {
		assert.Equal(t, "Ana", r.UserName)
		assert.NotZero(t, r.UserID)
	}
}

// Scenario D.
func TestReconcile_NothingQueued(t *testing.T) {
	f := newFixture(t, true)

	res, err := f.sync.Reconcile(f.ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, 0, res.Migrated)
	assert.NotNil(t, res.Errors)
	assert.Empty(t, res.Errors)
}

// P2: a second run finds nothing new and leaves no duplicates.
func TestReconcile_Idempotent(t *testing.T) {
	f := newFixture(t, true)
	base := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)
	f.enqueue("U1", 0, "in", base)
	f.enqueue("U1", 0, "out", base.Add(9*time.Hour))
	f.enqueue("U1", 0, "in", base.Add(24*time.Hour))

	first, err := f.sync.Reconcile(f.ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, 3, first.Migrated)

	second, err := f.sync.Reconcile(f.ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, 0, second.Migrated)

	assert.Zero(t, f.queueLen())
	assert.Len(t, f.primaryRecords("U1"), 3)
}

// P3: timestamps differing only below one second are the same punch.
func TestReconcile_SubsecondSignature(t *testing.T) {
	f := newFixture(t, true)
	f.enqueue("U1", 0, "in", time.Date(2024, 1, 1, 10, 0, 0, 125_000_000, time.UTC))
	f.enqueue("U1", 0, "in", time.Date(2024, 1, 1, 10, 0, 0, 900_000_000, time.UTC))

	res, err := f.sync.Reconcile(f.ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Migrated)
	assert.Zero(t, f.queueLen())
	assert.Len(t, f.primaryRecords("U1"), 1)
}

func TestReconcile_AlreadyUpstreamIsDroppedFromQueue(t *testing.T) {
	f := newFixture(t, true)
	ts := time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC)

	_, err := f.punch.Punch(f.ctx, "U1", models.PunchRequest{RecordType: "in", Timestamp: "2024-01-02 08:00:00"})
	require.NoError(t, err)
	f.enqueue("U1", 0, "in", ts.Add(300*time.Millisecond))

	res, err := f.sync.Reconcile(f.ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, 0, res.Migrated)
	assert.Zero(t, f.queueLen())
	assert.Len(t, f.primaryRecords("U1"), 1)
}

func TestReconcile_OfflinePromotesToMirror(t *testing.T) {
	f := newFixture(t, false)
	local := f.addUser(f.stores.Mirror, "U1", "Ana", models.RoleUser, "pw")

	_, err := f.punch.Punch(f.ctx, "U1", centro("in"))
	require.NoError(t, err)
	// an entry stored before its owner's matricula was known
	f.enqueue("", local.ID, "out", time.Date(2024, 1, 15, 17, 0, 0, 0, time.UTC))

	res, err := f.sync.Reconcile(f.ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Migrated)
	assert.Zero(t, f.queueLen())
	assert.Empty(t, f.primaryRecords("U1"))

	recs := f.mirrorRecords("U1")
	require.Len(t, recs, 2)
	for _, r := range recs {
		assert.Equal(t, "U1", r.Matricula)
		assert.Equal(t, "Ana", r.UserName)
		assert.Equal(t, local.ID, r.UserID)
	}
}

func TestReconcile_UnreachablePrimaryPromotes(t *testing.T) {
	f := newFixtureWithPrimary(t, true, storetest.Unreachable(t))
	f.enqueue("U1", 0, "in", time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC))

	res, err := f.sync.Reconcile(f.ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Migrated)
	assert.Zero(t, f.queueLen())
	assert.Len(t, f.mirrorRecords("U1"), 1)
}

func TestReconcile_RowErrorsKeepEntriesQueued(t *testing.T) {
	f := newFixture(t, true)
	_, err := f.stores.Primary.DB().ExecContext(f.ctx, `
		CREATE TRIGGER reject_bad BEFORE INSERT ON TimeRecords
		WHEN NEW.record_type = 'bad'
		BEGIN SELECT RAISE(ABORT, 'rejected'); END`)
	require.NoError(t, err)

	base := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)
	f.enqueue("U1", 0, "in", base)
	f.enqueue("U1", 0, "bad", base.Add(time.Hour))
	f.enqueue("U1", 0, "out", base.Add(2*time.Hour))

	res, err := f.sync.Reconcile(f.ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Migrated)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "rejected")

	entries, err := f.repos.Queue(f.stores.Mirror).ListForOwner(f.ctx, "U1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "bad", entries[0].RecordType)
}

func TestReconcile_LocalHistoryIsPushedAndHealed(t *testing.T) {
	f := newFixture(t, true)
	local := f.addUser(f.stores.Mirror, "U1", "Ana", models.RoleUser, "pw")

	orphan := &models.TimeRecord{UserID: local.ID, RecordType: "in", Timestamp: time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)}
	require.NoError(t, f.repos.Records(f.stores.Mirror).Insert(f.ctx, orphan))

	res, err := f.sync.Reconcile(f.ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Migrated)

	assert.Len(t, f.primaryRecords("U1"), 1)
	healed := f.mirrorRecords("U1")
	require.Len(t, healed, 1)
	assert.Equal(t, "Ana", healed[0].UserName)
}

func TestReconcile_ConcurrentCallsDoNotDuplicate(t *testing.T) {
	f := newFixture(t, true)
	base := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)
	for i := range 5 {
		f.enqueue("U1", 0, "in", base.Add(time.Duration(i)*time.Minute))
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.sync.Reconcile(f.ctx, "U1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, f.primaryRecords("U1"), 5)
	assert.Zero(t, f.queueLen())
}

// A reconcile shared between callers outlives the caller that started it.
func TestReconcile_IgnoresCallerCancellation(t *testing.T) {
	f := newFixture(t, false)
	f.enqueue("U1", 0, "in", time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC))

	ctx, cancel := context.WithCancel(f.ctx)
	cancel()

	res, err := f.sync.Reconcile(ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Migrated)
	assert.Zero(t, f.queueLen())
}

func TestReconcile_RequiresMatricula(t *testing.T) {
	f := newFixture(t, true)
	_, err := f.sync.Reconcile(f.ctx, "")
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestReconcileAll_SweepsEveryOwner(t *testing.T) {
	f := newFixture(t, false)
	f.addUser(f.stores.Primary, "U1", "Ana", models.RoleUser, "pw")
	f.addUser(f.stores.Primary, "U2", "Bia", models.RoleAdmin, "pw")
	// keep local ids clear of the primary's so orphans match one owner only
	f.addUser(f.stores.Mirror, "F1", "Filler", models.RoleUser, "pw")
	f.addUser(f.stores.Mirror, "F2", "Filler", models.RoleUser, "pw")
	local := f.addUser(f.stores.Mirror, "U3", "Caio", models.RoleUser, "pw")

	base := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)
	f.enqueue("U1", 0, "in", base)
	f.enqueue("U1", 0, "out", base.Add(time.Hour))
	f.enqueue("U2", 0, "in", base)
	f.enqueue("", local.ID, "in", base)
	f.enqueue("", 9999, "in", base) // owner unknown everywhere

	f.status.set(true)
	n, err := f.sync.ReconcileAll(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 1, f.queueLen())

	assert.Len(t, f.primaryRecords("U1"), 2)
	assert.Len(t, f.primaryRecords("U2"), 1)
	assert.Len(t, f.primaryRecords("U3"), 1)

	// users were pulled into the mirror
	u, err := f.repos.Users(f.stores.Mirror).GetByMatricula(f.ctx, "U2")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, u.Role)
}

// Punches promoted while offline no longer sit in the queue; the recovery
// sweep must still push them.
func TestReconcileAll_PushesPromotedPunches(t *testing.T) {
	f := newFixture(t, false)
	f.addUser(f.stores.Primary, "U1", "Ana", models.RoleUser, "pw")
	f.addUser(f.stores.Mirror, "U1", "Ana", models.RoleUser, "pw")

	_, err := f.punch.Punch(f.ctx, "U1", centro("in"))
	require.NoError(t, err)
	res, err := f.sync.Reconcile(f.ctx, "U1")
	require.NoError(t, err)
	require.Equal(t, 1, res.Migrated)
	require.Zero(t, f.queueLen())
	require.Len(t, f.mirrorRecords("U1"), 1)

	f.status.set(true)
	n, err := f.sync.ReconcileAll(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, f.primaryRecords("U1"), 1)

	// already confirmed upstream
	n, err = f.sync.ReconcileAll(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, f.primaryRecords("U1"), 1)
}

func TestRefreshUsers(t *testing.T) {
	f := newFixture(t, true)
	f.addUser(f.stores.Primary, "U1", "Ana", models.RoleUser, "pw")
	f.addUser(f.stores.Mirror, "U1", "Stale", models.RoleUser, "old")

	require.NoError(t, f.sync.RefreshUsers(f.ctx))

	u, err := f.repos.Users(f.stores.Mirror).GetByMatricula(f.ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", u.Name)

	f.status.set(false)
	assert.ErrorIs(t, f.sync.RefreshUsers(f.ctx), common.ErrStoreUnavailable)
}
