package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/logging"
	"github.com/dmitrijs2005/timekeeper/internal/server/config"
	"github.com/dmitrijs2005/timekeeper/internal/server/models"
	"github.com/dmitrijs2005/timekeeper/internal/server/repositories/records"
	"github.com/dmitrijs2005/timekeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/timekeeper/internal/server/store"
	"github.com/dmitrijs2005/timekeeper/internal/server/storetest"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// switchStatus is a Status tests can flip.
type switchStatus struct{ up atomic.Bool }

func (s *switchStatus) Available() bool { return s.up.Load() }
func (s *switchStatus) set(up bool)     { s.up.Store(up) }

// stepClock starts at a fixed instant and advances one second per call.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.t
	c.t = c.t.Add(time.Second)
	return t
}

type fixture struct {
	t       *testing.T
	ctx     context.Context
	status  *switchStatus
	clock   *stepClock
	stores  *Stores
	repos   *repomanager.SQLRepositoryManager
	sync    *SyncService
	punch   *PunchService
	history *HistoryService
	users   *UserService
	admin   *AdminService
	reports *ReportService
}

func newFixture(t *testing.T, online bool) *fixture {
	return newFixtureWithPrimary(t, online, storetest.Primary(t))
}

func newFixtureWithPrimary(t *testing.T, online bool, primary store.Handle) *fixture {
	t.Helper()

	status := &switchStatus{}
	status.set(online)
	repos := repomanager.NewRepositoryManager()
	stores := &Stores{Primary: primary, Mirror: storetest.Mirror(t), Status: status, Repos: repos}

	log := logging.Nop{}
	clock := &stepClock{t: time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)}
	cfg := &config.Config{SecretKey: "test-secret", TokenValidityDuration: time.Hour}

	f := &fixture{
		t:      t,
		ctx:    context.Background(),
		status: status,
		clock:  clock,
		stores: stores,
		repos:  repos,
	}
	f.sync = NewSyncService(stores, log)
	f.punch = NewPunchService(stores, time.UTC, log)
	f.punch.now = clock.now
	f.history = NewHistoryService(stores, time.UTC, log)
	f.history.now = func() time.Time { return time.Date(2024, 1, 20, 12, 0, 0, 0, time.UTC) }
	f.users = NewUserService(stores, f.sync, cfg, log)
	f.admin = NewAdminService(stores, log)
	f.reports = NewReportService(stores, nil, log)

	t.Cleanup(f.sync.Wait)
	return f
}

func hash(t *testing.T, password string) string {
	t.Helper()
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(b)
}

func (f *fixture) addUser(h store.Handle, matricula, name string, role models.Role, password string) *models.User {
	f.t.Helper()
	u, err := f.repos.Users(h).Create(f.ctx, &models.User{Matricula: matricula, Password: hash(f.t, password), Name: name, Role: role})
	require.NoError(f.t, err)
	return u
}

func (f *fixture) primaryRecords(matricula string) []models.TimeRecord {
	f.t.Helper()
	recs, err := f.repos.Records(f.stores.Primary).ListByMatricula(f.ctx, matricula, records.Range{})
	require.NoError(f.t, err)
	return recs
}

func (f *fixture) mirrorRecords(matricula string) []models.TimeRecord {
	f.t.Helper()
	recs, err := f.repos.Records(f.stores.Mirror).ListByMatricula(f.ctx, matricula, records.Range{})
	require.NoError(f.t, err)
	return recs
}

func (f *fixture) queueLen() int {
	f.t.Helper()
	n, err := f.repos.Queue(f.stores.Mirror).Count(f.ctx)
	require.NoError(f.t, err)
	return n
}

func (f *fixture) enqueue(matricula string, userID int64, typ string, ts time.Time) {
	f.t.Helper()
	e := &models.QueueEntry{TimeRecord: models.TimeRecord{
		UserID: userID, Matricula: matricula, RecordType: typ, Timestamp: ts, Neighborhood: "Centro", City: "Vitoria",
	}}
	require.NoError(f.t, f.repos.Queue(f.stores.Mirror).Enqueue(f.ctx, e))
}

func centro(typ string) models.PunchRequest {
	return models.PunchRequest{RecordType: typ, Neighborhood: "Centro", City: "Vitoria"}
}
