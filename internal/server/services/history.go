package services

import (
	"context"
	"slices"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/logging"
	"github.com/dmitrijs2005/timekeeper/internal/server/models"
	"github.com/dmitrijs2005/timekeeper/internal/server/repositories/records"
	"github.com/dmitrijs2005/timekeeper/internal/timex"
)

// HistoryService builds a user's punch history from the primary, the mirror's
// own records and the offline queue.
type HistoryService struct {
	stores *Stores
	loc    *time.Location
	now    func() time.Time
	log    logging.Logger
}

func NewHistoryService(stores *Stores, loc *time.Location, log logging.Logger) *HistoryService {
	return &HistoryService{stores: stores, loc: loc, now: time.Now, log: log.With("module", "history")}
}

func view(rec models.TimeRecord, pending bool) models.PunchView {
	return models.PunchView{
		RecordType:   rec.RecordType,
		Timestamp:    timex.FormatSeconds(rec.Timestamp),
		Neighborhood: rec.Neighborhood,
		City:         rec.City,
		Pending:      pending,
	}
}

// History returns the current month's punches for matricula plus every
// queued punch. Rows are newest first within each source and the sources are
// concatenated: primary, then mirror rows not already seen, then the queue.
func (s *HistoryService) History(ctx context.Context, matricula string) ([]models.PunchView, error) {
	from, to := timex.MonthBounds(timex.Naive(s.now().In(s.loc)))
	month := records.Range{From: from, To: to}

	o := s.stores.resolveOwner(ctx, matricula, s.log)
	online := o.online

	out := []models.PunchView{}
	seen := map[models.Signature]struct{}{}

	if online {
		confirmed, err := s.stores.Repos.Records(s.stores.Primary).ListByMatricula(ctx, matricula, month)
		if err != nil {
			s.log.Warn(ctx, "primary history unavailable, using mirror", "matricula", matricula, "error", err)
			online = false
		}
		for _, rec := range confirmed {
			seen[rec.Signature()] = struct{}{}
			out = append(out, view(rec, false))
		}
	}

	local, err := s.stores.Repos.Records(s.stores.Mirror).ListByMatricula(ctx, matricula, month)
	if err != nil {
		return nil, err
	}
	for _, rec := range local {
		sig := rec.Signature()
		if _, ok := seen[sig]; ok {
			continue
		}
		seen[sig] = struct{}{}
		out = append(out, view(rec, !online))
	}

	queued, err := s.stores.Repos.Queue(s.stores.Mirror).ListForOwner(ctx, matricula, o.LocalID, o.PrimaryID)
	if err != nil {
		return nil, err
	}
	slices.Reverse(queued)
	for _, e := range queued {
		out = append(out, view(e.TimeRecord, true))
	}

	return out, nil
}
