package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/dmitrijs2005/timekeeper/internal/logging"
	"github.com/dmitrijs2005/timekeeper/internal/server/models"
	"github.com/dmitrijs2005/timekeeper/internal/timex"
)

// PunchService records punches. Each accepted punch produces exactly one
// durable row: a primary TimeRecord, or an OfflineQueue entry in the mirror.
type PunchService struct {
	stores *Stores
	loc    *time.Location
	now    func() time.Time
	log    logging.Logger
}

func NewPunchService(stores *Stores, loc *time.Location, log logging.Logger) *PunchService {
	return &PunchService{stores: stores, loc: loc, now: time.Now, log: log.With("module", "punch")}
}

// timestamp uses the client's value when it parses, otherwise the current
// wall clock of the reference zone.
func (s *PunchService) timestamp(raw string) time.Time {
	if raw = strings.TrimSpace(raw); raw != "" {
		if t, err := time.Parse(timex.Layout, raw); err == nil {
			return timex.Naive(t)
		}
	}
	return timex.Naive(s.now().In(s.loc)).Truncate(time.Second)
}

func (s *PunchService) Punch(ctx context.Context, matricula string, req models.PunchRequest) (*models.PunchResult, error) {
	if strings.TrimSpace(req.RecordType) == "" {
		return nil, fmt.Errorf("%w: punch type is required", common.ErrorValidation)
	}

	ts := s.timestamp(req.Timestamp)
	o := s.stores.resolveOwner(ctx, matricula, s.log)

	rec := models.TimeRecord{
		UserID:       o.PrimaryID,
		Matricula:    matricula,
		UserName:     o.Name,
		RecordType:   req.RecordType,
		Timestamp:    ts,
		Neighborhood: req.Neighborhood,
		City:         req.City,
	}

	if o.online {
		err := s.stores.Repos.Records(s.stores.Primary).Insert(ctx, &rec)
		if err == nil {
			s.log.Info(ctx, "punch recorded", "matricula", matricula, "type", rec.RecordType, "timestamp", timex.FormatSeconds(ts))
			return &models.PunchResult{Timestamp: ts}, nil
		}
		if !unavailable(err) {
			return nil, err
		}
		s.log.Warn(ctx, "primary insert failed, queueing punch", "matricula", matricula, "error", err)
	}

	entry := models.QueueEntry{TimeRecord: rec}
	entry.UserID = o.id()
	if err := s.stores.Repos.Queue(s.stores.Mirror).Enqueue(ctx, &entry); err != nil {
		return nil, fmt.Errorf("%w: punch not recorded: %v", common.ErrorInternal, err)
	}

	s.log.Info(ctx, "punch queued", "matricula", matricula, "type", rec.RecordType, "timestamp", timex.FormatSeconds(ts), "queue_id", entry.ID)
	return &models.PunchResult{Timestamp: ts, Queued: true}, nil
}
