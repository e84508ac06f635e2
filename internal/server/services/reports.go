package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/dmitrijs2005/timekeeper/internal/logging"
	"github.com/dmitrijs2005/timekeeper/internal/server/models"
	"github.com/dmitrijs2005/timekeeper/internal/server/repositories/records"
	"github.com/dmitrijs2005/timekeeper/internal/server/store"
	"github.com/dmitrijs2005/timekeeper/internal/timex"
)

// Archiver keeps a copy of produced admin reports.
type Archiver interface {
	Archive(ctx context.Context, sheets []models.Sheet) (string, error)
}

// ReportService builds tabular exports from the active store.
type ReportService struct {
	stores   *Stores
	archiver Archiver
	log      logging.Logger
}

// NewReportService builds the service; archiver may be nil.
func NewReportService(stores *Stores, archiver Archiver, log logging.Logger) *ReportService {
	return &ReportService{stores: stores, archiver: archiver, log: log.With("module", "reports")}
}

const maxSheetName = 30

func row(rec models.TimeRecord) []string {
	return []string{rec.Matricula, rec.UserName, rec.RecordType, timex.FormatSeconds(rec.Timestamp), rec.Neighborhood, rec.City}
}

func (s *ReportService) fetch(ctx context.Context, matricula string, rng records.Range) ([]models.TimeRecord, error) {
	h := s.stores.active()
	recs, err := s.stores.Repos.Records(h).Report(ctx, matricula, rng)
	if err != nil && unavailable(err) && h.Role() == store.RolePrimary {
		s.log.Warn(ctx, "primary unavailable for report, using mirror", "error", err)
		recs, err = s.stores.Repos.Records(s.stores.Mirror).Report(ctx, matricula, rng)
	}
	return recs, err
}

// AdminReport returns one sheet for matricula, or one sheet per owner when
// matricula is empty.
func (s *ReportService) AdminReport(ctx context.Context, matricula string) ([]models.Sheet, error) {
	recs, err := s.fetch(ctx, matricula, records.Range{})
	if err != nil {
		return nil, err
	}

	var sheets []models.Sheet
	if matricula != "" {
		sheet := models.Sheet{Name: "Report"}
		for _, rec := range recs {
			sheet.Rows = append(sheet.Rows, row(rec))
		}
		sheets = []models.Sheet{sheet}
	} else {
		sheets = groupByOwner(recs)
	}

	if s.archiver != nil {
		key, err := s.archiver.Archive(ctx, sheets)
		if err != nil {
			s.log.Warn(ctx, "report archive failed", "error", err)
		} else {
			s.log.Info(ctx, "report archived", "key", key)
		}
	}
	return sheets, nil
}

// groupByOwner keeps the first-seen order of owners. Records arrive ordered
// by matricula.
func groupByOwner(recs []models.TimeRecord) []models.Sheet {
	var sheets []models.Sheet
	index := map[string]int{}
	names := map[string]int{}

	for _, rec := range recs {
		key := rec.Matricula + "\x00" + rec.UserName
		i, ok := index[key]
		if !ok {
			name := firstNonEmpty(rec.UserName, rec.Matricula, "User")
			name = truncateRunes(name, maxSheetName)
			// sheet names must be unique
			if n := names[name]; n > 0 {
				name = fmt.Sprintf("%s (%d)", name, n+1)
			}
			names[name]++
			i = len(sheets)
			index[key] = i
			sheets = append(sheets, models.Sheet{Name: name})
		}
		sheets[i].Rows = append(sheets[i].Rows, row(rec))
	}
	return sheets
}

// UserReport returns matricula's records between the optional inclusive
// dates from and to, in YYYY-MM-DD form.
func (s *ReportService) UserReport(ctx context.Context, matricula, from, to string) (models.Sheet, error) {
	var rng records.Range
	if from = strings.TrimSpace(from); from != "" {
		t, err := time.Parse(timex.DateLayout, from)
		if err != nil {
			return models.Sheet{}, fmt.Errorf("%w: start_date: %v", common.ErrorValidation, err)
		}
		rng.From = t
	}
	if to = strings.TrimSpace(to); to != "" {
		t, err := time.Parse(timex.DateLayout, to)
		if err != nil {
			return models.Sheet{}, fmt.Errorf("%w: end_date: %v", common.ErrorValidation, err)
		}
		rng.To = t.AddDate(0, 0, 1)
	}

	recs, err := s.fetch(ctx, matricula, rng)
	if err != nil {
		return models.Sheet{}, err
	}

	sheet := models.Sheet{Name: "My records"}
	for _, rec := range recs {
		sheet.Rows = append(sheet.Rows, row(rec))
	}
	return sheet, nil
}

// truncateRunes cuts s to at most n characters without splitting a rune.
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
