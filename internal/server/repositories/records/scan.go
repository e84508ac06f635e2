package records

import (
	"database/sql"

	"github.com/dmitrijs2005/timekeeper/internal/dbx"
	"github.com/dmitrijs2005/timekeeper/internal/server/models"
	"github.com/dmitrijs2005/timekeeper/internal/server/store"
)

// Columns is the select list understood by Scan. The OfflineQueue table
// shares it.
const Columns = `id, user_id, matricula, user_name, record_type, timestamp, neighborhood, city`

// InsertColumns is Columns without the store-assigned id.
const InsertColumns = `user_id, matricula, user_name, record_type, timestamp, neighborhood, city`

type scanner interface {
	Scan(dest ...any) error
}

// Scan reads one row selected with Columns.
func Scan(d store.Dialect, s scanner) (models.TimeRecord, error) {
	var (
		rec                                 models.TimeRecord
		userID                              sql.NullInt64
		matricula, name, neighborhood, city sql.NullString
		ts                                  any
	)
	if err := s.Scan(&rec.ID, &userID, &matricula, &name, &rec.RecordType, &ts, &neighborhood, &city); err != nil {
		return rec, err
	}
	t, err := d.ParseTime(ts)
	if err != nil {
		return rec, err
	}
	rec.UserID = userID.Int64
	rec.Matricula = matricula.String
	rec.UserName = name.String
	rec.Timestamp = t
	rec.Neighborhood = neighborhood.String
	rec.City = city.String
	return rec, nil
}

// InsertArgs returns the bind arguments for InsertColumns. Unknown owners
// are bound as NULL.
func InsertArgs(d store.Dialect, rec *models.TimeRecord) []any {
	return []any{
		dbx.NullInt64(rec.UserID),
		dbx.NullString(rec.Matricula),
		dbx.NullString(rec.UserName),
		rec.RecordType,
		d.Time(rec.Timestamp),
		rec.Neighborhood,
		rec.City,
	}
}

// ScanAll drains rows. The mirror runs on a single connection, so rows must
// be fully read before the next statement is issued.
func ScanAll(d store.Dialect, rows *sql.Rows) ([]models.TimeRecord, error) {
	defer rows.Close()
	var out []models.TimeRecord
	for rows.Next() {
		rec, err := Scan(d, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
