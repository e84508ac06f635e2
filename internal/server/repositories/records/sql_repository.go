package records

import (
	"context"
	"database/sql"
	"strings"

	"github.com/dmitrijs2005/timekeeper/internal/server/models"
	"github.com/dmitrijs2005/timekeeper/internal/server/store"
)

type SQLRepository struct {
	h store.Handle
}

func NewRepository(h store.Handle) *SQLRepository {
	return &SQLRepository{h: h}
}

func (r *SQLRepository) query(ctx context.Context, query string, args ...any) ([]models.TimeRecord, error) {
	d := r.h.Dialect()
	rows, err := r.h.DB().QueryContext(ctx, d.Rebind(query), args...)
	if err != nil {
		return nil, store.Fail(r.h, err)
	}
	out, err := ScanAll(d, rows)
	if err != nil {
		return nil, store.Fail(r.h, err)
	}
	return out, nil
}

func (r *SQLRepository) Insert(ctx context.Context, rec *models.TimeRecord) error {
	d := r.h.Dialect()
	query := d.Rebind(`INSERT INTO TimeRecords (` + InsertColumns + `)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 RETURNING id`)

	if err := r.h.DB().QueryRowContext(ctx, query, InsertArgs(d, rec)...).Scan(&rec.ID); err != nil {
		return store.Fail(r.h, err)
	}
	return nil
}

// rangeClause appends the bounds of rng to where/args.
func rangeClause(d store.Dialect, rng Range, where []string, args []any) ([]string, []any) {
	if !rng.From.IsZero() {
		where = append(where, "timestamp >= ?")
		args = append(args, d.Time(rng.From))
	}
	if !rng.To.IsZero() {
		where = append(where, "timestamp < ?")
		args = append(args, d.Time(rng.To))
	}
	return where, args
}

func (r *SQLRepository) ListByMatricula(ctx context.Context, matricula string, rng Range) ([]models.TimeRecord, error) {
	where, args := rangeClause(r.h.Dialect(), rng, []string{"matricula = ?"}, []any{matricula})
	return r.query(ctx, `SELECT `+Columns+` FROM TimeRecords
		 WHERE `+strings.Join(where, " AND ")+`
		 ORDER BY timestamp DESC, id DESC`, args...)
}

func (r *SQLRepository) Signatures(ctx context.Context, matricula string) (map[models.Signature]struct{}, error) {
	recs, err := r.query(ctx, `SELECT `+Columns+` FROM TimeRecords WHERE matricula = ?`, matricula)
	if err != nil {
		return nil, err
	}
	sigs := make(map[models.Signature]struct{}, len(recs))
	for _, rec := range recs {
		sigs[rec.Signature()] = struct{}{}
	}
	return sigs, nil
}

func (r *SQLRepository) ListOwned(ctx context.Context, matricula string, localUserID int64) ([]models.TimeRecord, error) {
	return r.query(ctx, `SELECT `+Columns+` FROM TimeRecords
		 WHERE matricula = ? OR (matricula IS NULL AND user_id = ?)
		 ORDER BY timestamp ASC, id ASC`, matricula, localUserID)
}

func (r *SQLRepository) Owners(ctx context.Context) ([]models.Owner, error) {
	rows, err := r.h.DB().QueryContext(ctx, `SELECT DISTINCT matricula, user_id FROM TimeRecords`)
	if err != nil {
		return nil, store.Fail(r.h, err)
	}
	defer rows.Close()

	var out []models.Owner
	for rows.Next() {
		var (
			m  sql.NullString
			id sql.NullInt64
		)
		if err := rows.Scan(&m, &id); err != nil {
			return nil, store.Fail(r.h, err)
		}
		out = append(out, models.Owner{Matricula: m.String, UserID: id.Int64})
	}
	if err := rows.Err(); err != nil {
		return nil, store.Fail(r.h, err)
	}
	return out, nil
}

func (r *SQLRepository) HealOwner(ctx context.Context, id int64, matricula, name string) error {
	query := r.h.Dialect().Rebind(
		`UPDATE TimeRecords SET matricula = ?, user_name = COALESCE(user_name, ?)
		 WHERE id = ? AND matricula IS NULL`)
	_, err := r.h.DB().ExecContext(ctx, query, matricula, name, id)
	return store.Fail(r.h, err)
}

func (r *SQLRepository) Report(ctx context.Context, matricula string, rng Range) ([]models.TimeRecord, error) {
	var (
		where []string
		args  []any
	)
	if matricula != "" {
		where = append(where, "matricula = ?")
		args = append(args, matricula)
	}
	where, args = rangeClause(r.h.Dialect(), rng, where, args)

	query := `SELECT ` + Columns + ` FROM TimeRecords`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY matricula, timestamp DESC, id DESC`
	return r.query(ctx, query, args...)
}

func (r *SQLRepository) DeleteByOwner(ctx context.Context, userID int64, matricula string) (int64, error) {
	query := r.h.Dialect().Rebind(`DELETE FROM TimeRecords WHERE user_id = ? OR matricula = ?`)
	res, err := r.h.DB().ExecContext(ctx, query, userID, matricula)
	if err != nil {
		return 0, store.Fail(r.h, err)
	}
	n, err := res.RowsAffected()
	return n, store.Fail(r.h, err)
}

func (r *SQLRepository) BackfillOwners(ctx context.Context) (int64, error) {
	return BackfillOwners(ctx, r.h, "TimeRecords")
}

// BackfillOwners heals rows of table whose matricula is unknown but whose
// user_id names a user in the same store.
func BackfillOwners(ctx context.Context, h store.Handle, table string) (int64, error) {
	query := `UPDATE ` + table + `
		 SET matricula = (SELECT u.matricula FROM Users u WHERE u.id = ` + table + `.user_id),
		     user_name = COALESCE(user_name, (SELECT u.name FROM Users u WHERE u.id = ` + table + `.user_id))
		 WHERE matricula IS NULL AND user_id IN (SELECT id FROM Users)`
	res, err := h.DB().ExecContext(ctx, query)
	if err != nil {
		return 0, store.Fail(h, err)
	}
	n, err := res.RowsAffected()
	return n, store.Fail(h, err)
}
