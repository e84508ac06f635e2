package queue

import (
	"context"
	"database/sql"
	"strings"

	"github.com/dmitrijs2005/timekeeper/internal/server/models"
	"github.com/dmitrijs2005/timekeeper/internal/server/repositories/records"
	"github.com/dmitrijs2005/timekeeper/internal/server/store"
)

type SQLRepository struct {
	h store.Handle
}

func NewRepository(h store.Handle) *SQLRepository {
	return &SQLRepository{h: h}
}

func (r *SQLRepository) Enqueue(ctx context.Context, entry *models.QueueEntry) error {
	d := r.h.Dialect()
	query := d.Rebind(`INSERT INTO OfflineQueue (` + records.InsertColumns + `)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 RETURNING id`)

	if err := r.h.DB().QueryRowContext(ctx, query, records.InsertArgs(d, &entry.TimeRecord)...).Scan(&entry.ID); err != nil {
		return store.Fail(r.h, err)
	}
	return nil
}

func (r *SQLRepository) ListForOwner(ctx context.Context, matricula string, userIDs ...int64) ([]models.QueueEntry, error) {
	where := "matricula = ?"
	args := []any{matricula}

	var ids []string
	for _, id := range userIDs {
		if id == 0 {
			continue
		}
		ids = append(ids, "?")
		args = append(args, id)
	}
	if len(ids) > 0 {
		where += " OR (matricula IS NULL AND user_id IN (" + strings.Join(ids, ", ") + "))"
	}

	d := r.h.Dialect()
	rows, err := r.h.DB().QueryContext(ctx, d.Rebind(`SELECT `+records.Columns+` FROM OfflineQueue
		 WHERE `+where+`
		 ORDER BY timestamp ASC, id ASC`), args...)
	if err != nil {
		return nil, store.Fail(r.h, err)
	}
	recs, err := records.ScanAll(d, rows)
	if err != nil {
		return nil, store.Fail(r.h, err)
	}

	out := make([]models.QueueEntry, len(recs))
	for i, rec := range recs {
		out[i] = models.QueueEntry{TimeRecord: rec}
	}
	return out, nil
}

func (r *SQLRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.h.DB().ExecContext(ctx, r.h.Dialect().Rebind(`DELETE FROM OfflineQueue WHERE id = ?`), id)
	return store.Fail(r.h, err)
}

func (r *SQLRepository) Owners(ctx context.Context) ([]models.Owner, error) {
	rows, err := r.h.DB().QueryContext(ctx, `SELECT DISTINCT matricula, user_id FROM OfflineQueue`)
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

func (r *SQLRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.h.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM OfflineQueue`).Scan(&n); err != nil {
		return 0, store.Fail(r.h, err)
	}
	return n, nil
}

func (r *SQLRepository) BackfillOwners(ctx context.Context) (int64, error) {
	return records.BackfillOwners(ctx, r.h, "OfflineQueue")
}
