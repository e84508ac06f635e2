package users

import (
	"context"

	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/dmitrijs2005/timekeeper/internal/server/models"
	"github.com/dmitrijs2005/timekeeper/internal/server/store"
)

type SQLRepository struct {
	h store.Handle
}

func NewRepository(h store.Handle) *SQLRepository {
	return &SQLRepository{h: h}
}

const userColumns = `id, matricula, password, name, role`

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*models.User, error) {
	u := &models.User{}
	var role string
	if err := s.Scan(&u.ID, &u.Matricula, &u.Password, &u.Name, &role); err != nil {
		return nil, err
	}
	u.Role = models.Role(role)
	return u, nil
}

func (r *SQLRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query := r.h.Dialect().Rebind(
		`INSERT INTO Users (matricula, password, name, role)
		 VALUES (?, ?, ?, ?)
		 RETURNING id`)

	role := user.Role
	if role == "" {
		role = models.RoleUser
	}
	err := r.h.DB().QueryRowContext(ctx, query, user.Matricula, user.Password, user.Name, string(role)).Scan(&user.ID)
	if err != nil {
		return nil, store.Fail(r.h, err)
	}
	user.Role = role
	return user, nil
}

func (r *SQLRepository) GetByMatricula(ctx context.Context, matricula string) (*models.User, error) {
	query := r.h.Dialect().Rebind(`SELECT ` + userColumns + ` FROM Users WHERE matricula = ?`)

	u, err := scanUser(r.h.DB().QueryRowContext(ctx, query, matricula))
	if err != nil {
		return nil, store.Fail(r.h, err)
	}
	return u, nil
}

func (r *SQLRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := r.h.Dialect().Rebind(`SELECT ` + userColumns + ` FROM Users WHERE id = ?`)

	u, err := scanUser(r.h.DB().QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, store.Fail(r.h, err)
	}
	return u, nil
}

func (r *SQLRepository) List(ctx context.Context) ([]models.User, error) {
	rows, err := r.h.DB().QueryContext(ctx, `SELECT `+userColumns+` FROM Users ORDER BY name, matricula`)
	if err != nil {
		return nil, store.Fail(r.h, err)
	}
	defer rows.Close()

	var out []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, store.Fail(r.h, err)
		}
		out = append(out, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Fail(r.h, err)
	}
	return out, nil
}

func (r *SQLRepository) Update(ctx context.Context, user *models.User) error {
	query := r.h.Dialect().Rebind(
		`UPDATE Users SET matricula = ?, password = ?, name = ?, role = ?
		 WHERE id = ?`)
	return r.exec1(ctx, query, user.Matricula, user.Password, user.Name, string(user.Role), user.ID)
}

func (r *SQLRepository) UpdateByMatricula(ctx context.Context, matricula string, user *models.User) error {
	query := r.h.Dialect().Rebind(
		`UPDATE Users SET matricula = ?, password = ?, name = ?, role = ?
		 WHERE matricula = ?`)
	return r.exec1(ctx, query, user.Matricula, user.Password, user.Name, string(user.Role), matricula)
}

func (r *SQLRepository) Upsert(ctx context.Context, user *models.User) error {
	query := r.h.Dialect().Rebind(
		`INSERT INTO Users (matricula, password, name, role)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (matricula) DO UPDATE
		 SET password = excluded.password, name = excluded.name, role = excluded.role`)

	_, err := r.h.DB().ExecContext(ctx, query, user.Matricula, user.Password, user.Name, string(user.Role))
	return store.Fail(r.h, err)
}

func (r *SQLRepository) Delete(ctx context.Context, id int64) error {
	return r.exec1(ctx, r.h.Dialect().Rebind(`DELETE FROM Users WHERE id = ?`), id)
}

func (r *SQLRepository) DeleteByMatricula(ctx context.Context, matricula string) error {
	return r.exec1(ctx, r.h.Dialect().Rebind(`DELETE FROM Users WHERE matricula = ?`), matricula)
}

// exec1 runs a statement that must touch exactly one row.
func (r *SQLRepository) exec1(ctx context.Context, query string, args ...any) error {
	res, err := r.h.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return store.Fail(r.h, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return store.Fail(r.h, err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
