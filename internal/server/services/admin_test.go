package services

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/dmitrijs2005/timekeeper/internal/server/auth"
	"github.com/dmitrijs2005/timekeeper/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestListUsers_ActiveStore(t *testing.T) {
	f := newFixture(t, true)
	f.addUser(f.stores.Primary, "P1", "Primary", models.RoleUser, "pw")
	f.addUser(f.stores.Mirror, "M1", "Mirror", models.RoleUser, "pw")

	got, err := f.admin.ListUsers(f.ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "P1", got[0].Matricula)

	f.status.set(false)
	got, err = f.admin.ListUsers(f.ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "M1", got[0].Matricula)
}

func TestUpdateUser_MirroredByOldMatricula(t *testing.T) {
	f := newFixture(t, true)
	u, err := f.admin.CreateUser(f.ctx, "U1", "pw", "Ana", models.RoleUser)
	require.NoError(t, err)

	updated, err := f.admin.UpdateUser(f.ctx, u.ID, models.UserPatch{
		Matricula: ptr("U1-b"),
		Role:      ptr(models.RoleAdmin),
		Password:  ptr("new"),
	})
	require.NoError(t, err)
	assert.Equal(t, "U1-b", updated.Matricula)
	assert.Equal(t, "Ana", updated.Name)

	local, err := f.repos.Users(f.stores.Mirror).GetByMatricula(f.ctx, "U1-b")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, local.Role)
	assert.True(t, auth.CheckPassword(local.Password, "new"))
}

func TestUpdateUser_Errors(t *testing.T) {
	f := newFixture(t, true)
	u := f.addUser(f.stores.Primary, "U1", "Ana", models.RoleUser, "pw")
	f.addUser(f.stores.Primary, "U2", "Bia", models.RoleUser, "pw")

	_, err := f.admin.UpdateUser(f.ctx, u.ID, models.UserPatch{})
	assert.ErrorIs(t, err, common.ErrorValidation)

	_, err = f.admin.UpdateUser(f.ctx, u.ID, models.UserPatch{Role: ptr(models.Role("root"))})
	assert.ErrorIs(t, err, common.ErrorValidation)

	_, err = f.admin.UpdateUser(f.ctx, 999, models.UserPatch{Name: ptr("x")})
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = f.admin.UpdateUser(f.ctx, u.ID, models.UserPatch{Matricula: ptr("U2")})
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestDeleteUser_CascadesRecordsAndMirror(t *testing.T) {
	f := newFixture(t, true)
	u, err := f.admin.CreateUser(f.ctx, "U1", "pw", "Ana", models.RoleUser)
	require.NoError(t, err)
	_, err = f.punch.Punch(f.ctx, "U1", centro("in"))
	require.NoError(t, err)

	require.NoError(t, f.admin.DeleteUser(f.ctx, u.ID))

	assert.Empty(t, f.primaryRecords("U1"))
	_, err = f.repos.Users(f.stores.Mirror).GetByMatricula(f.ctx, "U1")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	assert.ErrorIs(t, f.admin.DeleteUser(f.ctx, u.ID), common.ErrorNotFound)
}

func TestBulkDelete(t *testing.T) {
	f := newFixture(t, true)
	a := f.addUser(f.stores.Primary, "A", "A", models.RoleUser, "pw")
	b := f.addUser(f.stores.Primary, "B", "B", models.RoleUser, "pw")
	keep := f.addUser(f.stores.Primary, "C", "C", models.RoleUser, "pw")
	f.enqueue("A", 0, "in", time.Now())

	n, err := f.admin.BulkDelete(f.ctx, []int64{a.ID, b.ID, 4242})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	left, err := f.admin.ListUsers(f.ctx)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, keep.ID, left[0].ID)

	// queued punches are never discarded by user management
	assert.Equal(t, 1, f.queueLen())

	_, err = f.admin.BulkDelete(f.ctx, nil)
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestGetUser(t *testing.T) {
	f := newFixture(t, true)
	u := f.addUser(f.stores.Primary, "U1", "Ana", models.RoleUser, "pw")

	got, err := f.admin.GetUser(f.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "U1", got.Matricula)

	_, err = f.admin.GetUser(f.ctx, u.ID+100)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}
