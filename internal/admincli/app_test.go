package admincli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/logging"
	"github.com/dmitrijs2005/timekeeper/internal/server/auth"
	"github.com/dmitrijs2005/timekeeper/internal/server/config"
	"github.com/dmitrijs2005/timekeeper/internal/server/models"
	"github.com/dmitrijs2005/timekeeper/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResetPassword_MirrorOnlyWhenPrimaryDown(t *testing.T) {
	ctx := context.Background()
	c := &config.Config{}
	c.LoadDefaults()
	c.MirrorPath = filepath.Join(t.TempDir(), "local.db")
	c.DatabaseDSN = "postgres://u:p@127.0.0.1:1/none?sslmode=disable&connect_timeout=1"
	c.PrimaryTimeout = time.Second

	repos := repomanager.NewRepositoryManager()
	mirror, err := repos.OpenMirror(ctx, c.MirrorPath)
	require.NoError(t, err)
	hash, err := auth.HashPassword("old")
	require.NoError(t, err)
	_, err = repos.Users(mirror).Create(ctx, &models.User{Matricula: "admin", Password: hash, Name: "Admin", Role: models.RoleAdmin})
	require.NoError(t, err)
	require.NoError(t, mirror.Close())

	stubPasswords(t, "new", "new")
	var out bytes.Buffer
	require.NoError(t, NewApp(c, logging.Nop{}, &out, 0).ResetPassword(ctx, "admin"))
	assert.Contains(t, out.String(), "local mirror only")
	assert.Contains(t, out.String(), "password for admin updated")

	mirror, err = repos.OpenMirror(ctx, c.MirrorPath)
	require.NoError(t, err)
	defer mirror.Close()
	u, err := repos.Users(mirror).GetByMatricula(ctx, "admin")
	require.NoError(t, err)
	assert.True(t, auth.CheckPassword(u.Password, "new"))
}

func TestResetPassword_RequiresMatricula(t *testing.T) {
	c := &config.Config{}
	c.LoadDefaults()
	err := NewApp(c, logging.Nop{}, &bytes.Buffer{}, 0).ResetPassword(context.Background(), "")
	assert.Error(t, err)
}
