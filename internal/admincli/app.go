package admincli

import (
	"context"
	"fmt"
	"io"

	"github.com/dmitrijs2005/timekeeper/internal/logging"
	"github.com/dmitrijs2005/timekeeper/internal/server/config"
	"github.com/dmitrijs2005/timekeeper/internal/server/probe"
	"github.com/dmitrijs2005/timekeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/timekeeper/internal/server/services"
	"github.com/dmitrijs2005/timekeeper/internal/server/store"
)

// App resets passwords using the server's configuration.
type App struct {
	config *config.Config
	logger logging.Logger
	out    io.Writer
	fd     int
}

func NewApp(c *config.Config, logger logging.Logger, out io.Writer, fd int) *App {
	return &App{config: c, logger: logger.With("module", "admincli"), out: out, fd: fd}
}

// ResetPassword prompts for a new password and stores it for matricula.
// The primary is updated only when a single check finds it reachable.
func (a *App) ResetPassword(ctx context.Context, matricula string) error {
	if matricula == "" {
		return fmt.Errorf("a matricula is required")
	}

	password, err := PromptPassword(a.out, a.fd)
	if err != nil {
		return err
	}

	repos := repomanager.NewRepositoryManager()
	mirror, err := repos.OpenMirror(ctx, a.config.MirrorPath)
	if err != nil {
		return fmt.Errorf("open mirror: %w", err)
	}
	defer mirror.Close()

	primary, err := store.OpenPrimary(a.config.PrimaryDSN(), a.config.PrimaryTimeout)
	if err != nil {
		return fmt.Errorf("open primary: %w", err)
	}
	defer primary.Close()

	p := probe.New(primary, a.config.HealthCheckInterval, a.logger)
	if !p.Check(ctx) {
		fmt.Fprintln(a.out, "primary store unreachable, updating the local mirror only")
	}

	stores := &services.Stores{Primary: primary, Mirror: mirror, Status: p, Repos: repos}
	if err := services.ResetPassword(ctx, stores, matricula, password, a.logger); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "password for %s updated\n", matricula)
	return nil
}
