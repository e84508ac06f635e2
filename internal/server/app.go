// Package server wires the stores, services and HTTP API together and runs
// them until the process is asked to stop.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/timekeeper/internal/logging"
	"github.com/dmitrijs2005/timekeeper/internal/server/config"
	"github.com/dmitrijs2005/timekeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/timekeeper/internal/server/probe"
	"github.com/dmitrijs2005/timekeeper/internal/server/reports"
	"github.com/dmitrijs2005/timekeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/timekeeper/internal/server/services"
	"github.com/dmitrijs2005/timekeeper/internal/server/store"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	primary *store.PrimaryHandle
	mirror  *store.MirrorHandle
	repos   *repomanager.SQLRepositoryManager
	stores  *services.Stores
	probe   *probe.Probe
	sync    *services.SyncService
	server  *httpapi.HTTPServer

	// serializes schema upgrades of the primary across recoveries
	migrating sync.Mutex
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	return newApp(ctx, c, logging.NewJSONLogger(os.Stdout, c.LogLevel))
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	loc, err := c.Location()
	if err != nil {
		return nil, err
	}

	repos := repomanager.NewRepositoryManager()

	mirror, err := repos.OpenMirror(ctx, c.MirrorPath)
	if err != nil {
		return nil, fmt.Errorf("mirror init error: %w", err)
	}

	primary, err := store.OpenPrimary(c.PrimaryDSN(), c.PrimaryTimeout)
	if err != nil {
		_ = mirror.Close()
		return nil, fmt.Errorf("primary init error: %w", err)
	}

	app := &App{config: c, logger: logger, primary: primary, mirror: mirror, repos: repos}

	var status probe.Status
	if c.ForceOnline {
		status = probe.AlwaysOnline{}
	} else {
		app.probe = probe.New(primary, c.HealthCheckInterval, logger)
		status = app.probe
	}

	app.stores = &services.Stores{Primary: primary, Mirror: mirror, Status: status, Repos: repos}

	admin := services.AdminAccount{Matricula: c.AdminMatricula, Password: c.AdminPassword, Name: c.AdminName}
	if err := services.Bootstrap(ctx, app.stores, admin, logger); err != nil {
		app.close(ctx)
		return nil, fmt.Errorf("bootstrap error: %w", err)
	}

	var archiver services.Archiver
	if c.ArchiveEnabled() {
		archiver = reports.NewS3Archiver(c)
	}

	app.sync = services.NewSyncService(app.stores, logger)
	if app.probe != nil {
		app.probe.OnRecover(app.onPrimaryRecovered)
	}

	app.server = httpapi.NewHTTPServer(c.HTTPAddr, logger, httpapi.Services{
		Users:   services.NewUserService(app.stores, app.sync, c, logger),
		Punch:   services.NewPunchService(app.stores, loc, logger),
		History: services.NewHistoryService(app.stores, loc, logger),
		Sync:    app.sync,
		Admin:   services.NewAdminService(app.stores, logger),
		Reports: services.NewReportService(app.stores, archiver, logger),
		Status:  status,
	})

	return app, nil
}

// migratePrimary brings the primary schema up to date.
func (app *App) migratePrimary(ctx context.Context) error {
	app.migrating.Lock()
	defer app.migrating.Unlock()
	return app.repos.RunMigrations(ctx, app.primary.SQL(), app.primary.Dialect())
}

// onPrimaryRecovered runs whenever the primary becomes reachable: upgrade its schema,
// then drain every offline queue into it.
func (app *App) onPrimaryRecovered(ctx context.Context) {
	if err := app.migratePrimary(ctx); err != nil {
		app.logger.Error(ctx, "primary migration failed, skipping sweep", "error", err)
		return
	}
	n, err := app.sync.ReconcileAll(ctx)
	if err != nil {
		app.logger.Error(ctx, "recovery sweep failed", "error", err)
		return
	}
	app.logger.Info(ctx, "recovery sweep done", "migrated", n)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) close(ctx context.Context) {
	if err := app.primary.Close(); err != nil {
		app.logger.Warn(ctx, "closing primary failed", "error", err)
	}
	if err := app.mirror.Close(); err != nil {
		app.logger.Warn(ctx, "closing mirror failed", "error", err)
	}
}

// Run serves until ctx is canceled or a termination signal arrives, then
// waits for background work and closes both stores.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "mirror", app.mirror.Path(), "force_online", app.config.ForceOnline)

	app.initSignalHandler(cancelFunc)

	if app.config.ForceOnline {
		if err := app.migratePrimary(ctx); err != nil {
			app.logger.Error(ctx, "primary migration failed", "error", err)
		}
	}

	var wg sync.WaitGroup

	if app.probe != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.probe.Run(ctx)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()
	app.sync.Wait()
	app.close(context.WithoutCancel(ctx))
	app.logger.Info(ctx, "App stopped")
}
