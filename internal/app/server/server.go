// Package server собирает хранилище, доменные сервисы и HTTP API
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/exp/slog"

	"pxocore/internal/app/server/api"
	"pxocore/internal/app/server/config"
	"pxocore/internal/domain/backup"
	"pxocore/internal/domain/device"
	"pxocore/internal/domain/session"
	"pxocore/internal/domain/sync"
	"pxocore/internal/infrastructure/storage/memory"
	"pxocore/internal/infrastructure/storage/postgres"
)

type App struct {
	cfg      *config.Config
	log      *slog.Logger
	services api.Services
	close    func() error
}

// New подключает хранилище, выбранное STORAGE_DRIVER, и создает сервисы
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	app := &App{cfg: cfg, log: log.With("component", "server")}

	syncConfig := &sync.ServiceConfig{
		HistoryPageSize:    cfg.Sync.HistoryPageSize,
		MaxHistoryPageSize: cfg.Sync.MaxHistoryPageSize,
		MaxBatchSize:       cfg.Sync.MaxBatchSize,
	}

	switch cfg.DB.Driver {
	case config.DriverMemory:
		store := memory.New()
		devices := device.NewService(memory.NewDeviceRepository(), log)
		app.services = api.Services{
			Sync:    sync.NewService(memory.NewSyncStore(store), devices, log, syncConfig),
			Backup:  backup.NewService(memory.NewBackupStore(store), log),
			Device:  devices,
			Session: session.NewService(memory.NewSessionRepository(), log),
		}
		app.close = func() error { return nil }
		app.log.Warn("using in-memory storage, data is lost on restart")

	case config.DriverPostgres:
		storage, err := postgres.New(ctx, cfg, log)
		if err != nil {
			return nil, fmt.Errorf("init storage: %w", err)
		}
		devices := device.NewService(postgres.NewDeviceRepository(storage.Pool(), log), log)
		app.services = api.Services{
			Sync:    sync.NewService(postgres.NewSyncStore(storage, log), devices, log, syncConfig),
			Backup:  backup.NewService(postgres.NewBackupStore(storage, log), log),
			Device:  devices,
			Session: session.NewService(postgres.NewSessionRepository(storage.Pool(), log), log),
			Storage: storage,
		}
		app.close = storage.Close

	default:
		return nil, fmt.Errorf("%w: unknown storage driver %q", config.ErrInvalidConfig, cfg.DB.Driver)
	}

	return app, nil
}

// Sessions сервис сессий для выдачи токенов из командной строки
func (a *App) Sessions() session.Servicer {
	return a.services.Session
}

func (a *App) Handler() http.Handler {
	return api.New(a.services, a.log)
}

// Run обслуживает HTTP до отмены ctx, затем останавливает сервер,
// дожидаясь активных запросов не дольше ShutdownTimeout.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    a.cfg.Server.RunAddress,
		Handler: a.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("starting server", "address", a.cfg.Server.RunAddress, "storage", a.cfg.DB.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (a *App) Close() error {
	return a.close()
}
