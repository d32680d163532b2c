// Маршруты API:
//
//	GET  /api/v1/health                      # Проверка состояния (публичный)
//	POST /api/sync/full                      # Полная синхронизация (auth)
//	POST /api/sync/delta                     # Инкрементальная синхронизация (auth)
//	GET  /api/sync/status                    # Статус по устройствам (auth)
//	GET  /api/sync/conflicts                 # Неразрешенные конфликты (auth)
//	POST /api/sync/conflicts/{id}/resolve    # Разрешить конфликт (auth)
//	GET  /api/sync/history                   # История синхронизаций устройства (auth)
//	POST /api/sync/backups                   # Создать резервную копию (auth)
//	GET  /api/sync/backups                   # Список копий (auth)
//	POST /api/sync/backups/{id}/restore      # Восстановить из копии (auth)
//	POST /api/devices                        # Зарегистрировать устройство (auth)
//	GET  /api/devices                        # Список устройств (auth)
//	PUT  /api/devices/{id}/status            # Онлайн/офлайн (auth)
//	GET  /api/sync/ws                        # WebSocket (auth)
package api

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"golang.org/x/exp/slog"

	backupAPI "pxocore/internal/app/server/api/http/backup"
	deviceAPI "pxocore/internal/app/server/api/http/device"
	healthAPI "pxocore/internal/app/server/api/http/health"
	"pxocore/internal/app/server/api/http/middleware"
	"pxocore/internal/app/server/api/http/middleware/auth"
	"pxocore/internal/app/server/api/http/middleware/logger"
	syncAPI "pxocore/internal/app/server/api/http/sync"
	"pxocore/internal/app/server/api/ws"
	"pxocore/internal/domain/backup"
	"pxocore/internal/domain/device"
	"pxocore/internal/domain/session"
	"pxocore/internal/domain/sync"
)

// Services доменные сервисы, которые обслуживает API
type Services struct {
	Sync    sync.Servicer
	Backup  backup.Servicer
	Device  device.Servicer
	Session session.Servicer
	// Storage nil, если проверять нечего
	Storage healthAPI.Pinger
}

type Handlers struct {
	Health *healthAPI.Handler
	Sync   *syncAPI.Handler
	Backup *backupAPI.Handler
	Device *deviceAPI.Handler
}

// New создает *chi.Mux с ВСЕМИ операциями через huma.Register
func New(services Services, log *slog.Logger) *chi.Mux {
	mux := chi.NewMux()

	config := huma.DefaultConfig("PXO Sync API", "1.0.0")
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {Type: "http", Scheme: "bearer"},
	}

	API := humachi.New(mux, config)

	authMW := auth.New(services.Session, log)
	h := handlers(services, authMW, log)
	h.Health.SetupRoutes(API)
	h.Sync.SetupRoutes(API)
	h.Backup.SetupRoutes(API)
	h.Device.SetupRoutes(API)

	mux.With(authMW.HTTPMiddleware).Get("/api/sync/ws", ws.NewHandler(services.Sync, log).ServeHTTP)

	return mux
}

func handlers(services Services, authMW *auth.Auth, log *slog.Logger) *Handlers {
	loggerMW := logger.New(log)
	middlewares := middleware.NewContainer()

	middlewares.Add(loggerMW.Middleware())
	healthHandler := healthAPI.NewHandler(log, services.Storage, middlewares.GetAllAndClear())

	middlewares.Add(authMW.Middleware())
	middlewares.Add(loggerMW.Middleware())
	syncHandler := syncAPI.NewHandler(services.Sync, log, middlewares.GetAllAndClear())

	middlewares.Add(authMW.Middleware())
	middlewares.Add(loggerMW.Middleware())
	backupHandler := backupAPI.NewHandler(services.Backup, log, middlewares.GetAllAndClear())

	middlewares.Add(authMW.Middleware())
	middlewares.Add(loggerMW.Middleware())
	deviceHandler := deviceAPI.NewHandler(services.Device, log, middlewares.GetAllAndClear())

	return &Handlers{
		Health: healthHandler,
		Sync:   syncHandler,
		Backup: backupHandler,
		Device: deviceHandler,
	}
}
