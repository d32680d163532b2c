package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"pxocore/internal/app/client/config"
	"pxocore/internal/domain/backup"
	"pxocore/internal/domain/device"
	syncdomain "pxocore/internal/domain/sync"
)

var (
	ErrNoDevice      = errors.New("устройство не зарегистрировано")
	ErrInvalidChange = errors.New("некорректное изменение")
)

type App struct {
	config     *config.Config
	log        *slog.Logger
	httpClient *httpClient
	storage    *SQLiteStorage
	sync       *SyncService
}

func New(cfg *config.Config, log *slog.Logger) (*App, error) {
	if err := os.MkdirAll(cfg.ConfigDir, 0o700); err != nil {
		return nil, fmt.Errorf("ошибка создания директории конфигурации: %w", err)
	}

	storage, err := NewSQLiteStorage(cfg.DataPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации локального хранилища: %w", err)
	}

	app := &App{
		config:     cfg,
		log:        log,
		httpClient: NewHTTPClient(cfg, log),
		storage:    storage,
	}
	app.sync = NewSyncService(app)

	return app, nil
}

// ConfigDir каталог конфигурации и локального хранилища
func (a *App) ConfigDir() string {
	return a.config.ConfigDir
}

// SetToken заменяет токен доступа для последующих запросов
func (a *App) SetToken(token string) {
	a.config.Token = token
	a.httpClient.token = token
}

func (a *App) Close() error {
	return a.storage.Close()
}

// CheckConnection проверяет доступность сервера
func (a *App) CheckConnection(ctx context.Context) error {
	return a.httpClient.HealthCheck(ctx)
}

// DeviceID устройство из конфигурации или сохраненное при регистрации
func (a *App) DeviceID(ctx context.Context) (string, error) {
	if a.config.DeviceID != "" {
		return a.config.DeviceID, nil
	}

	id, err := a.storage.DeviceID(ctx)
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", ErrNoDevice
	}
	return id, nil
}

// RegisterDevice регистрирует устройство на сервере и запоминает его id
func (a *App) RegisterDevice(ctx context.Context, req device.RegisterRequest) (*device.Device, error) {
	d, err := a.httpClient.RegisterDevice(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := a.storage.SetDeviceID(ctx, d.ID); err != nil {
		return nil, err
	}

	a.log.Info("Устройство зарегистрировано", "device_id", d.ID)
	return d, nil
}

// ChangeInput описание локального изменения для очереди
type ChangeInput struct {
	Type         syncdomain.ChangeType
	ResourceType syncdomain.ResourceType
	ResourceID   string
	Data         json.RawMessage
	Version      int
}

// AddChange ставит изменение в очередь. На сервер оно уйдет при
// следующей синхронизации.
func (a *App) AddChange(ctx context.Context, in ChangeInput) (*syncdomain.SyncChange, error) {
	if err := validateChange(in); err != nil {
		return nil, err
	}

	deviceID, err := a.DeviceID(ctx)
	if err != nil {
		return nil, err
	}

	change := syncdomain.SyncChange{
		ID:           uuid.NewString(),
		Type:         in.Type,
		ResourceType: in.ResourceType,
		ResourceID:   in.ResourceID,
		Timestamp:    time.Now().UTC(),
		DeviceID:     deviceID,
		Version:      in.Version,
	}
	if in.Type != syncdomain.ChangeDelete {
		change.Data = in.Data
	}

	if err := a.storage.Enqueue(ctx, change); err != nil {
		return nil, err
	}

	a.log.Debug("Изменение добавлено в очередь", "change_id", change.ID, "resource_id", change.ResourceID)
	return &change, nil
}

func validateChange(in ChangeInput) error {
	switch in.Type {
	case syncdomain.ChangeCreate, syncdomain.ChangeUpdate, syncdomain.ChangeDelete:
	default:
		return fmt.Errorf("%w: неизвестный тип %q", ErrInvalidChange, in.Type)
	}

	switch in.ResourceType {
	case syncdomain.ResourceContent, syncdomain.ResourceAnnotation,
		syncdomain.ResourcePreference, syncdomain.ResourceMemory:
	default:
		return fmt.Errorf("%w: неизвестный тип ресурса %q", ErrInvalidChange, in.ResourceType)
	}

	if in.ResourceID == "" {
		return fmt.Errorf("%w: не указан идентификатор ресурса", ErrInvalidChange)
	}

	if in.Type != syncdomain.ChangeDelete {
		if len(in.Data) == 0 || !json.Valid(in.Data) {
			return fmt.Errorf("%w: данные должны быть корректным JSON", ErrInvalidChange)
		}
	}
	return nil
}

// PendingCount число изменений, ожидающих отправки
func (a *App) PendingCount(ctx context.Context) (int, error) {
	return a.storage.CountPending(ctx)
}

func (a *App) LastSyncTime(ctx context.Context) (time.Time, error) {
	return a.storage.LastSyncTime(ctx)
}

func (a *App) Sync(ctx context.Context) (*SyncResult, error) {
	return a.sync.Sync(ctx)
}

func (a *App) FullSync(ctx context.Context) (*syncdomain.FullSyncResult, error) {
	deviceID, err := a.DeviceID(ctx)
	if err != nil {
		return nil, err
	}
	return a.httpClient.FullSync(ctx, deviceID)
}

func (a *App) Status(ctx context.Context) ([]syncdomain.SyncStatus, error) {
	return a.httpClient.Status(ctx)
}

func (a *App) History(ctx context.Context, page, limit int) (*syncdomain.HistoryPage, error) {
	deviceID, err := a.DeviceID(ctx)
	if err != nil {
		return nil, err
	}
	return a.httpClient.History(ctx, deviceID, page, limit)
}

func (a *App) Conflicts(ctx context.Context) ([]syncdomain.SyncConflict, error) {
	return a.httpClient.Conflicts(ctx)
}

func (a *App) ResolveConflict(ctx context.Context, id string, req syncdomain.ResolveRequest) (*syncdomain.ResolveResult, error) {
	return a.httpClient.ResolveConflict(ctx, id, req)
}

func (a *App) CreateBackup(ctx context.Context) (*backup.Info, error) {
	return a.httpClient.CreateBackup(ctx)
}

func (a *App) ListBackups(ctx context.Context) ([]backup.Info, error) {
	return a.httpClient.ListBackups(ctx)
}

func (a *App) RestoreBackup(ctx context.Context, id string) (*backup.RestoreResult, error) {
	return a.httpClient.RestoreBackup(ctx, id)
}
