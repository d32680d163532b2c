package sync

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"pxocore/internal/domain/device"
)

// Servicer интерфейс сервиса синхронизации
type Servicer interface {
	// PerformFullSync сверяет все данные пользователя с журналом изменений
	PerformFullSync(ctx context.Context, userID, deviceID string) (*FullSyncResult, error)

	// PerformDeltaSync применяет пакет локальных изменений устройства и
	// возвращает изменения сервера, которых устройство еще не видело
	PerformDeltaSync(ctx context.Context, userID string, req DeltaSyncRequest) (*DeltaSyncResult, error)

	// ResolveConflict разрешает указанный конфликт
	ResolveConflict(ctx context.Context, userID, conflictID string, req ResolveRequest) (*ResolveResult, error)

	// ListConflicts возвращает неразрешенные конфликты пользователя
	ListConflicts(ctx context.Context, userID string) ([]SyncConflict, error)

	// GetSyncStatus возвращает состояние синхронизации по каждому устройству
	GetSyncStatus(ctx context.Context, userID string) ([]SyncStatus, error)

	// GetSyncHistory возвращает страницу журнала синхронизаций устройства
	GetSyncHistory(ctx context.Context, userID string, req HistoryRequest) (*HistoryPage, error)
}

// Service реализация сервиса синхронизации
type Service struct {
	store   Store
	devices DeviceLister
	log     *slog.Logger
	config  *ServiceConfig
	now     func() time.Time
}

// NewService создает новый сервис синхронизации
func NewService(store Store, devices DeviceLister, log *slog.Logger, config *ServiceConfig) *Service {
	if config == nil {
		config = &ServiceConfig{
			HistoryPageSize:    20,
			MaxHistoryPageSize: 100,
			MaxBatchSize:       1000,
		}
	}
	if config.HistoryPageSize <= 0 {
		c := *config
		c.HistoryPageSize = 20
		config = &c
	}

	return &Service{
		store:   store,
		devices: devices,
		log:     log.With("component", "sync_service"),
		config:  config,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// PerformFullSync читает все данные пользователя, сверяет их с журналом
// изменений и сохраняет найденные расхождения как конфликты. Время
// синхронизации устройства обновляется независимо от числа конфликтов.
func (s *Service) PerformFullSync(ctx context.Context, userID, deviceID string) (*FullSyncResult, error) {
	if userID == "" || deviceID == "" {
		return nil, fmt.Errorf("%w: user and device are required", ErrInvalidArgument)
	}
	if err := s.checkDevice(ctx, userID, deviceID); err != nil {
		return nil, err
	}

	log := s.log.With("user_id", userID, "device_id", deviceID)
	log.Info("full sync started")
	start := time.Now()

	result := &FullSyncResult{Success: true}
	err := s.store.WithinTx(ctx, userID, func(tx Store) error {
		state, err := loadState(ctx, tx, userID)
		if err != nil {
			return err
		}

		conflicts, err := s.reconcile(ctx, tx, userID, state)
		if err != nil {
			return err
		}

		for i := range conflicts {
			if err := tx.SaveConflict(ctx, userID, &conflicts[i]); err != nil {
				return fmt.Errorf("save conflict: %w", err)
			}
		}

		result.SyncedItems = state.itemCount()
		result.Conflicts = len(conflicts)
		result.Timestamp = s.now()

		return tx.RecordSync(ctx, &HistoryEntry{
			ID:          uuid.NewString(),
			UserID:      userID,
			DeviceID:    deviceID,
			SyncType:    SyncFull,
			Status:      historyCompleted,
			SyncedItems: result.SyncedItems,
			Conflicts:   result.Conflicts,
			Timestamp:   result.Timestamp,
		})
	})
	if err != nil {
		log.Error("full sync failed", "error", err)
		s.recordFailure(ctx, userID, deviceID, SyncFull)
		return nil, fmt.Errorf("%w: %w", ErrSyncFailed, err)
	}

	log.Info("full sync completed",
		"duration", time.Since(start),
		"synced_items", result.SyncedItems,
		"conflicts", result.Conflicts,
	)
	return result, nil
}

// PerformDeltaSync применяет локальные изменения устройства. Изменение,
// для которого на сервере есть более позднее изменение того же ресурса,
// не применяется и сохраняется как конфликт. Ошибка применения отдельного
// изменения логируется и не прерывает пакет.
func (s *Service) PerformDeltaSync(ctx context.Context, userID string, req DeltaSyncRequest) (*DeltaSyncResult, error) {
	if userID == "" || req.DeviceID == "" {
		return nil, fmt.Errorf("%w: user and device are required", ErrInvalidArgument)
	}
	if s.config.MaxBatchSize > 0 && len(req.Changes) > s.config.MaxBatchSize {
		return nil, fmt.Errorf("%w: batch of %d changes exceeds limit %d",
			ErrInvalidArgument, len(req.Changes), s.config.MaxBatchSize)
	}
	if err := s.checkDevice(ctx, userID, req.DeviceID); err != nil {
		return nil, err
	}

	log := s.log.With("user_id", userID, "device_id", req.DeviceID)
	log.Info("delta sync started", "changes", len(req.Changes), "last_sync_time", req.LastSyncTime)

	result := &DeltaSyncResult{Success: true, ServerChanges: []SyncChange{}}
	err := s.store.WithinTx(ctx, userID, func(tx Store) error {
		remote, err := tx.GetChangesAfter(ctx, userID, req.LastSyncTime)
		if err != nil {
			return fmt.Errorf("get remote changes: %w", err)
		}

		for _, change := range req.Changes {
			var conflict *SyncConflict
			err := tx.WithinTx(ctx, userID, func(sp Store) error {
				var err error
				conflict, err = s.applyLocalChange(ctx, sp, userID, req.DeviceID, change, remote)
				return err
			})
			if err != nil {
				log.Error("failed to apply change",
					"change_id", change.ID,
					"resource_type", change.ResourceType,
					"resource_id", change.ResourceID,
					"error", err,
				)
				continue
			}

			if conflict != nil {
				result.Conflicts++
			} else {
				result.AppliedChanges++
			}
		}

		for _, rc := range remote {
			if rc.DeviceID != req.DeviceID {
				result.ServerChanges = append(result.ServerChanges, rc)
			}
		}

		result.Timestamp = s.now()
		return tx.RecordSync(ctx, &HistoryEntry{
			ID:          uuid.NewString(),
			UserID:      userID,
			DeviceID:    req.DeviceID,
			SyncType:    SyncDelta,
			Status:      historyCompleted,
			SyncedItems: result.AppliedChanges,
			Conflicts:   result.Conflicts,
			Timestamp:   result.Timestamp,
		})
	})
	if err != nil {
		log.Error("delta sync failed", "error", err)
		s.recordFailure(ctx, userID, req.DeviceID, SyncDelta)
		return nil, fmt.Errorf("%w: %w", ErrSyncFailed, err)
	}

	log.Info("delta sync completed",
		"applied", result.AppliedChanges,
		"conflicts", result.Conflicts,
		"server_changes", len(result.ServerChanges),
	)
	return result, nil
}

// ResolveConflict применяет выбранную версию как изменение от "system" и
// удаляет конфликт. Обе операции выполняются в одной транзакции.
//
// Стратегия merge поверхностная: берется удаленная версия, и поля верхнего
// уровня локальной версии перекрывают ее. Это не трехстороннее слияние.
func (s *Service) ResolveConflict(ctx context.Context, userID, conflictID string, req ResolveRequest) (*ResolveResult, error) {
	switch req.Resolution {
	case ResolutionUseLocal, ResolutionUseRemote, ResolutionMerge:
	case ResolutionCustom:
		if isNull(req.CustomData) {
			return nil, ErrMissingCustomData
		}
	default:
		return nil, fmt.Errorf("%w %q", ErrInvalidResolution, req.Resolution)
	}

	err := s.store.WithinTx(ctx, userID, func(tx Store) error {
		conflict, err := tx.GetConflict(ctx, userID, conflictID)
		if err != nil {
			return err
		}

		resolved, err := resolvePayload(conflict, req)
		if err != nil {
			return err
		}

		change := SyncChange{
			ID:           uuid.NewString(),
			Type:         ChangeUpdate,
			ResourceType: conflict.ResourceType,
			ResourceID:   conflict.ResourceID,
			Data:         resolved,
			Timestamp:    s.now(),
			DeviceID:     SystemDeviceID,
			Version:      1,
		}
		// null означает, что сторона конфликта удалила ресурс
		if isNull(resolved) {
			change.Type = ChangeDelete
			change.Data = nil
		}

		version, err := s.applyChange(ctx, tx, userID, change, false)
		if err != nil {
			return fmt.Errorf("apply resolution: %w", err)
		}
		if version > 0 {
			change.Version = version
		}

		if err := tx.AppendChange(ctx, userID, &change); err != nil {
			return fmt.Errorf("append resolution change: %w", err)
		}

		return tx.DeleteConflict(ctx, userID, conflictID)
	})
	if err != nil {
		s.log.Error("failed to resolve conflict",
			"user_id", userID, "conflict_id", conflictID, "error", err)
		return nil, err
	}

	s.log.Info("conflict resolved",
		"user_id", userID, "conflict_id", conflictID, "resolution", req.Resolution)
	return &ResolveResult{Success: true}, nil
}

// ListConflicts возвращает список неразрешенных конфликтов
func (s *Service) ListConflicts(ctx context.Context, userID string) ([]SyncConflict, error) {
	conflicts, err := s.store.ListConflicts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get conflicts: %w", err)
	}
	return conflicts, nil
}

// GetSyncStatus вычисляет состояние синхронизации каждого устройства.
// pendingChanges считает все изменения устройства в журнале, conflictCount
// считает конфликты пользователя без привязки к устройству.
func (s *Service) GetSyncStatus(ctx context.Context, userID string) ([]SyncStatus, error) {
	devices, err := s.devices.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get devices: %w", err)
	}

	conflicts, err := s.store.CountConflicts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count conflicts: %w", err)
	}

	statuses := make([]SyncStatus, 0, len(devices))
	for _, d := range devices {
		last, err := s.store.LastSync(ctx, userID, d.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get last sync: %w", err)
		}

		pending, err := s.store.CountDeviceChanges(ctx, userID, d.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count pending changes: %w", err)
		}

		st := SyncStatus{
			UserID:         userID,
			DeviceID:       d.ID,
			PendingChanges: pending,
			ConflictCount:  conflicts,
		}
		if last != nil {
			st.LastSyncTime = last.Timestamp
		}
		st.Status = deriveStatus(st, last)

		statuses = append(statuses, st)
	}

	return statuses, nil
}

// GetSyncHistory возвращает журнал синхронизаций устройства постранично
func (s *Service) GetSyncHistory(ctx context.Context, userID string, req HistoryRequest) (*HistoryPage, error) {
	if req.DeviceID == "" {
		return nil, fmt.Errorf("%w: device id is required", ErrInvalidArgument)
	}
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Limit <= 0 {
		req.Limit = s.config.HistoryPageSize
	}
	if s.config.MaxHistoryPageSize > 0 && req.Limit > s.config.MaxHistoryPageSize {
		req.Limit = s.config.MaxHistoryPageSize
	}

	items, total, err := s.store.GetHistory(ctx, userID, req.DeviceID, req.Limit, (req.Page-1)*req.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get sync history: %w", err)
	}
	if items == nil {
		items = []HistoryEntry{}
	}

	return &HistoryPage{
		Items:      items,
		Total:      total,
		Page:       req.Page,
		TotalPages: int(math.Ceil(float64(total) / float64(req.Limit))),
	}, nil
}

// checkDevice проверяет, что устройство зарегистрировано у пользователя.
// Идентификатор "system" зарезервирован за изменениями самого сервера.
func (s *Service) checkDevice(ctx context.Context, userID, deviceID string) error {
	if deviceID == SystemDeviceID {
		return fmt.Errorf("%w: device id %q is reserved", ErrInvalidArgument, deviceID)
	}

	devices, err := s.devices.List(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get devices: %w", err)
	}
	if !slices.ContainsFunc(devices, func(d device.Device) bool { return d.ID == deviceID }) {
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, deviceID)
	}
	return nil
}

const (
	historyCompleted = "completed"
	historyFailed    = "failed"
)

// recordFailure отмечает неудачную синхронизацию в истории устройства.
// Ошибка записи только логируется: исходная ошибка важнее.
func (s *Service) recordFailure(ctx context.Context, userID, deviceID string, typ SyncType) {
	if errors.Is(ctx.Err(), context.Canceled) {
		return
	}

	err := s.store.RecordSync(ctx, &HistoryEntry{
		ID:        uuid.NewString(),
		UserID:    userID,
		DeviceID:  deviceID,
		SyncType:  typ,
		Status:    historyFailed,
		Timestamp: s.now(),
	})
	if err != nil {
		s.log.Warn("failed to record sync failure", "user_id", userID, "device_id", deviceID, "error", err)
	}
}

// deriveStatus приоритет: conflict > error > pending > synced
func deriveStatus(st SyncStatus, last *HistoryEntry) Status {
	switch {
	case st.ConflictCount > 0:
		return StatusConflict
	case last != nil && last.Status == historyFailed:
		return StatusError
	case st.PendingChanges > 0:
		return StatusPending
	default:
		return StatusSynced
	}
}

func resolvePayload(conflict *SyncConflict, req ResolveRequest) ([]byte, error) {
	switch req.Resolution {
	case ResolutionUseLocal:
		return orNull(conflict.LocalVersion), nil
	case ResolutionUseRemote:
		return orNull(conflict.RemoteVersion), nil
	case ResolutionMerge:
		return mergeShallow(conflict.LocalVersion, conflict.RemoteVersion)
	case ResolutionCustom:
		return req.CustomData, nil
	default:
		return nil, fmt.Errorf("%w %q", ErrInvalidResolution, req.Resolution)
	}
}
