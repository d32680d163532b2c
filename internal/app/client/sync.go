package client

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"golang.org/x/exp/slog"

	syncdomain "pxocore/internal/domain/sync"
)

var ErrSyncInProgress = errors.New("синхронизация уже выполняется")

// SyncService отправляет очередь локальных изменений пакетами и забирает
// изменения сервера
type SyncService struct {
	app       *App
	log       *slog.Logger
	batchSize int

	mu        gosync.Mutex
	isSyncing bool
}

// SyncResult итог синхронизации по всем отправленным пакетам
type SyncResult struct {
	Batches    int                     `json:"batches"`
	Uploaded   int                     `json:"uploaded"`
	Applied    int                     `json:"applied"`
	Conflicts  int                     `json:"conflicts"`
	Downloaded int                     `json:"downloaded"`
	Changes    []syncdomain.SyncChange `json:"changes,omitempty"`
	SyncedAt   time.Time               `json:"syncedAt"`
	Duration   time.Duration           `json:"duration"`
}

func NewSyncService(app *App) *SyncService {
	return &SyncService{
		app:       app,
		log:       app.log.With("component", "sync"),
		batchSize: app.config.BatchSize,
	}
}

// Sync отправляет очередь пакетами по batchSize. Все пакеты одного запуска
// отправляются с отметкой синхронизации, прочитанной в начале запуска, иначе
// изменение другого устройства, сделанное до ответа на предыдущий пакет,
// не попадет в сверку следующего. После каждого успешного пакета
// отправленные изменения удаляются из очереди, а полученные сохраняются.
// Отметка сдвигается на время ответа сервера только после последнего пакета.
// Если пакет не принят, отметка остается прежней.
func (s *SyncService) Sync(ctx context.Context) (*SyncResult, error) {
	s.mu.Lock()
	if s.isSyncing {
		s.mu.Unlock()
		return nil, ErrSyncInProgress
	}
	s.isSyncing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isSyncing = false
		s.mu.Unlock()
	}()

	deviceID, err := s.app.DeviceID(ctx)
	if err != nil {
		return nil, err
	}

	lastSync, err := s.app.storage.LastSyncTime(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result := &SyncResult{}
	seen := make(map[string]struct{})

	for {
		pending, err := s.app.storage.Pending(ctx, s.batchSize)
		if err != nil {
			return nil, err
		}

		resp, err := s.app.httpClient.DeltaSync(ctx, syncdomain.DeltaSyncRequest{
			DeviceID:     deviceID,
			LastSyncTime: lastSync,
			Changes:      pending,
		})
		if err != nil {
			s.log.Error("Ошибка синхронизации", "batch", result.Batches+1, "error", err)
			return result, fmt.Errorf("ошибка синхронизации: %w", err)
		}

		sent := make([]string, len(pending))
		for i, change := range pending {
			sent[i] = change.ID
		}
		final := len(pending) < s.batchSize

		var syncedAt time.Time
		if final {
			syncedAt = resp.Timestamp
		}
		if err := s.app.storage.CompleteSync(ctx, sent, resp.ServerChanges, syncedAt); err != nil {
			return result, err
		}

		result.Batches++
		result.Uploaded += len(pending)
		result.Applied += resp.AppliedChanges
		result.Conflicts += resp.Conflicts
		result.SyncedAt = resp.Timestamp
		for _, change := range resp.ServerChanges {
			if _, ok := seen[change.ID]; ok {
				continue
			}
			seen[change.ID] = struct{}{}
			result.Changes = append(result.Changes, change)
		}

		if final {
			break
		}
	}

	result.Downloaded = len(result.Changes)
	result.Duration = time.Since(start)

	s.log.Info("Синхронизация завершена",
		"duration", result.Duration,
		"uploaded", result.Uploaded,
		"downloaded", result.Downloaded,
		"conflicts", result.Conflicts,
	)
	return result, nil
}
