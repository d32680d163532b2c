package sync

import (
	"context"
	"time"

	"pxocore/internal/domain/device"
	"pxocore/internal/domain/resource"
)

// Repository хранилище журнала изменений, конфликтов и истории синхронизаций
type Repository interface {
	// Журнал изменений, только добавление
	AppendChange(ctx context.Context, userID string, change *SyncChange) error
	// HasChange сообщает, записано ли уже изменение с таким id
	HasChange(ctx context.Context, userID, changeID string) (bool, error)
	GetChangesAfter(ctx context.Context, userID string, after time.Time) ([]SyncChange, error)
	// LatestChanges возвращает последнее по порядку записи изменение каждого ресурса
	LatestChanges(ctx context.Context, userID string) ([]SyncChange, error)
	CountDeviceChanges(ctx context.Context, userID, deviceID string) (int, error)

	// Конфликты
	SaveConflict(ctx context.Context, userID string, conflict *SyncConflict) error
	GetConflict(ctx context.Context, userID, conflictID string) (*SyncConflict, error)
	ListConflicts(ctx context.Context, userID string) ([]SyncConflict, error)
	DeleteConflict(ctx context.Context, userID, conflictID string) error
	CountConflicts(ctx context.Context, userID string) (int, error)

	// История синхронизаций
	RecordSync(ctx context.Context, entry *HistoryEntry) error
	// LastSync возвращает nil, если устройство еще не синхронизировалось
	LastSync(ctx context.Context, userID, deviceID string) (*HistoryEntry, error)
	GetHistory(ctx context.Context, userID, deviceID string, limit, offset int) ([]HistoryEntry, int, error)
}

// Store данные, с которыми движок работает в пределах одной единицы работы
type Store interface {
	Repository
	resource.Store

	// WithinTx выполняет fn атомарно и сериализует работу с данными
	// пользователя. Вложенный вызов открывает точку сохранения: ошибка
	// откатывает только изменения, сделанные внутри fn.
	WithinTx(ctx context.Context, userID string, fn func(tx Store) error) error
}

// DeviceLister реестр устройств пользователя
type DeviceLister interface {
	List(ctx context.Context, userID string) ([]device.Device, error)
}
