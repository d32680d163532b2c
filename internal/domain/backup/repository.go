package backup

import (
	"context"

	"pxocore/internal/domain/resource"
	"pxocore/internal/domain/sync"
)

// Repository хранилище резервных копий
type Repository interface {
	// SaveBackup сохраняет метаданные и сжатый снимок одной записью
	SaveBackup(ctx context.Context, info *Info, blob []byte) error
	GetBackup(ctx context.Context, userID, backupID string) (*Info, error)
	GetBackupData(ctx context.Context, userID, backupID string) ([]byte, error)
	ListBackups(ctx context.Context, userID string) ([]Info, error)
}

// Store данные, необходимые для создания и восстановления копий
type Store interface {
	Repository
	resource.Store

	AppendChange(ctx context.Context, userID string, change *sync.SyncChange) error

	// WithinTx выполняет fn атомарно под блокировкой данных пользователя
	WithinTx(ctx context.Context, userID string, fn func(tx Store) error) error
}
