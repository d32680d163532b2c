package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"golang.org/x/exp/slog"

	"pxocore/internal/domain/backup"
	syncdomain "pxocore/internal/domain/sync"
)

// SyncStore репозитории движка синхронизации поверх пула или транзакции
type SyncStore struct {
	*SyncRepository
	*ResourceRepository

	db     beginner
	log    *slog.Logger
	nested bool
}

func NewSyncStore(s *Storage, log *slog.Logger) *SyncStore {
	return newSyncStore(s.pool, log, false)
}

func newSyncStore(db beginner, log *slog.Logger, nested bool) *SyncStore {
	return &SyncStore{
		SyncRepository:     NewSyncRepository(db, log),
		ResourceRepository: NewResourceRepository(db, log),
		db:                 db,
		log:                log,
		nested:             nested,
	}
}

func (s *SyncStore) WithinTx(ctx context.Context, userID string, fn func(tx syncdomain.Store) error) error {
	return withinTx(ctx, s.db, userID, s.nested, func(tx pgx.Tx) error {
		return fn(newSyncStore(tx, s.log, true))
	})
}

// BackupStore репозитории резервного копирования поверх пула или транзакции
type BackupStore struct {
	*BackupRepository
	*ResourceRepository

	changes *SyncRepository
	db      beginner
	log     *slog.Logger
	nested  bool
}

func NewBackupStore(s *Storage, log *slog.Logger) *BackupStore {
	return newBackupStore(s.pool, log, false)
}

func newBackupStore(db beginner, log *slog.Logger, nested bool) *BackupStore {
	return &BackupStore{
		BackupRepository:   NewBackupRepository(db, log),
		ResourceRepository: NewResourceRepository(db, log),
		changes:            NewSyncRepository(db, log),
		db:                 db,
		log:                log,
		nested:             nested,
	}
}

func (s *BackupStore) AppendChange(ctx context.Context, userID string, change *syncdomain.SyncChange) error {
	return s.changes.AppendChange(ctx, userID, change)
}

func (s *BackupStore) WithinTx(ctx context.Context, userID string, fn func(tx backup.Store) error) error {
	return withinTx(ctx, s.db, userID, s.nested, func(tx pgx.Tx) error {
		return fn(newBackupStore(tx, s.log, true))
	})
}
