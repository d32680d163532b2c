// Package memory хранилище в памяти процесса. Используется для локального
// запуска без PostgreSQL и в тестах движка синхронизации.
package memory

import (
	"context"
	"errors"
	"maps"
	"slices"
	gosync "sync"

	"pxocore/internal/domain/backup"
	"pxocore/internal/domain/resource"
	syncdomain "pxocore/internal/domain/sync"
)

// ErrDuplicate изменение с таким id уже есть в журнале
var ErrDuplicate = errors.New("duplicate change id")

// Store данные пользователей: ресурсы, журнал изменений, конфликты,
// история синхронизаций и резервные копии.
//
// Транзакция сериализует работу с данными одного пользователя и при ошибке
// возвращает его данные к состоянию на начало транзакции. Чтение вне
// транзакции может увидеть незафиксированные изменения.
type Store struct {
	mu    gosync.Mutex
	users map[string]*userData
	locks map[string]*gosync.Mutex
}

type userData struct {
	contents      map[string]resource.Content
	annotations   map[string]resource.Annotation
	preferences   resource.Preferences
	memory        *resource.Memory
	conversations map[string]resource.Conversation

	changes   []syncdomain.SyncChange
	conflicts []syncdomain.SyncConflict
	history   []syncdomain.HistoryEntry
	backups   []backupRecord
}

type backupRecord struct {
	info backup.Info
	blob []byte
}

func New() *Store {
	return &Store{
		users: make(map[string]*userData),
		locks: make(map[string]*gosync.Mutex),
	}
}

// user возвращает данные пользователя, создавая их при первом обращении.
// Вызывается под s.mu.
func (s *Store) user(userID string) *userData {
	u, ok := s.users[userID]
	if !ok {
		u = &userData{
			contents:      make(map[string]resource.Content),
			annotations:   make(map[string]resource.Annotation),
			conversations: make(map[string]resource.Conversation),
		}
		s.users[userID] = u
	}
	return u
}

func (s *Store) userLock(userID string) *gosync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[userID]
	if !ok {
		l = &gosync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

// withinTx выполняет fn под блокировкой пользователя. Вложенный вызов
// блокировку не берет и работает как точка сохранения.
func (s *Store) withinTx(ctx context.Context, userID string, nested bool, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if !nested {
		l := s.userLock(userID)
		l.Lock()
		defer l.Unlock()
	}

	s.mu.Lock()
	saved := s.user(userID).clone()
	s.mu.Unlock()

	if err := fn(); err != nil {
		s.mu.Lock()
		s.users[userID] = saved
		s.mu.Unlock()
		return err
	}
	return nil
}

func (u *userData) clone() *userData {
	c := &userData{
		contents:      maps.Clone(u.contents),
		annotations:   maps.Clone(u.annotations),
		preferences:   maps.Clone(u.preferences),
		conversations: maps.Clone(u.conversations),
		changes:       slices.Clone(u.changes),
		conflicts:     slices.Clone(u.conflicts),
		history:       slices.Clone(u.history),
		backups:       slices.Clone(u.backups),
	}
	if u.memory != nil {
		m := *u.memory
		c.memory = &m
	}
	return c
}

// SyncStore представление Store для движка синхронизации
type SyncStore struct {
	*Store
	nested bool
}

func NewSyncStore(s *Store) *SyncStore {
	return &SyncStore{Store: s}
}

func (s *SyncStore) WithinTx(ctx context.Context, userID string, fn func(tx syncdomain.Store) error) error {
	return s.withinTx(ctx, userID, s.nested, func() error {
		return fn(&SyncStore{Store: s.Store, nested: true})
	})
}

// BackupStore представление Store для резервного копирования
type BackupStore struct {
	*Store
	nested bool
}

func NewBackupStore(s *Store) *BackupStore {
	return &BackupStore{Store: s}
}

func (s *BackupStore) WithinTx(ctx context.Context, userID string, fn func(tx backup.Store) error) error {
	return s.withinTx(ctx, userID, s.nested, func() error {
		return fn(&BackupStore{Store: s.Store, nested: true})
	})
}
