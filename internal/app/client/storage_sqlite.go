package client

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	syncdomain "pxocore/internal/domain/sync"
)

const (
	stateLastSync = "last_sync_time"
	stateDeviceID = "device_id"
)

// SQLiteStorage локальное состояние устройства: очередь неотправленных
// изменений, полученные с сервера изменения и отметка последней синхронизации.
type SQLiteStorage struct {
	db *sql.DB
}

func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия базы данных: %w", err)
	}

	storage := &SQLiteStorage{db: db}

	if err := storage.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка инициализации таблиц: %w", err)
	}

	return storage, nil
}

func (s *SQLiteStorage) initTables() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS outbox (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			change TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS server_changes (
			id TEXT PRIMARY KEY,
			resource_type TEXT NOT NULL,
			resource_id TEXT NOT NULL,
			change TEXT NOT NULL,
			received_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_server_changes_resource ON server_changes(resource_type, resource_id);

		CREATE TABLE IF NOT EXISTS sync_state (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)

	return err
}

// Enqueue ставит локальное изменение в очередь на отправку
func (s *SQLiteStorage) Enqueue(ctx context.Context, change syncdomain.SyncChange) error {
	data, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("ошибка сериализации изменения: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO outbox (id, change, created_at) VALUES (?, ?, ?)`,
		change.ID, string(data), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("ошибка сохранения изменения: %w", err)
	}
	return nil
}

// Pending возвращает до limit изменений из очереди в порядке добавления
func (s *SQLiteStorage) Pending(ctx context.Context, limit int) ([]syncdomain.SyncChange, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT change FROM outbox ORDER BY seq LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения очереди: %w", err)
	}
	defer rows.Close()

	var changes []syncdomain.SyncChange
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("ошибка сканирования изменения: %w", err)
		}

		var change syncdomain.SyncChange
		if err := json.Unmarshal([]byte(raw), &change); err != nil {
			return nil, fmt.Errorf("ошибка парсинга изменения: %w", err)
		}
		changes = append(changes, change)
	}
	return changes, rows.Err()
}

func (s *SQLiteStorage) CountPending(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM outbox`).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчета очереди: %w", err)
	}
	return count, nil
}

// CompleteSync в одной транзакции удаляет отправленные изменения,
// сохраняет полученные с сервера и сдвигает отметку синхронизации.
// Нулевой syncedAt оставляет отметку прежней.
func (s *SQLiteStorage) CompleteSync(ctx context.Context, sent []string, received []syncdomain.SyncChange, syncedAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback()

	if len(sent) > 0 {
		args := make([]any, len(sent))
		for i, id := range sent {
			args[i] = id
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(sent)), ",")
		if _, err := tx.ExecContext(ctx, `DELETE FROM outbox WHERE id IN (`+placeholders+`)`, args...); err != nil {
			return fmt.Errorf("ошибка очистки очереди: %w", err)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, change := range received {
		data, err := json.Marshal(change)
		if err != nil {
			return fmt.Errorf("ошибка сериализации изменения: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO server_changes (id, resource_type, resource_id, change, received_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING`,
			change.ID, string(change.ResourceType), change.ResourceID, string(data), now)
		if err != nil {
			return fmt.Errorf("ошибка сохранения изменения сервера: %w", err)
		}
	}

	if !syncedAt.IsZero() {
		if err := setState(ctx, tx, stateLastSync, syncedAt.UTC().Format(time.RFC3339Nano)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ServerChanges изменения, полученные с сервера, в порядке получения
func (s *SQLiteStorage) ServerChanges(ctx context.Context) ([]syncdomain.SyncChange, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT change FROM server_changes ORDER BY received_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения изменений сервера: %w", err)
	}
	defer rows.Close()

	var changes []syncdomain.SyncChange
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var change syncdomain.SyncChange
		if err := json.Unmarshal([]byte(raw), &change); err != nil {
			return nil, fmt.Errorf("ошибка парсинга изменения: %w", err)
		}
		changes = append(changes, change)
	}
	return changes, rows.Err()
}

// LastSyncTime нулевое время, если устройство еще не синхронизировалось
func (s *SQLiteStorage) LastSyncTime(ctx context.Context) (time.Time, error) {
	value, err := s.state(ctx, stateLastSync)
	if err != nil || value == "" {
		return time.Time{}, err
	}

	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("ошибка парсинга времени синхронизации: %w", err)
	}
	return t, nil
}

func (s *SQLiteStorage) DeviceID(ctx context.Context) (string, error) {
	return s.state(ctx, stateDeviceID)
}

func (s *SQLiteStorage) SetDeviceID(ctx context.Context, deviceID string) error {
	return setState(ctx, s.db, stateDeviceID, deviceID)
}

func (s *SQLiteStorage) state(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM sync_state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("ошибка чтения состояния %s: %w", key, err)
	}
	return value, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func setState(ctx context.Context, db execer, key, value string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO sync_state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("ошибка сохранения состояния %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
