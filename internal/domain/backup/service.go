package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang/snappy"
	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"pxocore/internal/domain/resource"
	"pxocore/internal/domain/sync"
)

// Servicer интерфейс сервиса резервного копирования
type Servicer interface {
	Create(ctx context.Context, userID string) (*Info, error)
	Restore(ctx context.Context, userID, backupID string) (*RestoreResult, error)
	List(ctx context.Context, userID string) ([]Info, error)
}

type Service struct {
	store Store
	log   *slog.Logger
	now   func() time.Time
}

func NewService(store Store, log *slog.Logger) *Service {
	return &Service{
		store: store,
		log:   log.With("component", "backup_service"),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Create собирает снимок всех данных пользователя и сохраняет его вместе с
// метаданными. size считается по несжатому JSON.
func (s *Service) Create(ctx context.Context, userID string) (*Info, error) {
	var info *Info
	err := s.store.WithinTx(ctx, userID, func(tx Store) error {
		snapshot, err := collect(ctx, tx, userID)
		if err != nil {
			return err
		}

		data, err := json.Marshal(snapshot)
		if err != nil {
			return fmt.Errorf("marshal snapshot: %w", err)
		}

		info = &Info{
			ID:        uuid.NewString(),
			UserID:    userID,
			Type:      TypeManual,
			Size:      len(data),
			ItemCount: snapshot.itemCount(),
			CreatedAt: s.now(),
			Metadata: Metadata{
				Version:     formatVersion,
				DataTypes:   snapshot.dataTypes(),
				Compression: compressionSnappy,
			},
		}

		return tx.SaveBackup(ctx, info, snappy.Encode(nil, data))
	})
	if err != nil {
		s.log.Error("failed to create backup", "user_id", userID, "error", err)
		return nil, fmt.Errorf("create backup: %w", err)
	}

	s.log.Info("backup created",
		"user_id", userID,
		"backup_id", info.ID,
		"size", info.Size,
		"items", info.ItemCount,
	)
	return info, nil
}

// Restore перезаписывает данные пользователя содержимым копии без проверки
// конфликтов. Каждый восстановленный документ и аннотация попадают в журнал
// изменений от имени "system", чтобы остальные устройства получили их при
// следующей синхронизации. Диалоги не восстанавливаются.
func (s *Service) Restore(ctx context.Context, userID, backupID string) (*RestoreResult, error) {
	result := &RestoreResult{Success: true}
	err := s.store.WithinTx(ctx, userID, func(tx Store) error {
		info, err := tx.GetBackup(ctx, userID, backupID)
		if err != nil {
			return err
		}

		snapshot, err := s.load(ctx, tx, info)
		if err != nil {
			return err
		}

		now := s.now()
		for i := range snapshot.Contents {
			c := &snapshot.Contents[i]
			c.UserID = userID
			if err := tx.SaveContent(ctx, c, 0); err != nil {
				return fmt.Errorf("restore content %s: %w", c.ID, err)
			}
			if err := s.logRestored(ctx, tx, userID, sync.ResourceContent, c.ID, c.Version, c, now); err != nil {
				return err
			}
			result.RestoredItems++
		}

		for i := range snapshot.Annotations {
			a := &snapshot.Annotations[i]
			a.UserID = userID
			if err := tx.SaveAnnotation(ctx, a, 0); err != nil {
				return fmt.Errorf("restore annotation %s: %w", a.ID, err)
			}
			if err := s.logRestored(ctx, tx, userID, sync.ResourceAnnotation, a.ID, a.Version, a, now); err != nil {
				return err
			}
			result.RestoredItems++
		}

		if snapshot.Preferences != nil {
			if err := tx.ReplacePreferences(ctx, userID, snapshot.Preferences); err != nil {
				return fmt.Errorf("restore preferences: %w", err)
			}
			result.RestoredItems++
		}

		if snapshot.Memory != nil {
			snapshot.Memory.UserID = userID
			if err := tx.ReplaceMemory(ctx, snapshot.Memory); err != nil {
				return fmt.Errorf("restore memory: %w", err)
			}
			result.RestoredItems++
		}

		return nil
	})
	if err != nil {
		s.log.Error("failed to restore backup", "user_id", userID, "backup_id", backupID, "error", err)
		return nil, fmt.Errorf("restore backup: %w", err)
	}

	s.log.Info("backup restored", "user_id", userID, "backup_id", backupID, "items", result.RestoredItems)
	return result, nil
}

// List возвращает метаданные копий пользователя, новые первыми
func (s *Service) List(ctx context.Context, userID string) ([]Info, error) {
	backups, err := s.store.ListBackups(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	return backups, nil
}

func collect(ctx context.Context, tx Store, userID string) (*Snapshot, error) {
	var (
		snapshot Snapshot
		err      error
	)

	if snapshot.Contents, err = tx.ListContents(ctx, userID); err != nil {
		return nil, fmt.Errorf("list contents: %w", err)
	}
	if snapshot.Annotations, err = tx.ListAnnotations(ctx, userID); err != nil {
		return nil, fmt.Errorf("list annotations: %w", err)
	}
	if snapshot.Preferences, err = tx.GetPreferences(ctx, userID); err != nil {
		return nil, fmt.Errorf("get preferences: %w", err)
	}
	if snapshot.Memory, err = tx.GetMemory(ctx, userID); err != nil {
		return nil, fmt.Errorf("get memory: %w", err)
	}
	if snapshot.Conversations, err = tx.ListConversations(ctx, userID); err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	if snapshot.Contents == nil {
		snapshot.Contents = []resource.Content{}
	}
	if snapshot.Annotations == nil {
		snapshot.Annotations = []resource.Annotation{}
	}
	if snapshot.Conversations == nil {
		snapshot.Conversations = []resource.Conversation{}
	}

	return &snapshot, nil
}

func (s *Service) load(ctx context.Context, tx Store, info *Info) (*Snapshot, error) {
	blob, err := tx.GetBackupData(ctx, info.UserID, info.ID)
	if err != nil {
		return nil, err
	}

	data := blob
	if info.Metadata.Compression == compressionSnappy {
		if data, err = snappy.Decode(nil, blob); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return &snapshot, nil
}

func (s *Service) logRestored(ctx context.Context, tx Store, userID string, rt sync.ResourceType, id string, version int, v any, now time.Time) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal restored %s: %w", rt, err)
	}

	err = tx.AppendChange(ctx, userID, &sync.SyncChange{
		ID:           uuid.NewString(),
		Type:         sync.ChangeUpdate,
		ResourceType: rt,
		ResourceID:   id,
		Data:         data,
		Timestamp:    now,
		DeviceID:     sync.SystemDeviceID,
		Version:      version,
	})
	if err != nil {
		return fmt.Errorf("append restore change: %w", err)
	}
	return nil
}
