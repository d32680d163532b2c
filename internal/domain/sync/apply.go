package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"pxocore/internal/domain/resource"
)

// applyLocalChange обрабатывает одно изменение из пакета устройства.
// Возвращает конфликт, если изменение не было применено из-за более
// позднего изменения того же ресурса или несовпадения версий.
// Изменение, id которого уже есть в журнале, считается примененным и
// повторно не применяется.
func (s *Service) applyLocalChange(ctx context.Context, tx Store, userID, deviceID string, change SyncChange, remote []SyncChange) (*SyncConflict, error) {
	if change.ID == "" {
		change.ID = uuid.NewString()
	} else {
		logged, err := tx.HasChange(ctx, userID, change.ID)
		if err != nil {
			return nil, fmt.Errorf("check change: %w", err)
		}
		if logged {
			s.log.Debug("change already applied", "change_id", change.ID)
			return nil, nil
		}
	}
	if change.DeviceID == "" {
		change.DeviceID = deviceID
	}
	if change.Timestamp.IsZero() {
		change.Timestamp = s.now()
	}

	if rc := findSuperseding(change, remote); rc != nil {
		conflict := s.newConflict(change, ConflictConcurrentUpdate, change.Data, rc.Data)
		if err := tx.SaveConflict(ctx, userID, conflict); err != nil {
			return nil, fmt.Errorf("save conflict: %w", err)
		}
		return conflict, nil
	}

	err := tx.WithinTx(ctx, userID, func(sp Store) error {
		version, err := s.applyChange(ctx, sp, userID, change, true)
		if err != nil {
			return err
		}
		if version > 0 {
			change.Version = version
		}
		return sp.AppendChange(ctx, userID, &change)
	})
	if err == nil {
		return nil, nil
	}
	if !errors.Is(err, resource.ErrVersionConflict) {
		return nil, err
	}

	current, err := currentPayload(ctx, tx, userID, change.ResourceType, change.ResourceID)
	if err != nil {
		return nil, err
	}

	typ := ConflictConcurrentUpdate
	if isNull(current) || change.Type == ChangeDelete {
		typ = ConflictDeleteUpdate
	}

	conflict := s.newConflict(change, typ, change.Data, current)
	if err := tx.SaveConflict(ctx, userID, conflict); err != nil {
		return nil, fmt.Errorf("save conflict: %w", err)
	}
	return conflict, nil
}

// applyChange записывает изменение в хранилище ресурса и возвращает
// получившуюся версию ресурса (0 для ресурсов без версии).
// При cas == true версия изменения проверяется как ожидаемая.
func (s *Service) applyChange(ctx context.Context, tx Store, userID string, change SyncChange, cas bool) (int, error) {
	expected := 0
	if cas {
		expected = change.Version
	}

	switch change.Type {
	case ChangeCreate, ChangeUpdate:
		p, err := DecodePayload(change.ResourceType, change.Data)
		if err != nil {
			return 0, err
		}
		return s.applySave(ctx, tx, userID, change, p, expected)
	case ChangeDelete:
		return 0, s.applyDelete(ctx, tx, userID, change, expected)
	default:
		return 0, fmt.Errorf("%w: change type %q", ErrUnsupportedChange, change.Type)
	}
}

func (s *Service) applySave(ctx context.Context, tx Store, userID string, change SyncChange, p Payload, expected int) (int, error) {
	switch p.Type {
	case ResourceContent:
		c := p.Content
		c.ID = change.ResourceID
		c.UserID = userID
		c.UpdatedAt = change.Timestamp
		if c.CreatedAt.IsZero() {
			c.CreatedAt = change.Timestamp
		}
		if err := tx.SaveContent(ctx, c, expected); err != nil {
			return 0, fmt.Errorf("save content: %w", err)
		}
		return c.Version, nil

	case ResourceAnnotation:
		a := p.Annotation
		a.ID = change.ResourceID
		a.UserID = userID
		a.UpdatedAt = change.Timestamp
		if a.CreatedAt.IsZero() {
			a.CreatedAt = change.Timestamp
		}
		if err := tx.SaveAnnotation(ctx, a, expected); err != nil {
			return 0, fmt.Errorf("save annotation: %w", err)
		}
		return a.Version, nil

	case ResourcePreference:
		if err := tx.ReplacePreferences(ctx, userID, p.Preference); err != nil {
			return 0, fmt.Errorf("replace preferences: %w", err)
		}
		return 0, nil

	case ResourceMemory:
		m := p.Memory
		m.UserID = userID
		m.UpdatedAt = change.Timestamp
		if err := tx.ReplaceMemory(ctx, m); err != nil {
			return 0, fmt.Errorf("replace memory: %w", err)
		}
		return 0, nil
	}

	return 0, fmt.Errorf("%w: resource type %q", ErrUnsupportedChange, p.Type)
}

// applyDelete удаляет ресурс. Отсутствие ресурса не считается ошибкой.
// Для настроек и памяти удаление означает очистку.
func (s *Service) applyDelete(ctx context.Context, tx Store, userID string, change SyncChange, expected int) error {
	switch change.ResourceType {
	case ResourceContent:
		current, err := tx.GetContent(ctx, userID, change.ResourceID)
		if errors.Is(err, resource.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get content: %w", err)
		}
		if expected > 0 && current.Version >= expected {
			return resource.ErrVersionConflict
		}
		if err := tx.DeleteContent(ctx, userID, change.ResourceID); err != nil && !errors.Is(err, resource.ErrNotFound) {
			return fmt.Errorf("delete content: %w", err)
		}
		return nil

	case ResourceAnnotation:
		current, err := tx.GetAnnotation(ctx, userID, change.ResourceID)
		if errors.Is(err, resource.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get annotation: %w", err)
		}
		if expected > 0 && current.Version >= expected {
			return resource.ErrVersionConflict
		}
		if err := tx.DeleteAnnotation(ctx, userID, change.ResourceID); err != nil && !errors.Is(err, resource.ErrNotFound) {
			return fmt.Errorf("delete annotation: %w", err)
		}
		return nil

	case ResourcePreference:
		if err := tx.ReplacePreferences(ctx, userID, resource.Preferences{}); err != nil {
			return fmt.Errorf("clear preferences: %w", err)
		}
		return nil

	case ResourceMemory:
		err := tx.ReplaceMemory(ctx, &resource.Memory{
			UserID:    userID,
			Memory:    json.RawMessage(`{}`),
			UpdatedAt: change.Timestamp,
		})
		if err != nil {
			return fmt.Errorf("clear memory: %w", err)
		}
		return nil
	}

	return fmt.Errorf("%w: resource type %q", ErrUnsupportedChange, change.ResourceType)
}

// findSuperseding ищет среди удаленных изменений самое позднее изменение того
// же ресурса, которое строго новее локального
func findSuperseding(change SyncChange, remote []SyncChange) *SyncChange {
	var found *SyncChange
	key := change.key()
	for i := range remote {
		rc := &remote[i]
		if rc.key() != key || !rc.Timestamp.After(change.Timestamp) {
			continue
		}
		if found == nil || rc.Timestamp.After(found.Timestamp) {
			found = rc
		}
	}
	return found
}

func (s *Service) newConflict(change SyncChange, typ ConflictType, local, remote json.RawMessage) *SyncConflict {
	return &SyncConflict{
		ID:            uuid.NewString(),
		ResourceType:  change.ResourceType,
		ResourceID:    change.ResourceID,
		LocalVersion:  orNull(local),
		RemoteVersion: orNull(remote),
		ConflictType:  typ,
		CreatedAt:     s.now(),
	}
}

// currentPayload сериализует сохраненное состояние ресурса, null если его нет
func currentPayload(ctx context.Context, tx Store, userID string, rt ResourceType, id string) (json.RawMessage, error) {
	var (
		v   any
		err error
	)

	switch rt {
	case ResourceContent:
		var c *resource.Content
		c, err = tx.GetContent(ctx, userID, id)
		if err == nil {
			v = c
		}
	case ResourceAnnotation:
		var a *resource.Annotation
		a, err = tx.GetAnnotation(ctx, userID, id)
		if err == nil {
			v = a
		}
	case ResourcePreference:
		var p resource.Preferences
		p, err = tx.GetPreferences(ctx, userID)
		if err == nil && p != nil {
			v = p
		}
	case ResourceMemory:
		var m *resource.Memory
		m, err = tx.GetMemory(ctx, userID)
		if err == nil && m != nil {
			v = m
		}
	default:
		return nil, fmt.Errorf("%w: resource type %q", ErrUnsupportedChange, rt)
	}

	if errors.Is(err, resource.ErrNotFound) || (err == nil && v == nil) {
		return jsonNull, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get current %s: %w", rt, err)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal current %s: %w", rt, err)
	}
	return data, nil
}
