package sync

import (
	"context"
	"encoding/json"
	"fmt"

	"pxocore/internal/domain/resource"
)

// state полный набор данных пользователя на сервере
type state struct {
	contents    map[string]resource.Content
	annotations map[string]resource.Annotation
	preferences resource.Preferences
	memory      *resource.Memory
}

func (st *state) itemCount() int {
	n := len(st.contents) + len(st.annotations)
	if st.preferences != nil {
		n++
	}
	if st.memory != nil {
		n++
	}
	return n
}

func loadState(ctx context.Context, tx Store, userID string) (*state, error) {
	contents, err := tx.ListContents(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list contents: %w", err)
	}
	annotations, err := tx.ListAnnotations(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list annotations: %w", err)
	}
	prefs, err := tx.GetPreferences(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get preferences: %w", err)
	}
	memory, err := tx.GetMemory(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get memory: %w", err)
	}

	st := &state{
		contents:    make(map[string]resource.Content, len(contents)),
		annotations: make(map[string]resource.Annotation, len(annotations)),
		preferences: prefs,
		memory:      memory,
	}
	for _, c := range contents {
		st.contents[c.ID] = c
	}
	for _, a := range annotations {
		st.annotations[a.ID] = a
	}
	return st, nil
}

// reconcile сверяет последнее записанное изменение каждого документа и
// аннотации с сохраненным ресурсом. Ресурсы с открытым конфликтом
// пропускаются, поэтому повторный вызов не создает дубликатов.
func (s *Service) reconcile(ctx context.Context, tx Store, userID string, st *state) ([]SyncConflict, error) {
	latest, err := tx.LatestChanges(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get latest changes: %w", err)
	}

	open, err := tx.ListConflicts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list conflicts: %w", err)
	}
	skip := make(map[resourceKey]struct{}, len(open))
	for _, c := range open {
		skip[resourceKey{typ: c.ResourceType, id: c.ResourceID}] = struct{}{}
	}

	var conflicts []SyncConflict
	for _, change := range latest {
		if _, ok := skip[change.key()]; ok {
			continue
		}

		stored, version, exists, err := st.lookup(change.ResourceType, change.ResourceID)
		if err != nil {
			return nil, err
		}

		var typ ConflictType
		switch {
		case change.Type == ChangeDelete && exists:
			typ = ConflictDeleteUpdate
		case change.Type != ChangeDelete && !exists && change.ResourceType.versioned():
			typ = ConflictDeleteUpdate
		case exists && change.Version > version:
			typ = ConflictConcurrentUpdate
		default:
			continue
		}

		conflicts = append(conflicts, *s.newConflict(change, typ, stored, change.Data))
	}

	return conflicts, nil
}

// lookup возвращает сериализованный ресурс, его версию и признак наличия.
// Настройки и память не версионируются и не сверяются.
func (st *state) lookup(rt ResourceType, id string) (json.RawMessage, int, bool, error) {
	var (
		v       any
		version int
	)

	switch rt {
	case ResourceContent:
		c, ok := st.contents[id]
		if !ok {
			return jsonNull, 0, false, nil
		}
		v, version = c, c.Version
	case ResourceAnnotation:
		a, ok := st.annotations[id]
		if !ok {
			return jsonNull, 0, false, nil
		}
		v, version = a, a.Version
	default:
		return jsonNull, 0, false, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, 0, false, fmt.Errorf("marshal %s %s: %w", rt, id, err)
	}
	return data, version, true, nil
}

// versioned ресурс хранится по идентификатору и имеет версию
func (rt ResourceType) versioned() bool {
	return rt == ResourceContent || rt == ResourceAnnotation
}
