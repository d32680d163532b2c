package sync

import (
	"bytes"
	"encoding/json"
	"fmt"

	"pxocore/internal/domain/resource"
)

var jsonNull = json.RawMessage("null")

// Payload типизированное содержимое изменения. Заполнено ровно одно поле,
// соответствующее Type.
type Payload struct {
	Type       ResourceType
	Content    *resource.Content
	Annotation *resource.Annotation
	Preference resource.Preferences
	Memory     *resource.Memory
}

// DecodePayload разбирает данные изменения в структуру ресурса указанного типа
func DecodePayload(rt ResourceType, data json.RawMessage) (Payload, error) {
	p := Payload{Type: rt}
	if isNull(data) {
		return p, fmt.Errorf("%w: empty %s payload", ErrInvalidChange, rt)
	}

	var err error
	switch rt {
	case ResourceContent:
		p.Content = &resource.Content{}
		err = json.Unmarshal(data, p.Content)
	case ResourceAnnotation:
		p.Annotation = &resource.Annotation{}
		err = json.Unmarshal(data, p.Annotation)
	case ResourcePreference:
		p.Preference = resource.Preferences{}
		err = json.Unmarshal(data, &p.Preference)
	case ResourceMemory:
		p.Memory = &resource.Memory{}
		err = json.Unmarshal(data, p.Memory)
	default:
		return p, fmt.Errorf("%w: resource type %q", ErrUnsupportedChange, rt)
	}
	if err != nil {
		return p, fmt.Errorf("%w: decode %s payload: %v", ErrInvalidChange, rt, err)
	}

	return p, nil
}

// mergeShallow объединяет два JSON-объекта по полям верхнего уровня:
// основа remote, поля local перекрывают его. Вложенные объекты не сливаются.
func mergeShallow(local, remote json.RawMessage) (json.RawMessage, error) {
	merged := map[string]json.RawMessage{}
	if !isNull(remote) {
		if err := json.Unmarshal(remote, &merged); err != nil {
			return nil, fmt.Errorf("%w: remote version is not an object", ErrInvalidArgument)
		}
	}

	if !isNull(local) {
		overlay := map[string]json.RawMessage{}
		if err := json.Unmarshal(local, &overlay); err != nil {
			return nil, fmt.Errorf("%w: local version is not an object", ErrInvalidArgument)
		}
		for k, v := range overlay {
			merged[k] = v
		}
	}

	out, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("marshal merged payload: %w", err)
	}
	return out, nil
}

func isNull(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, jsonNull)
}

func orNull(data json.RawMessage) json.RawMessage {
	if isNull(data) {
		return jsonNull
	}
	return data
}
