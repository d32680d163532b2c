package backup

import (
	"time"

	"pxocore/internal/domain/resource"
)

// Type источник создания копии
type Type string

const (
	TypeManual    Type = "manual"
	TypeAutomatic Type = "automatic"
)

const (
	formatVersion     = "1.0"
	compressionSnappy = "snappy"
)

// Metadata описание содержимого копии
type Metadata struct {
	Version     string   `json:"version"`
	DataTypes   []string `json:"dataTypes"`
	Compression string   `json:"compression,omitempty"`
}

// Info метаданные резервной копии. Сам снимок хранится отдельно и живет
// столько же, сколько запись Info.
type Info struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Type      Type      `json:"type"`
	Size      int       `json:"size"`
	ItemCount int       `json:"itemCount"`
	CreatedAt time.Time `json:"createdAt"`
	Metadata  Metadata  `json:"metadata"`
}

// Snapshot полный снимок данных пользователя
type Snapshot struct {
	Contents      []resource.Content      `json:"contents"`
	Annotations   []resource.Annotation   `json:"annotations"`
	Preferences   resource.Preferences    `json:"preferences,omitempty"`
	Memory        *resource.Memory        `json:"memory,omitempty"`
	Conversations []resource.Conversation `json:"conversations"`
}

// itemCount коллекции считаются поэлементно, настройки и память по одному.
// Пустые настройки не попадают в снимок и не считаются.
func (s *Snapshot) itemCount() int {
	n := len(s.Contents) + len(s.Annotations) + len(s.Conversations)
	if len(s.Preferences) > 0 {
		n++
	}
	if s.Memory != nil {
		n++
	}
	return n
}

func (s *Snapshot) dataTypes() []string {
	types := []string{"contents", "annotations"}
	if len(s.Preferences) > 0 {
		types = append(types, "preferences")
	}
	if s.Memory != nil {
		types = append(types, "memory")
	}
	return append(types, "conversations")
}

// RestoreResult результат восстановления
type RestoreResult struct {
	Success       bool `json:"success"`
	RestoredItems int  `json:"restoredItems"`
}
