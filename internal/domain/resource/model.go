package resource

import (
	"encoding/json"
	"time"
)

// ContentType тип пользовательского контента
type ContentType string

const (
	ContentDiary     ContentType = "diary"
	ContentDocument  ContentType = "document"
	ContentWeb       ContentType = "web"
	ContentSocial    ContentType = "social"
	ContentReadLater ContentType = "readlater"
	ContentGlasses   ContentType = "glasses"
)

// Content запись пользовательского контента (дневник, документ, веб-захват)
type Content struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Type      ContentType     `json:"type"`
	Title     string          `json:"title,omitempty"`
	Content   string          `json:"content"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	Tags      []string        `json:"tags"`
	IsPrivate bool            `json:"isPrivate"`
	Version   int             `json:"version"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Annotation пометка пользователя к контенту
type Annotation struct {
	ID             string          `json:"id"`
	UserID         string          `json:"userId"`
	ContentID      string          `json:"contentId"`
	ContentType    string          `json:"contentType"`
	AnnotationType string          `json:"annotationType"`
	Selection      json.RawMessage `json:"selection,omitempty"`
	Note           string          `json:"note,omitempty"`
	Tags           []string        `json:"tags"`
	Color          string          `json:"color,omitempty"`
	IsPrivate      bool            `json:"isPrivate"`
	Version        int             `json:"version"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// Preferences пользовательские настройки, хранятся целиком как JSON-объект
type Preferences map[string]any

// Memory накопленная AI-память пользователя
type Memory struct {
	UserID    string          `json:"userId"`
	Memory    json.RawMessage `json:"memory"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// ChatMessage сообщение в диалоге с AI
type ChatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation диалог пользователя с AI
type Conversation struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Title     string          `json:"title,omitempty"`
	Messages  []ChatMessage   `json:"messages"`
	Context   json.RawMessage `json:"context,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}
