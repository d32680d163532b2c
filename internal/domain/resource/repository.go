package resource

import "context"

// Store доступ к ресурсам пользователя, которыми владеют другие подсистемы.
//
// Save* с expectedBelow > 0 выполняет compare-and-swap: запись применяется,
// только если текущая версия ресурса меньше expectedBelow, иначе
// возвращается ErrVersionConflict, а сохраненная версия становится равной
// expectedBelow. expectedBelow == 0 означает безусловную запись с
// увеличением версии на единицу. После успешной записи поле Version
// содержит сохраненную версию.
type Store interface {
	ListContents(ctx context.Context, userID string) ([]Content, error)
	GetContent(ctx context.Context, userID, contentID string) (*Content, error)
	SaveContent(ctx context.Context, content *Content, expectedBelow int) error
	DeleteContent(ctx context.Context, userID, contentID string) error

	ListAnnotations(ctx context.Context, userID string) ([]Annotation, error)
	GetAnnotation(ctx context.Context, userID, annotationID string) (*Annotation, error)
	SaveAnnotation(ctx context.Context, annotation *Annotation, expectedBelow int) error
	DeleteAnnotation(ctx context.Context, userID, annotationID string) error

	// GetPreferences возвращает nil, если настройки не сохранялись
	GetPreferences(ctx context.Context, userID string) (Preferences, error)
	ReplacePreferences(ctx context.Context, userID string, prefs Preferences) error

	// GetMemory возвращает nil, если память не сохранялась
	GetMemory(ctx context.Context, userID string) (*Memory, error)
	ReplaceMemory(ctx context.Context, memory *Memory) error

	ListConversations(ctx context.Context, userID string) ([]Conversation, error)
	SaveConversation(ctx context.Context, conversation *Conversation) error
}
