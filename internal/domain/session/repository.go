package session

import (
	"context"
	"time"
)

// Repository хранилище сессий. Токены хранятся только в виде хэша.
type Repository interface {
	Create(ctx context.Context, userID string, tokenHash string, expiresAt time.Time) error
	// Validate возвращает ErrInvalidSession для неизвестного или истекшего токена
	Validate(ctx context.Context, tokenHash string) (string, error)
}
