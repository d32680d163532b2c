package memory

import (
	"context"
	gosync "sync"
	"time"

	"pxocore/internal/domain/session"
)

type sessionRecord struct {
	userID    string
	expiresAt time.Time
}

// SessionRepository сессии в памяти, теряются при перезапуске
type SessionRepository struct {
	mu       gosync.RWMutex
	sessions map[string]sessionRecord
	now      func() time.Time
}

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{
		sessions: make(map[string]sessionRecord),
		now:      time.Now,
	}
}

func (r *SessionRepository) Create(_ context.Context, userID string, tokenHash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[tokenHash] = sessionRecord{userID: userID, expiresAt: expiresAt}
	return nil
}

func (r *SessionRepository) Validate(_ context.Context, tokenHash string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[tokenHash]
	if !ok || !s.expiresAt.After(r.now()) {
		return "", session.ErrInvalidSession
	}
	return s.userID, nil
}
