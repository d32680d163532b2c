package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"golang.org/x/exp/slog"

	"pxocore/internal/domain/session"
)

type SessionRepository struct {
	q   Querier
	log *slog.Logger
}

func NewSessionRepository(q Querier, log *slog.Logger) *SessionRepository {
	return &SessionRepository{
		q:   q,
		log: log.With("component", "session_repository"),
	}
}

func (r *SessionRepository) Create(ctx context.Context, userID string, tokenHash string, expiresAt time.Time) error {
	_, err := r.q.Exec(ctx,
		`INSERT INTO sessions (user_id, token_hash, expires_at)
         VALUES ($1, decode($2, 'hex'), $3)`,
		userID, tokenHash, expiresAt)
	if err != nil {
		return storageErr("create session", err)
	}
	return nil
}

func (r *SessionRepository) Validate(ctx context.Context, tokenHash string) (string, error) {
	var userID string
	err := r.q.QueryRow(ctx,
		`SELECT user_id FROM sessions
         WHERE token_hash = decode($1, 'hex') AND expires_at > NOW()`,
		tokenHash).Scan(&userID)

	if errors.Is(err, pgx.ErrNoRows) {
		return "", session.ErrInvalidSession
	}
	if err != nil {
		r.log.Error("failed to validate session", "error", err)
		return "", storageErr("validate session", err)
	}
	return userID, nil
}
