package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"golang.org/x/exp/slog"

	"pxocore/internal/domain/resource"
)

// ResourceRepository документы, аннотации, настройки, память и диалоги
type ResourceRepository struct {
	q   Querier
	log *slog.Logger
}

func NewResourceRepository(q Querier, log *slog.Logger) *ResourceRepository {
	return &ResourceRepository{
		q:   q,
		log: log.With("component", "resource_repository"),
	}
}

const contentColumns = `id, user_id, type, title, content, metadata, tags, is_private, version, created_at, updated_at`

func (r *ResourceRepository) ListContents(ctx context.Context, userID string) ([]resource.Content, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+contentColumns+` FROM contents WHERE user_id = $1 ORDER BY updated_at DESC, id`, userID)
	if err != nil {
		return nil, storageErr("list contents", err)
	}
	defer rows.Close()

	var contents []resource.Content
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, storageErr("scan content", err)
		}
		contents = append(contents, *c)
	}
	return contents, rows.Err()
}

func (r *ResourceRepository) GetContent(ctx context.Context, userID, contentID string) (*resource.Content, error) {
	row := r.q.QueryRow(ctx,
		`SELECT `+contentColumns+` FROM contents WHERE user_id = $1 AND id = $2`, userID, contentID)

	c, err := scanContent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, resource.ErrNotFound
	}
	if err != nil {
		return nil, storageErr("get content", err)
	}
	return c, nil
}

// SaveContent вставляет или перезаписывает документ. При expectedBelow > 0
// строка обновляется только если ее версия меньше expectedBelow.
func (r *ResourceRepository) SaveContent(ctx context.Context, c *resource.Content, expectedBelow int) error {
	const query = `
		INSERT INTO contents (` + contentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, CASE WHEN $9 > 0 THEN $9 ELSE 1 END, $10, $11)
		ON CONFLICT (user_id, id) DO UPDATE SET
			type = EXCLUDED.type,
			title = EXCLUDED.title,
			content = EXCLUDED.content,
			metadata = EXCLUDED.metadata,
			tags = EXCLUDED.tags,
			is_private = EXCLUDED.is_private,
			version = CASE WHEN $9 > 0 THEN $9 ELSE contents.version + 1 END,
			updated_at = EXCLUDED.updated_at
		WHERE $9 <= 0 OR contents.version < $9
		RETURNING version, created_at`

	createdAt, updatedAt := timestamps(c.CreatedAt, c.UpdatedAt)
	err := r.q.QueryRow(ctx, query,
		c.ID, c.UserID, string(c.Type), c.Title, c.Content, nullJSON(c.Metadata), tagsOrEmpty(c.Tags),
		c.IsPrivate, expectedBelow, createdAt, updatedAt,
	).Scan(&c.Version, &c.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return resource.ErrVersionConflict
	}
	if err != nil {
		r.log.Error("failed to save content", "content_id", c.ID, "user_id", c.UserID, "error", err)
		return storageErr("save content", err)
	}
	c.UpdatedAt = updatedAt
	return nil
}

func (r *ResourceRepository) DeleteContent(ctx context.Context, userID, contentID string) error {
	result, err := r.q.Exec(ctx, `DELETE FROM contents WHERE user_id = $1 AND id = $2`, userID, contentID)
	if err != nil {
		return storageErr("delete content", err)
	}
	if result.RowsAffected() == 0 {
		return resource.ErrNotFound
	}
	return nil
}

const annotationColumns = `id, user_id, content_id, content_type, annotation_type, selection, note, tags, color, is_private, version, created_at, updated_at`

func (r *ResourceRepository) ListAnnotations(ctx context.Context, userID string) ([]resource.Annotation, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+annotationColumns+` FROM annotations WHERE user_id = $1 ORDER BY updated_at DESC, id`, userID)
	if err != nil {
		return nil, storageErr("list annotations", err)
	}
	defer rows.Close()

	var annotations []resource.Annotation
	for rows.Next() {
		a, err := scanAnnotation(rows)
		if err != nil {
			return nil, storageErr("scan annotation", err)
		}
		annotations = append(annotations, *a)
	}
	return annotations, rows.Err()
}

func (r *ResourceRepository) GetAnnotation(ctx context.Context, userID, annotationID string) (*resource.Annotation, error) {
	row := r.q.QueryRow(ctx,
		`SELECT `+annotationColumns+` FROM annotations WHERE user_id = $1 AND id = $2`, userID, annotationID)

	a, err := scanAnnotation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, resource.ErrNotFound
	}
	if err != nil {
		return nil, storageErr("get annotation", err)
	}
	return a, nil
}

func (r *ResourceRepository) SaveAnnotation(ctx context.Context, a *resource.Annotation, expectedBelow int) error {
	const query = `
		INSERT INTO annotations (` + annotationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, CASE WHEN $11 > 0 THEN $11 ELSE 1 END, $12, $13)
		ON CONFLICT (user_id, id) DO UPDATE SET
			content_id = EXCLUDED.content_id,
			content_type = EXCLUDED.content_type,
			annotation_type = EXCLUDED.annotation_type,
			selection = EXCLUDED.selection,
			note = EXCLUDED.note,
			tags = EXCLUDED.tags,
			color = EXCLUDED.color,
			is_private = EXCLUDED.is_private,
			version = CASE WHEN $11 > 0 THEN $11 ELSE annotations.version + 1 END,
			updated_at = EXCLUDED.updated_at
		WHERE $11 <= 0 OR annotations.version < $11
		RETURNING version, created_at`

	createdAt, updatedAt := timestamps(a.CreatedAt, a.UpdatedAt)
	err := r.q.QueryRow(ctx, query,
		a.ID, a.UserID, a.ContentID, a.ContentType, a.AnnotationType, nullJSON(a.Selection), a.Note,
		tagsOrEmpty(a.Tags), a.Color, a.IsPrivate, expectedBelow, createdAt, updatedAt,
	).Scan(&a.Version, &a.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return resource.ErrVersionConflict
	}
	if err != nil {
		r.log.Error("failed to save annotation", "annotation_id", a.ID, "user_id", a.UserID, "error", err)
		return storageErr("save annotation", err)
	}
	a.UpdatedAt = updatedAt
	return nil
}

func (r *ResourceRepository) DeleteAnnotation(ctx context.Context, userID, annotationID string) error {
	result, err := r.q.Exec(ctx, `DELETE FROM annotations WHERE user_id = $1 AND id = $2`, userID, annotationID)
	if err != nil {
		return storageErr("delete annotation", err)
	}
	if result.RowsAffected() == 0 {
		return resource.ErrNotFound
	}
	return nil
}

func (r *ResourceRepository) GetPreferences(ctx context.Context, userID string) (resource.Preferences, error) {
	var prefs resource.Preferences
	err := r.q.QueryRow(ctx, `SELECT preferences FROM user_preferences WHERE user_id = $1`, userID).Scan(&prefs)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("get preferences", err)
	}
	if prefs == nil {
		prefs = resource.Preferences{}
	}
	return prefs, nil
}

func (r *ResourceRepository) ReplacePreferences(ctx context.Context, userID string, prefs resource.Preferences) error {
	if prefs == nil {
		prefs = resource.Preferences{}
	}
	data, err := json.Marshal(prefs)
	if err != nil {
		return storageErr("marshal preferences", err)
	}

	_, err = r.q.Exec(ctx, `
		INSERT INTO user_preferences (user_id, preferences, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			preferences = EXCLUDED.preferences,
			updated_at = EXCLUDED.updated_at`,
		userID, data)
	if err != nil {
		return storageErr("replace preferences", err)
	}
	return nil
}

func (r *ResourceRepository) GetMemory(ctx context.Context, userID string) (*resource.Memory, error) {
	m := &resource.Memory{UserID: userID}
	var data []byte
	err := r.q.QueryRow(ctx, `SELECT memory, updated_at FROM user_memory WHERE user_id = $1`, userID).
		Scan(&data, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("get memory", err)
	}
	m.Memory = data
	return m, nil
}

func (r *ResourceRepository) ReplaceMemory(ctx context.Context, m *resource.Memory) error {
	updatedAt := m.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	_, err := r.q.Exec(ctx, `
		INSERT INTO user_memory (user_id, memory, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET
			memory = EXCLUDED.memory,
			updated_at = EXCLUDED.updated_at`,
		m.UserID, jsonOrEmptyObject(m.Memory), updatedAt)
	if err != nil {
		return storageErr("replace memory", err)
	}
	return nil
}

func (r *ResourceRepository) ListConversations(ctx context.Context, userID string) ([]resource.Conversation, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, user_id, title, messages, context, created_at, updated_at
		FROM conversations WHERE user_id = $1 ORDER BY updated_at DESC, id`, userID)
	if err != nil {
		return nil, storageErr("list conversations", err)
	}
	defer rows.Close()

	var conversations []resource.Conversation
	for rows.Next() {
		var (
			c        resource.Conversation
			messages []byte
			convCtx  []byte
		)
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &messages, &convCtx, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, storageErr("scan conversation", err)
		}
		if err := json.Unmarshal(messages, &c.Messages); err != nil {
			return nil, storageErr("decode conversation messages", err)
		}
		c.Context = convCtx
		conversations = append(conversations, c)
	}
	return conversations, rows.Err()
}

func (r *ResourceRepository) SaveConversation(ctx context.Context, c *resource.Conversation) error {
	messages, err := json.Marshal(c.Messages)
	if err != nil {
		return storageErr("marshal conversation messages", err)
	}

	createdAt, updatedAt := timestamps(c.CreatedAt, c.UpdatedAt)
	_, err = r.q.Exec(ctx, `
		INSERT INTO conversations (id, user_id, title, messages, context, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, id) DO UPDATE SET
			title = EXCLUDED.title,
			messages = EXCLUDED.messages,
			context = EXCLUDED.context,
			updated_at = EXCLUDED.updated_at`,
		c.ID, c.UserID, c.Title, messages, nullJSON(c.Context), createdAt, updatedAt)
	if err != nil {
		return storageErr("save conversation", err)
	}
	return nil
}

func scanContent(row pgx.Row) (*resource.Content, error) {
	var (
		c        resource.Content
		typ      string
		metadata []byte
	)
	err := row.Scan(&c.ID, &c.UserID, &typ, &c.Title, &c.Content, &metadata, &c.Tags,
		&c.IsPrivate, &c.Version, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.Type = resource.ContentType(typ)
	c.Metadata = metadata
	return &c, nil
}

func scanAnnotation(row pgx.Row) (*resource.Annotation, error) {
	var (
		a         resource.Annotation
		selection []byte
	)
	err := row.Scan(&a.ID, &a.UserID, &a.ContentID, &a.ContentType, &a.AnnotationType, &selection,
		&a.Note, &a.Tags, &a.Color, &a.IsPrivate, &a.Version, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.Selection = selection
	return &a, nil
}

func timestamps(createdAt, updatedAt time.Time) (time.Time, time.Time) {
	now := time.Now().UTC()
	if updatedAt.IsZero() {
		updatedAt = now
	}
	if createdAt.IsZero() {
		createdAt = updatedAt
	}
	return createdAt, updatedAt
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

// nullJSON пустое значение записывается как SQL NULL
func nullJSON(data json.RawMessage) any {
	if len(data) == 0 {
		return nil
	}
	return []byte(data)
}

func jsonOrEmptyObject(data json.RawMessage) []byte {
	if len(data) == 0 {
		return []byte(`{}`)
	}
	return data
}
