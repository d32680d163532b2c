package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"golang.org/x/exp/slog"

	syncdomain "pxocore/internal/domain/sync"
)

// SyncRepository журнал изменений, конфликты и история синхронизаций
type SyncRepository struct {
	q   Querier
	log *slog.Logger
}

func NewSyncRepository(q Querier, log *slog.Logger) *SyncRepository {
	return &SyncRepository{
		q:   q,
		log: log.With("component", "sync_repository"),
	}
}

const changeColumns = `id, change_type, resource_type, resource_id, data, timestamp, device_id, version`

func (r *SyncRepository) AppendChange(ctx context.Context, userID string, change *syncdomain.SyncChange) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO sync_changes (id, user_id, change_type, resource_type, resource_id, data, timestamp, device_id, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		change.ID, userID, string(change.Type), string(change.ResourceType), change.ResourceID,
		nullJSON(change.Data), change.Timestamp, change.DeviceID, change.Version,
	)
	if err != nil {
		r.log.Error("failed to append change", "change_id", change.ID, "user_id", userID, "error", err)
		return storageErr("append change", err)
	}
	return nil
}

func (r *SyncRepository) HasChange(ctx context.Context, userID, changeID string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM sync_changes WHERE user_id = $1 AND id = $2)`, userID, changeID).Scan(&exists)
	if err != nil {
		return false, storageErr("check change", err)
	}
	return exists, nil
}

func (r *SyncRepository) GetChangesAfter(ctx context.Context, userID string, after time.Time) ([]syncdomain.SyncChange, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+changeColumns+` FROM sync_changes
		WHERE user_id = $1 AND timestamp > $2
		ORDER BY timestamp, seq`, userID, after)
	if err != nil {
		return nil, storageErr("get changes", err)
	}
	return collectChanges(rows)
}

func (r *SyncRepository) LatestChanges(ctx context.Context, userID string) ([]syncdomain.SyncChange, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+changeColumns+` FROM (
			SELECT DISTINCT ON (resource_type, resource_id) seq, `+changeColumns+`
			FROM sync_changes
			WHERE user_id = $1
			ORDER BY resource_type, resource_id, seq DESC
		) latest
		ORDER BY seq DESC`, userID)
	if err != nil {
		return nil, storageErr("latest changes", err)
	}
	return collectChanges(rows)
}

func (r *SyncRepository) CountDeviceChanges(ctx context.Context, userID, deviceID string) (int, error) {
	var n int
	err := r.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM sync_changes WHERE user_id = $1 AND device_id = $2`, userID, deviceID).Scan(&n)
	if err != nil {
		return 0, storageErr("count device changes", err)
	}
	return n, nil
}

func (r *SyncRepository) SaveConflict(ctx context.Context, userID string, c *syncdomain.SyncConflict) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO sync_conflicts (id, user_id, resource_type, resource_id, local_version, remote_version, conflict_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, userID, string(c.ResourceType), c.ResourceID,
		nullJSON(c.LocalVersion), nullJSON(c.RemoteVersion), string(c.ConflictType), c.CreatedAt,
	)
	if err != nil {
		return storageErr("save conflict", err)
	}
	return nil
}

const conflictColumns = `id, resource_type, resource_id, local_version, remote_version, conflict_type, created_at`

func (r *SyncRepository) GetConflict(ctx context.Context, userID, conflictID string) (*syncdomain.SyncConflict, error) {
	row := r.q.QueryRow(ctx,
		`SELECT `+conflictColumns+` FROM sync_conflicts WHERE user_id = $1 AND id = $2`, userID, conflictID)

	c, err := scanConflict(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, syncdomain.ErrConflictNotFound
	}
	if err != nil {
		return nil, storageErr("get conflict", err)
	}
	return c, nil
}

func (r *SyncRepository) ListConflicts(ctx context.Context, userID string) ([]syncdomain.SyncConflict, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+conflictColumns+` FROM sync_conflicts WHERE user_id = $1 ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, storageErr("list conflicts", err)
	}
	defer rows.Close()

	conflicts := []syncdomain.SyncConflict{}
	for rows.Next() {
		c, err := scanConflict(rows)
		if err != nil {
			return nil, storageErr("scan conflict", err)
		}
		conflicts = append(conflicts, *c)
	}
	return conflicts, rows.Err()
}

func (r *SyncRepository) DeleteConflict(ctx context.Context, userID, conflictID string) error {
	result, err := r.q.Exec(ctx, `DELETE FROM sync_conflicts WHERE user_id = $1 AND id = $2`, userID, conflictID)
	if err != nil {
		return storageErr("delete conflict", err)
	}
	if result.RowsAffected() == 0 {
		return syncdomain.ErrConflictNotFound
	}
	return nil
}

func (r *SyncRepository) CountConflicts(ctx context.Context, userID string) (int, error) {
	var n int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM sync_conflicts WHERE user_id = $1`, userID).Scan(&n); err != nil {
		return 0, storageErr("count conflicts", err)
	}
	return n, nil
}

func (r *SyncRepository) RecordSync(ctx context.Context, e *syncdomain.HistoryEntry) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO sync_history (id, user_id, device_id, sync_type, status, synced_items, conflicts, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.UserID, e.DeviceID, string(e.SyncType), e.Status, e.SyncedItems, e.Conflicts, e.Timestamp,
	)
	if err != nil {
		r.log.Error("failed to record sync", "user_id", e.UserID, "device_id", e.DeviceID, "error", err)
		return storageErr("record sync", err)
	}
	return nil
}

const historyColumns = `id, user_id, device_id, sync_type, status, synced_items, conflicts, timestamp`

func (r *SyncRepository) LastSync(ctx context.Context, userID, deviceID string) (*syncdomain.HistoryEntry, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+historyColumns+` FROM sync_history
		WHERE user_id = $1 AND device_id = $2
		ORDER BY timestamp DESC LIMIT 1`, userID, deviceID)

	e, err := scanHistory(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("last sync", err)
	}
	return e, nil
}

func (r *SyncRepository) GetHistory(ctx context.Context, userID, deviceID string, limit, offset int) ([]syncdomain.HistoryEntry, int, error) {
	var total int
	err := r.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM sync_history WHERE user_id = $1 AND device_id = $2`, userID, deviceID).Scan(&total)
	if err != nil {
		return nil, 0, storageErr("count history", err)
	}

	rows, err := r.q.Query(ctx, `
		SELECT `+historyColumns+` FROM sync_history
		WHERE user_id = $1 AND device_id = $2
		ORDER BY timestamp DESC, id
		LIMIT $3 OFFSET $4`, userID, deviceID, limit, offset)
	if err != nil {
		return nil, 0, storageErr("get history", err)
	}
	defer rows.Close()

	entries := []syncdomain.HistoryEntry{}
	for rows.Next() {
		e, err := scanHistory(rows)
		if err != nil {
			return nil, 0, storageErr("scan history", err)
		}
		entries = append(entries, *e)
	}
	return entries, total, rows.Err()
}

func collectChanges(rows pgx.Rows) ([]syncdomain.SyncChange, error) {
	defer rows.Close()

	changes := []syncdomain.SyncChange{}
	for rows.Next() {
		var (
			c            syncdomain.SyncChange
			changeType   string
			resourceType string
			data         []byte
		)
		err := rows.Scan(&c.ID, &changeType, &resourceType, &c.ResourceID, &data, &c.Timestamp, &c.DeviceID, &c.Version)
		if err != nil {
			return nil, storageErr("scan change", err)
		}
		c.Type = syncdomain.ChangeType(changeType)
		c.ResourceType = syncdomain.ResourceType(resourceType)
		c.Data = data
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("read changes", err)
	}
	return changes, nil
}

func scanConflict(row pgx.Row) (*syncdomain.SyncConflict, error) {
	var (
		c                    syncdomain.SyncConflict
		resourceType, cType  string
		localData, remoteRaw []byte
	)
	err := row.Scan(&c.ID, &resourceType, &c.ResourceID, &localData, &remoteRaw, &cType, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	c.ResourceType = syncdomain.ResourceType(resourceType)
	c.ConflictType = syncdomain.ConflictType(cType)
	c.LocalVersion = orJSONNull(localData)
	c.RemoteVersion = orJSONNull(remoteRaw)
	return &c, nil
}

func scanHistory(row pgx.Row) (*syncdomain.HistoryEntry, error) {
	var (
		e        syncdomain.HistoryEntry
		syncType string
	)
	err := row.Scan(&e.ID, &e.UserID, &e.DeviceID, &syncType, &e.Status, &e.SyncedItems, &e.Conflicts, &e.Timestamp)
	if err != nil {
		return nil, err
	}
	e.SyncType = syncdomain.SyncType(syncType)
	return &e, nil
}

// orJSONNull SQL NULL читается как JSON null
func orJSONNull(data []byte) []byte {
	if data == nil {
		return []byte("null")
	}
	return data
}
