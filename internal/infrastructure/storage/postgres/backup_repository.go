package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"golang.org/x/exp/slog"

	"pxocore/internal/domain/backup"
)

// BackupRepository метаданные и сжатые снимки хранятся в одной строке
type BackupRepository struct {
	q   Querier
	log *slog.Logger
}

func NewBackupRepository(q Querier, log *slog.Logger) *BackupRepository {
	return &BackupRepository{
		q:   q,
		log: log.With("component", "backup_repository"),
	}
}

func (r *BackupRepository) SaveBackup(ctx context.Context, info *backup.Info, blob []byte) error {
	meta, err := json.Marshal(info.Metadata)
	if err != nil {
		return storageErr("marshal backup metadata", err)
	}

	_, err = r.q.Exec(ctx, `
		INSERT INTO backups (id, user_id, type, size, item_count, metadata, data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		info.ID, info.UserID, string(info.Type), info.Size, info.ItemCount, meta, blob, info.CreatedAt,
	)
	if err != nil {
		r.log.Error("failed to save backup", "backup_id", info.ID, "user_id", info.UserID, "error", err)
		return storageErr("save backup", err)
	}
	return nil
}

const backupColumns = `id, user_id, type, size, item_count, metadata, created_at`

func (r *BackupRepository) GetBackup(ctx context.Context, userID, backupID string) (*backup.Info, error) {
	row := r.q.QueryRow(ctx,
		`SELECT `+backupColumns+` FROM backups WHERE user_id = $1 AND id = $2`, userID, backupID)

	info, err := scanBackup(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, backup.ErrNotFound
	}
	if err != nil {
		return nil, storageErr("get backup", err)
	}
	return info, nil
}

func (r *BackupRepository) GetBackupData(ctx context.Context, userID, backupID string) ([]byte, error) {
	var blob []byte
	err := r.q.QueryRow(ctx,
		`SELECT data FROM backups WHERE user_id = $1 AND id = $2`, userID, backupID).Scan(&blob)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, backup.ErrNotFound
	}
	if err != nil {
		return nil, storageErr("get backup data", err)
	}
	return blob, nil
}

func (r *BackupRepository) ListBackups(ctx context.Context, userID string) ([]backup.Info, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+backupColumns+` FROM backups WHERE user_id = $1 ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, storageErr("list backups", err)
	}
	defer rows.Close()

	infos := []backup.Info{}
	for rows.Next() {
		info, err := scanBackup(rows)
		if err != nil {
			return nil, storageErr("scan backup", err)
		}
		infos = append(infos, *info)
	}
	return infos, rows.Err()
}

func scanBackup(row pgx.Row) (*backup.Info, error) {
	var (
		info backup.Info
		typ  string
		meta []byte
	)
	if err := row.Scan(&info.ID, &info.UserID, &typ, &info.Size, &info.ItemCount, &meta, &info.CreatedAt); err != nil {
		return nil, err
	}
	info.Type = backup.Type(typ)
	if err := json.Unmarshal(meta, &info.Metadata); err != nil {
		return nil, err
	}
	return &info, nil
}
