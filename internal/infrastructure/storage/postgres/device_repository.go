package postgres

import (
	"context"
	"time"

	"golang.org/x/exp/slog"

	"pxocore/internal/domain/device"
)

type DeviceRepository struct {
	q   Querier
	log *slog.Logger
}

func NewDeviceRepository(q Querier, log *slog.Logger) *DeviceRepository {
	return &DeviceRepository{
		q:   q,
		log: log.With("component", "device_repository"),
	}
}

// Create регистрирует устройство. Повторная регистрация обновляет описание.
func (r *DeviceRepository) Create(ctx context.Context, d *device.Device) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO devices (id, user_id, type, platform, version, name, last_seen, is_online, is_trusted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			type = EXCLUDED.type,
			platform = EXCLUDED.platform,
			version = EXCLUDED.version,
			name = EXCLUDED.name,
			last_seen = EXCLUDED.last_seen,
			is_online = EXCLUDED.is_online
		WHERE devices.user_id = EXCLUDED.user_id`,
		d.ID, d.UserID, d.Type, d.Platform, d.Version, d.Name, d.LastSeen, d.IsOnline, d.IsTrusted,
	)
	if err != nil {
		r.log.Error("failed to create device", "device_id", d.ID, "user_id", d.UserID, "error", err)
		return storageErr("create device", err)
	}
	return nil
}

func (r *DeviceRepository) ListByUser(ctx context.Context, userID string) ([]device.Device, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, user_id, type, platform, version, name, last_seen, is_online, is_trusted
		FROM devices WHERE user_id = $1
		ORDER BY last_seen DESC, id`, userID)
	if err != nil {
		return nil, storageErr("list devices", err)
	}
	defer rows.Close()

	devices := []device.Device{}
	for rows.Next() {
		var d device.Device
		err := rows.Scan(&d.ID, &d.UserID, &d.Type, &d.Platform, &d.Version, &d.Name, &d.LastSeen, &d.IsOnline, &d.IsTrusted)
		if err != nil {
			return nil, storageErr("scan device", err)
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}

func (r *DeviceRepository) UpdateStatus(ctx context.Context, userID, deviceID string, isOnline bool, lastSeen time.Time) error {
	result, err := r.q.Exec(ctx,
		`UPDATE devices SET is_online = $3, last_seen = $4 WHERE user_id = $1 AND id = $2`,
		userID, deviceID, isOnline, lastSeen)
	if err != nil {
		return storageErr("update device status", err)
	}
	if result.RowsAffected() == 0 {
		return device.ErrNotFound
	}
	return nil
}
