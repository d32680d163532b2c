package memory

import (
	"cmp"
	"context"
	"maps"
	"slices"
	gosync "sync"
	"time"

	"pxocore/internal/domain/device"
)

// DeviceRepository реестр устройств в памяти
type DeviceRepository struct {
	mu      gosync.RWMutex
	devices map[string]device.Device
}

func NewDeviceRepository() *DeviceRepository {
	return &DeviceRepository{devices: make(map[string]device.Device)}
}

func (r *DeviceRepository) Create(_ context.Context, d *device.Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.devices[d.ID] = *d
	return nil
}

func (r *DeviceRepository) ListByUser(_ context.Context, userID string) ([]device.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []device.Device
	for d := range maps.Values(r.devices) {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	slices.SortFunc(out, func(a, b device.Device) int {
		return cmp.Or(b.LastSeen.Compare(a.LastSeen), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (r *DeviceRepository) UpdateStatus(_ context.Context, userID, deviceID string, isOnline bool, lastSeen time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[deviceID]
	if !ok || d.UserID != userID {
		return device.ErrNotFound
	}
	d.IsOnline = isOnline
	d.LastSeen = lastSeen
	r.devices[deviceID] = d
	return nil
}
