package device

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, device *Device) error
	ListByUser(ctx context.Context, userID string) ([]Device, error)
	UpdateStatus(ctx context.Context, userID, deviceID string, isOnline bool, lastSeen time.Time) error
}
