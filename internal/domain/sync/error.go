package sync

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrSyncFailed      = errors.New("sync failed")

	ErrConflictNotFound  = fmt.Errorf("conflict %w", ErrNotFound)
	ErrDeviceNotFound    = fmt.Errorf("device %w", ErrNotFound)
	ErrInvalidResolution = fmt.Errorf("%w: unsupported resolution", ErrInvalidArgument)
	ErrMissingCustomData = fmt.Errorf("%w: custom resolution requires customData", ErrInvalidArgument)
	ErrInvalidChange     = fmt.Errorf("%w: malformed change", ErrInvalidArgument)

	// ErrUnsupportedChange изменение не имеет пути применения
	ErrUnsupportedChange = errors.New("unsupported change")
)
