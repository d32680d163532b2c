package backup

import "errors"

var (
	ErrNotFound = errors.New("backup not found")
	ErrCorrupt  = errors.New("backup data is corrupt")
)
