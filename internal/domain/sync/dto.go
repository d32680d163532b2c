package sync

import (
	"encoding/json"
	"time"
)

// FullSyncResult результат полной синхронизации
type FullSyncResult struct {
	Success     bool      `json:"success"`
	SyncedItems int       `json:"syncedItems"`
	Conflicts   int       `json:"conflicts"`
	Timestamp   time.Time `json:"timestamp"`
}

// DeltaSyncRequest пакет локальных изменений устройства
type DeltaSyncRequest struct {
	DeviceID     string       `json:"deviceId" minLength:"1"`
	LastSyncTime time.Time    `json:"lastSyncTime" format:"date-time"`
	Changes      []SyncChange `json:"changes,omitempty"`
}

// DeltaSyncResult результат инкрементальной синхронизации
type DeltaSyncResult struct {
	Success        bool         `json:"success"`
	AppliedChanges int          `json:"appliedChanges"`
	Conflicts      int          `json:"conflicts"`
	ServerChanges  []SyncChange `json:"serverChanges"`
	Timestamp      time.Time    `json:"timestamp"`
}

// ResolveRequest запрос на разрешение конфликта
type ResolveRequest struct {
	Resolution Resolution      `json:"resolution" enum:"use_local,use_remote,merge,custom"`
	CustomData json.RawMessage `json:"customData,omitempty"`
}

// ResolveResult результат разрешения конфликта
type ResolveResult struct {
	Success bool `json:"success"`
}

// HistoryRequest параметры выборки журнала синхронизаций
type HistoryRequest struct {
	DeviceID string
	Page     int
	Limit    int
}
