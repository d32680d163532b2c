package sync

import (
	"encoding/json"
	"time"
)

// ChangeType вид мутации ресурса
type ChangeType string

const (
	ChangeCreate ChangeType = "create"
	ChangeUpdate ChangeType = "update"
	ChangeDelete ChangeType = "delete"
)

// ResourceType тип синхронизируемого ресурса
type ResourceType string

const (
	ResourceContent    ResourceType = "content"
	ResourceAnnotation ResourceType = "annotation"
	ResourcePreference ResourceType = "preference"
	ResourceMemory     ResourceType = "memory"
)

// ConflictType вид расхождения версий
type ConflictType string

const (
	ConflictConcurrentUpdate ConflictType = "concurrent_update"
	ConflictDeleteUpdate     ConflictType = "delete_update"
	ConflictTypeMismatch     ConflictType = "type_mismatch"
)

// Resolution способ разрешения конфликта
type Resolution string

const (
	ResolutionUseLocal  Resolution = "use_local"
	ResolutionUseRemote Resolution = "use_remote"
	ResolutionMerge     Resolution = "merge"
	ResolutionCustom    Resolution = "custom"
)

// Status состояние синхронизации устройства
type Status string

const (
	StatusSynced   Status = "synced"
	StatusPending  Status = "pending"
	StatusConflict Status = "conflict"
	StatusError    Status = "error"
)

// SyncType вид выполненной синхронизации в истории
type SyncType string

const (
	SyncFull  SyncType = "full"
	SyncDelta SyncType = "delta"
)

// SystemDeviceID источник изменений, созданных самим сервером
const SystemDeviceID = "system"

// SyncChange одно изменение ресурса. После сохранения не редактируется.
type SyncChange struct {
	ID           string          `json:"id" required:"false"`
	Type         ChangeType      `json:"type" enum:"create,update,delete"`
	ResourceType ResourceType    `json:"resourceType" enum:"content,annotation,preference,memory"`
	ResourceID   string          `json:"resourceId"`
	Data         json.RawMessage `json:"data,omitempty"`
	Timestamp    time.Time       `json:"timestamp" required:"false"`
	DeviceID     string          `json:"deviceId" required:"false"`
	Version      int             `json:"version" required:"false"`
}

// key ресурс, к которому относится изменение
func (c SyncChange) key() resourceKey {
	return resourceKey{typ: c.ResourceType, id: c.ResourceID}
}

type resourceKey struct {
	typ ResourceType
	id  string
}

// SyncConflict неразрешенное расхождение локальной и удаленной версий
type SyncConflict struct {
	ID            string          `json:"id"`
	ResourceType  ResourceType    `json:"resourceType"`
	ResourceID    string          `json:"resourceId"`
	LocalVersion  json.RawMessage `json:"localVersion"`
	RemoteVersion json.RawMessage `json:"remoteVersion"`
	ConflictType  ConflictType    `json:"conflictType"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// SyncStatus вычисляемое состояние синхронизации устройства
type SyncStatus struct {
	UserID         string    `json:"userId"`
	DeviceID       string    `json:"deviceId"`
	LastSyncTime   time.Time `json:"lastSyncTime"`
	Status         Status    `json:"status"`
	PendingChanges int       `json:"pendingChanges"`
	ConflictCount  int       `json:"conflictCount"`
}

// HistoryEntry запись журнала синхронизаций устройства
type HistoryEntry struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	DeviceID    string    `json:"deviceId"`
	SyncType    SyncType  `json:"syncType"`
	Status      string    `json:"status"`
	SyncedItems int       `json:"syncedItems"`
	Conflicts   int       `json:"conflicts"`
	Timestamp   time.Time `json:"timestamp"`
}

// HistoryPage страница журнала синхронизаций
type HistoryPage struct {
	Items      []HistoryEntry `json:"items"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	TotalPages int            `json:"totalPages"`
}

// ServiceConfig конфигурация сервиса синхронизации
type ServiceConfig struct {
	HistoryPageSize    int `json:"history_page_size"`
	MaxHistoryPageSize int `json:"max_history_page_size"`
	MaxBatchSize       int `json:"max_batch_size"`
}
