package sync

import (
	syncdomain "pxocore/internal/domain/sync"
)

type fullSyncInput struct {
	Body FullSyncRequest
}

type FullSyncRequest struct {
	DeviceID string `json:"deviceId" minLength:"1" doc:"Устройство, выполняющее синхронизацию"`
}

type fullSyncOutput struct {
	Body syncdomain.FullSyncResult
}

type deltaSyncInput struct {
	Body syncdomain.DeltaSyncRequest
}

type deltaSyncOutput struct {
	Body syncdomain.DeltaSyncResult
}

type getStatusOutput struct {
	Body []syncdomain.SyncStatus
}

type getConflictsOutput struct {
	Body []syncdomain.SyncConflict
}

type resolveConflictInput struct {
	ID   string `path:"id"`
	Body syncdomain.ResolveRequest
}

type resolveConflictOutput struct {
	Body syncdomain.ResolveResult
}

type getHistoryInput struct {
	DeviceID string `query:"deviceId" required:"true" doc:"Устройство"`
	Page     int    `query:"page" minimum:"0" doc:"Номер страницы, с 1"`
	Limit    int    `query:"limit" minimum:"0" doc:"Размер страницы"`
}

type getHistoryOutput struct {
	Body syncdomain.HistoryPage
}
