package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"pxocore/internal/domain/backup"
	"pxocore/internal/domain/device"
	"pxocore/internal/domain/session"
	"pxocore/internal/domain/sync"
	"pxocore/internal/infrastructure/storage/memory"
)

// newTestAPI собирает API поверх хранилища в памяти и выдает токен
func newTestAPI(t *testing.T) (http.Handler, string) {
	t.Helper()
	log := slog.Default()

	store := memory.New()
	devices := device.NewService(memory.NewDeviceRepository(), log)
	sessions := session.NewService(memory.NewSessionRepository(), log)

	token, err := sessions.Create(context.Background(), "user-1")
	require.NoError(t, err)

	mux := New(Services{
		Sync:    sync.NewService(memory.NewSyncStore(store), devices, log, nil),
		Backup:  backup.NewService(memory.NewBackupStore(store), log),
		Device:  devices,
		Session: sessions,
	}, log)
	return mux, token
}

func do(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthIsPublic(t *testing.T) {
	h, _ := newTestAPI(t)

	rec := do(t, h, http.MethodGet, "/api/v1/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSyncRequiresToken(t *testing.T) {
	h, _ := newTestAPI(t)

	rec := do(t, h, http.MethodGet, "/api/sync/conflicts", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/sync/conflicts", "forged", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDeviceSyncFlow(t *testing.T) {
	h, token := newTestAPI(t)

	rec := do(t, h, http.MethodPost, "/api/devices", token,
		`{"type":"desktop","platform":"linux","version":"1.0.0","name":"laptop"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var d device.Device
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))

	rec = do(t, h, http.MethodPost, "/api/sync/delta", token, `{
		"deviceId": "`+d.ID+`",
		"lastSyncTime": "2024-01-01T00:00:00Z",
		"changes": [{"type":"create","resourceType":"content","resourceId":"C1","data":{"title":"A","content":"x"}}]
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var delta sync.DeltaSyncResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &delta))
	assert.Equal(t, 1, delta.AppliedChanges)
	assert.Zero(t, delta.Conflicts)

	rec = do(t, h, http.MethodGet, "/api/sync/status", token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var statuses []sync.SyncStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &statuses))
	require.Len(t, statuses, 1)
	assert.Equal(t, sync.StatusPending, statuses[0].Status)
	assert.Equal(t, 1, statuses[0].PendingChanges)

	rec = do(t, h, http.MethodPost, "/api/sync/backups", token, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/api/sync/conflicts/missing/resolve", token, `{"resolution":"use_local"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
