package client

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"pxocore/internal/app/client/config"
	"pxocore/internal/app/server/api"
	"pxocore/internal/domain/backup"
	"pxocore/internal/domain/device"
	"pxocore/internal/domain/session"
	syncdomain "pxocore/internal/domain/sync"
	"pxocore/internal/infrastructure/storage/memory"
)

// newTestServer поднимает API поверх хранилища в памяти и выдает токен
func newTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	log := slog.Default()

	store := memory.New()
	devices := device.NewService(memory.NewDeviceRepository(), log)
	sessions := session.NewService(memory.NewSessionRepository(), log)

	token, err := sessions.Create(context.Background(), "user-1")
	require.NoError(t, err)

	srv := httptest.NewServer(api.New(api.Services{
		Sync:    syncdomain.NewService(memory.NewSyncStore(store), devices, log, nil),
		Backup:  backup.NewService(memory.NewBackupStore(store), log),
		Device:  devices,
		Session: sessions,
	}, log))
	t.Cleanup(srv.Close)

	return srv, token
}

func newTestApp(t *testing.T, srv *httptest.Server, token string, batch int) *App {
	t.Helper()

	dir := t.TempDir()
	cfg := &config.Config{
		ServerAddress: strings.TrimPrefix(srv.URL, "http://"),
		ConfigDir:     dir,
		DataPath:      filepath.Join(dir, "outbox.db"),
		Token:         token,
		BatchSize:     batch,
		Timeout:       5 * time.Second,
	}

	app, err := New(cfg, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func registerTestDevice(t *testing.T, app *App, name string) string {
	t.Helper()

	d, err := app.RegisterDevice(context.Background(), device.RegisterRequest{
		Type:     "desktop",
		Platform: "linux",
		Version:  "1.0.0",
		Name:     name,
	})
	require.NoError(t, err)

	id, err := app.DeviceID(context.Background())
	require.NoError(t, err)
	require.Equal(t, d.ID, id)
	return id
}

func TestApp_AddChangeRequiresDevice(t *testing.T) {
	srv, token := newTestServer(t)
	app := newTestApp(t, srv, token, 10)

	_, err := app.AddChange(context.Background(), ChangeInput{
		Type:         syncdomain.ChangeCreate,
		ResourceType: syncdomain.ResourceContent,
		ResourceID:   "C1",
		Data:         json.RawMessage(`{"title":"A"}`),
	})
	assert.ErrorIs(t, err, ErrNoDevice)
}

func TestApp_AddChangeValidation(t *testing.T) {
	srv, token := newTestServer(t)
	app := newTestApp(t, srv, token, 10)
	registerTestDevice(t, app, "laptop")

	tests := []struct {
		name string
		in   ChangeInput
	}{
		{
			name: "unknown type",
			in:   ChangeInput{Type: "rename", ResourceType: syncdomain.ResourceContent, ResourceID: "C1", Data: json.RawMessage(`{}`)},
		},
		{
			name: "unknown resource",
			in:   ChangeInput{Type: syncdomain.ChangeCreate, ResourceType: "playlist", ResourceID: "C1", Data: json.RawMessage(`{}`)},
		},
		{
			name: "empty id",
			in:   ChangeInput{Type: syncdomain.ChangeCreate, ResourceType: syncdomain.ResourceContent, Data: json.RawMessage(`{}`)},
		},
		{
			name: "broken json",
			in:   ChangeInput{Type: syncdomain.ChangeUpdate, ResourceType: syncdomain.ResourceContent, ResourceID: "C1", Data: json.RawMessage(`{`)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := app.AddChange(context.Background(), tt.in)
			assert.ErrorIs(t, err, ErrInvalidChange)
		})
	}

	n, err := app.PendingCount(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSync_PushesQueueInBatches(t *testing.T) {
	ctx := context.Background()
	srv, token := newTestServer(t)
	app := newTestApp(t, srv, token, 2)
	registerTestDevice(t, app, "laptop")

	for _, id := range []string{"C1", "C2", "C3"} {
		_, err := app.AddChange(ctx, ChangeInput{
			Type:         syncdomain.ChangeCreate,
			ResourceType: syncdomain.ResourceContent,
			ResourceID:   id,
			Data:         json.RawMessage(`{"title":"` + id + `","content":"x"}`),
		})
		require.NoError(t, err)
	}

	result, err := app.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Batches)
	assert.Equal(t, 3, result.Uploaded)
	assert.Equal(t, 3, result.Applied)
	assert.Zero(t, result.Conflicts)
	assert.Zero(t, result.Downloaded)

	n, err := app.PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	last, err := app.LastSyncTime(ctx)
	require.NoError(t, err)
	assert.True(t, result.SyncedAt.Equal(last))

	history, err := app.History(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, history.Total)
}

func TestSync_DownloadsOtherDeviceChanges(t *testing.T) {
	ctx := context.Background()
	srv, token := newTestServer(t)

	laptop := newTestApp(t, srv, token, 10)
	registerTestDevice(t, laptop, "laptop")
	phone := newTestApp(t, srv, token, 10)
	registerTestDevice(t, phone, "phone")

	_, err := laptop.AddChange(ctx, ChangeInput{
		Type:         syncdomain.ChangeCreate,
		ResourceType: syncdomain.ResourceAnnotation,
		ResourceID:   "A1",
		Data:         json.RawMessage(`{"contentId":"C1","contentType":"article","annotationType":"note","note":"n"}`),
	})
	require.NoError(t, err)

	_, err = laptop.Sync(ctx)
	require.NoError(t, err)

	result, err := phone.Sync(ctx)
	require.NoError(t, err)
	assert.Zero(t, result.Uploaded)
	require.Equal(t, 1, result.Downloaded)
	assert.Equal(t, "A1", result.Changes[0].ResourceID)

	received, err := phone.storage.ServerChanges(ctx)
	require.NoError(t, err)
	require.Len(t, received, 1)

	// отметка сдвинулась, повторная синхронизация ничего не приносит
	result, err = phone.Sync(ctx)
	require.NoError(t, err)
	assert.Zero(t, result.Downloaded)
}

func TestSync_ConflictInLaterBatch(t *testing.T) {
	ctx := context.Background()
	srv, token := newTestServer(t)

	laptop := newTestApp(t, srv, token, 1)
	registerTestDevice(t, laptop, "laptop")
	phone := newTestApp(t, srv, token, 10)
	registerTestDevice(t, phone, "phone")

	for _, id := range []string{"X1", "C1"} {
		_, err := laptop.AddChange(ctx, ChangeInput{
			Type:         syncdomain.ChangeCreate,
			ResourceType: syncdomain.ResourceContent,
			ResourceID:   id,
			Data:         json.RawMessage(`{"title":"laptop"}`),
		})
		require.NoError(t, err)
	}
	time.Sleep(time.Millisecond)

	// телефон правит C1 позже ноутбука и синхронизируется первым
	_, err := phone.AddChange(ctx, ChangeInput{
		Type:         syncdomain.ChangeUpdate,
		ResourceType: syncdomain.ResourceContent,
		ResourceID:   "C1",
		Data:         json.RawMessage(`{"title":"phone"}`),
	})
	require.NoError(t, err)
	_, err = phone.Sync(ctx)
	require.NoError(t, err)

	result, err := laptop.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Batches)
	assert.Equal(t, 2, result.Uploaded)
	assert.Equal(t, 1, result.Applied)
	assert.Equal(t, 1, result.Conflicts)
	require.Equal(t, 1, result.Downloaded)
	assert.Equal(t, "C1", result.Changes[0].ResourceID)

	conflicts, err := laptop.Conflicts(ctx)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "C1", conflicts[0].ResourceID)
	assert.JSONEq(t, `{"title":"phone"}`, string(conflicts[0].RemoteVersion))

	last, err := laptop.LastSyncTime(ctx)
	require.NoError(t, err)
	assert.True(t, result.SyncedAt.Equal(last))
}

func TestSync_KeepsQueueOnFailure(t *testing.T) {
	ctx := context.Background()
	srv, token := newTestServer(t)

	app := newTestApp(t, srv, token, 10)
	registerTestDevice(t, app, "laptop")

	_, err := app.AddChange(ctx, ChangeInput{
		Type:         syncdomain.ChangeDelete,
		ResourceType: syncdomain.ResourceContent,
		ResourceID:   "C1",
	})
	require.NoError(t, err)

	app.httpClient.token = "forged"

	_, err = app.Sync(ctx)
	require.ErrorIs(t, err, ErrUnauthorized)

	n, err := app.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	last, err := app.LastSyncTime(ctx)
	require.NoError(t, err)
	assert.True(t, last.IsZero())
}
