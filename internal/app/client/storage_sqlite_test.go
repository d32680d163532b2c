package client

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	syncdomain "pxocore/internal/domain/sync"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	s, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "outbox.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testChange(id, resourceID string) syncdomain.SyncChange {
	return syncdomain.SyncChange{
		ID:           id,
		Type:         syncdomain.ChangeCreate,
		ResourceType: syncdomain.ResourceContent,
		ResourceID:   resourceID,
		Data:         json.RawMessage(`{"title":"T"}`),
		Timestamp:    time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		DeviceID:     "dev-1",
	}
}

func TestSQLiteStorage_QueueOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	for _, id := range []string{"c1", "c2", "c3"} {
		require.NoError(t, s.Enqueue(ctx, testChange(id, "R-"+id)))
	}

	n, err := s.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	pending, err := s.Pending(ctx, 2)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "c1", pending[0].ID)
	assert.Equal(t, "c2", pending[1].ID)
	assert.JSONEq(t, `{"title":"T"}`, string(pending[0].Data))
}

func TestSQLiteStorage_EnqueueDuplicate(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	require.NoError(t, s.Enqueue(ctx, testChange("c1", "R1")))
	assert.Error(t, s.Enqueue(ctx, testChange("c1", "R1")))
}

func TestSQLiteStorage_CompleteSync(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	require.NoError(t, s.Enqueue(ctx, testChange("c1", "R1")))
	require.NoError(t, s.Enqueue(ctx, testChange("c2", "R2")))

	last, err := s.LastSyncTime(ctx)
	require.NoError(t, err)
	assert.True(t, last.IsZero())

	syncedAt := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	remote := testChange("s1", "R9")
	remote.DeviceID = "dev-2"

	require.NoError(t, s.CompleteSync(ctx, []string{"c1"}, []syncdomain.SyncChange{remote}, syncedAt))
	// повторно полученное изменение не дублируется
	require.NoError(t, s.CompleteSync(ctx, nil, []syncdomain.SyncChange{remote}, syncedAt))

	pending, err := s.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "c2", pending[0].ID)

	received, err := s.ServerChanges(ctx)
	require.NoError(t, err)
	require.Len(t, received, 1)
	assert.Equal(t, "R9", received[0].ResourceID)

	last, err = s.LastSyncTime(ctx)
	require.NoError(t, err)
	assert.True(t, syncedAt.Equal(last))

	// промежуточный пакет не сдвигает отметку
	require.NoError(t, s.CompleteSync(ctx, []string{"c2"}, nil, time.Time{}))

	count, err := s.CountPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	last, err = s.LastSyncTime(ctx)
	require.NoError(t, err)
	assert.True(t, syncedAt.Equal(last))
}

func TestSQLiteStorage_DeviceID(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	id, err := s.DeviceID(ctx)
	require.NoError(t, err)
	assert.Empty(t, id)

	require.NoError(t, s.SetDeviceID(ctx, "dev-1"))
	require.NoError(t, s.SetDeviceID(ctx, "dev-2"))

	id, err = s.DeviceID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "dev-2", id)
}
