package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"pxocore/internal/app/server/api/http/middleware/auth"
	syncdomain "pxocore/internal/domain/sync"
)

// fakeSync реализует только дельта-синхронизацию
type fakeSync struct {
	syncdomain.Servicer
	gotUser string
	gotReq  syncdomain.DeltaSyncRequest
}

func (f *fakeSync) PerformDeltaSync(_ context.Context, userID string, req syncdomain.DeltaSyncRequest) (*syncdomain.DeltaSyncResult, error) {
	f.gotUser = userID
	f.gotReq = req
	if req.DeviceID == "" {
		return nil, syncdomain.ErrInvalidArgument
	}
	return &syncdomain.DeltaSyncResult{
		Success:        true,
		AppliedChanges: len(req.Changes),
		ServerChanges:  []syncdomain.SyncChange{},
		Timestamp:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}, nil
}

func dial(t *testing.T, svc syncdomain.Servicer) *websocket.Conn {
	t.Helper()

	h := NewHandler(svc, slog.Default())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), "user-1")))
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, msg Message) Message {
	t.Helper()

	require.NoError(t, conn.WriteJSON(msg))
	var reply Message
	require.NoError(t, conn.ReadJSON(&reply))
	return reply
}

func TestPingPong(t *testing.T) {
	conn := dial(t, &fakeSync{})

	reply := roundTrip(t, conn, Message{Type: TypePing})
	assert.Equal(t, TypePong, reply.Type)
}

func TestSyncRequest(t *testing.T) {
	svc := &fakeSync{}
	conn := dial(t, svc)

	data, err := json.Marshal(syncdomain.DeltaSyncRequest{
		DeviceID: "d1",
		Changes:  []syncdomain.SyncChange{{Type: syncdomain.ChangeCreate, ResourceType: syncdomain.ResourceContent, ResourceID: "C1", Data: json.RawMessage(`{}`)}},
	})
	require.NoError(t, err)

	reply := roundTrip(t, conn, Message{Type: TypeSyncRequest, Data: data})
	require.Equal(t, TypeSyncResult, reply.Type)

	var result syncdomain.DeltaSyncResult
	require.NoError(t, json.Unmarshal(reply.Data, &result))
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.AppliedChanges)
	assert.Equal(t, "user-1", svc.gotUser)
	assert.Equal(t, "d1", svc.gotReq.DeviceID)
}

func TestSyncRequest_InvalidArgument(t *testing.T) {
	conn := dial(t, &fakeSync{})

	reply := roundTrip(t, conn, Message{Type: TypeSyncRequest, Data: json.RawMessage(`{"changes":[]}`)})
	assert.Equal(t, TypeError, reply.Type)
	assert.NotEmpty(t, reply.Error)
}

func TestUnknownType(t *testing.T) {
	conn := dial(t, &fakeSync{})

	reply := roundTrip(t, conn, Message{Type: "subscribe"})
	assert.Equal(t, TypeError, reply.Type)
	assert.Contains(t, reply.Error, "subscribe")

	// соединение остается рабочим после ошибки
	reply = roundTrip(t, conn, Message{Type: TypePing})
	assert.Equal(t, TypePong, reply.Type)
}

func TestServeHTTP_Unauthorized(t *testing.T) {
	h := NewHandler(&fakeSync{}, slog.Default())
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sync/ws", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
