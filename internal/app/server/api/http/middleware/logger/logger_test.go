package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"pxocore/internal/app/server/api/http/middleware/auth"
)

func withUser(ctx huma.Context, next func(huma.Context)) {
	next(huma.WithContext(ctx, auth.WithUserID(ctx.Context(), "user-1")))
}

func TestMiddleware(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, api := humatest.New(t)
	mws := huma.Middlewares{withUser, New(log).Middleware()}

	huma.Register(api, huma.Operation{
		OperationID: "ok",
		Method:      http.MethodGet,
		Path:        "/ok",
		Middlewares: mws,
	}, func(context.Context, *struct{}) (*struct{}, error) {
		return nil, nil
	})
	huma.Register(api, huma.Operation{
		OperationID: "missing",
		Method:      http.MethodGet,
		Path:        "/missing",
		Middlewares: mws,
	}, func(context.Context, *struct{}) (*struct{}, error) {
		return nil, huma.Error404NotFound("missing")
	})

	tests := []struct {
		path      string
		wantLevel string
		wantCode  int
	}{
		{path: "/ok", wantLevel: "INFO", wantCode: http.StatusNoContent},
		{path: "/missing", wantLevel: "WARN", wantCode: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			buf.Reset()

			resp := api.Get(tt.path)
			require.Equal(t, tt.wantCode, resp.Code)

			var entry map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			assert.Equal(t, tt.wantLevel, entry["level"])
			assert.Equal(t, tt.path, entry["path"])
			assert.Equal(t, "user-1", entry["user_id"])
			assert.EqualValues(t, tt.wantCode, entry["status"])
		})
	}
}
