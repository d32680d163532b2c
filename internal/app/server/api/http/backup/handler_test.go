package backup

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/exp/slog"

	"pxocore/internal/app/server/api/http/middleware/auth"
	"pxocore/internal/domain/backup"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Create(ctx context.Context, userID string) (*backup.Info, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*backup.Info), args.Error(1)
}

func (m *MockService) Restore(ctx context.Context, userID, backupID string) (*backup.RestoreResult, error) {
	args := m.Called(ctx, userID, backupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*backup.RestoreResult), args.Error(1)
}

func (m *MockService) List(ctx context.Context, userID string) ([]backup.Info, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]backup.Info), args.Error(1)
}

func setupAPI(t *testing.T, svc backup.Servicer) humatest.TestAPI {
	_, api := humatest.New(t)
	withUser := func(ctx huma.Context, next func(huma.Context)) {
		next(huma.WithContext(ctx, auth.WithUserID(ctx.Context(), "user-1")))
	}
	NewHandler(svc, slog.Default(), huma.Middlewares{withUser}).SetupRoutes(api)
	return api
}

func TestHandler_Create(t *testing.T) {
	svc := new(MockService)
	svc.On("Create", mock.Anything, "user-1").Return(&backup.Info{
		ID:        "b1",
		UserID:    "user-1",
		Type:      backup.TypeManual,
		Size:      120,
		ItemCount: 3,
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Metadata:  backup.Metadata{Version: "1.0", DataTypes: []string{"contents"}},
	}, nil)

	resp := setupAPI(t, svc).Post("/api/sync/backups")
	assert.Equal(t, http.StatusCreated, resp.Code)
	assert.Contains(t, resp.Body.String(), `"itemCount":3`)
	svc.AssertExpectations(t)
}

func TestHandler_Restore(t *testing.T) {
	tests := []struct {
		name       string
		result     *backup.RestoreResult
		err        error
		wantStatus int
	}{
		{name: "restored", result: &backup.RestoreResult{Success: true, RestoredItems: 5}, wantStatus: http.StatusOK},
		{name: "unknown backup", err: backup.ErrNotFound, wantStatus: http.StatusNotFound},
		{name: "corrupt blob", err: backup.ErrCorrupt, wantStatus: http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			if tt.err != nil {
				svc.On("Restore", mock.Anything, "user-1", "b1").Return(nil, tt.err)
			} else {
				svc.On("Restore", mock.Anything, "user-1", "b1").Return(tt.result, nil)
			}

			resp := setupAPI(t, svc).Post("/api/sync/backups/b1/restore")
			assert.Equal(t, tt.wantStatus, resp.Code)
		})
	}
}

func TestHandler_ListEmpty(t *testing.T) {
	svc := new(MockService)
	svc.On("List", mock.Anything, "user-1").Return([]backup.Info(nil), nil)

	resp := setupAPI(t, svc).Get("/api/sync/backups")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `[]`, resp.Body.String())
}

func TestHandler_Unauthorized(t *testing.T) {
	h := NewHandler(new(MockService), slog.Default(), nil)

	_, err := h.create(context.Background(), nil)
	assert.Error(t, err)
}
