package device

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/exp/slog"

	"pxocore/internal/app/server/api/http/middleware/auth"
	"pxocore/internal/domain/device"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Register(ctx context.Context, userID string, req device.RegisterRequest) (*device.Device, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*device.Device), args.Error(1)
}

func (m *MockService) List(ctx context.Context, userID string) ([]device.Device, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]device.Device), args.Error(1)
}

func (m *MockService) UpdateStatus(ctx context.Context, userID, deviceID string, isOnline bool) error {
	args := m.Called(ctx, userID, deviceID, isOnline)
	return args.Error(0)
}

func setupAPI(t *testing.T, svc device.Servicer) humatest.TestAPI {
	_, api := humatest.New(t)
	withUser := func(ctx huma.Context, next func(huma.Context)) {
		next(huma.WithContext(ctx, auth.WithUserID(ctx.Context(), "user-1")))
	}
	NewHandler(svc, slog.Default(), huma.Middlewares{withUser}).SetupRoutes(api)
	return api
}

func TestHandler_Register(t *testing.T) {
	req := device.RegisterRequest{Type: "mobile", Platform: "ios", Version: "1.2.0", Name: "phone"}

	svc := new(MockService)
	svc.On("Register", mock.Anything, "user-1", req).
		Return(&device.Device{ID: "d1", UserID: "user-1", Type: "mobile", IsOnline: true}, nil)

	resp := setupAPI(t, svc).Post("/api/devices", req)
	assert.Equal(t, http.StatusCreated, resp.Code)
	assert.Contains(t, resp.Body.String(), `"id":"d1"`)
	svc.AssertExpectations(t)
}

func TestHandler_RegisterValidation(t *testing.T) {
	svc := new(MockService)
	resp := setupAPI(t, svc).Post("/api/devices", map[string]any{"type": "mobile"})

	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	svc.AssertNotCalled(t, "Register", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_UpdateStatus(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "updated", wantStatus: http.StatusOK},
		{name: "unknown device", err: fmt.Errorf("update device status: %w", device.ErrNotFound), wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			svc.On("UpdateStatus", mock.Anything, "user-1", "d1", false).Return(tt.err)

			resp := setupAPI(t, svc).Put("/api/devices/d1/status", map[string]any{"isOnline": false})
			assert.Equal(t, tt.wantStatus, resp.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestHandler_List(t *testing.T) {
	svc := new(MockService)
	svc.On("List", mock.Anything, "user-1").Return([]device.Device{{ID: "d1"}, {ID: "d2"}}, nil)

	out, err := NewHandler(svc, slog.Default(), nil).list(auth.WithUserID(context.Background(), "user-1"), nil)
	assert.NoError(t, err)
	assert.Len(t, out.Body, 2)
}
