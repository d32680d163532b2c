package device

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

// MockRepository is a mock implementation of the Repository interface for testing
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, device *Device) error {
	args := m.Called(ctx, device)
	return args.Error(0)
}

func (m *MockRepository) ListByUser(ctx context.Context, userID string) ([]Device, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Device), args.Error(1)
}

func (m *MockRepository) UpdateStatus(ctx context.Context, userID, deviceID string, isOnline bool, lastSeen time.Time) error {
	args := m.Called(ctx, userID, deviceID, isOnline, lastSeen)
	return args.Error(0)
}

func TestService_Register(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, slog.Default())

	req := RegisterRequest{Type: "mobile", Platform: "ios", Version: "1.4.0", Name: "Phone"}

	mockRepo.On("Create", mock.Anything, mock.MatchedBy(func(d *Device) bool {
		return d.ID != "" && d.UserID == "user-1" && d.IsOnline && !d.IsTrusted && d.Name == "Phone"
	})).Return(nil)

	d, err := service.Register(context.Background(), "user-1", req)
	require.NoError(t, err)
	assert.NotEmpty(t, d.ID)
	assert.Equal(t, "mobile", d.Type)
	assert.Equal(t, "ios", d.Platform)
	assert.False(t, d.LastSeen.IsZero())

	mockRepo.AssertExpectations(t)
}

func TestService_Register_Validation(t *testing.T) {
	tests := []struct {
		name    string
		userID  string
		req     RegisterRequest
		wantMsg string
	}{
		{
			name:    "Missing user",
			req:     RegisterRequest{Type: "web", Platform: "linux", Version: "1", Name: "n"},
			wantMsg: "user id is required",
		},
		{
			name:    "Missing fields",
			userID:  "user-1",
			req:     RegisterRequest{Type: "web", Name: "  "},
			wantMsg: "platform, version, name required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockRepository)
			service := NewService(mockRepo, slog.Default())

			_, err := service.Register(context.Background(), tt.userID, tt.req)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.wantMsg)

			mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestService_Register_RepositoryError(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, slog.Default())

	mockRepo.On("Create", mock.Anything, mock.Anything).Return(errors.New("database error"))

	_, err := service.Register(context.Background(), "user-1", RegisterRequest{Type: "web", Platform: "linux", Version: "1", Name: "n"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "database error")

	mockRepo.AssertExpectations(t)
}

func TestService_List(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, slog.Default())

	devices := []Device{{ID: "d1", UserID: "user-1"}, {ID: "d2", UserID: "user-1"}}
	mockRepo.On("ListByUser", mock.Anything, "user-1").Return(devices, nil)

	got, err := service.List(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, devices, got)

	mockRepo.On("ListByUser", mock.Anything, "user-2").Return(nil, errors.New("database error"))
	_, err = service.List(context.Background(), "user-2")
	assert.Error(t, err)

	mockRepo.AssertExpectations(t)
}

func TestService_UpdateStatus(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, slog.Default())

	mockRepo.On("UpdateStatus", mock.Anything, "user-1", "d1", false, mock.AnythingOfType("time.Time")).Return(nil)
	mockRepo.On("UpdateStatus", mock.Anything, "user-1", "missing", true, mock.AnythingOfType("time.Time")).Return(ErrNotFound)

	assert.NoError(t, service.UpdateStatus(context.Background(), "user-1", "d1", false))
	assert.ErrorIs(t, service.UpdateStatus(context.Background(), "user-1", "missing", true), ErrNotFound)
	assert.ErrorIs(t, service.UpdateStatus(context.Background(), "user-1", "", true), ErrInvalidInput)

	mockRepo.AssertExpectations(t)
}
