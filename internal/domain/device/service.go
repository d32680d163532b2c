package device

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"
)

type Servicer interface {
	Register(ctx context.Context, userID string, req RegisterRequest) (*Device, error)
	List(ctx context.Context, userID string) ([]Device, error)
	UpdateStatus(ctx context.Context, userID, deviceID string, isOnline bool) error
}

type Service struct {
	repo Repository
	log  *slog.Logger
	now  func() time.Time
}

func NewService(repo Repository, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With("component", "device_service"),
		now:  time.Now,
	}
}

// Register регистрирует новое устройство пользователя
func (s *Service) Register(ctx context.Context, userID string, req RegisterRequest) (*Device, error) {
	if err := validateRegister(userID, req); err != nil {
		s.log.Debug("validation failed", "user_id", userID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	d := &Device{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      req.Type,
		Platform:  req.Platform,
		Version:   req.Version,
		Name:      req.Name,
		LastSeen:  s.now().UTC(),
		IsOnline:  true,
		IsTrusted: false,
	}
	if err := s.repo.Create(ctx, d); err != nil {
		s.log.Error("failed to register device", "user_id", userID, "error", err)
		return nil, fmt.Errorf("register device: %w", err)
	}

	s.log.Info("device registered", "device_id", d.ID, "user_id", userID, "type", d.Type)
	return d, nil
}

// List возвращает устройства пользователя
func (s *Service) List(ctx context.Context, userID string) ([]Device, error) {
	devices, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	return devices, nil
}

// UpdateStatus отмечает устройство онлайн/офлайн
func (s *Service) UpdateStatus(ctx context.Context, userID, deviceID string, isOnline bool) error {
	if deviceID == "" {
		return fmt.Errorf("%w: device id is required", ErrInvalidInput)
	}

	if err := s.repo.UpdateStatus(ctx, userID, deviceID, isOnline, s.now().UTC()); err != nil {
		return fmt.Errorf("update device status: %w", err)
	}

	s.log.Info("device status updated", "device_id", deviceID, "is_online", isOnline)
	return nil
}

func validateRegister(userID string, req RegisterRequest) error {
	if userID == "" {
		return fmt.Errorf("user id is required")
	}

	var missing []string
	if strings.TrimSpace(req.Type) == "" {
		missing = append(missing, "type")
	}
	if strings.TrimSpace(req.Platform) == "" {
		missing = append(missing, "platform")
	}
	if strings.TrimSpace(req.Version) == "" {
		missing = append(missing, "version")
	}
	if strings.TrimSpace(req.Name) == "" {
		missing = append(missing, "name")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s required", strings.Join(missing, ", "))
	}

	return nil
}
