package health

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

// Pinger проверяет доступность хранилища
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	log        *slog.Logger
	storage    Pinger
	middleware huma.Middlewares
}

// NewHandler storage может быть nil для хранилища в памяти
func NewHandler(log *slog.Logger, storage Pinger, middleware huma.Middlewares) *Handler {
	return &Handler{
		log:        log,
		storage:    storage,
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.healthCheckOp(), h.healthCheck)
}

func (h *Handler) healthCheck(ctx context.Context, _ *Input) (*Output, error) {
	h.log.Debug("health check request received")

	storage := "memory"
	if h.storage != nil {
		storage = "OK"
		if err := h.storage.Ping(ctx); err != nil {
			h.log.Error("storage ping failed", "error", err)
			return nil, huma.Error503ServiceUnavailable("storage unavailable")
		}
	}

	return &Output{
		Body: Response{
			Status:  "OK",
			Storage: storage,
		},
	}, nil
}
