package device

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"pxocore/internal/app/server/api/http/httperr"
	"pxocore/internal/app/server/api/http/middleware/auth"
	"pxocore/internal/domain/device"
)

type Handler struct {
	service    device.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service device.Servicer, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		log:        log.With("component", "device_handler"),
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.registerOp(), h.register)
	huma.Register(api, h.listOp(), h.list)
	huma.Register(api, h.updateStatusOp(), h.updateStatus)
}

func (h *Handler) register(ctx context.Context, input *registerInput) (*registerOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	d, err := h.service.Register(ctx, userID, input.Body)
	if err != nil {
		return nil, httperr.From(h.log, err)
	}
	return &registerOutput{Body: *d}, nil
}

func (h *Handler) list(ctx context.Context, _ *struct{}) (*listOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	devices, err := h.service.List(ctx, userID)
	if err != nil {
		return nil, httperr.From(h.log, err)
	}
	if devices == nil {
		devices = []device.Device{}
	}
	return &listOutput{Body: devices}, nil
}

func (h *Handler) updateStatus(ctx context.Context, input *updateStatusInput) (*updateStatusOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	if err := h.service.UpdateStatus(ctx, userID, input.ID, input.Body.IsOnline); err != nil {
		return nil, httperr.From(h.log, err)
	}

	out := &updateStatusOutput{}
	out.Body.Status = "Ok"
	return out, nil
}
