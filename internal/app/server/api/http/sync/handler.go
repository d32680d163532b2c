package sync

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"pxocore/internal/app/server/api/http/httperr"
	"pxocore/internal/app/server/api/http/middleware/auth"
	syncdomain "pxocore/internal/domain/sync"
)

type Handler struct {
	service    syncdomain.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service syncdomain.Servicer, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		log:        log.With("component", "sync_handler"),
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.fullSyncOp(), h.fullSync)
	huma.Register(api, h.deltaSyncOp(), h.deltaSync)
	huma.Register(api, h.getStatusOp(), h.getStatus)
	huma.Register(api, h.getConflictsOp(), h.getConflicts)
	huma.Register(api, h.resolveConflictOp(), h.resolveConflict)
	huma.Register(api, h.getHistoryOp(), h.getHistory)
}

func (h *Handler) fullSync(ctx context.Context, input *fullSyncInput) (*fullSyncOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	result, err := h.service.PerformFullSync(ctx, userID, input.Body.DeviceID)
	if err != nil {
		return nil, httperr.From(h.log, err)
	}
	return &fullSyncOutput{Body: *result}, nil
}

func (h *Handler) deltaSync(ctx context.Context, input *deltaSyncInput) (*deltaSyncOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	result, err := h.service.PerformDeltaSync(ctx, userID, input.Body)
	if err != nil {
		return nil, httperr.From(h.log, err)
	}
	return &deltaSyncOutput{Body: *result}, nil
}

func (h *Handler) getStatus(ctx context.Context, _ *struct{}) (*getStatusOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	statuses, err := h.service.GetSyncStatus(ctx, userID)
	if err != nil {
		return nil, httperr.From(h.log, err)
	}
	if statuses == nil {
		statuses = []syncdomain.SyncStatus{}
	}
	return &getStatusOutput{Body: statuses}, nil
}

func (h *Handler) getConflicts(ctx context.Context, _ *struct{}) (*getConflictsOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	conflicts, err := h.service.ListConflicts(ctx, userID)
	if err != nil {
		return nil, httperr.From(h.log, err)
	}
	if conflicts == nil {
		conflicts = []syncdomain.SyncConflict{}
	}
	return &getConflictsOutput{Body: conflicts}, nil
}

func (h *Handler) resolveConflict(ctx context.Context, input *resolveConflictInput) (*resolveConflictOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	result, err := h.service.ResolveConflict(ctx, userID, input.ID, input.Body)
	if err != nil {
		return nil, httperr.From(h.log, err)
	}
	return &resolveConflictOutput{Body: *result}, nil
}

func (h *Handler) getHistory(ctx context.Context, input *getHistoryInput) (*getHistoryOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	page, err := h.service.GetSyncHistory(ctx, userID, syncdomain.HistoryRequest{
		DeviceID: input.DeviceID,
		Page:     input.Page,
		Limit:    input.Limit,
	})
	if err != nil {
		return nil, httperr.From(h.log, err)
	}
	return &getHistoryOutput{Body: *page}, nil
}
