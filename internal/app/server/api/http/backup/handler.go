package backup

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"pxocore/internal/app/server/api/http/httperr"
	"pxocore/internal/app/server/api/http/middleware/auth"
	"pxocore/internal/domain/backup"
)

type Handler struct {
	service    backup.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service backup.Servicer, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		log:        log.With("component", "backup_handler"),
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.createOp(), h.create)
	huma.Register(api, h.listOp(), h.list)
	huma.Register(api, h.restoreOp(), h.restore)
}

func (h *Handler) create(ctx context.Context, _ *struct{}) (*createOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	info, err := h.service.Create(ctx, userID)
	if err != nil {
		return nil, httperr.From(h.log, err)
	}
	return &createOutput{Body: *info}, nil
}

func (h *Handler) list(ctx context.Context, _ *struct{}) (*listOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	infos, err := h.service.List(ctx, userID)
	if err != nil {
		return nil, httperr.From(h.log, err)
	}
	if infos == nil {
		infos = []backup.Info{}
	}
	return &listOutput{Body: infos}, nil
}

func (h *Handler) restore(ctx context.Context, input *restoreInput) (*restoreOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	result, err := h.service.Restore(ctx, userID, input.ID)
	if err != nil {
		return nil, httperr.From(h.log, err)
	}
	return &restoreOutput{Body: *result}, nil
}

func (h *Handler) createOp() huma.Operation {
	return huma.Operation{
		OperationID:   "backup-create",
		Method:        http.MethodPost,
		Path:          "/api/sync/backups",
		Summary:       "Создать резервную копию",
		Description:   "Сохраняет снимок всех данных пользователя",
		Tags:          []string{"backup"},
		DefaultStatus: http.StatusCreated,
		Security:      []map[string][]string{{"bearer": {}}},
		Middlewares:   h.middleware,
	}
}

func (h *Handler) listOp() huma.Operation {
	return huma.Operation{
		OperationID: "backup-list",
		Method:      http.MethodGet,
		Path:        "/api/sync/backups",
		Summary:     "Список резервных копий",
		Tags:        []string{"backup"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) restoreOp() huma.Operation {
	return huma.Operation{
		OperationID: "backup-restore",
		Method:      http.MethodPost,
		Path:        "/api/sync/backups/{id}/restore",
		Summary:     "Восстановить из резервной копии",
		Description: "Перезаписывает документы, аннотации, настройки и память данными копии",
		Tags:        []string{"backup"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}
