package sync

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

var bearer = []map[string][]string{{"bearer": {}}}

func (h *Handler) fullSyncOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-full",
		Method:      http.MethodPost,
		Path:        "/api/sync/full",
		Summary:     "Полная синхронизация",
		Description: "Сверяет все данные пользователя с журналом изменений и фиксирует найденные конфликты",
		Tags:        []string{"sync"},
		Security:    bearer,
		Middlewares: h.middleware,
	}
}

func (h *Handler) deltaSyncOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-delta",
		Method:      http.MethodPost,
		Path:        "/api/sync/delta",
		Summary:     "Инкрементальная синхронизация",
		Description: "Применяет пакет локальных изменений устройства и возвращает изменения сервера после lastSyncTime",
		Tags:        []string{"sync"},
		Security:    bearer,
		Middlewares: h.middleware,
	}
}

func (h *Handler) getStatusOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-get-status",
		Method:      http.MethodGet,
		Path:        "/api/sync/status",
		Summary:     "Получить статус синхронизации",
		Description: "Возвращает состояние синхронизации по каждому устройству пользователя",
		Tags:        []string{"sync"},
		Security:    bearer,
		Middlewares: h.middleware,
	}
}

func (h *Handler) getConflictsOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-get-conflicts",
		Method:      http.MethodGet,
		Path:        "/api/sync/conflicts",
		Summary:     "Получить конфликты синхронизации",
		Description: "Возвращает список неразрешенных конфликтов, новые первыми",
		Tags:        []string{"sync"},
		Security:    bearer,
		Middlewares: h.middleware,
	}
}

func (h *Handler) resolveConflictOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-resolve-conflict",
		Method:      http.MethodPost,
		Path:        "/api/sync/conflicts/{id}/resolve",
		Summary:     "Разрешить конфликт синхронизации",
		Description: "Применяет выбранную версию ресурса и удаляет конфликт",
		Tags:        []string{"sync"},
		Security:    bearer,
		Middlewares: h.middleware,
	}
}

func (h *Handler) getHistoryOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-get-history",
		Method:      http.MethodGet,
		Path:        "/api/sync/history",
		Summary:     "История синхронизаций устройства",
		Tags:        []string{"sync"},
		Security:    bearer,
		Middlewares: h.middleware,
	}
}
