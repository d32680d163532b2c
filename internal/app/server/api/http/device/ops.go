package device

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) registerOp() huma.Operation {
	return huma.Operation{
		OperationID:   "device-register",
		Method:        http.MethodPost,
		Path:          "/api/devices",
		Summary:       "Зарегистрировать устройство",
		Tags:          []string{"devices"},
		DefaultStatus: http.StatusCreated,
		Security:      []map[string][]string{{"bearer": {}}},
		Middlewares:   h.middleware,
	}
}

func (h *Handler) listOp() huma.Operation {
	return huma.Operation{
		OperationID: "device-list",
		Method:      http.MethodGet,
		Path:        "/api/devices",
		Summary:     "Список устройств пользователя",
		Tags:        []string{"devices"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) updateStatusOp() huma.Operation {
	return huma.Operation{
		OperationID: "device-update-status",
		Method:      http.MethodPut,
		Path:        "/api/devices/{id}/status",
		Summary:     "Отметить устройство онлайн или офлайн",
		Tags:        []string{"devices"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}
