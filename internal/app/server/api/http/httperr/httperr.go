// Package httperr переводит ошибки доменных сервисов в ответы huma
package httperr

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"pxocore/internal/domain/backup"
	"pxocore/internal/domain/device"
	syncdomain "pxocore/internal/domain/sync"
)

// From возвращает huma-ошибку с кодом, соответствующим err.
// Неизвестные ошибки логируются и отдаются как 500 без подробностей.
func From(log *slog.Logger, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, syncdomain.ErrNotFound),
		errors.Is(err, backup.ErrNotFound),
		errors.Is(err, device.ErrNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, syncdomain.ErrInvalidArgument),
		errors.Is(err, device.ErrInvalidInput):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.Is(err, backup.ErrCorrupt):
		return huma.Error422UnprocessableEntity(err.Error())
	}

	log.Error("request failed", "error", err)
	return huma.Error500InternalServerError("internal error")
}
