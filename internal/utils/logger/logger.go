package logger

import (
	"io"
	"os"

	"golang.org/x/exp/slog"

	"pxocore/internal/app/server/config"
	"pxocore/internal/utils/logger/slogpretty"
)

// New создает логгер для окружения: local пишет цветной текст,
// dev и prod пишут JSON.
func New(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case config.EnvLocal:
		log = setupPrettySlog()
	case config.EnvDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}

// WithLevel как New, но с явно заданным уровнем из LOG_LEVEL.
// Пустой или неизвестный уровень оставляет уровень окружения.
func WithLevel(env, level string) *slog.Logger {
	return WithWriter(os.Stdout, env, level)
}

// WithWriter как WithLevel, но пишет в w. Клиент пишет логи в stderr,
// чтобы не смешивать их с выводом команд.
func WithWriter(w io.Writer, env, level string) *slog.Logger {
	lvl := slog.LevelInfo
	if env == config.EnvLocal || env == config.EnvDev {
		lvl = slog.LevelDebug
	}

	var parsed slog.Level
	if level != "" && parsed.UnmarshalText([]byte(level)) == nil {
		lvl = parsed
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if env == config.EnvLocal {
		return slog.New(slogpretty.PrettyHandlerOptions{SlogOpts: opts}.NewPrettyHandler(w))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func setupPrettySlog() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	handler := opts.NewPrettyHandler(os.Stdout)

	return slog.New(handler)
}
