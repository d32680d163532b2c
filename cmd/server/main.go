package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"

	"pxocore/internal/app/server"
	"pxocore/internal/app/server/config"
	"pxocore/internal/infrastructure/migration"
	"pxocore/internal/utils/logger"
)

var (
	cfg *config.Config
	log *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "pxo-server",
	Short: "Сервер синхронизации PXO",
	Long: `Сервер принимает изменения с устройств пользователя, ведет журнал
изменений, обнаруживает и разрешает конфликты, хранит резервные копии.`,
	PersistentPreRunE: func(*cobra.Command, []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		log = logger.WithLevel(cfg.Env, cfg.Logger.LogLevel)
		return nil
	},
	RunE:          serve,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Запустить HTTP-сервер",
	RunE:  serve,
}

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down]",
	Short:     "Применить или откатить миграции схемы",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down"},
	RunE: func(_ *cobra.Command, args []string) error {
		if cfg.DB.Driver != config.DriverPostgres {
			return fmt.Errorf("migrations require STORAGE_DRIVER=%s", config.DriverPostgres)
		}

		mg := migration.NewMigration(cfg, migration.DefaultEngine)
		if args[0] == "down" {
			if err := mg.Down(); err != nil {
				return err
			}
		} else if err := mg.Up(); err != nil {
			return err
		}

		log.Info("migrations applied", "direction", args[0], "source", mg.SourceURL())
		return nil
	},
}

var tokenUser string

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Выпустить токен доступа для пользователя",
	Long: `Выдача токенов по учетным данным находится вне сервера синхронизации.
Команда нужна для эксплуатации и локальной отладки клиента.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if cfg.DB.Driver == config.DriverMemory {
			return fmt.Errorf("token issued with in-memory storage would not survive the process")
		}

		app, err := server.New(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer app.Close()

		token, err := app.Sessions().Create(cmd.Context(), tokenUser)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func serve(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := server.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Error("failed to close storage", "error", err)
		}
	}()

	if err := app.Run(ctx); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "идентификатор пользователя")
	_ = tokenCmd.MarkFlagRequired("user")

	rootCmd.AddCommand(serveCmd, migrateCmd, tokenCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка: %v\n", err)
		os.Exit(1)
	}
}
