package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"pxocore/cmd/client/cmd/auth"
	"pxocore/cmd/client/cmd/backup"
	"pxocore/cmd/client/cmd/change"
	"pxocore/cmd/client/cmd/cmdutil"
	"pxocore/cmd/client/cmd/device"
	"pxocore/cmd/client/cmd/sync"
	"pxocore/internal/app/client"
	"pxocore/internal/app/client/config"
	"pxocore/internal/utils/logger"
)

var (
	cfgFile    string
	debug      bool
	jsonOutput bool
	serverAddr string

	app *client.App
)

var rootCmd = &cobra.Command{
	Use:   "pxo",
	Short: "PXO - клиент синхронизации личных данных",
	Long: `PXO хранит локальные изменения контента, пометок, настроек и памяти
в очереди и синхронизирует их с сервером.

Перед первой синхронизацией сохраните токен (pxo login) и
зарегистрируйте устройство (pxo device register).`,
	PersistentPreRunE:  setupApp,
	PersistentPostRunE: closeApp,
	SilenceUsage:       true,
	SilenceErrors:      true,
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		color.New(color.FgRed).Fprintf(os.Stderr, "Ошибка: %v\n", err)
		os.Exit(1)
	}
}

func setupApp(cmd *cobra.Command, _ []string) error {
	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	}

	cfg, err := config.Load(v)
	if err != nil {
		return fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}
	if serverAddr != "" {
		cfg.ServerAddress = serverAddr
	}

	level := cfg.LogLevel
	if debug {
		level = "debug"
	}
	log := logger.WithWriter(os.Stderr, cfg.Env, level)

	if jsonOutput || !term.IsTerminal(int(os.Stdout.Fd())) {
		color.NoColor = true
	}

	app, err = client.New(cfg, log)
	if err != nil {
		return fmt.Errorf("ошибка инициализации приложения: %w", err)
	}

	cmd.SetContext(cmdutil.NewContext(cmd.Context(), &cmdutil.Env{
		App: app,
		Out: cmdutil.NewPrinter(cmd.OutOrStdout(), jsonOutput),
	}))
	return nil
}

func closeApp(_ *cobra.Command, _ []string) error {
	if app == nil {
		return nil
	}
	return app.Close()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "конфигурационный файл")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "отладочные логи")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "вывод в формате JSON")
	rootCmd.PersistentFlags().StringVar(&serverAddr, "server", "", "адрес сервера host:port")

	rootCmd.AddCommand(
		auth.LoginCmd,
		device.DeviceCmd,
		change.ChangeCmd,
		sync.SyncCmd,
		backup.BackupCmd,
	)
}
