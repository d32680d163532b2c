package device

import (
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"pxocore/cmd/client/cmd/cmdutil"
	"pxocore/internal/domain/device"
)

const clientVersion = "1.0.0"

var (
	deviceType string
	deviceName string
)

// DeviceCmd регистрация устройства на сервере
var DeviceCmd = &cobra.Command{
	Use:   "device",
	Short: "Устройство",
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Зарегистрировать это устройство",
	Long: `Регистрирует устройство на сервере и сохраняет его идентификатор
в локальном хранилище. Без регистрации изменения не синхронизируются.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := cmdutil.FromCmd(cmd)
		if err != nil {
			return err
		}

		name := deviceName
		if name == "" {
			if name, err = os.Hostname(); err != nil || name == "" {
				name = runtime.GOOS
			}
		}

		d, err := env.App.RegisterDevice(cmd.Context(), device.RegisterRequest{
			Type:     deviceType,
			Platform: runtime.GOOS,
			Version:  clientVersion,
			Name:     name,
		})
		if err != nil {
			return err
		}

		return env.Out.Result(d, func(p *cmdutil.Printer) {
			p.Successf("Устройство зарегистрировано")
			p.Field("ID", d.ID)
			p.Field("Имя", d.Name)
		})
	},
}

func init() {
	registerCmd.Flags().StringVar(&deviceType, "type", "desktop", "тип устройства: mobile, desktop, web, glasses")
	registerCmd.Flags().StringVar(&deviceName, "name", "", "имя устройства (по умолчанию имя хоста)")

	DeviceCmd.AddCommand(registerCmd)
}
