package backup

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"pxocore/cmd/client/cmd/cmdutil"
)

// BackupCmd резервные копии данных пользователя на сервере
var BackupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Резервные копии",
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Создать резервную копию",
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := cmdutil.FromCmd(cmd)
		if err != nil {
			return err
		}

		info, err := env.App.CreateBackup(cmd.Context())
		if err != nil {
			return err
		}

		return env.Out.Result(info, func(p *cmdutil.Printer) {
			p.Successf("Копия %s создана", info.ID)
			p.Field("Элементов", info.ItemCount)
			p.Field("Размер", info.Size)
			p.Field("Состав", strings.Join(info.Metadata.DataTypes, ", "))
		})
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Список резервных копий",
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := cmdutil.FromCmd(cmd)
		if err != nil {
			return err
		}

		backups, err := env.App.ListBackups(cmd.Context())
		if err != nil {
			return err
		}

		return env.Out.Result(backups, func(p *cmdutil.Printer) {
			rows := make([][]string, 0, len(backups))
			for _, b := range backups {
				rows = append(rows, []string{
					b.ID, string(b.Type), cmdutil.Time(b.CreatedAt), strconv.Itoa(b.ItemCount), strconv.Itoa(b.Size),
				})
			}
			p.Table([]string{"ID", "TYPE", "CREATED", "ITEMS", "SIZE"}, rows)
		})
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore <backup-id>",
	Short: "Восстановить данные из копии",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := cmdutil.FromCmd(cmd)
		if err != nil {
			return err
		}

		result, err := env.App.RestoreBackup(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		return env.Out.Result(result, func(p *cmdutil.Printer) {
			p.Successf("Восстановлено элементов: %d", result.RestoredItems)
		})
	},
}

func init() {
	BackupCmd.AddCommand(createCmd, listCmd, restoreCmd)
}
