package change

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"pxocore/cmd/client/cmd/cmdutil"
	"pxocore/internal/app/client"
	syncdomain "pxocore/internal/domain/sync"
)

var (
	changeData    string
	changeFile    string
	changeVersion int
)

// ChangeCmd локальная очередь изменений
var ChangeCmd = &cobra.Command{
	Use:   "change",
	Short: "Локальные изменения ресурсов",
	Long: `Изменения ставятся в локальную очередь и отправляются на сервер
командой pxo sync.`,
}

var addCmd = &cobra.Command{
	Use:   "add <create|update|delete> <content|annotation|preference|memory> <resource-id>",
	Short: "Добавить изменение в очередь",
	Long: `Добавляет изменение ресурса в очередь.

Данные ресурса передаются через --data, --file или stdin ("--file -").
Для delete данные не нужны. --version задает ожидаемую версию для
сравнения с сервером; 0 означает безусловную запись.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := cmdutil.FromCmd(cmd)
		if err != nil {
			return err
		}

		in := client.ChangeInput{
			Type:         syncdomain.ChangeType(args[0]),
			ResourceType: syncdomain.ResourceType(args[1]),
			ResourceID:   args[2],
			Version:      changeVersion,
		}
		if in.Type != syncdomain.ChangeDelete {
			if in.Data, err = readData(cmd.InOrStdin()); err != nil {
				return err
			}
		}

		change, err := env.App.AddChange(cmd.Context(), in)
		if err != nil {
			return err
		}

		return env.Out.Result(change, func(p *cmdutil.Printer) {
			p.Successf("Изменение %s добавлено в очередь", change.ID)
		})
	},
}

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "Число неотправленных изменений",
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := cmdutil.FromCmd(cmd)
		if err != nil {
			return err
		}

		n, err := env.App.PendingCount(cmd.Context())
		if err != nil {
			return err
		}
		last, err := env.App.LastSyncTime(cmd.Context())
		if err != nil {
			return err
		}

		out := map[string]any{"pending": n, "lastSyncTime": last}
		return env.Out.Result(out, func(p *cmdutil.Printer) {
			p.Field("В очереди", n)
			p.Field("Последняя синхронизация", cmdutil.Time(last))
		})
	},
}

func readData(stdin io.Reader) (json.RawMessage, error) {
	switch {
	case changeFile == "-":
		return io.ReadAll(stdin)
	case changeFile != "":
		data, err := os.ReadFile(changeFile)
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения файла: %w", err)
		}
		return data, nil
	}
	return json.RawMessage(changeData), nil
}

func init() {
	addCmd.Flags().StringVar(&changeData, "data", "", "данные ресурса (JSON)")
	addCmd.Flags().StringVar(&changeFile, "file", "", "файл с данными ресурса, - для stdin")
	addCmd.Flags().IntVar(&changeVersion, "version", 0, "ожидаемая версия ресурса")

	ChangeCmd.AddCommand(addCmd, pendingCmd)
}
