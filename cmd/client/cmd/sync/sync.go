package sync

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"pxocore/cmd/client/cmd/cmdutil"
	syncdomain "pxocore/internal/domain/sync"
)

var (
	fullSync     bool
	historyPage  int
	historyLimit int
	resolveData  string
	resolveFile  string
)

// SyncCmd отправляет очередь изменений и забирает изменения сервера
var SyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Синхронизация с сервером",
	Long: `Отправляет накопленные локальные изменения пакетами и сохраняет
изменения, сделанные на других устройствах.

С флагом --full выполняет полную синхронизацию: сервер сверяет журнал
изменений с хранилищем.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := cmdutil.FromCmd(cmd)
		if err != nil {
			return err
		}

		if fullSync {
			result, err := env.App.FullSync(cmd.Context())
			if err != nil {
				return fmt.Errorf("ошибка полной синхронизации: %w", err)
			}
			return env.Out.Result(result, func(p *cmdutil.Printer) {
				p.Successf("Полная синхронизация завершена")
				p.Field("Ресурсов", result.SyncedItems)
				p.Field("Конфликтов", result.Conflicts)
			})
		}

		result, err := env.App.Sync(cmd.Context())
		if err != nil {
			return err
		}

		return env.Out.Result(result, func(p *cmdutil.Printer) {
			p.Successf("Синхронизация завершена за %v", result.Duration.Round(time.Millisecond))
			p.Field("Отправлено", result.Uploaded)
			p.Field("Применено", result.Applied)
			p.Field("Получено", result.Downloaded)
			if result.Conflicts > 0 {
				p.Warnf("Конфликтов: %d. Просмотр: pxo sync conflicts", result.Conflicts)
			}
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Состояние синхронизации устройств",
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := cmdutil.FromCmd(cmd)
		if err != nil {
			return err
		}

		statuses, err := env.App.Status(cmd.Context())
		if err != nil {
			return err
		}
		pending, err := env.App.PendingCount(cmd.Context())
		if err != nil {
			return err
		}

		out := struct {
			Devices []syncdomain.SyncStatus `json:"devices"`
			Outbox  int                     `json:"outbox"`
		}{statuses, pending}

		return env.Out.Result(out, func(p *cmdutil.Printer) {
			rows := make([][]string, 0, len(statuses))
			for _, s := range statuses {
				rows = append(rows, []string{
					s.DeviceID, string(s.Status), cmdutil.Time(s.LastSyncTime),
					strconv.Itoa(s.PendingChanges), strconv.Itoa(s.ConflictCount),
				})
			}
			p.Table([]string{"DEVICE", "STATUS", "LAST SYNC", "PENDING", "CONFLICTS"}, rows)
			p.Field("В локальной очереди", pending)
		})
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "История синхронизаций этого устройства",
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := cmdutil.FromCmd(cmd)
		if err != nil {
			return err
		}

		page, err := env.App.History(cmd.Context(), historyPage, historyLimit)
		if err != nil {
			return err
		}

		return env.Out.Result(page, func(p *cmdutil.Printer) {
			rows := make([][]string, 0, len(page.Items))
			for _, e := range page.Items {
				rows = append(rows, []string{
					cmdutil.Time(e.Timestamp), string(e.SyncType), e.Status,
					strconv.Itoa(e.SyncedItems), strconv.Itoa(e.Conflicts),
				})
			}
			p.Table([]string{"TIME", "TYPE", "STATUS", "ITEMS", "CONFLICTS"}, rows)
			p.Printf("Страница %d из %d, всего %d\n", page.Page, page.TotalPages, page.Total)
		})
	},
}

var conflictsCmd = &cobra.Command{
	Use:   "conflicts",
	Short: "Неразрешенные конфликты",
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := cmdutil.FromCmd(cmd)
		if err != nil {
			return err
		}

		conflicts, err := env.App.Conflicts(cmd.Context())
		if err != nil {
			return err
		}

		return env.Out.Result(conflicts, func(p *cmdutil.Printer) {
			if len(conflicts) == 0 {
				p.Successf("Конфликтов нет")
				return
			}
			rows := make([][]string, 0, len(conflicts))
			for _, c := range conflicts {
				rows = append(rows, []string{
					c.ID, string(c.ConflictType), string(c.ResourceType), c.ResourceID, cmdutil.Time(c.CreatedAt),
				})
			}
			p.Table([]string{"ID", "TYPE", "RESOURCE", "RESOURCE ID", "CREATED"}, rows)
		})
	},
}

var resolveCmd = &cobra.Command{
	Use:       "resolve <conflict-id> <use_local|use_remote|merge|custom>",
	Short:     "Разрешить конфликт",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"use_local", "use_remote", "merge", "custom"},
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := cmdutil.FromCmd(cmd)
		if err != nil {
			return err
		}

		req := syncdomain.ResolveRequest{Resolution: syncdomain.Resolution(args[1])}
		if req.Resolution == syncdomain.ResolutionCustom {
			data, err := customData()
			if err != nil {
				return err
			}
			req.CustomData = data
		}

		result, err := env.App.ResolveConflict(cmd.Context(), args[0], req)
		if err != nil {
			return err
		}

		return env.Out.Result(result, func(p *cmdutil.Printer) {
			p.Successf("Конфликт %s разрешен (%s)", args[0], req.Resolution)
		})
	},
}

func customData() (json.RawMessage, error) {
	raw := []byte(resolveData)
	if resolveFile != "" {
		var err error
		if raw, err = os.ReadFile(resolveFile); err != nil {
			return nil, fmt.Errorf("ошибка чтения файла: %w", err)
		}
	}
	if len(raw) == 0 || !json.Valid(raw) {
		return nil, fmt.Errorf("для custom нужны данные в формате JSON (--data или --file)")
	}
	return raw, nil
}

func init() {
	SyncCmd.Flags().BoolVar(&fullSync, "full", false, "полная синхронизация")

	historyCmd.Flags().IntVar(&historyPage, "page", 1, "номер страницы")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "записей на странице")

	resolveCmd.Flags().StringVar(&resolveData, "data", "", "итоговые данные ресурса (JSON)")
	resolveCmd.Flags().StringVar(&resolveFile, "file", "", "файл с итоговыми данными ресурса")

	SyncCmd.AddCommand(statusCmd, historyCmd, conflictsCmd, resolveCmd)
}
