package auth

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"pxocore/cmd/client/cmd/cmdutil"
	"pxocore/internal/app/client"
	"pxocore/internal/app/client/config"
)

// LoginCmd сохраняет токен доступа, выданный сервером
var LoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Сохранить токен доступа",
	Long: `Запрашивает токен доступа, проверяет его на сервере и сохраняет
в config.yaml каталога конфигурации.

Токен выдает администратор сервера командой pxo-server token.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := cmdutil.FromCmd(cmd)
		if err != nil {
			return err
		}

		token, err := readToken(cmd)
		if err != nil {
			return err
		}

		env.App.SetToken(token)
		if _, err := env.App.Status(cmd.Context()); err != nil {
			if errors.Is(err, client.ErrUnauthorized) {
				return fmt.Errorf("сервер не принял токен")
			}
			return err
		}

		dir := env.App.ConfigDir()
		if err := config.Save(dir, map[string]any{"token": token}); err != nil {
			return err
		}

		return env.Out.Result(map[string]string{"configDir": dir}, func(p *cmdutil.Printer) {
			p.Successf("Токен сохранен в %s", dir)
		})
	},
}

// readToken из терминала без эха, иначе первая строка stdin
func readToken(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(cmd.ErrOrStderr(), "Токен: ")
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("ошибка чтения токена: %w", err)
		}
		if token := strings.TrimSpace(string(raw)); token != "" {
			return token, nil
		}
		return "", fmt.Errorf("токен не может быть пустым")
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	token := strings.TrimSpace(line)
	if token == "" {
		if err != nil {
			return "", fmt.Errorf("ошибка чтения токена: %w", err)
		}
		return "", fmt.Errorf("токен не может быть пустым")
	}
	return token, nil
}
