package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewLoginCmd создаёт CLI-команду для входа пользователя в систему.
//
// Команда получает пару access/refresh токенов и сохраняет их вместе с именем
// пользователя в локальный конфигурационный файл.
//
// Пример использования:
//
//	gophassist login --username alice
func NewLoginCmd(app *App) *cobra.Command {
	var (
		username, password string
		fromStdin          bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Логин пользователя (получить access/refresh токены)",
		Long: `Логин пользователя.

Пример:
  gophassist login --username alice
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := passwordFor(cmd, password, fromStdin, false)
			if err != nil {
				return err
			}

			// создаём API-клиент для общения с сервером
			c := NewAPIClient(app.ServerURL)
			resp, err := c.Login(username, pw)
			if err != nil {
				return err
			}

			// другой пользователь — чужая история не нужна
			if app.Creds.Username != "" && app.Creds.Username != username && app.History != nil {
				app.History.Reset()
				if err := SaveHistoryToFile(app.HistoryPath, app.History); err != nil {
					return err
				}
			}

			app.Creds.Username = username
			app.Creds.AccessToken = resp.AccessToken
			app.Creds.RefreshToken = resp.RefreshToken

			// сохраняем токены в локальный конфигурационный файл
			if err := app.saveCreds(); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "login ok (tokens saved)")
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "username for login")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted if empty)")
	cmd.Flags().BoolVar(&fromStdin, "password-stdin", false, "read password from STDIN")
	cmd.MarkFlagRequired("username")

	return cmd
}
