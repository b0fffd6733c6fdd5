package cli

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/IvanChernomyrdin/gophassist/internal/agent/api"
)

var errNoRefreshToken = errors.New("no refresh_token in config, run: gophassist login")

// NewRefreshCmd создаёт CLI-команду для обновления пары токенов.
//
// Старый refresh после этого недействителен: сервер его ротирует.
// Если сервер отверг refresh (отозван через logout или истёк), локальные
// учётные данные стираются, чтобы чат и инструменты не ходили с мёртвой парой.
//
// Пример использования:
//
//	gophassist refresh
func NewRefreshCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Обновить access токен по refresh токену",
		Long: `Обновляет access token по refresh token.

Пример:
  gophassist refresh
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Creds.RefreshToken == "" {
				return errNoRefreshToken
			}

			resp, err := NewAPIClient(app.ServerURL).Refresh(app.Creds.RefreshToken)
			if api.IsStatus(err, http.StatusUnauthorized) {
				app.Creds.Clear()
				if serr := app.saveCreds(); serr != nil {
					return serr
				}
				return fmt.Errorf("session revoked, run: gophassist login (%w)", err)
			}
			if err != nil {
				return err
			}

			app.Creds.AccessToken = resp.AccessToken
			app.Creds.RefreshToken = resp.RefreshToken
			if err := app.saveCreds(); err != nil {
				return err
			}

			if app.Creds.Username != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "refresh ok for %s (tokens updated)\n", app.Creds.Username)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "refresh ok (tokens updated)")
			return nil
		},
	}

	return cmd
}
