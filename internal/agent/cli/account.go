package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/IvanChernomyrdin/gophassist/internal/agent/api"
)

// NewLogoutCmd отзывает refresh-сессии на сервере и забывает токены локально.
// Локальные токены удаляются, даже если сервер недоступен.
func NewLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Выход: отозвать сессии и удалить токены",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !app.Creds.LoggedIn() {
				fmt.Fprintln(cmd.OutOrStdout(), "already logged out")
				return nil
			}

			err := app.withAuth(func(c *api.Client, token string) error {
				return c.Logout(token)
			})
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "server logout failed: %v\n", err)
			}

			app.Creds.Clear()
			if err := app.saveCreds(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "logout ok (tokens removed)")
			return nil
		},
	}
}

// NewExistsCmd проверяет, занято ли имя пользователя.
//
//	gophassist exists alice
func NewExistsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "exists <username>",
		Short: "Проверить, занято ли имя пользователя",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := NewAPIClient(app.ServerURL).Exists(args[0])
			if err != nil {
				return err
			}
			if ok {
				fmt.Fprintf(cmd.OutOrStdout(), "%q is taken\n", args[0])
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%q is free\n", args[0])
			}
			return nil
		},
	}
}

// NewMeCmd показывает, под кем выполнен вход.
func NewMeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Текущий пользователь",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withAuth(func(c *api.Client, token string) error {
				me, err := c.Me(token)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "user_id=%d\nusername=%s\n", me.UserID, me.Username)
				return nil
			})
		},
	}
}
