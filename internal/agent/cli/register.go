package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRegisterCmd создаёт CLI-команду для регистрации нового пользователя.
//
// Пароль можно передать флагом --password, через STDIN (--password-stdin)
// или ввести в терминале: тогда он спрашивается дважды.
//
// Пример использования:
//
//	gophassist register --username alice
func NewRegisterCmd(app *App) *cobra.Command {
	var (
		username, password string
		fromStdin          bool
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Регистрация нового пользователя",
		Long: `Регистрация нового пользователя на сервере.

Пример:
  gophassist register --username alice
  echo -n 'secret1' | gophassist register --username alice --password-stdin
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := passwordFor(cmd, password, fromStdin, true)
			if err != nil {
				return err
			}

			c := NewAPIClient(app.ServerURL)
			// выполняет добавление нового пользователя в бд
			resp, err := c.Register(username, pw)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registration successful (user %q, id %d)\n", resp.Username, resp.UserID)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "username for registration")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted if empty)")
	cmd.Flags().BoolVar(&fromStdin, "password-stdin", false, "read password from STDIN")
	cmd.MarkFlagRequired("username")

	return cmd
}
