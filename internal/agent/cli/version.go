package cli

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// BuildInfo — то, что печатает команда version.
type BuildInfo struct {
	Version   string `json:"version"`
	BuildDate string `json:"build_date"`
	Go        string `json:"go"`
	Platform  string `json:"platform"`
	Server    string `json:"server"`
	// Username пуст, если пользователь не залогинен.
	Username string `json:"username,omitempty"`
}

// NewVersionCmd создаёт CLI-команду для отображения информации о сборке.
//
// Кроме версии и даты сборки показывает сервер, с которым работает клиент
// (с учётом --server), и сохранённого пользователя. --json — для скриптов.
//
// Пример использования:
//
//	gophassist version
//	gophassist --server https://assist.local:8080 version --json
func NewVersionCmd(app *App, buildVersion, buildDate string) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Показать версию, дату сборки и сервер",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := BuildInfo{
				Version:   buildVersion,
				BuildDate: buildDate,
				Go:        runtime.Version(),
				Platform:  runtime.GOOS + "/" + runtime.GOARCH,
				Server:    app.ServerURL,
			}
			if app.Creds.LoggedIn() {
				info.Username = app.Creds.Username
			}

			w := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}

			fmt.Fprintf(w, "version=%s\nbuild_date=%s\ngo=%s\nplatform=%s\nserver=%s\n",
				info.Version, info.BuildDate, info.Go, info.Platform, info.Server)
			if info.Username != "" {
				fmt.Fprintf(w, "user=%s\n", info.Username)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print build info as JSON")
	return cmd
}
