// Package cli реализует командный интерфейс (CLI) клиентского приложения GophAssist.
//
// Пакет отвечает за:
//   - определение root-команды и набора подкоманд;
//   - разбор аргументов и флагов командной строки;
//   - загрузку локальных учётных данных (access/refresh токены) и истории чата;
//   - выполнение команд и вывод результата пользователю.
//
// Точка входа пакета — функция Execute.
package cli

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/IvanChernomyrdin/gophassist/internal/agent/api"
	"github.com/IvanChernomyrdin/gophassist/internal/agent/config"
	"github.com/IvanChernomyrdin/gophassist/internal/agent/memory"
)

// сколько реплик держим в локальной истории
const historyLimit = 500

// App содержит состояние CLI-приложения, разделяемое между командами.
//
// Экземпляр App создаётся при построении root-команды и передаётся в подкоманды.
type App struct {
	// ServerURL — базовый URL сервера GophAssist (например, "https://127.0.0.1:8080").
	ServerURL string

	// CredsPath — путь к файлу с сохранёнными учётными данными.
	CredsPath string
	// Creds — загруженные учётные данные. Может быть nil до PersistentPreRunE.
	Creds *config.Credentials

	// HistoryPath — файл локальной истории чата.
	HistoryPath string
	History     *memory.History
}

var errNotLoggedIn = errors.New("not logged in, run: gophassist login")

// saveCreds сохраняет текущие учётные данные.
func (app *App) saveCreds() error {
	return config.Save(app.CredsPath, app.Creds)
}

// withAuth вызывает fn с access токеном. Если сервер ответил 401 и есть
// refresh токен — обновляет пару, сохраняет её и повторяет fn один раз.
func (app *App) withAuth(fn func(c *api.Client, token string) error) error {
	if !app.Creds.LoggedIn() {
		return errNotLoggedIn
	}

	c := NewAPIClient(app.ServerURL)
	err := fn(c, app.Creds.AccessToken)
	if !api.IsStatus(err, http.StatusUnauthorized) || app.Creds.RefreshToken == "" {
		return err
	}

	resp, rerr := c.Refresh(app.Creds.RefreshToken)
	if rerr != nil {
		// refresh протух — нужен новый логин
		return fmt.Errorf("session expired, run: gophassist login (%w)", rerr)
	}
	app.Creds.AccessToken = resp.AccessToken
	app.Creds.RefreshToken = resp.RefreshToken
	if err := app.saveCreds(); err != nil {
		return err
	}
	return fn(c, app.Creds.AccessToken)
}

// NewRootCmd создаёт root-команду CLI и регистрирует подкоманды.
//
// buildVersion и buildDate используются для вывода информации о сборке (команда version).
// В PersistentPreRunE загружаются сохранённые токены и локальная история чата.
func NewRootCmd(buildVersion, buildDate string) *cobra.Command {
	app := &App{
		ServerURL: "https://127.0.0.1:8080",
	}

	cmd := &cobra.Command{
		Use:   "gophassist",
		Short: "GophAssist CLI — персональный AI-ассистент (чат, SEO, письма, PDF)",
		Long: `GophAssist CLI.

Команды:
  register  Регистрация нового пользователя
  login     Логин (получить access/refresh)
  logout    Выход (отзыв всех refresh-сессий)
  refresh   Обновить access по refresh токену
  exists    Проверить, занято ли имя пользователя
  me        Текущий пользователь
  chat      Чат с моделью (стриминг по websocket)
  pdf       Извлечь текст из PDF
  seo       Переписать текст под SEO
  email     Черновик письма
  download  Скачать сохранённый артефакт
  version   Версия, дата сборки и сервер

Примеры:

Регистрация:
  gophassist register --username alice
  (пароль спрашивается дважды)

Логин:
  gophassist login --username alice
  (сохраняет access и refresh токены в ~/.gophassist/credentials.json)

Чат:
  gophassist chat
  gophassist chat --once "Привет!"
`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			p, err := config.DefaultPath()
			if err != nil {
				return err
			}
			app.CredsPath = p

			creds, err := config.Load(app.CredsPath)
			if err != nil {
				return err
			}
			app.Creds = creds

			hp, err := config.HomePath("history.json")
			if err != nil {
				return err
			}
			app.HistoryPath = hp
			app.History = memory.NewHistory(historyLimit)
			return memory.LoadFromFile(app.HistoryPath, app.History)
		},
	}

	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.PersistentFlags().StringVar(&app.ServerURL, "server", "https://127.0.0.1:8080", "server base URL")

	cmd.AddCommand(NewRegisterCmd(app))
	cmd.AddCommand(NewLoginCmd(app))
	cmd.AddCommand(NewLogoutCmd(app))
	cmd.AddCommand(NewRefreshCmd(app))
	cmd.AddCommand(NewExistsCmd(app))
	cmd.AddCommand(NewMeCmd(app))
	cmd.AddCommand(NewChatCmd(app))
	cmd.AddCommand(NewPDFCmd(app))
	cmd.AddCommand(NewSEOCmd(app))
	cmd.AddCommand(NewEmailCmd(app))
	cmd.AddCommand(NewDownloadCmd(app))
	cmd.AddCommand(NewVersionCmd(app, buildVersion, buildDate))

	return cmd
}

// Execute запускает обработку CLI-команд.
//
// При ошибке выполнения команды сообщение выводится в stderr, после чего процесс
// завершается с кодом 1 (os.Exit(1)).
func Execute(buildVersion, buildDate string) {
	if err := NewRootCmd(buildVersion, buildDate).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
