package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/IvanChernomyrdin/gophassist/internal/agent/api"
)

// команды внутри интерактивного чата
const (
	chatExit  = "/exit"
	chatReset = "/reset"
)

// NewChatCmd — чат с моделью.
//
// Без флагов открывает websocket и читает реплики построчно из STDIN,
// ответ печатается по мере генерации. --once отправляет одну реплику.
//
//	gophassist chat
//	gophassist chat --once "Кто ты?"
//	gophassist chat --knowledge faq.txt --reset
func NewChatCmd(app *App) *cobra.Command {
	var (
		once, knowledge string
		reset           bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Чат с моделью (стриминг по websocket)",
		Long: `Чат с моделью.

В интерактивном режиме каждая строка — реплика.
  /reset  очистить историю
  /exit   выйти

Примеры:
  gophassist chat
  gophassist chat --once "Привет!"
  gophassist chat --knowledge faq.txt
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if reset {
				if err := resetChat(app); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "chat history cleared")
			}

			if knowledge != "" {
				data, err := os.ReadFile(knowledge)
				if err != nil {
					return err
				}
				err = app.withAuth(func(c *api.Client, token string) error {
					resp, err := c.SetKnowledge(token, string(data))
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "knowledge loaded (%d chars)\n", resp.Chars)
					return nil
				})
				if err != nil {
					return err
				}
			}

			if once != "" {
				return app.withAuth(func(c *api.Client, token string) error {
					resp, err := c.SendMessage(token, once)
					if err != nil {
						return explain(cmd, err)
					}
					fmt.Fprintln(cmd.OutOrStdout(), resp.Reply)
					app.History.Append(once, resp.Reply)
					return SaveHistoryToFile(app.HistoryPath, app.History)
				})
			}

			// только служебные флаги — чат не открываем
			if reset || knowledge != "" {
				return nil
			}
			return interactiveChat(cmd, app)
		},
	}

	cmd.Flags().StringVar(&once, "once", "", "send a single message and print the reply")
	cmd.Flags().StringVar(&knowledge, "knowledge", "", "upload a .txt knowledge file for this chat")
	cmd.Flags().BoolVar(&reset, "reset", false, "clear chat history (loaded knowledge is kept)")

	cmd.AddCommand(newChatHistoryCmd(app))
	cmd.AddCommand(newChatModelsCmd(app))

	return cmd
}

func resetChat(app *App) error {
	err := app.withAuth(func(c *api.Client, token string) error {
		return c.ResetHistory(token)
	})
	if err != nil {
		return err
	}
	app.History.Reset()
	return SaveHistoryToFile(app.HistoryPath, app.History)
}

func interactiveChat(cmd *cobra.Command, app *App) error {
	var stream *api.ChatStream
	err := app.withAuth(func(c *api.Client, token string) error {
		s, err := c.OpenChat(context.Background(), token)
		if err != nil {
			return err
		}
		stream = s
		return nil
	})
	if err != nil {
		return err
	}
	defer stream.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "connected, type %s to quit\n", chatExit)

	sc := bufio.NewScanner(cmd.InOrStdin())
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for {
		fmt.Fprint(out, "> ")
		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		switch line {
		case "":
			continue
		case chatExit:
			return nil
		case chatReset:
			if err := resetChat(app); err != nil {
				return err
			}
			fmt.Fprintln(out, "history cleared")
			continue
		}

		reply, err := stream.Ask(line, func(chunk string) {
			fmt.Fprint(out, chunk)
		})
		fmt.Fprintln(out)
		if err != nil {
			var apiErr *api.Error
			if errors.As(err, &apiErr) {
				// ошибка модели: соединение живо, можно продолжать
				fmt.Fprintf(cmd.ErrOrStderr(), "error: %s\n", apiErr.Message)
				continue
			}
			return err
		}

		app.History.Append(line, reply)
		if err := SaveHistoryToFile(app.HistoryPath, app.History); err != nil {
			return err
		}
	}
}

func newChatHistoryCmd(app *App) *cobra.Command {
	var local bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Показать историю чата",
		Long: `Показывает историю чата с сервера и обновляет локальную копию.
С --local печатает только локальную копию (работает без сети).
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if !local {
				err := app.withAuth(func(c *api.Client, token string) error {
					h, err := c.History(token)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "model=%s knowledge=%t\n", h.Model, h.HasKnowledge)
					// сессия на сервере истекла — локальную копию не трогаем
					if len(h.Messages) > 0 {
						app.History.ReplaceFromServer(h.Messages)
						return SaveHistoryToFile(app.HistoryPath, app.History)
					}
					return nil
				})
				if err != nil {
					return err
				}
			}

			for _, e := range app.History.List() {
				fmt.Fprintf(out, "[%s] %s\n", e.Role, e.Text)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&local, "local", false, "print the local copy only")
	return cmd
}

func newChatModelsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "Доступные модели",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withAuth(func(c *api.Client, token string) error {
				m, err := c.Models(token)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "in use: %s\n", m.InUse)
				for _, name := range m.Available {
					fmt.Fprintln(out, name)
				}
				return nil
			})
		},
	}
}

// explain печатает подсказки к ошибке сервера: сырой ответ модели
// и через сколько повторить.
func explain(cmd *cobra.Command, err error) error {
	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	w := cmd.ErrOrStderr()
	if apiErr.Raw != "" {
		fmt.Fprintf(w, "raw model output:\n%s\n", apiErr.Raw)
	}
	if apiErr.RetryAfter > 0 {
		fmt.Fprintf(w, "retry in %ds\n", apiErr.RetryAfter)
	}
	return err
}

// readInput читает текст из файла или, если path пустой или "-", из STDIN.
func readInput(cmd *cobra.Command, path string) (string, error) {
	if path == "" || path == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		return string(b), err
	}
	b, err := os.ReadFile(path)
	return string(b), err
}
