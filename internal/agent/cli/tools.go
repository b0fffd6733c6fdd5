package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/IvanChernomyrdin/gophassist/internal/agent/api"
	"github.com/IvanChernomyrdin/gophassist/internal/shared/models"
)

// NewPDFCmd извлекает текст из PDF и пишет его в .txt рядом с файлом
// (или в --out).
//
//	gophassist pdf report.pdf
func NewPDFCmd(app *App) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "pdf <file.pdf>",
		Short: "Извлечь текст из PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			return app.withAuth(func(c *api.Client, token string) error {
				resp, err := c.ExtractDocument(token, filepath.Base(args[0]), data)
				if err != nil {
					return err
				}
				if resp.Empty {
					fmt.Fprintf(cmd.ErrOrStderr(), "%d pages, %s\n", resp.Pages, resp.Warning)
					return nil
				}

				dst := out
				if dst == "" {
					dst = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + ".txt"
				}
				if err := os.WriteFile(dst, []byte(resp.Text), 0o644); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d pages, %d chars written to %s\n", resp.Pages, len(resp.Text), dst)
				if resp.Artifact != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "artifact: %s\n", resp.Artifact.Name)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "output .txt path")
	return cmd
}

// NewSEOCmd переписывает текст под SEO. Текст берётся из --file или STDIN.
//
//	gophassist seo --file post.md --language en-US --goal landing_page --keywords "go, cli"
func NewSEOCmd(app *App) *cobra.Command {
	var (
		file, out string
		req       models.SEORequest
	)

	cmd := &cobra.Command{
		Use:   "seo",
		Short: "Переписать текст под SEO",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, file)
			if err != nil {
				return err
			}
			req.Text = text

			return app.withAuth(func(c *api.Client, token string) error {
				resp, err := c.OptimizeSEO(token, req)
				if err != nil {
					return explain(cmd, err)
				}

				p := resp.Package
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "title: %s\nmeta: %s\nslug: %s\nh1: %s\n", p.Title, p.MetaDescription, p.Slug, p.H1)
				for _, h2 := range p.H2 {
					fmt.Fprintf(w, "  h2: %s\n", h2)
				}
				fmt.Fprintf(w, "keywords: %s\n\n%s\n", strings.Join(p.Keywords, ", "), p.Body)
				for _, f := range p.FAQs {
					fmt.Fprintf(w, "\nQ: %s\nA: %s\n", f.Question, f.Answer)
				}
				for _, a := range resp.Artifacts {
					fmt.Fprintf(w, "artifact: %s\n", a.Name)
				}

				if out == "" {
					return nil
				}
				b, err := json.MarshalIndent(p, "", "  ")
				if err != nil {
					return err
				}
				return os.WriteFile(out, b, 0o644)
			})
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "text file (default STDIN)")
	cmd.Flags().StringVar(&out, "out", "", "write the SEO package as JSON")
	cmd.Flags().StringVar(&req.Language, "language", "", "pt-BR|en-US|es-ES")
	cmd.Flags().StringVar(&req.Goal, "goal", "", "blog_post|landing_page|product_page|ad")
	cmd.Flags().StringVar(&req.Tone, "tone", "", "neutral|trustworthy|didactic|persuasive")
	cmd.Flags().StringVar(&req.Keywords, "keywords", "", "comma separated keywords")
	cmd.Flags().IntVar(&req.Length, "length", 0, "approximate body length in words (300..2000, step 100)")
	cmd.Flags().BoolVar(&req.IncludeSchema, "schema", false, "include schema.org JSON-LD")
	return cmd
}

// NewEmailCmd составляет черновик письма.
//
//	gophassist email --purpose "follow up" --point "thanks for the call" --point "send the deck"
func NewEmailCmd(app *App) *cobra.Command {
	var req models.EmailRequest

	cmd := &cobra.Command{
		Use:   "email",
		Short: "Черновик письма",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withAuth(func(c *api.Client, token string) error {
				draft, err := c.DraftEmail(token, req)
				if err != nil {
					return explain(cmd, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Subject: %s\n\n%s\n", draft.Subject, draft.Body)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&req.Purpose, "purpose", "", "what the e-mail is for")
	cmd.Flags().StringVar(&req.Recipient, "recipient", "", "who receives it")
	cmd.Flags().StringVar(&req.Tone, "tone", "", "tone of voice")
	cmd.Flags().StringVar(&req.Language, "language", "", "language of the e-mail")
	cmd.Flags().StringArrayVar(&req.Points, "point", nil, "key point (repeatable)")
	cmd.MarkFlagRequired("purpose")
	return cmd
}

// NewDownloadCmd скачивает артефакт по имени.
//
//	gophassist download seo_body_20250304_050607.md
func NewDownloadCmd(app *App) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "download <name>",
		Short: "Скачать сохранённый артефакт",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dst := out
			if dst == "" {
				dst = filepath.Base(args[0])
			}

			return app.withAuth(func(c *api.Client, token string) error {
				f, err := os.Create(dst)
				if err != nil {
					return err
				}
				err = c.DownloadArtifact(token, args[0], f)
				if cerr := f.Close(); err == nil {
					err = cerr
				}
				if err != nil {
					_ = os.Remove(dst)
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "saved to %s\n", dst)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "output path (default: artifact name)")
	return cmd
}
