// Package genai — клиент Gemini API поверх google.golang.org/genai.
//
// Поверх SDK пакет добавляет:
//   - собственные типы реплик (Content, Request), которые хранит чат-сервис;
//   - выбор модели из списка кандидатов (PickModel, SelectModel);
//   - приведение ошибок SDK: квота (429 / RESOURCE_EXHAUSTED) — *QuotaError,
//     остальное — *APIError;
//   - повтор вызовов при ошибке квоты (Retrying).
package genai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	gemini "google.golang.org/genai"

	serr "github.com/IvanChernomyrdin/gophassist/internal/shared/errors"
)

// DefaultBaseURL — публичный endpoint Gemini API вместе с версией.
const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Part — фрагмент содержимого. Используется только текст.
type Part struct {
	Text string `json:"text"`
}

// Content — одна реплика диалога.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Text склеивает текст всех частей.
func (c Content) Text() string {
	var b strings.Builder
	for _, p := range c.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

func UserText(s string) Content  { return Content{Role: RoleUser, Parts: []Part{{Text: s}}} }
func ModelText(s string) Content { return Content{Role: RoleModel, Parts: []Part{{Text: s}}} }

// Request — запрос на генерацию.
type Request struct {
	// Model — полное имя ("models/gemini-2.5-flash") или короткое ("gemini-2.5-flash").
	Model string
	// System — системная инструкция, пустая строка — без неё.
	System   string
	Contents []Content
}

// Prompt — запрос из одного пользовательского сообщения.
func Prompt(model, text string) Request {
	return Request{Model: model, Contents: []Content{UserText(text)}}
}

// Options — параметры клиента.
type Options struct {
	APIKey string
	// BaseURL может содержать версию API в последнем сегменте (".../v1beta").
	BaseURL string
	Timeout time.Duration
	// HTTPClient подменяется в тестах. Если nil — SDK создаёт свой.
	HTTPClient *http.Client
}

// Client — обёртка над gemini.Client.
type Client struct {
	sdk     *gemini.Client
	timeout time.Duration
}

// NewClient создаёт клиента. Timeout применяется к Generate и ListModels,
// Stream ограничен только контекстом вызывающего.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	base, version := splitBaseURL(opts.BaseURL)
	sdk, err := gemini.NewClient(ctx, &gemini.ClientConfig{
		APIKey:     opts.APIKey,
		Backend:    gemini.BackendGeminiAPI,
		HTTPClient: opts.HTTPClient,
		HTTPOptions: gemini.HTTPOptions{
			BaseURL:    base,
			APIVersion: version,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("genai: new client: %w", err)
	}
	return &Client{sdk: sdk, timeout: opts.Timeout}, nil
}

var versionSegment = regexp.MustCompile(`^v\d+(alpha|beta)?\d*$`)

// splitBaseURL отделяет версию API: SDK склеивает BaseURL и APIVersion сам.
func splitBaseURL(raw string) (base, version string) {
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	if raw == "" {
		return "", ""
	}
	i := strings.LastIndex(raw, "/")
	if i > 0 && versionSegment.MatchString(raw[i+1:]) {
		return raw[:i+1], raw[i+1:]
	}
	return raw + "/", ""
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func toSDK(contents []Content) []*gemini.Content {
	out := make([]*gemini.Content, 0, len(contents))
	for _, c := range contents {
		parts := make([]*gemini.Part, 0, len(c.Parts))
		for _, p := range c.Parts {
			parts = append(parts, &gemini.Part{Text: p.Text})
		}
		out = append(out, &gemini.Content{Role: c.Role, Parts: parts})
	}
	return out
}

func generateConfig(r Request) *gemini.GenerateContentConfig {
	if strings.TrimSpace(r.System) == "" {
		return nil
	}
	return &gemini.GenerateContentConfig{
		SystemInstruction: &gemini.Content{Parts: []*gemini.Part{{Text: r.System}}},
	}
}

// Generate отправляет запрос и возвращает текст первого кандидата.
func (c *Client) Generate(ctx context.Context, r Request) (string, error) {
	if len(r.Contents) == 0 {
		return "", fmt.Errorf("%w: empty contents", serr.ErrInvalidInput)
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.sdk.Models.GenerateContent(ctx, strings.TrimSpace(r.Model), toSDK(r.Contents), generateConfig(r))
	if err != nil {
		return "", convertError(err)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" && len(resp.Candidates) == 0 {
		return "", &APIError{
			Status:  http.StatusOK,
			Code:    "BLOCKED",
			Message: "prompt blocked: " + string(resp.PromptFeedback.BlockReason),
		}
	}
	return resp.Text(), nil
}

// Stream выполняет streamGenerateContent и вызывает onChunk для каждого
// непустого фрагмента текста. Возвращает весь накопленный текст.
// Ошибка из onChunk прерывает поток и возвращается как есть.
func (c *Client) Stream(ctx context.Context, r Request, onChunk func(chunk string) error) (string, error) {
	if len(r.Contents) == 0 {
		return "", fmt.Errorf("%w: empty contents", serr.ErrInvalidInput)
	}

	var full strings.Builder
	for resp, err := range c.sdk.Models.GenerateContentStream(ctx, strings.TrimSpace(r.Model), toSDK(r.Contents), generateConfig(r)) {
		if err != nil {
			return full.String(), convertError(err)
		}
		chunk := resp.Text()
		if chunk == "" {
			continue
		}
		full.WriteString(chunk)
		if onChunk != nil {
			if err := onChunk(chunk); err != nil {
				return full.String(), err
			}
		}
	}
	return full.String(), nil
}

// IsQuota — ошибка исчерпания квоты (её имеет смысл повторить позже).
func IsQuota(err error) bool {
	return errors.Is(err, serr.ErrQuotaExceeded)
}
