package genai

import (
	"context"
	"slices"
	"strings"
)

// Model — описание модели из models.list.
type Model struct {
	Name                       string
	DisplayName                string
	SupportedGenerationMethods []string
}

// ListModels возвращает все модели, поддерживающие generateContent.
// Страницы выдачи SDK обходит сам.
func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var out []Model
	for m, err := range c.sdk.Models.All(ctx) {
		if err != nil {
			return nil, convertError(err)
		}
		if !slices.Contains(m.SupportedActions, "generateContent") {
			continue
		}
		out = append(out, Model{
			Name:                       m.Name,
			DisplayName:                m.DisplayName,
			SupportedGenerationMethods: m.SupportedActions,
		})
	}
	return out, nil
}

// Names — имена моделей.
func Names(models []Model) []string {
	names := make([]string, 0, len(models))
	for _, m := range models {
		names = append(names, m.Name)
	}
	return names
}

// PickModel возвращает первое доступное имя, подходящее под кандидата
// (имя оканчивается на кандидата или содержит его). Кандидаты проверяются
// по порядку предпочтения. Пустая строка — ничего не подошло.
func PickModel(candidates, available []string) string {
	for _, pref := range candidates {
		pref = strings.TrimSpace(pref)
		if pref == "" {
			continue
		}
		for _, name := range available {
			if strings.HasSuffix(name, pref) || strings.Contains(name, pref) {
				return name
			}
		}
	}
	return ""
}

// SelectModel запрашивает список моделей и выбирает из кандидатов.
// Если список недоступен или ничего не подошло — возвращается fallback,
// а available может быть пустым.
func (c *Client) SelectModel(ctx context.Context, candidates []string, fallback string) (model string, available []string) {
	models, err := c.ListModels(ctx)
	if err == nil {
		available = Names(models)
	}
	if m := PickModel(candidates, available); m != "" {
		return m, available
	}
	return fallback, available
}
