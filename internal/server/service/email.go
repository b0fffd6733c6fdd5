package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/IvanChernomyrdin/gophassist/internal/server/genai"
	"github.com/IvanChernomyrdin/gophassist/internal/server/pacing"
	serr "github.com/IvanChernomyrdin/gophassist/internal/shared/errors"
	"github.com/IvanChernomyrdin/gophassist/internal/shared/models"
	"github.com/IvanChernomyrdin/gophassist/internal/shared/salvage"
)

// EmailService пишет черновики писем.
type EmailService struct {
	gen   genai.Generator
	pacer pacing.Pacer
	model string
}

func NewEmailService(gen genai.Generator, pacer pacing.Pacer, model string) *EmailService {
	if pacer == nil {
		pacer = pacing.Noop{}
	}
	return &EmailService{gen: gen, pacer: pacer, model: model}
}

// EmailPrompt собирает промпт черновика письма.
func EmailPrompt(req models.EmailRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write an e-mail in %s.\n", req.Language)
	fmt.Fprintf(&b, "Purpose: %s\n", req.Purpose)
	if req.Recipient != "" {
		fmt.Fprintf(&b, "Recipient: %s\n", req.Recipient)
	}
	fmt.Fprintf(&b, "Tone: %s\n", req.Tone)
	if len(req.Points) > 0 {
		b.WriteString("Key points to cover:\n")
		for _, p := range req.Points {
			fmt.Fprintf(&b, "- %s\n", p)
		}
	}
	b.WriteString("\nReturn only JSON: {\"subject\": \"...\", \"body\": \"...\"}. ")
	b.WriteString("The body is plain text with line breaks, no markdown, no placeholders you cannot fill.\n")
	return b.String()
}

// Draft возвращает тему и текст письма.
// Ошибки те же, что у SEOService.Optimize, кроме ErrStorage.
func (s *EmailService) Draft(ctx context.Context, userID int64, req models.EmailRequest) (models.EmailDraft, error) {
	req.Purpose = strings.TrimSpace(req.Purpose)
	req.Recipient = strings.TrimSpace(req.Recipient)
	if req.Purpose == "" {
		return models.EmailDraft{}, fmt.Errorf("%w: purpose is empty", serr.ErrInvalidInput)
	}
	if req.Language == "" {
		req.Language = "en-US"
	}
	if req.Tone == "" {
		req.Tone = "neutral"
	}
	points := req.Points[:0:0]
	for _, p := range req.Points {
		if p = strings.TrimSpace(p); p != "" {
			points = append(points, p)
		}
	}
	req.Points = points

	raw, err := askModel(ctx, s.gen, s.pacer, userID, s.model, EmailPrompt(req))
	if err != nil {
		return models.EmailDraft{}, err
	}

	draft, err := salvage.Decode[models.EmailDraft](raw)
	if err != nil {
		return models.EmailDraft{}, err
	}
	if strings.TrimSpace(draft.Subject) == "" || strings.TrimSpace(draft.Body) == "" {
		return models.EmailDraft{}, &salvage.ParseError{Raw: raw, Reason: "subject or body missing"}
	}
	return draft, nil
}
