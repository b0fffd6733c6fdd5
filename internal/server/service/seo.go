package service

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/jonboulle/clockwork"

	"github.com/IvanChernomyrdin/gophassist/internal/server/artifacts"
	"github.com/IvanChernomyrdin/gophassist/internal/server/genai"
	"github.com/IvanChernomyrdin/gophassist/internal/server/pacing"
	serr "github.com/IvanChernomyrdin/gophassist/internal/shared/errors"
	"github.com/IvanChernomyrdin/gophassist/internal/shared/models"
	"github.com/IvanChernomyrdin/gophassist/internal/shared/salvage"
	"github.com/IvanChernomyrdin/gophassist/internal/shared/utils"
)

// допустимые значения параметров SEO
var (
	SEOLanguages = []string{"pt-BR", "en-US", "es-ES"}
	SEOGoals     = []string{"blog_post", "landing_page", "product_page", "ad"}
	SEOTones     = []string{"neutral", "trustworthy", "didactic", "persuasive"}
)

const (
	seoMinLength     = 300
	seoMaxLength     = 2000
	seoLengthStep    = 100
	seoDefaultLength = 800
)

var goalTitles = map[string]string{
	"blog_post":    "Blog post",
	"landing_page": "Landing page",
	"product_page": "Product page",
	"ad":           "Ad",
}

// askModel — один вызов модели с учётом pacing. Пустой ответ считается
// неразбираемым, чтобы клиент увидел сырой текст.
func askModel(ctx context.Context, gen genai.Generator, pacer pacing.Pacer, userID int64, model, prompt string) (string, error) {
	if err := pacer.Allow(ctx, ownerKey(userID)); err != nil {
		return "", err
	}
	raw, err := gen.Generate(ctx, genai.Prompt(model, prompt))
	if err != nil {
		return "", err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", &salvage.ParseError{Raw: raw, Reason: "empty model response"}
	}
	return raw, nil
}

// SEOService переписывает текст под SEO и раскладывает ответ модели в SEOPackage.
type SEOService struct {
	gen       genai.Generator
	pacer     pacing.Pacer
	artifacts artifacts.Store
	model     string
	clock     clockwork.Clock
}

func NewSEOService(gen genai.Generator, pacer pacing.Pacer, store artifacts.Store, model string, clock clockwork.Clock) *SEOService {
	if pacer == nil {
		pacer = pacing.Noop{}
	}
	if store == nil {
		store = artifacts.Discard{}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SEOService{gen: gen, pacer: pacer, artifacts: store, model: model, clock: clock}
}

// NormalizeSEORequest проставляет значения по умолчанию и проверяет параметры.
func NormalizeSEORequest(req models.SEORequest) (models.SEORequest, error) {
	req.Text = strings.TrimSpace(req.Text)
	req.Keywords = strings.TrimSpace(req.Keywords)

	if req.Language == "" {
		req.Language = "pt-BR"
	}
	if req.Goal == "" {
		req.Goal = "blog_post"
	}
	if req.Tone == "" {
		req.Tone = "trustworthy"
	}
	if req.Length == 0 {
		req.Length = seoDefaultLength
	}

	switch {
	case req.Text == "":
		return req, fmt.Errorf("%w: text is empty", serr.ErrInvalidInput)
	case !slices.Contains(SEOLanguages, req.Language):
		return req, fmt.Errorf("%w: unsupported language %q", serr.ErrInvalidInput, req.Language)
	case !slices.Contains(SEOGoals, req.Goal):
		return req, fmt.Errorf("%w: unsupported goal %q", serr.ErrInvalidInput, req.Goal)
	case !slices.Contains(SEOTones, req.Tone):
		return req, fmt.Errorf("%w: unsupported tone %q", serr.ErrInvalidInput, req.Tone)
	case req.Length < seoMinLength || req.Length > seoMaxLength || req.Length%seoLengthStep != 0:
		return req, fmt.Errorf("%w: length must be %d..%d in steps of %d",
			serr.ErrInvalidInput, seoMinLength, seoMaxLength, seoLengthStep)
	}
	return req, nil
}

// SEOPrompt собирает промпт для модели.
func SEOPrompt(req models.SEORequest) string {
	keywords := req.Keywords
	if keywords == "" {
		keywords = "not provided"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are a senior SEO specialist. Rewrite and structure the content below in **%s**,\n", req.Language)
	b.WriteString("optimizing it for SEO without losing clarity and a natural human voice. Context:\n")
	fmt.Fprintf(&b, "- Page goal: %s\n", goalTitles[req.Goal])
	fmt.Fprintf(&b, "- Desired tone: %s\n", req.Tone)
	fmt.Fprintf(&b, "- Approximate length of the rewritten body: ~%d words\n", req.Length)
	fmt.Fprintf(&b, "- Target keywords (if any): %s\n\n", keywords)

	b.WriteString("Return **JSON** with these keys (all required):\n")
	b.WriteString(`- "title": SEO title (<= 60 chars, CTR-friendly)` + "\n")
	b.WriteString(`- "metaDescription": meta description (<= 155 chars, with a clear benefit)` + "\n")
	b.WriteString(`- "slug": short readable slug (kebab-case)` + "\n")
	b.WriteString(`- "h1": main heading` + "\n")
	b.WriteString(`- "h2": array of 3-8 suggested subheadings` + "\n")
	b.WriteString(`- "body": rewritten body (simple markdown, with H2/H3 where useful)` + "\n")
	b.WriteString(`- "keywords": array of 5-12 terms/variations` + "\n")
	b.WriteString(`- "faqs": array of objects { "question": "...", "answer": "..." }` + "\n")
	if req.IncludeSchema {
		b.WriteString(`- "jsonLd": schema.org JSON-LD object (WebPage/Article), at least title, description, inLanguage, dateModified.` + "\n")
	}

	b.WriteString("\nRules:\n")
	b.WriteString("- Do not invent facts. If information is missing, stay generic or omit it.\n")
	b.WriteString("- Avoid keyword stuffing. Prioritize readability, scannability and intent.\n")
	b.WriteString("- Improve the copy with micro-benefits and subtle CTAs when it makes sense.\n")

	b.WriteString("\n### ORIGINAL CONTENT\n")
	b.WriteString(req.Text)
	b.WriteString("\n")
	return b.String()
}

// Optimize вызывает модель и сохраняет тело статьи (.md) и весь пакет (.json)
// как артефакты пользователя.
//
// Ошибки:
//   - ErrInvalidInput — неверные параметры
//   - ErrTooSoon — сработал pacing
//   - ErrQuotaExceeded — квота модели исчерпана после повторов
//   - *salvage.ParseError — ответ модели не разобран, в Raw сырой текст
//   - ErrStorage — не удалось сохранить артефакты
func (s *SEOService) Optimize(ctx context.Context, userID int64, req models.SEORequest) (models.SEOResponse, error) {
	req, err := NormalizeSEORequest(req)
	if err != nil {
		return models.SEOResponse{}, err
	}

	raw, err := askModel(ctx, s.gen, s.pacer, userID, s.model, SEOPrompt(req))
	if err != nil {
		return models.SEOResponse{}, err
	}

	pkg, err := salvage.Decode[models.SEOPackage](raw)
	if err != nil {
		return models.SEOResponse{}, err
	}
	if pkg.Title == "" && pkg.Body == "" {
		return models.SEOResponse{}, &salvage.ParseError{Raw: raw, Reason: "no title and body in model output"}
	}
	if !req.IncludeSchema {
		pkg.JSONLD = nil
	}

	resp := models.SEOResponse{Package: pkg}

	now := s.clock.Now()
	owner := ownerKey(userID)

	body, err := s.artifacts.Put(ctx, owner, utils.StampedName("seo_body", "md", now), artifacts.ContentTypeFor(".md"), []byte(pkg.Body))
	if err != nil {
		return models.SEOResponse{}, err
	}
	pkgJSON, err := json.MarshalIndent(pkg, "", "  ")
	if err != nil {
		return models.SEOResponse{}, fmt.Errorf("%w: marshal seo package: %v", serr.ErrInternal, err)
	}
	full, err := s.artifacts.Put(ctx, owner, utils.StampedName("seo_package", "json", now), artifacts.ContentTypeFor(".json"), pkgJSON)
	if err != nil {
		return models.SEOResponse{}, err
	}

	for _, a := range []artifacts.Artifact{body, full} {
		if a.Stored() {
			resp.Artifacts = append(resp.Artifacts, toArtifactModel(a))
		}
	}
	return resp, nil
}

func toArtifactModel(a artifacts.Artifact) models.Artifact {
	return models.Artifact{
		Name:        a.Name,
		Key:         a.Key,
		ContentType: a.ContentType,
		Size:        int(a.Size),
		URL:         a.URL,
	}
}
