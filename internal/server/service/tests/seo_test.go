package tests

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/IvanChernomyrdin/gophassist/internal/server/artifacts"
	"github.com/IvanChernomyrdin/gophassist/internal/server/service"
	serr "github.com/IvanChernomyrdin/gophassist/internal/shared/errors"
	"github.com/IvanChernomyrdin/gophassist/internal/shared/models"
	"github.com/IvanChernomyrdin/gophassist/internal/shared/salvage"
)

const seoReply = "Here is your package:\n```json\n" + `{
  "title": "Best coffee in town",
  "metaDescription": "Fresh beans every morning.",
  "slug": "best-coffee-in-town",
  "h1": "Coffee",
  "h2": ["Beans", "Roast", "Brew"],
  "body": "## Beans\nFresh.",
  "keywords": ["coffee", "beans"],
  "faqs": [{"question": "Open on Sunday?", "answer": "Yes"}],
  "jsonLd": {"@type": "Article"}
}` + "\n```\nEnjoy!"

func TestNormalizeSEORequest(t *testing.T) {
	req, err := service.NormalizeSEORequest(models.SEORequest{Text: "  text  "})
	require.NoError(t, err)
	require.Equal(t, "text", req.Text)
	require.Equal(t, "pt-BR", req.Language)
	require.Equal(t, "blog_post", req.Goal)
	require.Equal(t, "trustworthy", req.Tone)
	require.Equal(t, 800, req.Length)

	bad := []models.SEORequest{
		{Text: ""},
		{Text: "x", Language: "fr-FR"},
		{Text: "x", Goal: "tweet"},
		{Text: "x", Tone: "angry"},
		{Text: "x", Length: 250},
		{Text: "x", Length: 2100},
		{Text: "x", Length: 850},
	}
	for _, r := range bad {
		_, err := service.NormalizeSEORequest(r)
		require.ErrorIs(t, err, serr.ErrInvalidInput, "%+v", r)
	}
}

func TestSEOPrompt_Schema(t *testing.T) {
	req := models.SEORequest{Text: "body", Language: "en-US", Goal: "ad", Tone: "neutral", Length: 300}
	require.NotContains(t, service.SEOPrompt(req), `"jsonLd"`)

	req.IncludeSchema = true
	p := service.SEOPrompt(req)
	require.Contains(t, p, `"jsonLd"`)
	require.Contains(t, p, "**en-US**")
	require.Contains(t, p, "Ad")
	require.Contains(t, p, "keywords (if any): not provided")
}

func TestSEO_Optimize_StoresArtifacts(t *testing.T) {
	ctx := context.Background()
	store, err := artifacts.NewLocal(t.TempDir(), "/artifacts")
	require.NoError(t, err)

	clock := clockwork.NewFakeClockAt(time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC))
	gen := &fakeGen{replies: []string{seoReply}}
	svc := service.NewSEOService(gen, nil, store, "models/m", clock)

	resp, err := svc.Optimize(ctx, 9, models.SEORequest{Text: "coffee shop", IncludeSchema: true})
	require.NoError(t, err)

	require.Equal(t, "Best coffee in town", resp.Package.Title)
	require.Equal(t, []string{"Beans", "Roast", "Brew"}, resp.Package.H2)
	require.Equal(t, "Open on Sunday?", resp.Package.FAQs[0].Question)
	require.Equal(t, "Article", resp.Package.JSONLD["@type"])

	require.Len(t, resp.Artifacts, 2)
	require.Equal(t, "seo_body_20250304_050607.md", resp.Artifacts[0].Name)
	require.Equal(t, "9/seo_body_20250304_050607.md", resp.Artifacts[0].Key)
	require.Equal(t, "seo_package_20250304_050607.json", resp.Artifacts[1].Name)

	rc, _, err := store.Open(ctx, resp.Artifacts[0].Key)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	require.Equal(t, "## Beans\nFresh.", string(body))

	rc, _, err = store.Open(ctx, resp.Artifacts[1].Key)
	require.NoError(t, err)
	var pkg models.SEOPackage
	require.NoError(t, json.NewDecoder(rc).Decode(&pkg))
	require.NoError(t, rc.Close())
	require.Equal(t, "best-coffee-in-town", pkg.Slug)

	require.Equal(t, "models/m", gen.last().Model)
}

// без include_schema jsonLd отбрасывается, даже если модель его прислала
func TestSEO_Optimize_DropsSchema(t *testing.T) {
	gen := &fakeGen{replies: []string{seoReply}}
	svc := service.NewSEOService(gen, nil, nil, "m", clockwork.NewFakeClock())

	resp, err := svc.Optimize(context.Background(), 1, models.SEORequest{Text: "coffee"})
	require.NoError(t, err)
	require.Nil(t, resp.Package.JSONLD)
	// Discard ничего не сохраняет
	require.Empty(t, resp.Artifacts)
}

// неразобранный ответ возвращается сырым
func TestSEO_Optimize_Unparseable(t *testing.T) {
	for _, reply := range []string{"Sorry, I can't help with that.", `{"title": "", "body": ""}`, "   "} {
		gen := &fakeGen{replies: []string{reply}}
		svc := service.NewSEOService(gen, nil, nil, "m", clockwork.NewFakeClock())

		_, err := svc.Optimize(context.Background(), 1, models.SEORequest{Text: "coffee"})
		require.ErrorIs(t, err, serr.ErrParse)

		var pe *salvage.ParseError
		require.True(t, errors.As(err, &pe))
		if reply != "   " {
			require.Equal(t, reply, pe.Raw)
		}
	}
}

func TestSEO_Optimize_InvalidSkipsModel(t *testing.T) {
	gen := &fakeGen{}
	svc := service.NewSEOService(gen, nil, nil, "m", clockwork.NewFakeClock())

	_, err := svc.Optimize(context.Background(), 1, models.SEORequest{Text: "x", Length: 123})
	require.ErrorIs(t, err, serr.ErrInvalidInput)
	require.Zero(t, gen.count())
}
