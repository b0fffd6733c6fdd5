package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/IvanChernomyrdin/gophassist/internal/server/api"
	"github.com/IvanChernomyrdin/gophassist/internal/server/artifacts"
	"github.com/IvanChernomyrdin/gophassist/internal/server/genai"
	"github.com/IvanChernomyrdin/gophassist/internal/server/middleware"
	"github.com/IvanChernomyrdin/gophassist/internal/server/pacing"
	"github.com/IvanChernomyrdin/gophassist/internal/server/service"
	serr "github.com/IvanChernomyrdin/gophassist/internal/shared/errors"
	"github.com/IvanChernomyrdin/gophassist/internal/shared/logger"
	shared "github.com/IvanChernomyrdin/gophassist/internal/shared/models"
)

type stubGen struct {
	reply string
	err   error
}

func (g stubGen) Generate(context.Context, genai.Request) (string, error) { return g.reply, g.err }

func (g stubGen) Stream(_ context.Context, _ genai.Request, onChunk func(string) error) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return g.reply, onChunk(g.reply)
}

func toolsHandler(t *testing.T, gen genai.Generator, pacer pacing.Pacer) *api.Handler {
	t.Helper()

	store, err := artifacts.NewLocal(t.TempDir(), "/artifacts")
	require.NoError(t, err)

	svc := service.NewServices(service.Repositories{}, service.Deps{
		Generator: gen,
		Pacer:     pacer,
		Artifacts: store,
		Model:     "models/test",
		Clock:     clockwork.NewFakeClockAt(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)),
	}, testConfig())

	return api.NewHandler(svc, logger.NewNop(), nil)
}

func asUser(r *http.Request, id int64) *http.Request {
	return r.WithContext(middleware.WithUser(r.Context(), id, "user"))
}

func TestHandler_OptimizeSEO(t *testing.T) {
	reply := `{"title":"T","metaDescription":"D","slug":"t","h1":"H","h2":["a"],"body":"B","keywords":["k"],"faqs":[]}`
	h := toolsHandler(t, stubGen{reply: reply}, nil)

	req := asUser(httptest.NewRequest(http.MethodPost, "/seo/optimize", jsonBody(t, shared.SEORequest{Text: "text", Language: "en-US"})), 4)
	rec := httptest.NewRecorder()
	h.OptimizeSEO(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp shared.SEOResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, "T", resp.Package.Title)
	require.Len(t, resp.Artifacts, 2)

	// тело статьи доступно для скачивания владельцу
	dl := asUser(httptest.NewRequest(http.MethodGet, resp.Artifacts[0].URL, nil), 4)
	rctx := chiContext(dl, "name", resp.Artifacts[0].Name)
	rec = httptest.NewRecorder()
	h.DownloadArtifact(rec, rctx)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "B", rec.Body.String())
	require.Equal(t, "text/markdown; charset=utf-8", rec.Header().Get("Content-Type"))
}

func TestHandler_OptimizeSEO_InvalidLength(t *testing.T) {
	h := toolsHandler(t, stubGen{}, nil)

	req := asUser(httptest.NewRequest(http.MethodPost, "/seo/optimize", jsonBody(t, shared.SEORequest{Text: "text", Length: 150})), 4)
	rec := httptest.NewRecorder()
	h.OptimizeSEO(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_DraftEmail_TooSoon(t *testing.T) {
	clock := clockwork.NewFakeClock()
	h := toolsHandler(t, stubGen{reply: `{"subject":"S","body":"B"}`}, pacing.NewMemory(10*time.Second, clock))

	send := func() *httptest.ResponseRecorder {
		req := asUser(httptest.NewRequest(http.MethodPost, "/email/draft", jsonBody(t, shared.EmailRequest{Purpose: "hi"})), 4)
		rec := httptest.NewRecorder()
		h.DraftEmail(rec, req)
		return rec
	}

	rec := send()
	require.Equal(t, http.StatusOK, rec.Code)

	clock.Advance(2500 * time.Millisecond)
	rec = send()
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "8", rec.Header().Get("Retry-After"))
}

// ошибка API модели — 502 без подробностей
func TestHandler_DraftEmail_ModelAPIError(t *testing.T) {
	h := toolsHandler(t, stubGen{err: &genai.APIError{Status: 400, Code: "INVALID_ARGUMENT", Message: "bad key AIza..."}}, nil)

	req := asUser(httptest.NewRequest(http.MethodPost, "/email/draft", jsonBody(t, shared.EmailRequest{Purpose: "hi"})), 4)
	rec := httptest.NewRecorder()
	h.DraftEmail(rec, req)

	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.NotContains(t, rec.Body.String(), "AIza")
}

func TestHandler_ExtractDocument_TooLarge(t *testing.T) {
	h := toolsHandler(t, stubGen{}, nil)

	big := bytes.Repeat([]byte("a"), (1<<20)+1)
	req := asUser(httptest.NewRequest(http.MethodPost, "/documents/extract", bytes.NewReader(big)), 4)
	req.Header.Set("Content-Type", "application/pdf")
	rec := httptest.NewRecorder()
	h.ExtractDocument(rec, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestHandler_ExtractDocument_NotPDF(t *testing.T) {
	h := toolsHandler(t, stubGen{}, nil)

	req := asUser(httptest.NewRequest(http.MethodPost, "/documents/extract", strings.NewReader("hello")), 4)
	req.Header.Set("Content-Type", "application/pdf")
	rec := httptest.NewRecorder()
	h.ExtractDocument(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_SetKnowledge(t *testing.T) {
	h := toolsHandler(t, stubGen{reply: "ok"}, nil)

	req := asUser(httptest.NewRequest(http.MethodPut, "/chat/knowledge", strings.NewReader("наш офис открыт с 9")), 4)
	rec := httptest.NewRecorder()
	h.SetKnowledge(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp shared.KnowledgeResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, len([]rune("наш офис открыт с 9")), resp.Chars)

	req = asUser(httptest.NewRequest(http.MethodGet, "/chat/history", nil), 4)
	rec = httptest.NewRecorder()
	h.History(rec, req)

	var hist shared.ChatHistoryResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&hist))
	require.True(t, hist.HasKnowledge)
	require.Equal(t, "models/test", hist.Model)
	// к модели ещё не обращались
	require.Nil(t, hist.LastCall)
}

func TestHandler_SendMessage_Quota(t *testing.T) {
	h := toolsHandler(t, stubGen{err: serr.ErrQuotaExceeded}, nil)

	req := asUser(httptest.NewRequest(http.MethodPost, "/chat/messages", jsonBody(t, shared.ChatRequest{Prompt: "hi"})), 4)
	rec := httptest.NewRecorder()
	h.SendMessage(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestHandler_Models_NoLister(t *testing.T) {
	h := toolsHandler(t, stubGen{}, nil)

	rec := httptest.NewRecorder()
	h.Models(rec, asUser(httptest.NewRequest(http.MethodGet, "/chat/models", nil), 4))

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"available":[],"in_use":"models/test"}`, rec.Body.String())
}
