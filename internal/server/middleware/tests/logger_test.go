package tests

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/IvanChernomyrdin/gophassist/internal/server/middleware"
	"github.com/IvanChernomyrdin/gophassist/internal/shared/logger"
)

// Статус по умолчанию и размер
func TestResponseWriter_Write_DefaultStatus(t *testing.T) {
	rr := httptest.NewRecorder()
	w := &middleware.ResponseWriter{ResponseWriter: rr}

	body := []byte("hello")
	n, err := w.Write(body)

	require.NoError(t, err)
	require.Equal(t, len(body), n)
	require.Equal(t, http.StatusOK, w.Status)
	require.Equal(t, len(body), w.Size)
}

// recorder не умеет hijack — ошибка, а не паника
func TestResponseWriter_HijackUnsupported(t *testing.T) {
	w := &middleware.ResponseWriter{ResponseWriter: httptest.NewRecorder()}
	_, _, err := w.Hijack()
	require.Error(t, err)
}

// вспомогательная функция
func testHandler(status int, body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	})
}

// проверка корректного прохода статуса и тела через мидлу
func TestLoggerMiddleware(t *testing.T) {
	mw := middleware.LoggerMiddleware(logger.NewNop())

	handler := mw(testHandler(http.StatusTeapot, "tea"))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusTeapot, rr.Code)
	require.Equal(t, "tea", rr.Body.String())
}

// запрос попадает в файл лога
func TestLoggerMiddleware_WritesFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "http.log")
	log := logger.New(logger.Options{File: file})

	handler := middleware.LoggerMiddleware(log)(testHandler(http.StatusCreated, "ok"))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/auth/register", nil))
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	require.Contains(t, string(data), "/auth/register")
	require.Contains(t, string(data), "201")
}

func TestCORS_Preflight(t *testing.T) {
	handler := middleware.CORS([]string{"https://app.example.com"})(testHandler(http.StatusOK, "ok"))

	req := httptest.NewRequest(http.MethodOptions, "/chat/messages", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	require.Equal(t, "https://app.example.com", rr.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORS_UnknownOrigin(t *testing.T) {
	handler := middleware.CORS([]string{"https://app.example.com"})(testHandler(http.StatusOK, "ok"))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	require.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "ok", rr.Body.String())
}
