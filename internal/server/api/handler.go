// Package api реализует HTTP-слой сервера GophAssist.
//
// Пакет отвечает за:
//   - обработку входящих запросов и формирование ответов (JSON, статусы);
//   - маппинг доменных ошибок (service/repository/genai) в HTTP-коды и сообщения;
//   - websocket-стриминг ответов чата.
//
// Маршруты регистрируются в internal/server/net/http.
package api

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"slices"
	"strconv"

	"github.com/gorilla/websocket"

	"github.com/IvanChernomyrdin/gophassist/internal/server/genai"
	"github.com/IvanChernomyrdin/gophassist/internal/server/middleware"
	"github.com/IvanChernomyrdin/gophassist/internal/server/pacing"
	"github.com/IvanChernomyrdin/gophassist/internal/server/service"
	serr "github.com/IvanChernomyrdin/gophassist/internal/shared/errors"
	"github.com/IvanChernomyrdin/gophassist/internal/shared/logger"
	"github.com/IvanChernomyrdin/gophassist/internal/shared/models"
	"github.com/IvanChernomyrdin/gophassist/internal/shared/salvage"
)

// Каждый метод если будет возвращать ответ то будет это делать в JSON
// Вынес Content-Type и JSON для удобства
const (
	JsonContentType string = "application/json"
	ContentType     string = "Content-Type"
)

// Retry-After для квоты, если Gemini его не прислал
const defaultQuotaRetry = 60

// лимит JSON-тела по умолчанию
const defaultMaxBody = 1 << 20

// Handler агрегирует зависимости HTTP-слоя и предоставляет методы-хендлеры.
//
// Handler содержит:
//   - Svc: сервисный слой (бизнес-логика);
//   - Log: логгер для записи событий и ошибок;
//   - Verifier: компонент проверки JWT и middleware авторизации.
//
// Методы Handler используются роутером для обработки HTTP-запросов.
type Handler struct {
	Svc      *service.Services
	Log      *logger.HTTPLogger
	Verifier *middleware.JWTVerifier

	// MaxBodyBytes — лимит JSON-тела (server.max_body_bytes).
	MaxBodyBytes int64
	// Origins — разрешённые Origin для websocket, пусто — любые.
	Origins []string

	upgrader websocket.Upgrader
}

// NewHandler создаёт экземпляр Handler с переданными зависимостями.
//
// svc — набор сервисов приложения,
// log — логгер,
// verifier — JWT-проверка и middleware авторизации.
func NewHandler(svc *service.Services, log *logger.HTTPLogger, verifier *middleware.JWTVerifier) *Handler {
	if log == nil {
		log = logger.NewNop()
	}
	h := &Handler{
		Svc:          svc,
		Log:          log,
		Verifier:     verifier,
		MaxBodyBytes: defaultMaxBody,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// checkOrigin пропускает клиентов без Origin (CLI) и origin из списка.
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.Origins) == 0 {
		return true
	}
	return slices.Contains(h.Origins, origin)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set(ContentType, JsonContentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Вспомогательная функция вывода ошибки
func WriteError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, models.ErrorResponse{Error: err.Error()})
}

// decodeJSON читает тело запроса с ограничением размера.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	limit := h.MaxBodyBytes
	if limit <= 0 {
		limit = defaultMaxBody
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return serr.ErrPayloadTooLarge
		}
		return serr.ErrBadJSON
	}
	return nil
}

// userID достаёт пользователя из контекста. Без него пишет 401 и возвращает false.
func userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, serr.ErrUnauthorized)
	}
	return id, ok
}

// errorStatus сопоставляет ошибку с HTTP-статусом.
// Для 429/503 возвращает ещё и Retry-After в секундах.
func errorStatus(err error) (status, retryAfter int) {
	var (
		tooSoon *pacing.TooSoonError
		quota   *genai.QuotaError
	)
	switch {
	case errors.As(err, &tooSoon):
		return http.StatusTooManyRequests, tooSoon.RetryAfterSeconds()
	case errors.Is(err, serr.ErrTooSoon):
		return http.StatusTooManyRequests, 1
	case errors.As(err, &quota):
		if quota.RetryAfter > 0 {
			return http.StatusServiceUnavailable, int(math.Ceil(quota.RetryAfter.Seconds()))
		}
		return http.StatusServiceUnavailable, defaultQuotaRetry
	case errors.Is(err, serr.ErrQuotaExceeded):
		return http.StatusServiceUnavailable, defaultQuotaRetry
	case errors.Is(err, serr.ErrInvalidInput), errors.Is(err, serr.ErrBadJSON):
		return http.StatusBadRequest, 0
	case errors.Is(err, serr.ErrInvalidCredentials), errors.Is(err, serr.ErrUnauthorized):
		return http.StatusUnauthorized, 0
	case errors.Is(err, serr.ErrNotFound):
		return http.StatusNotFound, 0
	case errors.Is(err, serr.ErrAlreadyExists), errors.Is(err, serr.ErrConflict):
		return http.StatusConflict, 0
	case errors.Is(err, serr.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge, 0
	case errors.Is(err, serr.ErrParse):
		return http.StatusUnprocessableEntity, 0
	}

	var apiErr *genai.APIError
	if errors.As(err, &apiErr) {
		return http.StatusBadGateway, 0
	}
	return http.StatusInternalServerError, 0
}

// publicError — текст ошибки, который можно отдать клиенту.
func publicError(status int, err error) string {
	switch status {
	case http.StatusInternalServerError:
		return serr.ErrInternal.Error()
	case http.StatusBadGateway:
		return "model api error"
	case http.StatusUnauthorized:
		if errors.Is(err, serr.ErrInvalidCredentials) {
			return serr.ErrInvalidCredentials.Error()
		}
		return serr.ErrUnauthorized.Error()
	case http.StatusServiceUnavailable:
		return serr.ErrQuotaExceeded.Error()
	}
	return err.Error()
}

// fail пишет ошибку в общем формате. Внутренние ошибки логируются, клиенту
// уходит только ErrInternal. Для ParseError в ответ кладётся сырой ответ модели.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, retryAfter := errorStatus(err)

	resp := models.ErrorResponse{Error: publicError(status, err), RetryAfter: retryAfter}

	var pe *salvage.ParseError
	if errors.As(err, &pe) {
		resp.Raw = pe.Raw
	}

	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		fields := []any{"error", err, "method", r.Method, "path", r.URL.Path}
		if id, ok := middleware.UserIDFromContext(r.Context()); ok {
			fields = append(fields, "user_id", id)
		}
		h.Log.Sugar().Errorw(op+" failed", fields...)
	}

	if retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	}
	writeJSON(w, status, resp)
}
