// Package http реализует маршрутизацию HTTP-слоя сервера GophAssist.
//
// Пакет отвечает за:
//   - регистрацию HTTP-маршрутов и настройку роутера (chi);
//   - логирование выполнения HTTP-запросов;
//   - CORS для браузерных клиентов;
//   - выполняет проверку JWT access-токенов;
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/IvanChernomyrdin/gophassist/internal/server/api"
	"github.com/IvanChernomyrdin/gophassist/internal/server/config"
	"github.com/IvanChernomyrdin/gophassist/internal/server/middleware"
)

// NewRouter создаёт и настраивает HTTP-роутер сервера.
//
// Роутер использует chi.Router и регистрирует:
//   - middleware логирования для всех запросов и CORS (если включён);
//   - публичные эндпоинты аутентификации под префиксом /auth;
//   - группу защищённых JWT эндпоинтов: чат, инструменты, артефакты.
func NewRouter(h *api.Handler, corsCfg config.CORSConfig) http.Handler {
	r := chi.NewRouter()
	// логирование всех запросов
	r.Use(middleware.LoggerMiddleware(h.Log))
	if corsCfg.Enabled {
		r.Use(middleware.CORS(corsCfg.AllowedOrigins))
	}

	// добавляем swagger
	r.Get("/swagger/*", httpSwagger.WrapHandler)
	// Публичные пути
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/refresh", h.Refresh)
		r.Get("/exists", h.Exists)
	})
	// защищены пути
	r.Group(func(r chi.Router) {
		// проверка access токена
		r.Use(h.Verifier.AuthMiddleware())

		r.Post("/auth/logout", h.Logout)
		r.Get("/me", h.Me)

		r.Route("/chat", func(r chi.Router) {
			r.Get("/models", h.Models)
			r.Get("/history", h.History)
			r.Delete("/history", h.ResetHistory)
			r.Put("/knowledge", h.SetKnowledge)
			r.Post("/messages", h.SendMessage)
			r.Get("/ws", h.ChatStream) // стриминг ответа
		})

		r.Post("/seo/optimize", h.OptimizeSEO)
		r.Post("/email/draft", h.DraftEmail)
		r.Post("/documents/extract", h.ExtractDocument)
		r.Get("/artifacts/{name}", h.DownloadArtifact)
	})

	return r
}
