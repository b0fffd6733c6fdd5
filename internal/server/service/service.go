// Package service содержит бизнес-логику приложения (gophassist).
// Это прослойка между HTTP-обработчиками (api) и хранилищами/внешними API
// (repository, genai, artifacts, document).
package service

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/IvanChernomyrdin/gophassist/internal/server/artifacts"
	"github.com/IvanChernomyrdin/gophassist/internal/server/config"
	"github.com/IvanChernomyrdin/gophassist/internal/server/document"
	"github.com/IvanChernomyrdin/gophassist/internal/server/genai"
	"github.com/IvanChernomyrdin/gophassist/internal/server/models"
	"github.com/IvanChernomyrdin/gophassist/internal/server/pacing"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

// Repositories — набор интерфейсов, которые сервисный слой ожидает от слоя repository.
type Repositories struct {
	Users    UsersRepo
	Sessions SessionsRepo
}

// Deps — внешние зависимости сервисов, не относящиеся к БД.
type Deps struct {
	// Generator — клиент модели, обычно genai.Retrying поверх genai.Client.
	Generator genai.Generator
	Lister    ModelLister
	Pacer     pacing.Pacer
	Artifacts artifacts.Store
	Extractor document.Extractor
	// Model — модель, выбранная при старте (genai.Client.SelectModel).
	Model string
	// Knowledge — содержимое chat.knowledge_file.
	Knowledge string
	Clock     clockwork.Clock
}

// Services — агрегатор всех сервисов приложения.
type Services struct {
	Auth      *AuthService
	Chat      *ChatService
	SEO       *SEOService
	Email     *EmailService
	Documents *DocumentService
	Artifacts artifacts.Store
}

// NewServices собирает все сервисы приложения.
// Logout пользователя заодно сбрасывает его чат-сессию и окно pacing'а.
func NewServices(repos Repositories, deps Deps, cfg *config.Config) *Services {
	if deps.Pacer == nil {
		deps.Pacer = pacing.Noop{}
	}
	if deps.Artifacts == nil {
		deps.Artifacts = artifacts.Discard{}
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}

	store := NewSessionStore(cfg.Chat.SessionTTL, deps.Clock)
	chat := NewChatService(deps.Generator, deps.Lister, deps.Pacer, store, ChatOptions{
		Model:          deps.Model,
		Knowledge:      deps.Knowledge,
		MaxHistory:     cfg.Chat.MaxHistory,
		MaxPromptBytes: cfg.Chat.MaxPromptBytes,
	})

	auth := NewAuthService(repos.Users, repos.Sessions, cfg)
	auth.OnLogout(func(_ context.Context, userID int64) { chat.Drop(userID) })
	pacer := deps.Pacer
	auth.OnLogout(func(ctx context.Context, userID int64) {
		// ошибку не возвращаем: ключ в любом случае истечёт через интервал
		_ = pacer.Forget(ctx, ownerKey(userID))
	})

	return &Services{
		Auth:      auth,
		Chat:      chat,
		SEO:       NewSEOService(deps.Generator, deps.Pacer, deps.Artifacts, deps.Model, deps.Clock),
		Email:     NewEmailService(deps.Generator, deps.Pacer, deps.Model),
		Documents: NewDocumentService(deps.Extractor, deps.Artifacts, cfg.Documents.MaxBytes, deps.Clock),
		Artifacts: deps.Artifacts,
	}
}

// UsersRepo — репозиторий пользователей (нужен для auth/register/login).
type UsersRepo interface {
	Exists(ctx context.Context, username string) (bool, error)
	Create(ctx context.Context, username, passwordHash string) (models.User, error)
	GetByUsername(ctx context.Context, username string) (models.User, error)
	GetByID(ctx context.Context, id int64) (models.User, error)
}

// SessionsRepo — репозиторий refresh-сессий.
type SessionsRepo interface {
	Create(ctx context.Context, s models.Session) (uuid.UUID, error)
	GetByRefreshHash(ctx context.Context, refreshHash []byte) (models.Session, error)
	RevokeAndReplace(ctx context.Context, oldID, newID uuid.UUID) error
	RevokeAllForUser(ctx context.Context, userID int64) error
}

// ModelLister — список моделей, доступных по ключу.
type ModelLister interface {
	ListModels(ctx context.Context) ([]genai.Model, error)
}

// ownerKey — id пользователя строкой: ключ для pacer'а и владелец артефактов.
func ownerKey(userID int64) string {
	return strconv.FormatInt(userID, 10)
}
