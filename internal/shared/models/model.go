// Package models содержит модели HTTP API, общие для сервера и CLI-агента.
//
// Сервер отдаёт эти структуры в JSON, агент декодирует их обратно,
// поэтому контракт описан в одном месте.
package models

import "time"

// RegisterRequest — тело запроса регистрации.
//
// Используется в:
//
//	POST /auth/register
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterResponse — ответ успешной регистрации.
type RegisterResponse struct {
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// LoginRequest — тело запроса входа.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse — пара токенов (login и refresh).
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// RefreshRequest — тело запроса обновления токенов.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ExistsResponse — ответ GET /auth/exists.
type ExistsResponse struct {
	Exists bool `json:"exists"`
}

// MeResponse — информация о текущем пользователе.
type MeResponse struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

// ErrorResponse — стандартный формат ошибки API.
//
// Raw заполняется, когда не удалось разобрать ответ модели:
// клиент показывает сырой текст пользователю.
type ErrorResponse struct {
	Error      string `json:"error"`
	Raw        string `json:"raw,omitempty"`
	RetryAfter int    `json:"retry_after,omitempty"` // секунды
}

// ChatMessage — одна реплика в истории чата.
type ChatMessage struct {
	Role string `json:"role"` // user|assistant
	Text string `json:"text"`
}

// ChatRequest — сообщение пользователя.
type ChatRequest struct {
	Prompt string `json:"prompt"`
}

// ChatResponse — полный ответ модели (без стриминга).
type ChatResponse struct {
	Reply string `json:"reply"`
	Model string `json:"model"`
}

// ChatHistoryResponse — история текущей чат-сессии.
type ChatHistoryResponse struct {
	Model        string        `json:"model"`
	HasKnowledge bool          `json:"has_knowledge"`
	Messages     []ChatMessage `json:"messages"`
	// LastCall — время последнего обращения к модели, нет до первого сообщения.
	LastCall *time.Time `json:"last_call,omitempty"`
}

// ModelsResponse — доступные модели и та, что используется.
type ModelsResponse struct {
	Available []string `json:"available"`
	InUse     string   `json:"in_use"`
}

// KnowledgeResponse — ответ на загрузку базы знаний.
type KnowledgeResponse struct {
	Chars int `json:"chars"`
}

// Типы кадров в websocket-чате.
const (
	FrameChunk = "chunk"
	FrameDone  = "done"
	FrameError = "error"
)

// ChatFrame — кадр, который сервер шлёт в websocket во время стриминга.
type ChatFrame struct {
	Type  string `json:"type"`
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

// SEORequest — параметры SEO-оптимизации текста.
type SEORequest struct {
	Language      string `json:"language"` // pt-BR|en-US|es-ES
	Goal          string `json:"goal"`     // blog_post|landing_page|product_page|ad
	Tone          string `json:"tone"`     // neutral|trustworthy|didactic|persuasive
	Keywords      string `json:"keywords"` // через запятую
	Length        int    `json:"length"`   // слов, 300..2000 шаг 100
	IncludeSchema bool   `json:"include_schema"`
	Text          string `json:"text"`
}

// FAQ — вопрос/ответ в SEO-пакете.
type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// SEOPackage — структурированный результат, который модель должна вернуть в JSON.
type SEOPackage struct {
	Title           string         `json:"title"`
	MetaDescription string         `json:"metaDescription"`
	Slug            string         `json:"slug"`
	H1              string         `json:"h1"`
	H2              []string       `json:"h2"`
	Body            string         `json:"body"`
	Keywords        []string       `json:"keywords"`
	FAQs            []FAQ          `json:"faqs"`
	JSONLD          map[string]any `json:"jsonLd,omitempty"`
}

// SEOResponse — SEO-пакет и сохранённые файлы для скачивания.
type SEOResponse struct {
	Package   SEOPackage `json:"package"`
	Artifacts []Artifact `json:"artifacts,omitempty"`
}

// EmailRequest — параметры черновика письма.
type EmailRequest struct {
	Purpose   string   `json:"purpose"`
	Recipient string   `json:"recipient"`
	Tone      string   `json:"tone"`
	Language  string   `json:"language"`
	Points    []string `json:"points"`
}

// EmailDraft — черновик письма от модели.
type EmailDraft struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// DocumentResponse — результат извлечения текста из PDF.
//
// Empty=true — в документе нет текстового слоя (например скан), это не ошибка.
type DocumentResponse struct {
	Pages    int       `json:"pages"`
	Text     string    `json:"text"`
	Empty    bool      `json:"empty"`
	Warning  string    `json:"warning,omitempty"`
	Artifact *Artifact `json:"artifact,omitempty"`
}

// Artifact — сохранённый файл для скачивания.
type Artifact struct {
	Name        string `json:"name"`
	Key         string `json:"key"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
	URL         string `json:"url,omitempty"`
}
