package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/IvanChernomyrdin/gophassist/internal/server/genai"
	"github.com/IvanChernomyrdin/gophassist/internal/server/pacing"
	serr "github.com/IvanChernomyrdin/gophassist/internal/shared/errors"
)

// knowledgeInstruction — системная инструкция, когда у чата есть база знаний.
const knowledgeInstruction = "You are an assistant. Use the text below as a base when relevant. " +
	"If the question is not answered by the material, say you did not find it.\n\n"

// ChatSession — явный контекст чата одного пользователя.
// Живёт до истечения ExpiresAt (продлевается при каждом обращении) или до logout.
type ChatSession struct {
	UserID    int64
	Model     string
	Knowledge string // загруженный пользователем текст
	History   []genai.Content
	LastCall  time.Time
	ExpiresAt time.Time
}

// SessionStore — чат-сессии в памяти процесса.
type SessionStore struct {
	ttl   time.Duration
	clock clockwork.Clock

	mu       sync.Mutex
	sessions map[int64]*ChatSession
}

func NewSessionStore(ttl time.Duration, clock clockwork.Clock) *SessionStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &SessionStore{ttl: ttl, clock: clock, sessions: make(map[int64]*ChatSession)}
}

// touch возвращает живую сессию пользователя, создавая новую при необходимости,
// и продлевает её. Вызывать под s.mu.
func (s *SessionStore) touch(userID int64, model string) *ChatSession {
	now := s.clock.Now()
	sess, ok := s.sessions[userID]
	if !ok || !now.Before(sess.ExpiresAt) {
		sess = &ChatSession{UserID: userID, Model: model}
		s.sessions[userID] = sess
	}
	sess.ExpiresAt = now.Add(s.ttl)
	return sess
}

// Update выполняет fn над сессией пользователя под блокировкой.
func (s *SessionStore) Update(userID int64, model string, fn func(sess *ChatSession)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.touch(userID, model))
}

// Snapshot — копия сессии. false, если сессии нет или она истекла.
func (s *SessionStore) Snapshot(userID int64) (ChatSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok || !s.clock.Now().Before(sess.ExpiresAt) {
		return ChatSession{}, false
	}
	cp := *sess
	cp.History = append([]genai.Content(nil), sess.History...)
	return cp, true
}

// Drop удаляет сессию пользователя.
func (s *SessionStore) Drop(userID int64) {
	s.mu.Lock()
	delete(s.sessions, userID)
	s.mu.Unlock()
}

// Sweep удаляет истёкшие сессии и возвращает их число.
func (s *SessionStore) Sweep() int {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, sess := range s.sessions {
		if !now.Before(sess.ExpiresAt) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// Len — число сессий, включая ещё не вычищенные истёкшие.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// ChatOptions — настройки ChatService.
type ChatOptions struct {
	Model          string
	Knowledge      string // фиксированная база знаний из файла
	MaxHistory     int
	MaxPromptBytes int
}

// ChatService — диалог с моделью поверх явных чат-сессий.
type ChatService struct {
	gen    genai.Generator
	lister ModelLister
	pacer  pacing.Pacer
	store  *SessionStore
	opts   ChatOptions
}

func NewChatService(gen genai.Generator, lister ModelLister, pacer pacing.Pacer, store *SessionStore, opts ChatOptions) *ChatService {
	if pacer == nil {
		pacer = pacing.Noop{}
	}
	if store == nil {
		store = NewSessionStore(0, nil)
	}
	return &ChatService{gen: gen, lister: lister, pacer: pacer, store: store, opts: opts}
}

// LoadKnowledge читает файл базы знаний. Отсутствие файла — не ошибка.
func LoadKnowledge(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read knowledge file: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

// Model — модель, которой отвечает чат.
func (c *ChatService) Model() string { return c.opts.Model }

// systemFor собирает системную инструкцию из общей и загруженной базы.
func (c *ChatService) systemFor(sess ChatSession) string {
	var parts []string
	if kb := strings.TrimSpace(c.opts.Knowledge); kb != "" {
		parts = append(parts, kb)
	}
	if kb := strings.TrimSpace(sess.Knowledge); kb != "" {
		parts = append(parts, kb)
	}
	if len(parts) == 0 {
		return ""
	}
	return knowledgeInstruction + strings.Join(parts, "\n\n")
}

func (c *ChatService) checkPrompt(prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", serr.ErrInvalidInput
	}
	if c.opts.MaxPromptBytes > 0 && len(prompt) > c.opts.MaxPromptBytes {
		return "", serr.ErrPayloadTooLarge
	}
	return prompt, nil
}

// prepare проверяет промпт и pacing, отмечает время вызова и собирает запрос.
func (c *ChatService) prepare(ctx context.Context, userID int64, prompt string) (genai.Request, error) {
	prompt, err := c.checkPrompt(prompt)
	if err != nil {
		return genai.Request{}, err
	}
	if err := c.pacer.Allow(ctx, ownerKey(userID)); err != nil {
		return genai.Request{}, err
	}

	var req genai.Request
	c.store.Update(userID, c.opts.Model, func(sess *ChatSession) {
		sess.LastCall = c.store.clock.Now()
		req = genai.Request{
			Model:    sess.Model,
			System:   c.systemFor(*sess),
			Contents: append(append([]genai.Content(nil), sess.History...), genai.UserText(prompt)),
		}
	})
	return req, nil
}

// commit дописывает удачный обмен репликами в историю.
func (c *ChatService) commit(userID int64, prompt, reply string) {
	c.store.Update(userID, c.opts.Model, func(sess *ChatSession) {
		sess.History = append(sess.History, genai.UserText(strings.TrimSpace(prompt)), genai.ModelText(reply))
		sess.History = trimHistory(sess.History, c.opts.MaxHistory)
	})
}

// trimHistory оставляет последние max реплик, начиная с реплики пользователя.
func trimHistory(h []genai.Content, max int) []genai.Content {
	if max <= 0 || len(h) <= max {
		return h
	}
	h = h[len(h)-max:]
	for len(h) > 0 && h[0].Role != genai.RoleUser {
		h = h[1:]
	}
	return append([]genai.Content(nil), h...)
}

// Send отправляет сообщение и возвращает ответ модели целиком.
// История меняется только при успешном ответе.
func (c *ChatService) Send(ctx context.Context, userID int64, prompt string) (string, error) {
	req, err := c.prepare(ctx, userID, prompt)
	if err != nil {
		return "", err
	}
	reply, err := c.gen.Generate(ctx, req)
	if err != nil {
		return "", err
	}
	c.commit(userID, prompt, reply)
	return reply, nil
}

// Stream работает как Send, но отдаёт ответ фрагментами через onChunk.
func (c *ChatService) Stream(ctx context.Context, userID int64, prompt string, onChunk func(chunk string) error) (string, error) {
	req, err := c.prepare(ctx, userID, prompt)
	if err != nil {
		return "", err
	}
	reply, err := c.gen.Stream(ctx, req, onChunk)
	if err != nil {
		return "", err
	}
	c.commit(userID, prompt, reply)
	return reply, nil
}

// History — копия текущей сессии. Если сессии нет, возвращается пустая
// с моделью по умолчанию.
func (c *ChatService) History(userID int64) ChatSession {
	if sess, ok := c.store.Snapshot(userID); ok {
		return sess
	}
	return ChatSession{UserID: userID, Model: c.opts.Model}
}

// HasKnowledge — есть ли у сессии хоть какая-то база знаний.
func (c *ChatService) HasKnowledge(sess ChatSession) bool {
	return c.systemFor(sess) != ""
}

// Reset очищает историю, загруженная база знаний сохраняется.
func (c *ChatService) Reset(userID int64) {
	c.store.Update(userID, c.opts.Model, func(sess *ChatSession) {
		sess.History = nil
	})
}

// SetKnowledge заменяет загруженную базу знаний и начинает чат заново,
// чтобы новая инструкция применялась с первой реплики. Возвращает длину в символах.
func (c *ChatService) SetKnowledge(userID int64, text string) int {
	text = strings.TrimSpace(text)
	c.store.Update(userID, c.opts.Model, func(sess *ChatSession) {
		sess.Knowledge = text
		sess.History = nil
	})
	return len([]rune(text))
}

// Drop удаляет сессию (logout).
func (c *ChatService) Drop(userID int64) {
	c.store.Drop(userID)
}

// Sweep вычищает истёкшие сессии.
func (c *ChatService) Sweep() int {
	return c.store.Sweep()
}

// Models возвращает доступные по ключу модели и ту, что используется.
func (c *ChatService) Models(ctx context.Context) ([]string, string, error) {
	if c.lister == nil {
		return nil, c.opts.Model, nil
	}
	models, err := c.lister.ListModels(ctx)
	if err != nil {
		return nil, c.opts.Model, err
	}
	return genai.Names(models), c.opts.Model, nil
}
