// Package memory хранит локальную копию переписки с чатом.
//
// Сервер держит историю только в памяти и теряет её после истечения сессии
// или рестарта, поэтому агент сохраняет реплики у себя (~/.gophassist/history.json).
package memory

import (
	"sync"
	"time"

	"github.com/IvanChernomyrdin/gophassist/internal/shared/models"
)

// Entry — одна реплика переписки.
type Entry struct {
	Role string    `json:"role"` // user|assistant
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// History — потокобезопасное хранилище реплик.
//
// Limit ограничивает число реплик: при переполнении выбрасываются самые старые.
// 0 — без ограничения.
type History struct {
	mu      sync.RWMutex
	entries []Entry
	limit   int
	now     func() time.Time
}

// NewHistory создаёт пустую историю.
func NewHistory(limit int) *History {
	return &History{limit: limit, now: time.Now}
}

// Append добавляет обмен репликами: вопрос пользователя и ответ модели.
func (h *History) Append(prompt, reply string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	h.entries = append(h.entries,
		Entry{Role: "user", Text: prompt, At: now},
		Entry{Role: "assistant", Text: reply, At: now},
	)
	if h.limit > 0 && len(h.entries) > h.limit {
		h.entries = append([]Entry(nil), h.entries[len(h.entries)-h.limit:]...)
	}
}

// List возвращает копию реплик в порядке добавления.
func (h *History) List() []Entry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return append([]Entry(nil), h.entries...)
}

// Len — число реплик.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// Reset очищает историю.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = nil
}

// ReplaceFromServer заменяет локальную историю той, что вернул сервер.
// Время реплик сервер не отдаёт, ставим текущее.
func (h *History) ReplaceFromServer(msgs []models.ChatMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	h.entries = make([]Entry, 0, len(msgs))
	for _, m := range msgs {
		h.entries = append(h.entries, Entry{Role: m.Role, Text: m.Text, At: now})
	}
}
