// HTTP-хендлеры чата
package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/IvanChernomyrdin/gophassist/internal/server/genai"
	serr "github.com/IvanChernomyrdin/gophassist/internal/shared/errors"
	"github.com/IvanChernomyrdin/gophassist/internal/shared/models"
)

// роли в ответах API
const (
	roleUser      = "user"
	roleAssistant = "assistant"
)

// toMessages переводит историю в формат API.
func toMessages(history []genai.Content) []models.ChatMessage {
	out := make([]models.ChatMessage, 0, len(history))
	for _, c := range history {
		role := roleUser
		if c.Role == genai.RoleModel {
			role = roleAssistant
		}
		out = append(out, models.ChatMessage{Role: role, Text: c.Text()})
	}
	return out
}

// SendMessage отправляет сообщение в чат и возвращает ответ целиком.
//
// @Summary      Send chat message
// @Tags         chat
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body models.ChatRequest true "Prompt"
// @Success      200 {object} models.ChatResponse
// @Failure      400 {object} models.ErrorResponse
// @Failure      413 {object} models.ErrorResponse
// @Failure      429 {object} models.ErrorResponse "Too soon, see Retry-After"
// @Failure      503 {object} models.ErrorResponse "Model quota exceeded, see Retry-After"
// @Router       /chat/messages [post]
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	var req models.ChatRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, "chat", err)
		return
	}

	reply, err := h.Svc.Chat.Send(r.Context(), id, req.Prompt)
	if err != nil {
		h.fail(w, r, "chat", err)
		return
	}
	writeJSON(w, http.StatusOK, models.ChatResponse{Reply: reply, Model: h.Svc.Chat.Model()})
}

// History возвращает историю текущей чат-сессии.
//
// @Summary      Chat history
// @Tags         chat
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} models.ChatHistoryResponse
// @Failure      401 {object} models.ErrorResponse
// @Router       /chat/history [get]
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	sess := h.Svc.Chat.History(id)
	resp := models.ChatHistoryResponse{
		Model:        sess.Model,
		HasKnowledge: h.Svc.Chat.HasKnowledge(sess),
		Messages:     toMessages(sess.History),
	}
	if !sess.LastCall.IsZero() {
		last := sess.LastCall.UTC()
		resp.LastCall = &last
	}
	writeJSON(w, http.StatusOK, resp)
}

// ResetHistory очищает историю чата.
//
// @Summary      Reset chat
// @Tags         chat
// @Security     BearerAuth
// @Success      204
// @Router       /chat/history [delete]
func (h *Handler) ResetHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	h.Svc.Chat.Reset(id)
	w.WriteHeader(http.StatusNoContent)
}

// SetKnowledge загружает текстовую базу знаний для чата. Пустое тело её убирает.
//
// @Summary      Upload chat knowledge
// @Tags         chat
// @Accept       plain
// @Produce      json
// @Security     BearerAuth
// @Param        body body string true "Knowledge text"
// @Success      200 {object} models.KnowledgeResponse
// @Failure      413 {object} models.ErrorResponse
// @Router       /chat/knowledge [put]
func (h *Handler) SetKnowledge(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	// база знаний бывает объёмнее обычного JSON, берём лимит документов
	limit := h.MaxBodyBytes
	if h.Svc.Documents != nil && h.Svc.Documents.MaxBytes() > limit {
		limit = h.Svc.Documents.MaxBytes()
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.fail(w, r, "knowledge", serr.ErrPayloadTooLarge)
			return
		}
		h.fail(w, r, "knowledge", serr.ErrInvalidInput)
		return
	}

	n := h.Svc.Chat.SetKnowledge(id, string(data))
	writeJSON(w, http.StatusOK, models.KnowledgeResponse{Chars: n})
}

// Models возвращает модели, доступные по ключу, и используемую.
//
// @Summary      Available models
// @Tags         chat
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} models.ModelsResponse
// @Failure      502 {object} models.ErrorResponse
// @Router       /chat/models [get]
func (h *Handler) Models(w http.ResponseWriter, r *http.Request) {
	available, inUse, err := h.Svc.Chat.Models(r.Context())
	if err != nil {
		h.fail(w, r, "list models", err)
		return
	}
	if available == nil {
		available = []string{}
	}
	writeJSON(w, http.StatusOK, models.ModelsResponse{Available: available, InUse: inUse})
}
