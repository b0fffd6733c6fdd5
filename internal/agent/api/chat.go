package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/IvanChernomyrdin/gophassist/internal/shared/models"
)

// SendMessage отправляет реплику в чат и ждёт полного ответа.
func (c *Client) SendMessage(accessToken, prompt string) (models.ChatResponse, error) {
	var resp models.ChatResponse
	err := c.PostJSON("/chat/messages", models.ChatRequest{Prompt: prompt}, &resp, accessToken)
	return resp, err
}

// History возвращает историю чат-сессии на сервере.
func (c *Client) History(accessToken string) (models.ChatHistoryResponse, error) {
	var resp models.ChatHistoryResponse
	err := c.GetJSON("/chat/history", &resp, accessToken)
	return resp, err
}

// ResetHistory очищает историю чата. Загруженная база знаний остаётся.
func (c *Client) ResetHistory(accessToken string) error {
	return c.DeleteJSON("/chat/history", nil, accessToken)
}

// SetKnowledge загружает текст базы знаний. Пустой текст её убирает.
func (c *Client) SetKnowledge(accessToken, text string) (models.KnowledgeResponse, error) {
	var resp models.KnowledgeResponse
	err := c.PutText("/chat/knowledge", text, &resp, accessToken)
	return resp, err
}

// Models возвращает доступные модели и ту, что используется.
func (c *Client) Models(accessToken string) (models.ModelsResponse, error) {
	var resp models.ModelsResponse
	err := c.GetJSON("/chat/models", &resp, accessToken)
	return resp, err
}

// ChatStream — открытый websocket-чат. Вопросы задаются по одному.
type ChatStream struct {
	conn *websocket.Conn
}

// OpenChat подключается к /chat/ws.
func (c *Client) OpenChat(ctx context.Context, accessToken string) (*ChatStream, error) {
	conn, err := c.Dial(ctx, "/chat/ws", accessToken)
	if err != nil {
		return nil, err
	}
	return &ChatStream{conn: conn}, nil
}

// Ask отправляет реплику и вызывает onChunk на каждый кусок ответа.
// Возвращает полный ответ. Кадр с ошибкой возвращается как *Error
// без HTTP-статуса, соединение после него остаётся рабочим.
func (s *ChatStream) Ask(prompt string, onChunk func(chunk string)) (string, error) {
	if err := s.conn.WriteJSON(models.ChatRequest{Prompt: prompt}); err != nil {
		return "", fmt.Errorf("send prompt: %w", err)
	}

	for {
		var f models.ChatFrame
		if err := s.conn.ReadJSON(&f); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return "", errors.New("chat closed by server")
			}
			return "", fmt.Errorf("read frame: %w", err)
		}

		switch f.Type {
		case models.FrameChunk:
			if onChunk != nil {
				onChunk(f.Text)
			}
		case models.FrameDone:
			return f.Text, nil
		case models.FrameError:
			return "", &Error{Message: f.Error}
		}
	}
}

// Close вежливо закрывает соединение.
func (s *ChatStream) Close() error {
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return s.conn.Close()
}
