package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/IvanChernomyrdin/gophassist/internal/shared/models"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

// ChatStream — websocket-чат со стримингом ответа.
//
// Клиент шлёт models.ChatRequest, сервер отвечает кадрами chunk, затем
// done с полным текстом или error. Ошибка одного сообщения соединение не рвёт.
//
// @Summary      Chat over websocket
// @Description  Client sends {"prompt": "..."}; server streams {"type":"chunk"} frames and a final {"type":"done"} or {"type":"error"}.
// @Tags         chat
// @Security     BearerAuth
// @Success      101
// @Router       /chat/ws [get]
func (h *Handler) ChatStream(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже ответил клиенту
		h.Log.Sugar().Debugw("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(h.MaxBodyBytes)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	ctx := r.Context()
	frames := make(chan models.ChatFrame)
	done := make(chan struct{})

	// единственный писатель в соединение
	go func() {
		defer close(done)
		ticker := time.NewTicker(wsPingPeriod)
		defer ticker.Stop()
		for {
			select {
			case f, ok := <-frames:
				if !ok {
					_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
					_ = conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if err := conn.WriteJSON(f); err != nil {
					// читатель заметит разрыв на следующем ReadJSON
					for range frames {
					}
					return
				}
			case <-ticker.C:
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					for range frames {
					}
					return
				}
			}
		}
	}()
	defer func() {
		close(frames)
		<-done
	}()

	for {
		var req models.ChatRequest
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) &&
				!errors.Is(err, websocket.ErrCloseSent) {
				h.Log.Sugar().Debugw("websocket read", "user_id", id, "error", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))

		reply, err := h.Svc.Chat.Stream(ctx, id, req.Prompt, func(chunk string) error {
			select {
			case frames <- models.ChatFrame{Type: models.FrameChunk, Text: chunk}:
				return nil
			case <-done:
				return websocket.ErrCloseSent
			}
		})
		if err != nil {
			status, _ := errorStatus(err)
			select {
			case frames <- models.ChatFrame{Type: models.FrameError, Error: publicError(status, err)}:
			case <-done:
				return
			}
			continue
		}

		select {
		case frames <- models.ChatFrame{Type: models.FrameDone, Text: reply}:
		case <-done:
			return
		}
	}
}
