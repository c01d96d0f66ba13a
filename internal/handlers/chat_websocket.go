package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"listai/internal/llm"
	"listai/internal/models"
	"listai/internal/services"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

const (
	wsReadTimeout  = 5 * time.Minute
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 10 * time.Second
)

// ChatWebSocketHandler streams goal chat replies over a WebSocket
type ChatWebSocketHandler struct {
	messages *services.MessageService
	conns    *services.ConnectionManager
}

// NewChatWebSocketHandler creates a new chat WebSocket handler
func NewChatWebSocketHandler(messages *services.MessageService, conns *services.ConnectionManager) *ChatWebSocketHandler {
	return &ChatWebSocketHandler{messages: messages, conns: conns}
}

// Handle serves one connection until the client goes away
func (h *ChatWebSocketHandler) Handle(c *websocket.Conn) {
	userID, _ := c.Locals("user_id").(string)
	conn := &models.ChatConnection{
		ConnID:       uuid.New().String(),
		GoalID:       c.Params("goalId"),
		UserID:       userID,
		Conn:         c,
		CreatedAt:    time.Now(),
		WriteTimeout: wsWriteTimeout,
	}

	done := make(chan struct{})
	h.conns.Add(conn)
	defer func() {
		close(done)
		h.conns.Remove(conn.ConnID)
	}()

	c.SetReadDeadline(time.Now().Add(wsReadTimeout))
	c.SetPongHandler(func(string) error {
		c.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	go h.pingLoop(conn, done)

	for {
		_, raw, err := c.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("⚠️  [WS] Read error for %s: %v", conn.ConnID, err)
			}
			return
		}
		services.GetMetrics().RecordWebSocketMessage("inbound")
		c.SetReadDeadline(time.Now().Add(wsReadTimeout))

		var msg models.ChatClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			h.sendError(conn, "Invalid message format")
			continue
		}

		if err := h.reply(conn, msg); err != nil {
			log.Printf("⚠️  [WS] Connection %s stopped: %v", conn.ConnID, err)
			return
		}
	}
}

// reply answers one inbound message. It returns an error only when the
// connection can no longer be written to.
func (h *ChatWebSocketHandler) reply(conn *models.ChatConnection, msg models.ChatClientMessage) error {
	ctx := context.Background()
	userID := conn.UserID
	if userID == "" {
		userID = DefaultUserID
	}

	session, err := h.messages.PrepareChat(ctx, services.ChatInput{
		GoalID:          conn.GoalID,
		UserID:          userID,
		Content:         msg.Content,
		TaskID:          msg.TaskID,
		TaskTitle:       msg.TaskTitle,
		TaskDescription: msg.TaskDescription,
	})
	if err != nil {
		message := "Failed to process message"
		if appErr, ok := services.AsAppError(err); ok {
			message = appErr.Message
		}
		return h.sendError(conn, message)
	}

	full, err := session.Stream(ctx, func(chunk string) error {
		return h.send(conn, models.ChatFrame{Chunk: chunk})
	})
	if err != nil {
		if errors.Is(err, llm.ErrStreamAborted) {
			return err
		}
		return h.sendError(conn, services.MsgChatFailed)
	}
	return h.send(conn, models.FinalChatFrame(full))
}

func (h *ChatWebSocketHandler) send(conn *models.ChatConnection, v any) error {
	if err := conn.WriteJSON(v); err != nil {
		return err
	}
	services.GetMetrics().RecordWebSocketMessage("outbound")
	return nil
}

func (h *ChatWebSocketHandler) sendError(conn *models.ChatConnection, message string) error {
	return h.send(conn, models.ChatErrorFrame{Error: message, Done: true})
}

func (h *ChatWebSocketHandler) pingLoop(conn *models.ChatConnection, done <-chan struct{}) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.Ping(time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
		}
	}
}
