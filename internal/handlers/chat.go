package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"listai/internal/llm"
	"listai/internal/models"
	"listai/internal/services"

	"github.com/gofiber/fiber/v2"
)

// ChatHandler serves the goal chat over plain HTTP and SSE
type ChatHandler struct {
	messages *services.MessageService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(messages *services.MessageService) *ChatHandler {
	return &ChatHandler{messages: messages}
}

type sendMessageRequest struct {
	Content         string `json:"content"`
	TaskID          string `json:"taskId"`
	Stream          bool   `json:"stream"`
	TaskTitle       string `json:"taskTitle"`
	TaskDescription string `json:"taskDescription"`
	UserID          string `json:"user_id"`
	UserIDCamel     string `json:"userId"`
}

// Send handles POST /goals/:goalId/chat/send
func (h *ChatHandler) Send(c *fiber.Ctx) error {
	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	session, err := h.messages.PrepareChat(c.UserContext(), services.ChatInput{
		GoalID:          c.Params("goalId"),
		UserID:          actingUserID(c, req.UserID, req.UserIDCamel),
		Content:         req.Content,
		TaskID:          req.TaskID,
		TaskTitle:       req.TaskTitle,
		TaskDescription: req.TaskDescription,
	})
	if err != nil {
		return respondError(c, err)
	}

	if req.Stream {
		return h.stream(c, session)
	}

	result, err := session.Send(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, fiber.StatusOK, result)
}

// stream writes the reply as SSE frames. The request context is gone once the
// handler returns, so the session runs on its own context; a failed flush
// means the client left and aborts the upstream read.
func (h *ChatHandler) stream(c *fiber.Ctx, session *services.ChatSession) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		full, err := session.Stream(context.Background(), func(chunk string) error {
			return writeSSE(w, models.ChatFrame{Chunk: chunk})
		})
		if err != nil {
			if !errors.Is(err, llm.ErrStreamAborted) {
				log.Printf("⚠️  [CHAT] Stream ended with error: %v", err)
			}
			return
		}

		if err := writeSSE(w, models.FinalChatFrame(full)); err != nil {
			log.Printf("⚠️  [CHAT] Failed to write final frame: %v", err)
		}
	})
	return nil
}

func writeSSE(w *bufio.Writer, frame models.ChatFrame) error {
	payload, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}
	return w.Flush()
}

// Messages handles GET /goals/:goalId/chat/messages
func (h *ChatHandler) Messages(c *fiber.Ctx) error {
	messages, err := h.messages.ListMessages(c.UserContext(), c.Params("goalId"), authUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, fiber.StatusOK, messages)
}
