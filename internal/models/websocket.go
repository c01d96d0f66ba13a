package models

import (
	"errors"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
)

// ErrConnectionClosed is returned by writes after MarkClosed
var ErrConnectionClosed = errors.New("connection closed")

// ChatClientMessage is one inbound frame on the goal chat socket
type ChatClientMessage struct {
	Content         string `json:"content"`
	TaskID          string `json:"taskId,omitempty"`
	TaskTitle       string `json:"taskTitle,omitempty"`
	TaskDescription string `json:"taskDescription,omitempty"`
}

// ChatFrame is one outbound frame on the SSE and WebSocket chat transports
type ChatFrame struct {
	Chunk    string  `json:"chunk"`
	Done     bool    `json:"done"`
	FullText *string `json:"fullText,omitempty"`
}

// FinalChatFrame closes a reply with the concatenated text
func FinalChatFrame(fullText string) ChatFrame {
	return ChatFrame{Chunk: "", Done: true, FullText: &fullText}
}

// ChatErrorFrame reports a failed exchange on the WebSocket
type ChatErrorFrame struct {
	Error string `json:"error"`
	Done  bool   `json:"done"`
}

// DefaultWriteTimeout bounds each outbound frame when WriteTimeout is unset
const DefaultWriteTimeout = 10 * time.Second

// ChatSocket is the part of *websocket.Conn a ChatConnection writes through
type ChatSocket interface {
	WriteJSON(v any) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
}

// ChatConnection represents a single goal chat WebSocket
type ChatConnection struct {
	ConnID       string
	GoalID       string
	UserID       string // empty for anonymous clients
	Conn         ChatSocket
	CreatedAt    time.Time
	WriteTimeout time.Duration

	mu     sync.Mutex
	closed bool
}

// WriteJSON serializes writes from the read loop and the ping loop. A client
// that stops reading fails the write once the write timeout passes.
func (cc *ChatConnection) WriteJSON(v any) error {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if cc.closed {
		return ErrConnectionClosed
	}
	timeout := cc.WriteTimeout
	if timeout <= 0 {
		timeout = DefaultWriteTimeout
	}
	if err := cc.Conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	return cc.Conn.WriteJSON(v)
}

// Ping writes a ping control frame
func (cc *ChatConnection) Ping(deadline time.Time) error {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if cc.closed {
		return ErrConnectionClosed
	}
	return cc.Conn.WriteControl(websocket.PingMessage, []byte{}, deadline)
}

// MarkClosed stops further writes
func (cc *ChatConnection) MarkClosed() {
	cc.mu.Lock()
	cc.closed = true
	cc.mu.Unlock()
}
