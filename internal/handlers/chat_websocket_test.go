package handlers

import (
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v2"
)

type wsFrame struct {
	Chunk    string  `json:"chunk"`
	Done     bool    `json:"done"`
	FullText *string `json:"fullText"`
	Error    string  `json:"error"`
}

// dialChat serves the app on a loopback port and opens the goal chat socket
func dialChat(t *testing.T, env *testEnv, goalID string) *websocket.Conn {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go env.app.Listener(ln)
	t.Cleanup(func() { _ = env.app.Shutdown() })

	url := "ws://" + ln.Addr().String() + "/api/v1/goals/" + goalID + "/chat/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readReply collects frames until one has done=true
func readReply(t *testing.T, conn *websocket.Conn) []wsFrame {
	t.Helper()
	var frames []wsFrame
	for {
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var frame wsFrame
		if err := conn.ReadJSON(&frame); err != nil {
			t.Fatalf("read frame after %d frames: %v", len(frames), err)
		}
		frames = append(frames, frame)
		if frame.Done {
			return frames
		}
	}
}

func TestChatWebSocketStreamsReply(t *testing.T) {
	env := setupTestApp(t)
	conn := dialChat(t, env, "goal_abc")

	if err := conn.WriteJSON(map[string]string{"content": "How do I start?"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	frames := readReply(t, conn)
	last := frames[len(frames)-1]
	if last.FullText == nil {
		t.Fatalf("final frame has no fullText: %+v", last)
	}
	if last.Chunk != "" || last.Error != "" {
		t.Errorf("final frame = %+v", last)
	}

	var joined strings.Builder
	for _, frame := range frames[:len(frames)-1] {
		if frame.Done || frame.FullText != nil {
			t.Errorf("intermediate frame = %+v", frame)
		}
		joined.WriteString(frame.Chunk)
	}
	if joined.String() != *last.FullText || *last.FullText != "Hello, world" {
		t.Errorf("chunks = %q, fullText = %q", joined.String(), *last.FullText)
	}
}

func TestChatWebSocketErrorFrames(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr string
	}{
		{"invalid json", "not json", "Invalid message format"},
		{"blank content", `{"content": "   "}`, "content is required"},
	}

	env := setupTestApp(t)
	conn := dialChat(t, env, "goal_abc")

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(tt.payload)); err != nil {
				t.Fatalf("write: %v", err)
			}
			frames := readReply(t, conn)
			if len(frames) != 1 {
				t.Fatalf("frames = %+v, want one error frame", frames)
			}
			if frames[0].Error != tt.wantErr || !frames[0].Done {
				t.Errorf("frame = %+v, want error %q", frames[0], tt.wantErr)
			}
		})
	}

	// the socket stays usable after errors
	if err := conn.WriteJSON(map[string]string{"content": "still there?"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	frames := readReply(t, conn)
	if last := frames[len(frames)-1]; last.FullText == nil || *last.FullText != "Hello, world" {
		t.Errorf("final frame = %+v", last)
	}
}

func TestChatWebSocketRequiresUpgrade(t *testing.T) {
	env := setupTestApp(t)

	resp, _ := doJSON(t, env.app, http.MethodGet, "/api/v1/goals/goal_abc/chat/ws", nil, nil)
	if resp.StatusCode != fiber.StatusUpgradeRequired {
		t.Errorf("status = %d, want 426", resp.StatusCode)
	}
}
