package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"listai/internal/config"
	"listai/internal/llm"
	"listai/internal/models"
	"listai/internal/services"

	"github.com/gofiber/fiber/v2"
)

// sevenDayPlan is what the fake backend returns for plan requests
const sevenDayPlan = `{
  "strategy": [{"title": "Foundations", "description": "Build the base"}],
  "tasks": [
    {"title": "Day one", "description": "Start", "priority": "high", "day_index": 1},
    {"title": "Day two", "description": "Continue", "priority": "medium", "day_index": 2},
    {"title": "Day three", "description": "Continue", "priority": "low", "day_index": 3},
    {"title": "Day four", "description": "Continue", "priority": "medium", "day_index": 4},
    {"title": "Day five", "description": "Continue", "priority": "medium", "day_index": 5},
    {"title": "Day six", "description": "Continue", "priority": "high", "day_index": 6},
    {"title": "Day seven", "description": "Review", "priority": "high", "day_index": 7}
  ],
  "days_count": 7
}`

var streamChunks = []string{"Hel", "lo, ", "world"}

// newBackend fakes an OpenAI-compatible chat completions endpoint
func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Stream         bool            `json:"stream"`
			ResponseFormat json.RawMessage `json:"response_format"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if req.Stream {
			w.Header().Set("Content-Type", "text/event-stream")
			for _, chunk := range streamChunks {
				payload, _ := json.Marshal(map[string]any{
					"choices": []any{map[string]any{"delta": map[string]string{"content": chunk}}},
				})
				fmt.Fprintf(w, "data: %s\n\n", payload)
			}
			fmt.Fprint(w, "data: [DONE]\n\n")
			return
		}

		content := "Keep going!"
		if len(req.ResponseFormat) > 0 {
			content = sevenDayPlan
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]string{"content": content}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

type testEnv struct {
	app   *fiber.App
	queue *services.MemoryJobQueue
}

// setupTestApp wires the public endpoints over an empty store set. Only
// ephemeral goals are exercised, which never reach storage.
func setupTestApp(t *testing.T) *testEnv {
	t.Helper()
	backend := newBackend(t)

	settings := config.NewLLMSettings(config.LLMConfig{
		BaseURL:               backend.URL,
		APIKey:                "test-key",
		Model:                 "test-model",
		PlanTemperature:       0.7,
		CorrectionTemperature: 0.5,
		ChatTemperature:       0.7,
		MaxPlanAttempts:       3,
		ChatTimeout:           5 * time.Second,
	})
	generator := services.NewPlanGenerationService(llm.NewClient(settings, backend.Client()), settings)

	stores := &services.Stores{}
	queue := services.NewMemoryJobQueue(time.Hour, 10)

	routes := &Routes{
		GoalPlan:     NewGoalPlanHandler(services.NewGoalPlanService(stores, generator, time.UTC)),
		Chat:         NewChatHandler(services.NewMessageService(stores, nil, generator)),
		ChatWS:       NewChatWebSocketHandler(services.NewMessageService(stores, nil, generator), services.NewConnectionManager()),
		Plans:        NewPlanHandler(services.NewPlanService(stores), services.NewPlanJobService(stores, queue, generator, time.UTC)),
		Integrations: NewIntegrationsHandler(),
		RequireAuth: func(c *fiber.Ctx) error {
			if c.Get("X-Test-User") == "" {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "error": "Authentication required"})
			}
			c.Locals("user_id", c.Get("X-Test-User"))
			return c.Next()
		},
	}

	app := fiber.New()
	routes.Register(app.Group("/api/v1"))
	return &testEnv{app: app, queue: queue}
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = strings.NewReader(string(raw))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := app.Test(req, 5000)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, data
}

func TestCreatePlanEphemeralGoal(t *testing.T) {
	env := setupTestApp(t)
	target := time.Now().AddDate(0, 0, 7).Format("2006-01-02")

	resp, body := doJSON(t, env.app, http.MethodPost, "/api/v1/goals/create-plan", map[string]string{
		"goal_id":             "goal_abc",
		"goal_description":    "Learn Spanish",
		"context_description": "30 minutes a day",
		"target_date":         target,
	}, nil)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
	}

	var out struct {
		Success bool `json:"success"`
		Data    struct {
			Goal services.GoalSummary `json:"goal"`
			Plan services.PlanView    `json:"plan"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !out.Success || out.Data.Goal.ID != "goal_abc" {
		t.Errorf("response = %s", body)
	}
	if out.Data.Plan.DaysCount != 7 {
		t.Errorf("daysCount = %d, want 7", out.Data.Plan.DaysCount)
	}
	if len(out.Data.Plan.Tasks) != 7 {
		t.Fatalf("tasks = %d, want 7", len(out.Data.Plan.Tasks))
	}
	for _, task := range out.Data.Plan.Tasks {
		if task.DayIndex < 1 || task.DayIndex > 7 {
			t.Errorf("task %q day_index = %d", task.Title, task.DayIndex)
		}
		if task.Date == "" {
			t.Errorf("task %q has no date", task.Title)
		}
	}
}

func TestCreatePlanValidation(t *testing.T) {
	env := setupTestApp(t)

	resp, body := doJSON(t, env.app, http.MethodPost, "/api/v1/goals/create-plan", map[string]string{
		"goal_id":          "goal_abc",
		"goal_description": "Learn Spanish",
	}, nil)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
	}

	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out["success"] != false || out["error"] == "" {
		t.Errorf("body = %s", body)
	}
}

func TestGetPlanRequiresAuth(t *testing.T) {
	env := setupTestApp(t)

	resp, _ := doJSON(t, env.app, http.MethodGet, "/api/v1/goals/goal_abc/plan", nil, nil)
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestChatSendBuffered(t *testing.T) {
	env := setupTestApp(t)

	resp, body := doJSON(t, env.app, http.MethodPost, "/api/v1/goals/goal_abc/chat/send", map[string]any{
		"content": "How do I start?",
	}, nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
	}

	var out struct {
		Success bool                 `json:"success"`
		Data    services.ChatResult `json:"data"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Data.UserMessage.Content != "How do I start?" {
		t.Errorf("user message = %+v", out.Data.UserMessage)
	}
	if out.Data.AssistantMessage.Content != "Keep going!" {
		t.Errorf("assistant message = %+v", out.Data.AssistantMessage)
	}
	if !strings.HasPrefix(out.Data.UserMessage.ID, "temp-") {
		t.Errorf("ephemeral message id = %q", out.Data.UserMessage.ID)
	}
}

func TestChatSendStream(t *testing.T) {
	env := setupTestApp(t)

	resp, body := doJSON(t, env.app, http.MethodPost, "/api/v1/goals/goal_abc/chat/send", map[string]any{
		"content": "How do I start?",
		"stream":  true,
	}, nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Errorf("Content-Type = %q", ct)
	}
	if resp.Header.Get("X-Accel-Buffering") != "no" || resp.Header.Get("Cache-Control") != "no-cache" {
		t.Errorf("headers = %v", resp.Header)
	}

	var frames []map[string]any
	scanner := bufio.NewScanner(strings.NewReader(string(body)))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var frame map[string]any
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &frame); err != nil {
			t.Fatalf("frame %q: %v", line, err)
		}
		frames = append(frames, frame)
	}

	if len(frames) != len(streamChunks)+1 {
		t.Fatalf("frames = %d, want %d: %s", len(frames), len(streamChunks)+1, body)
	}

	var joined strings.Builder
	for i, frame := range frames[:len(frames)-1] {
		if frame["done"] != false {
			t.Errorf("frame %d done = %v", i, frame["done"])
		}
		joined.WriteString(frame["chunk"].(string))
	}

	last := frames[len(frames)-1]
	if last["done"] != true || last["chunk"] != "" {
		t.Errorf("final frame = %v", last)
	}
	if last["fullText"] != joined.String() || joined.String() != "Hello, world" {
		t.Errorf("fullText = %v, chunks = %q", last["fullText"], joined.String())
	}
}

func TestChatSendRequiresContent(t *testing.T) {
	env := setupTestApp(t)

	resp, _ := doJSON(t, env.app, http.MethodPost, "/api/v1/goals/goal_abc/chat/send", map[string]any{
		"content": "  ",
		"stream":  true,
	}, nil)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestPlanJobStatus(t *testing.T) {
	env := setupTestApp(t)
	auth := map[string]string{"X-Test-User": "user-1"}

	started := time.Now()
	job := &models.PlanJob{
		ID:        "job-1",
		Name:      models.PlanJobName,
		Status:    models.JobStatusActive,
		Progress:  10,
		CreatedAt: started,
		StartedAt: &started,
	}
	if err := env.queue.Enqueue(context.Background(), job); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	resp, body := doJSON(t, env.app, http.MethodGet, "/api/v1/plans/job-1/status", nil, auth)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
	}

	var out struct {
		Data struct {
			Status           string `json:"status"`
			Progress         int    `json:"progress"`
			EstimatedSeconds *int   `json:"estimated_seconds"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Data.Status != "active" || out.Data.Progress != 10 || out.Data.EstimatedSeconds == nil {
		t.Errorf("status = %s", body)
	}

	resp, _ = doJSON(t, env.app, http.MethodGet, "/api/v1/plans/missing/status", nil, auth)
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("missing job status = %d, want 404", resp.StatusCode)
	}
}

func TestIntegrationsStubs(t *testing.T) {
	env := setupTestApp(t)
	auth := map[string]string{"X-Test-User": "user-1"}

	for _, path := range []string{"/api/v1/integrations/google/oauth", "/api/v1/integrations/google/sync"} {
		resp, body := doJSON(t, env.app, http.MethodPost, path, map[string]any{}, auth)
		if resp.StatusCode != fiber.StatusOK || !strings.Contains(string(body), "not implemented") {
			t.Errorf("%s: status = %d, body = %s", path, resp.StatusCode, body)
		}
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  *services.AppError
		want int
	}{
		{&services.AppError{Kind: services.KindNotFound}, fiber.StatusNotFound},
		{&services.AppError{Kind: services.KindForbidden, Code: services.CodeFeatureLocked}, fiber.StatusForbidden},
		{&services.AppError{Kind: services.KindValidation}, fiber.StatusBadRequest},
		{&services.AppError{Kind: services.KindUpstreamUnavailable}, fiber.StatusBadGateway},
		{&services.AppError{Kind: services.KindUpstreamUnavailable, Code: "REGION_UNAVAILABLE"}, fiber.StatusBadRequest},
		{&services.AppError{Kind: services.KindUpstreamTimeout}, fiber.StatusGatewayTimeout},
		{&services.AppError{Kind: services.KindGenerationFailed}, fiber.StatusBadGateway},
		{&services.AppError{Kind: services.KindStorage}, fiber.StatusInternalServerError},
		{&services.AppError{Kind: services.KindConflict}, fiber.StatusConflict},
		{&services.AppError{Kind: services.KindUnauthorized}, fiber.StatusUnauthorized},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%s/%s) = %d, want %d", tt.err.Kind, tt.err.Code, got, tt.want)
		}
	}
}

func TestRespondErrorBody(t *testing.T) {
	app := fiber.New()
	app.Get("/locked", func(c *fiber.Ctx) error {
		return respondError(c, &services.AppError{Kind: services.KindForbidden, Code: services.CodeFeatureLocked, Message: "Pro only"})
	})
	app.Get("/plain", func(c *fiber.Ctx) error {
		return respondError(c, errors.New("boom"))
	})

	resp, body := doJSON(t, app, http.MethodGet, "/locked", nil, nil)
	if resp.StatusCode != fiber.StatusForbidden {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out["success"] != false || out["error"] != "Pro only" || out["code"] != services.CodeFeatureLocked {
		t.Errorf("body = %s", body)
	}

	resp, body = doJSON(t, app, http.MethodGet, "/plain", nil, nil)
	if resp.StatusCode != fiber.StatusInternalServerError || strings.Contains(string(body), "boom") {
		t.Errorf("status = %d, body = %s", resp.StatusCode, body)
	}
}

func TestActingUserID(t *testing.T) {
	tests := []struct {
		name   string
		local  string
		bodyID []string
		want   string
	}{
		{"authenticated wins", "auth-user", []string{"body-user"}, "auth-user"},
		{"body id", "", []string{"", "body-user"}, "body-user"},
		{"default", "", nil, DefaultUserID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error {
				if tt.local != "" {
					c.Locals("user_id", tt.local)
				}
				return c.SendString(actingUserID(c, tt.bodyID...))
			})
			_, body := doJSON(t, app, http.MethodGet, "/", nil, nil)
			if string(body) != tt.want {
				t.Errorf("actingUserID = %q, want %q", body, tt.want)
			}
		})
	}
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	app := fiber.New()
	app.Get("/health", NewHealthHandler(fakePinger{}, fakePinger{err: errors.New("down")}, services.NewConnectionManager()).Handle)
	app.Get("/health-no-redis", NewHealthHandler(fakePinger{}, nil, nil).Handle)

	tests := []struct {
		path      string
		wantRedis string
	}{
		{"/health", "unavailable"},
		{"/health-no-redis", "disabled"},
	}
	for _, tt := range tests {
		resp, body := doJSON(t, app, http.MethodGet, tt.path, nil, nil)
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("%s status = %d", tt.path, resp.StatusCode)
		}
		var out struct {
			Success   bool              `json:"success"`
			Timestamp string            `json:"timestamp"`
			Services  map[string]string `json:"services"`
		}
		if err := json.Unmarshal(body, &out); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if !out.Success || out.Timestamp == "" {
			t.Errorf("%s body = %s", tt.path, body)
		}
		if out.Services["app"] != "healthy" || out.Services["database"] != "healthy" || out.Services["redis"] != tt.wantRedis {
			t.Errorf("%s services = %v", tt.path, out.Services)
		}
	}
}
