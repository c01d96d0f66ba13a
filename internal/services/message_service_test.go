package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"listai/internal/llm"
	"listai/internal/models"
)

const testTaskID = "44444444-4444-4444-8444-444444444444"

func newMessageService(stores *fakeStores, gen ChatGenerator) *MessageService {
	svc := NewMessageService(stores.Stores(), NewTierService(stores.users), gen)
	svc.now = func() time.Time { return time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC) }
	return svc
}

func seedChatGoal(stores *fakeStores, tier string) {
	stores.users.users[testUserID] = models.User{ID: testUserID, SubscriptionTier: tier}
	stores.goals.goals[testGoalID] = models.Goal{ID: testGoalID, UserID: testUserID, Title: "Learn Go", Context: "Evenings only"}
}

func TestPrepareChatAssemblesTurns(t *testing.T) {
	stores := newFakeStores()
	seedChatGoal(stores, models.TierPro)
	stores.tasks.tasks = []models.Task{
		{ID: "done-1", GoalID: testGoalID, Title: "Install Go", Description: "Use the installer", Status: models.TaskStatusDone},
		{ID: "done-2", GoalID: testGoalID, Title: "Hello world", Status: models.TaskStatusDone},
		{ID: testTaskID, GoalID: testGoalID, Title: "Write tests", Date: "2025-03-04", Priority: models.PriorityHigh, Status: models.TaskStatusTodo},
	}
	stores.messages.messages = []models.Message{
		{GoalID: testGoalID, Role: models.RoleUser, Content: "earlier question"},
		{GoalID: testGoalID, Role: models.RoleSystem, Content: "earlier answer"},
	}

	svc := newMessageService(stores, &fakeChatGenerator{})
	session, err := svc.PrepareChat(context.Background(), ChatInput{
		GoalID:  testGoalID,
		UserID:  testUserID,
		Content: "How do I start?",
		TaskID:  testTaskID,
	})
	if err != nil {
		t.Fatalf("PrepareChat: %v", err)
	}

	turns := session.Turns()
	if len(turns) != 7 {
		t.Fatalf("turns = %d, want 7: %+v", len(turns), turns)
	}
	if turns[0].Content != taskDiscussionSystemPrompt {
		t.Error("task discussion persona not selected")
	}
	if turns[1].Content != "User goal: Learn Go\nUser context and environment: Evenings only" {
		t.Errorf("goal turn = %q", turns[1].Content)
	}
	if !strings.Contains(turns[2].Content, "(2):\n- Install Go: Use the installer\n- Hello world") {
		t.Errorf("completed turn = %q", turns[2].Content)
	}
	if !strings.Contains(turns[3].Content, "Title: Write tests\nDescription: N/A\nDate: 2025-03-04\nPriority: high") {
		t.Errorf("task turn = %q", turns[3].Content)
	}
	if turns[4].Role != llm.RoleUser || turns[5].Role != llm.RoleAssistant {
		t.Errorf("history roles = %s, %s", turns[4].Role, turns[5].Role)
	}
	if last := turns[6]; last.Role != llm.RoleUser || last.Content != "How do I start?" {
		t.Errorf("last turn = %+v", last)
	}
}

func TestPrepareChatEphemeralGoal(t *testing.T) {
	stores := newFakeStores()
	svc := newMessageService(stores, &fakeChatGenerator{})

	session, err := svc.PrepareChat(context.Background(), ChatInput{
		GoalID:    "goal_abc",
		UserID:    "default-user-id",
		Content:   "Hi",
		TaskID:    "temp-task-0",
		TaskTitle: "Stretch",
	})
	if err != nil {
		t.Fatalf("PrepareChat: %v", err)
	}
	if session.IsDurable() {
		t.Error("session should be ephemeral")
	}

	turns := session.Turns()
	if len(turns) != 4 {
		t.Fatalf("turns = %d, want 4", len(turns))
	}
	if turns[1].Content != "User goal: Temporary goal\nUser context and environment: Not specified" {
		t.Errorf("goal turn = %q", turns[1].Content)
	}
	if !strings.Contains(turns[2].Content, "Title: Stretch\nDescription: N/A") {
		t.Errorf("task turn = %q", turns[2].Content)
	}
}

func TestPrepareChatIgnoresTaskFromOtherGoal(t *testing.T) {
	stores := newFakeStores()
	seedChatGoal(stores, models.TierPro)
	stores.tasks.tasks = []models.Task{{ID: testTaskID, GoalID: "other-goal", Title: "Elsewhere"}}

	svc := newMessageService(stores, &fakeChatGenerator{})
	session, err := svc.PrepareChat(context.Background(), ChatInput{GoalID: testGoalID, UserID: testUserID, Content: "Hi", TaskID: testTaskID})
	if err != nil {
		t.Fatalf("PrepareChat: %v", err)
	}
	if session.Turns()[0].Content != chatSystemPrompt {
		t.Error("general persona expected when the task is not part of the goal")
	}
}

func TestPrepareChatErrors(t *testing.T) {
	stores := newFakeStores()
	seedChatGoal(stores, models.TierFree)
	svc := newMessageService(stores, &fakeChatGenerator{})

	tests := []struct {
		name string
		in   ChatInput
		kind ErrorKind
	}{
		{"empty content", ChatInput{GoalID: testGoalID, UserID: testUserID}, KindValidation},
		{"missing goal", ChatInput{GoalID: "55555555-5555-4555-8555-555555555555", UserID: testUserID, Content: "x"}, KindNotFound},
		{"free tier task", ChatInput{GoalID: testGoalID, UserID: testUserID, Content: "x", TaskID: testTaskID}, KindForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.PrepareChat(context.Background(), tt.in)
			if !IsKind(err, tt.kind) {
				t.Fatalf("err = %v, want %s", err, tt.kind)
			}
		})
	}

	_, err := svc.PrepareChat(context.Background(), ChatInput{GoalID: testGoalID, UserID: testUserID, Content: "x", TaskID: testTaskID})
	if appErr, _ := AsAppError(err); appErr == nil || appErr.Code != CodeFeatureLocked {
		t.Errorf("err = %v, want FEATURE_LOCKED", err)
	}
}

func TestSendPersistsDurableExchange(t *testing.T) {
	stores := newFakeStores()
	seedChatGoal(stores, models.TierPro)
	svc := newMessageService(stores, &fakeChatGenerator{reply: "Start small"})

	session, err := svc.PrepareChat(context.Background(), ChatInput{GoalID: testGoalID, UserID: testUserID, Content: "Where to begin?"})
	if err != nil {
		t.Fatalf("PrepareChat: %v", err)
	}
	result, err := session.Send(context.Background())
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	if result.AssistantMessage.Content != "Start small" {
		t.Errorf("assistant = %q", result.AssistantMessage.Content)
	}
	if !result.AssistantMessage.CreatedAt.After(result.UserMessage.CreatedAt) {
		t.Error("assistant message must be created after the user message")
	}
	if len(stores.messages.messages) != 2 {
		t.Fatalf("stored messages = %d, want 2", len(stores.messages.messages))
	}
	if stores.messages.messages[0].Role != models.RoleUser || stores.messages.messages[1].Role != models.RoleAssistant {
		t.Errorf("stored roles out of order")
	}
}

func TestSendEphemeralIDs(t *testing.T) {
	stores := newFakeStores()
	svc := newMessageService(stores, &fakeChatGenerator{reply: "ok"})

	session, err := svc.PrepareChat(context.Background(), ChatInput{GoalID: "goal_abc", UserID: testUserID, Content: "Hi"})
	if err != nil {
		t.Fatalf("PrepareChat: %v", err)
	}
	result, err := session.Send(context.Background())
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	stamp := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC).UnixMilli()
	if want := "temp-" + itoa(stamp); result.UserMessage.ID != want {
		t.Errorf("user id = %s, want %s", result.UserMessage.ID, want)
	}
	if !strings.HasSuffix(result.AssistantMessage.ID, "-assistant") {
		t.Errorf("assistant id = %s", result.AssistantMessage.ID)
	}
	if len(stores.rec.Writes()) != 0 {
		t.Errorf("writes = %v", stores.rec.Writes())
	}
}

func TestSendFailures(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantReply   string
		wantPersist bool
	}{
		{"timeout", &AppError{Kind: KindUpstreamTimeout, Message: "timed out"}, MsgChatTimeout, false},
		{"other", errors.New("boom"), MsgChatFailed, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stores := newFakeStores()
			seedChatGoal(stores, models.TierPro)
			svc := newMessageService(stores, &fakeChatGenerator{err: tt.err})

			session, err := svc.PrepareChat(context.Background(), ChatInput{GoalID: testGoalID, UserID: testUserID, Content: "Hi"})
			if err != nil {
				t.Fatalf("PrepareChat: %v", err)
			}
			result, err := session.Send(context.Background())
			if err != nil {
				t.Fatalf("Send: %v", err)
			}
			if result.AssistantMessage.Content != tt.wantReply {
				t.Errorf("reply = %q", result.AssistantMessage.Content)
			}
			if persisted := len(stores.messages.messages) > 0; persisted != tt.wantPersist {
				t.Errorf("persisted = %v, want %v", persisted, tt.wantPersist)
			}
		})
	}
}

func TestStreamConcatenatesChunks(t *testing.T) {
	stores := newFakeStores()
	seedChatGoal(stores, models.TierPro)
	svc := newMessageService(stores, &fakeChatGenerator{chunks: []string{"Go ", "is ", "fun"}})

	session, err := svc.PrepareChat(context.Background(), ChatInput{GoalID: testGoalID, UserID: testUserID, Content: "Hi"})
	if err != nil {
		t.Fatalf("PrepareChat: %v", err)
	}

	var emitted strings.Builder
	full, err := session.Stream(context.Background(), func(chunk string) error {
		emitted.WriteString(chunk)
		return nil
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if full != "Go is fun" || emitted.String() != full {
		t.Errorf("full = %q, emitted = %q", full, emitted.String())
	}
	if len(stores.messages.messages) != 2 || stores.messages.messages[1].Content != "Go is fun" {
		t.Errorf("stored = %+v", stores.messages.messages)
	}
}

func TestStreamAbortSkipsPersistence(t *testing.T) {
	stores := newFakeStores()
	seedChatGoal(stores, models.TierPro)
	svc := newMessageService(stores, &fakeChatGenerator{chunks: []string{"a", "b"}})

	session, err := svc.PrepareChat(context.Background(), ChatInput{GoalID: testGoalID, UserID: testUserID, Content: "Hi"})
	if err != nil {
		t.Fatalf("PrepareChat: %v", err)
	}
	_, err = session.Stream(context.Background(), func(string) error { return errors.New("client gone") })
	if !errors.Is(err, llm.ErrStreamAborted) {
		t.Fatalf("err = %v, want ErrStreamAborted", err)
	}
	if len(stores.messages.messages) != 0 {
		t.Errorf("aborted stream was persisted")
	}
}

func TestListMessages(t *testing.T) {
	stores := newFakeStores()
	seedChatGoal(stores, models.TierPro)
	stores.messages.messages = []models.Message{{GoalID: testGoalID, Content: "one"}, {GoalID: testGoalID, Content: "two"}}
	svc := newMessageService(stores, &fakeChatGenerator{})

	msgs, err := svc.ListMessages(context.Background(), testGoalID, testUserID)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Content != "one" {
		t.Errorf("messages = %+v", msgs)
	}

	if _, err := svc.ListMessages(context.Background(), "goal_abc", testUserID); !IsKind(err, KindNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
