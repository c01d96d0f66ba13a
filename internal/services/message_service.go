package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"listai/internal/llm"
	"listai/internal/models"

	"github.com/google/uuid"
)

// Context window limits for chat assembly
const (
	chatHistoryLimit    = 20
	completedTasksLimit = 50
	ephemeralGoalTitle  = "Temporary goal"
	notSpecified        = "Not specified"
	notAvailable        = "N/A"
)

// ChatGenerator answers assembled conversations
type ChatGenerator interface {
	GenerateChatResponse(ctx context.Context, messages []llm.Message) (string, error)
	GenerateChatResponseStream(ctx context.Context, messages []llm.Message, emit func(string) error) error
}

// ChatInput is one user turn sent to a goal's chat
type ChatInput struct {
	GoalID          string
	UserID          string
	Content         string
	TaskID          string
	TaskTitle       string
	TaskDescription string
}

// ChatResult is the buffered chat response
type ChatResult struct {
	UserMessage      models.Message `json:"userMessage"`
	AssistantMessage models.Message `json:"assistantMessage"`
}

// MessageService assembles chat context and records the conversation
type MessageService struct {
	goals     GoalStore
	tasks     TaskStore
	messages  MessageStore
	tier      *TierService
	generator ChatGenerator
	now       func() time.Time
}

// NewMessageService creates a new message service
func NewMessageService(stores *Stores, tier *TierService, generator ChatGenerator) *MessageService {
	return &MessageService{
		goals:     stores.Goals,
		tasks:     stores.Tasks,
		messages:  stores.Messages,
		tier:      tier,
		generator: generator,
		now:       time.Now,
	}
}

// ChatSession is a prepared conversation ready to be answered once
type ChatSession struct {
	svc       *MessageService
	input     ChatInput
	ref       models.GoalRef
	goal      *models.Goal
	turns     []llm.Message
	startedAt time.Time
}

// taskContext is what the assistant is told about a discussed task
type taskContext struct {
	Title       string
	Description string
	Date        string
	Priority    string
}

// PrepareChat resolves the goal, checks tier gating and assembles the turns
func (s *MessageService) PrepareChat(ctx context.Context, in ChatInput) (*ChatSession, error) {
	if strings.TrimSpace(in.Content) == "" {
		return nil, validationFailure("content is required")
	}

	ref := models.ParseGoalRef(in.GoalID)
	if !models.IsDurableID(in.UserID) {
		ref = ref.AsEphemeral()
	}

	var goal *models.Goal
	if ref.IsDurable() {
		found, err := s.goals.GetByIDForUser(ctx, in.GoalID, in.UserID)
		if errors.Is(err, ErrRecordNotFound) {
			return nil, notFound("Goal not found")
		}
		if err != nil {
			return nil, storageFailure("failed to load goal", err)
		}
		goal = found
	} else {
		goal = &models.Goal{ID: in.GoalID, UserID: in.UserID, Title: ephemeralGoalTitle}
	}

	if in.TaskID != "" && s.tier != nil && models.IsDurableID(in.UserID) && s.tier.IsFreeTier(ctx, in.UserID) {
		return nil, forbidden(CodeFeatureLocked, "Task discussion is available only for Pro users")
	}

	task := s.resolveTask(ctx, ref, goal, in)

	turns := make([]llm.Message, 0, chatHistoryLimit+5)
	if task != nil {
		turns = append(turns, llm.Message{Role: llm.RoleSystem, Content: taskDiscussionSystemPrompt})
	} else {
		turns = append(turns, llm.Message{Role: llm.RoleSystem, Content: chatSystemPrompt})
	}
	turns = append(turns, llm.Message{Role: llm.RoleSystem, Content: goalTurn(goal)})

	if ref.IsDurable() {
		completed, err := s.tasks.ListCompleted(ctx, goal.ID, completedTasksLimit)
		if err != nil {
			log.Printf("⚠️  [CHAT] Failed to load completed tasks for goal %s: %v", goal.ID, err)
		} else if len(completed) > 0 {
			turns = append(turns, llm.Message{Role: llm.RoleSystem, Content: completedTasksTurn(completed)})
		}
	}

	if task != nil {
		turns = append(turns, llm.Message{Role: llm.RoleSystem, Content: taskTurn(task)})
	}

	if ref.IsDurable() {
		history, err := s.messages.Recent(ctx, goal.ID, chatHistoryLimit)
		if err != nil {
			log.Printf("⚠️  [CHAT] Failed to load history for goal %s: %v", goal.ID, err)
		}
		for _, msg := range history {
			role := llm.RoleAssistant
			if msg.Role == models.RoleUser {
				role = llm.RoleUser
			}
			turns = append(turns, llm.Message{Role: role, Content: msg.Content})
		}
	}

	turns = append(turns, llm.Message{Role: llm.RoleUser, Content: in.Content})

	return &ChatSession{
		svc:       s,
		input:     in,
		ref:       ref,
		goal:      goal,
		turns:     turns,
		startedAt: s.now(),
	}, nil
}

func (s *MessageService) resolveTask(ctx context.Context, ref models.GoalRef, goal *models.Goal, in ChatInput) *taskContext {
	if in.TaskID == "" {
		return nil
	}

	ephemeralTask := strings.HasPrefix(in.TaskID, "temp-") || !models.IsDurableID(in.TaskID)
	if ephemeralTask || !ref.IsDurable() {
		if in.TaskTitle == "" && in.TaskDescription == "" {
			return nil
		}
		return &taskContext{Title: in.TaskTitle, Description: in.TaskDescription}
	}

	task, err := s.tasks.GetByID(ctx, in.TaskID)
	if err != nil {
		if !errors.Is(err, ErrRecordNotFound) {
			log.Printf("⚠️  [CHAT] Failed to load task %s: %v", in.TaskID, err)
		}
		return nil
	}
	if task.GoalID != goal.ID {
		return nil
	}
	return &taskContext{
		Title:       task.Title,
		Description: task.Description,
		Date:        task.Date,
		Priority:    string(task.Priority),
	}
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func goalTurn(goal *models.Goal) string {
	return fmt.Sprintf("User goal: %s\nUser context and environment: %s",
		orDefault(goal.Title, notSpecified), orDefault(goal.Context, notSpecified))
}

func completedTasksTurn(tasks []models.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Tasks the user has completed (%d):", len(tasks))
	for _, t := range tasks {
		b.WriteString("\n- ")
		b.WriteString(t.Title)
		if t.Description != "" {
			b.WriteString(": ")
			b.WriteString(t.Description)
		}
	}
	return b.String()
}

func taskTurn(task *taskContext) string {
	return fmt.Sprintf("Task the user is asking about:\nTitle: %s\nDescription: %s\nDate: %s\nPriority: %s",
		orDefault(task.Title, notAvailable),
		orDefault(task.Description, notAvailable),
		orDefault(task.Date, notAvailable),
		orDefault(task.Priority, notAvailable))
}

// Turns returns the assembled conversation
func (cs *ChatSession) Turns() []llm.Message {
	return cs.turns
}

// IsDurable reports whether the conversation is recorded
func (cs *ChatSession) IsDurable() bool {
	return cs.ref.IsDurable()
}

// Send answers the conversation in one piece. Backend failures become an
// apology reply; after a timeout nothing is recorded.
func (cs *ChatSession) Send(ctx context.Context) (*ChatResult, error) {
	GetMetrics().RecordChatRequest("buffered")

	reply, err := cs.svc.generator.GenerateChatResponse(ctx, cs.turns)
	timedOut := false
	if err != nil {
		if IsKind(err, KindUpstreamTimeout) {
			timedOut = true
			reply = MsgChatTimeout
		} else {
			reply = MsgChatFailed
		}
		log.Printf("⚠️  [CHAT] Generation failed for goal %s: %v", cs.goal.ID, err)
	}

	userMsg, assistantMsg := cs.buildMessages(reply)
	if cs.IsDurable() && !timedOut {
		cs.persist(ctx, userMsg, assistantMsg)
	}

	return &ChatResult{UserMessage: *userMsg, AssistantMessage: *assistantMsg}, nil
}

// Stream forwards reply fragments to emit and returns the full reply text.
// The exchange is recorded only when the stream completes; when emit fails
// the stream stops and llm.ErrStreamAborted is returned.
func (cs *ChatSession) Stream(ctx context.Context, emit func(string) error) (string, error) {
	GetMetrics().RecordChatRequest("stream")

	var full strings.Builder
	err := cs.svc.generator.GenerateChatResponseStream(ctx, cs.turns, func(chunk string) error {
		if err := emit(chunk); err != nil {
			return err
		}
		full.WriteString(chunk)
		return nil
	})
	if err != nil {
		return full.String(), err
	}

	if cs.IsDurable() {
		userMsg, assistantMsg := cs.buildMessages(full.String())
		cs.persist(ctx, userMsg, assistantMsg)
	}
	return full.String(), nil
}

func (cs *ChatSession) buildMessages(reply string) (*models.Message, *models.Message) {
	var taskID *string
	if cs.input.TaskID != "" {
		id := cs.input.TaskID
		taskID = &id
	}

	answeredAt := cs.svc.now()
	if !answeredAt.After(cs.startedAt) {
		answeredAt = cs.startedAt.Add(time.Millisecond)
	}

	userMsg := &models.Message{
		GoalID:    cs.goal.ID,
		UserID:    cs.input.UserID,
		TaskID:    taskID,
		Role:      models.RoleUser,
		Content:   cs.input.Content,
		CreatedAt: cs.startedAt,
	}
	assistantMsg := &models.Message{
		GoalID:    cs.goal.ID,
		UserID:    cs.input.UserID,
		TaskID:    taskID,
		Role:      models.RoleAssistant,
		Content:   reply,
		CreatedAt: answeredAt,
	}

	if cs.IsDurable() {
		userMsg.ID = uuid.NewString()
		assistantMsg.ID = uuid.NewString()
	} else {
		stamp := cs.startedAt.UnixMilli()
		userMsg.ID = fmt.Sprintf("temp-%d", stamp)
		assistantMsg.ID = fmt.Sprintf("temp-%d-assistant", stamp)
	}
	return userMsg, assistantMsg
}

// persist records both messages; failures are logged since the reply was delivered
func (cs *ChatSession) persist(ctx context.Context, userMsg, assistantMsg *models.Message) {
	if err := cs.svc.messages.Create(ctx, userMsg); err != nil {
		log.Printf("⚠️  [CHAT] Failed to save user message for goal %s: %v", cs.goal.ID, err)
		return
	}
	if err := cs.svc.messages.Create(ctx, assistantMsg); err != nil {
		log.Printf("⚠️  [CHAT] Failed to save assistant message for goal %s: %v", cs.goal.ID, err)
	}
}

// ListMessages returns the full chat history of an owned goal
func (s *MessageService) ListMessages(ctx context.Context, goalID, userID string) ([]models.Message, error) {
	if !models.ParseGoalRef(goalID).IsDurable() {
		return nil, notFound("Goal not found")
	}

	if _, err := s.goals.GetByIDForUser(ctx, goalID, userID); err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, notFound("Goal not found")
		}
		return nil, storageFailure("failed to load goal", err)
	}

	messages, err := s.messages.ListByGoal(ctx, goalID)
	if err != nil {
		return nil, storageFailure("failed to load messages", err)
	}
	return messages, nil
}
