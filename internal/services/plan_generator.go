package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"listai/internal/config"
	"listai/internal/llm"
	"listai/internal/models"
	"listai/internal/planner"
)

// TextGenerator is the model backend used by PlanGenerationService
type TextGenerator interface {
	Complete(ctx context.Context, req llm.CompletionRequest) (string, error)
	Stream(ctx context.Context, req llm.CompletionRequest, onChunk func(string) error) error
	Model() string
}

// PlanRequest is the input to GeneratePlan
type PlanRequest struct {
	GoalDescription    string
	ContextDescription string
	TargetDate         string
	SkipWeekends       bool
}

// PlanGenerationService turns goals into validated plans and answers chat turns
type PlanGenerationService struct {
	generator TextGenerator
	settings  *config.LLMSettings
	now       func() time.Time
}

// NewPlanGenerationService creates a new plan generation service
func NewPlanGenerationService(generator TextGenerator, settings *config.LLMSettings) *PlanGenerationService {
	return &PlanGenerationService{
		generator: generator,
		settings:  settings,
		now:       time.Now,
	}
}

// Model returns the model id plans are attributed to
func (s *PlanGenerationService) Model() string {
	return s.generator.Model()
}

// GeneratePlan asks the model for a plan, correcting invalid answers, until a
// valid plan is produced or the attempt budget runs out. A regional
// restriction stops immediately with KindUpstreamUnavailable.
func (s *PlanGenerationService) GeneratePlan(ctx context.Context, req PlanRequest) (*models.PlanResponse, error) {
	cfg := s.settings.Get()
	started := time.Now()
	defer func() {
		GetMetrics().RecordPlanLatency(time.Since(started).Seconds())
	}()

	base := []llm.Message{
		{Role: llm.RoleSystem, Content: planSystemPrompt},
		{Role: llm.RoleUser, Content: buildPlanUserPrompt(req, s.now())},
	}

	machine := planner.NewRetryMachine(cfg.MaxPlanAttempts)
	for !machine.Done() {
		switch machine.State() {
		case planner.StateAttempting:
			text, err := s.generator.Complete(ctx, llm.CompletionRequest{
				Messages:    base,
				Temperature: cfg.PlanTemperature,
				JSONMode:    true,
			})
			if err != nil && llm.IsRegionRestricted(err) {
				machine.Abort(err)
				break
			}

			plan, err := parseCompletion(text, err)
			if err == nil {
				GetMetrics().RecordPlanAttempt("valid")
				machine.Succeed()
				log.Printf("✅ [PLAN-GEN] Valid plan on attempt %d: %d tasks, %d days", machine.Attempts()+1, len(plan.Tasks), plan.DaysCount)
				return plan, nil
			}

			GetMetrics().RecordPlanAttempt("invalid")
			log.Printf("⚠️  [PLAN-GEN] Attempt %d failed: %v", machine.Attempts()+1, err)
			machine.AttemptFailed(text, err)

		case planner.StateCorrecting:
			messages := append([]llm.Message{}, base...)
			if last := machine.LastOutput(); last != "" {
				messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: last})
			}
			messages = append(messages, llm.Message{Role: llm.RoleUser, Content: planCorrectionPrompt})

			text, err := s.generator.Complete(ctx, llm.CompletionRequest{
				Messages:    messages,
				Temperature: cfg.CorrectionTemperature,
				JSONMode:    true,
			})
			if err != nil && llm.IsRegionRestricted(err) {
				machine.Abort(err)
				break
			}

			plan, err := parseCompletion(text, err)
			if err == nil {
				GetMetrics().RecordPlanAttempt("correction_valid")
				machine.Succeed()
				log.Printf("✅ [PLAN-GEN] Valid plan after correction: %d tasks, %d days", len(plan.Tasks), plan.DaysCount)
				return plan, nil
			}

			GetMetrics().RecordPlanAttempt("correction_invalid")
			log.Printf("⚠️  [PLAN-GEN] Correction failed: %v", err)
			machine.CorrectionFailed(text, err)
		}
	}

	if llm.IsRegionRestricted(machine.Err()) {
		GetMetrics().RecordPlanAttempt("region")
		log.Printf("🌍 [PLAN-GEN] Backend unavailable in this region: %v", machine.Err())
		return nil, &AppError{
			Kind:    KindUpstreamUnavailable,
			Code:    "REGION_UNAVAILABLE",
			Message: MsgRegionUnavailable,
			Err:     machine.Err(),
		}
	}

	log.Printf("❌ [PLAN-GEN] Giving up after %d attempts: %v", machine.Attempts(), machine.Err())
	return nil, &AppError{
		Kind:    KindGenerationFailed,
		Message: fmt.Sprintf("failed to generate valid plan after %d attempts: %v", machine.Attempts(), machine.Err()),
		Err:     machine.Err(),
	}
}

func parseCompletion(text string, callErr error) (*models.PlanResponse, error) {
	if callErr != nil {
		return nil, callErr
	}
	return planner.ParsePlan(text)
}

// chatApology maps recoverable backend failures to a user-readable reply
func chatApology(err error) (string, bool) {
	switch llm.KindOf(err) {
	case llm.KindRegion:
		return MsgRegionUnavailable, true
	case llm.KindAuth:
		return MsgAuthFailed, true
	case llm.KindRateLimit:
		return MsgRateLimited, true
	}
	return "", false
}

// GenerateChatResponse answers a conversation in one piece within the chat timeout
func (s *PlanGenerationService) GenerateChatResponse(ctx context.Context, messages []llm.Message) (string, error) {
	cfg := s.settings.Get()
	ctx, cancel := context.WithTimeout(ctx, cfg.ChatTimeout)
	defer cancel()

	started := time.Now()
	text, err := s.generator.Complete(ctx, llm.CompletionRequest{
		Messages:    messages,
		Temperature: cfg.ChatTemperature,
	})
	GetMetrics().RecordChatLatency(time.Since(started).Seconds())

	if err != nil {
		if llm.KindOf(err) == llm.KindTimeout {
			GetMetrics().RecordChatError("timeout")
			return "", &AppError{Kind: KindUpstreamTimeout, Message: fmt.Sprintf("chat response timed out after %s", cfg.ChatTimeout), Err: err}
		}
		if apology, ok := chatApology(err); ok {
			GetMetrics().RecordChatError(string(llm.KindOf(err)))
			log.Printf("⚠️  [CHAT] Recoverable backend failure: %v", err)
			return apology, nil
		}
		GetMetrics().RecordChatError("upstream")
		return "", &AppError{Kind: KindUpstreamUnavailable, Message: "failed to generate chat response", Err: err}
	}

	if strings.TrimSpace(text) == "" {
		return MsgEmptyReply, nil
	}
	return text, nil
}

// GenerateChatResponseStream forwards reply fragments to emit as they arrive.
// Backend failures are turned into one apology fragment. If emit fails the
// upstream read stops and llm.ErrStreamAborted is returned.
func (s *PlanGenerationService) GenerateChatResponseStream(ctx context.Context, messages []llm.Message, emit func(string) error) error {
	cfg := s.settings.Get()

	started := time.Now()
	err := s.generator.Stream(ctx, llm.CompletionRequest{
		Messages:    messages,
		Temperature: cfg.ChatTemperature,
	}, emit)
	GetMetrics().RecordChatLatency(time.Since(started).Seconds())

	if err == nil || errors.Is(err, llm.ErrStreamAborted) {
		return err
	}

	log.Printf("⚠️  [CHAT] Streaming failed: %v", err)
	apology, ok := chatApology(err)
	if !ok {
		apology = MsgChatFailed
		GetMetrics().RecordChatError("upstream")
	} else {
		GetMetrics().RecordChatError(string(llm.KindOf(err)))
	}
	if emitErr := emit(apology); emitErr != nil {
		return llm.ErrStreamAborted
	}
	return nil
}

// GeneratePlanSummary renders a plan as chat-friendly text
func (s *PlanGenerationService) GeneratePlanSummary(plan *models.PlanResponse) string {
	var b strings.Builder

	b.WriteString("Your plan is ready!\n\nStrategy:\n")
	for i, item := range plan.Strategy {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d. %s\n   %s\n", i+1, item.Title, item.Description)
	}

	byDay := make(map[int][]models.PlanTask)
	var days []int
	for _, task := range plan.Tasks {
		if _, ok := byDay[task.DayIndex]; !ok {
			days = append(days, task.DayIndex)
		}
		byDay[task.DayIndex] = append(byDay[task.DayIndex], task)
	}
	sort.Ints(days)

	fmt.Fprintf(&b, "\nTasks by day (%d days total):\n", plan.DaysCount)
	for i, day := range days {
		if i > 0 {
			b.WriteString("\n")
		}
		tasks := byDay[day]
		sort.SliceStable(tasks, func(a, c int) bool {
			return tasks[a].Priority.Weight() > tasks[c].Priority.Weight()
		})
		fmt.Fprintf(&b, "Day %d:\n", day)
		for _, task := range tasks {
			fmt.Fprintf(&b, "  - %s (%s)\n", task.Title, task.Priority)
		}
	}

	fmt.Fprintf(&b, "\nTotal tasks: %d", len(plan.Tasks))
	return b.String()
}
