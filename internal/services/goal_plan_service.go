package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"listai/internal/logging"
	"listai/internal/models"
	"listai/internal/planner"

	"github.com/google/uuid"
)

// PlanGenerator produces validated plans
type PlanGenerator interface {
	GeneratePlan(ctx context.Context, req PlanRequest) (*models.PlanResponse, error)
}

// CreatePlanInput is the payload of POST /goals/create-plan
type CreatePlanInput struct {
	UserID             string
	GoalID             string
	GoalDescription    string
	ContextDescription string
	TargetDate         string
}

// GoalSummary is the goal header returned with plans
type GoalSummary struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Context string `json:"context"`
}

// PlanStrategyView is a strategy item in a create-plan response
type PlanStrategyView struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// PlanTaskView is a dated task in a create-plan response
type PlanTaskView struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Priority    models.TaskPriority `json:"priority"`
	DayIndex    int                 `json:"day_index"`
	Date        string              `json:"date"`
}

// PlanView is the plan part of a create-plan response
type PlanView struct {
	Strategy  []PlanStrategyView `json:"strategy"`
	Tasks     []PlanTaskView     `json:"tasks"`
	DaysCount int                `json:"daysCount"`
}

// CreatePlanResult is returned by CreatePlan
type CreatePlanResult struct {
	Goal GoalSummary `json:"goal"`
	Plan PlanView    `json:"plan"`
}

// GoalPlan is returned by GetPlan
type GoalPlan struct {
	Goal      GoalSummary       `json:"goal"`
	Strategy  []models.Strategy `json:"strategy"`
	Tasks     []models.Task     `json:"tasks"`
	DaysCount int               `json:"daysCount"`
}

// GoalPlanService creates plans for goals and reads them back
type GoalPlanService struct {
	goals      GoalStore
	strategies StrategyStore
	tasks      TaskStore
	users      UserStore
	generator  PlanGenerator
	loc        *time.Location
	now        func() time.Time
}

// NewGoalPlanService creates a new goal plan service
func NewGoalPlanService(stores *Stores, generator PlanGenerator, loc *time.Location) *GoalPlanService {
	if loc == nil {
		loc = time.UTC
	}
	return &GoalPlanService{
		goals:      stores.Goals,
		strategies: stores.Strategies,
		tasks:      stores.Tasks,
		users:      stores.Users,
		generator:  generator,
		loc:        loc,
		now:        time.Now,
	}
}

func (s *GoalPlanService) today() time.Time {
	return planner.StartOfDay(s.now().In(s.loc))
}

// CreatePlan generates a plan for a goal. Durable goals get their AI tasks and
// strategy replaced; ephemeral goals, and durable goals whose storage fails,
// get an unsaved plan with placeholder ids.
func (s *GoalPlanService) CreatePlan(ctx context.Context, in CreatePlanInput) (*CreatePlanResult, error) {
	if err := validateCreatePlanInput(in); err != nil {
		return nil, err
	}

	ref := models.ParseGoalRef(in.GoalID)
	logger := logging.WithGoal(in.GoalID, in.UserID)
	now := s.now()

	goal := &models.Goal{
		ID:        in.GoalID,
		UserID:    in.UserID,
		Title:     in.GoalDescription,
		Context:   in.ContextDescription,
		Status:    models.GoalStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if ref.IsDurable() {
		resolved, durable, err := s.resolveGoal(ctx, in, now)
		if err != nil {
			return nil, err
		}
		if resolved != nil {
			goal = resolved
		}
		if !durable {
			ref = ref.AsEphemeral()
		}
	}
	logger.Info("creating plan", "goal_ref", ref.String())

	skipWeekends := false
	if ref.IsDurable() {
		skipWeekends = s.userSkipsWeekends(ctx, in.UserID)
	}

	plan, err := s.generator.GeneratePlan(ctx, PlanRequest{
		GoalDescription:    in.GoalDescription,
		ContextDescription: in.ContextDescription,
		TargetDate:         in.TargetDate,
		SkipWeekends:       skipWeekends,
	})
	if err != nil {
		return nil, translateGenerationError(err)
	}

	var view PlanView
	if ref.IsDurable() {
		view, err = s.replacePlan(ctx, goal.ID, plan, in.TargetDate, skipWeekends)
		if err != nil {
			GetMetrics().RecordPlanStorageFallback()
			log.Printf("⚠️  [GOAL-PLAN] Failed to save plan for goal %s, returning unsaved plan: %v", goal.ID, err)
			view = s.synthesizePlan(plan, in.TargetDate, skipWeekends)
		}
	} else {
		view = s.synthesizePlan(plan, in.TargetDate, false)
	}

	log.Printf("✅ [GOAL-PLAN] Plan for goal %s: %d strategy items, %d tasks (%s)", goal.ID, len(view.Strategy), len(view.Tasks), ref)

	return &CreatePlanResult{
		Goal: GoalSummary{ID: goal.ID, Title: goal.Title, Context: goal.Context},
		Plan: view,
	}, nil
}

func validateCreatePlanInput(in CreatePlanInput) error {
	switch {
	case strings.TrimSpace(in.GoalID) == "":
		return validationFailure("goal_id is required")
	case strings.TrimSpace(in.GoalDescription) == "":
		return validationFailure("goal_description is required")
	case strings.TrimSpace(in.ContextDescription) == "":
		return validationFailure("context_description is required")
	}
	if in.TargetDate != "" {
		if _, ok := planner.ParseTargetDate(in.TargetDate, time.UTC); !ok {
			return validationFailure("target_date must be a YYYY-MM-DD or ISO 8601 date")
		}
	}
	return nil
}

// resolveGoal looks up or creates the durable goal. It reports whether the
// goal is still durable; storage errors degrade it to ephemeral.
func (s *GoalPlanService) resolveGoal(ctx context.Context, in CreatePlanInput, now time.Time) (*models.Goal, bool, error) {
	existing, err := s.goals.GetByID(ctx, in.GoalID)
	switch {
	case err == nil:
		if existing.UserID != in.UserID {
			return nil, false, notFound("Goal not found")
		}
		existing.Title = in.GoalDescription
		existing.Context = in.ContextDescription
		existing.UpdatedAt = now
		if err := s.goals.Update(ctx, existing); err != nil {
			GetMetrics().RecordPlanStorageFallback()
			log.Printf("⚠️  [GOAL-PLAN] Failed to update goal %s, continuing unsaved: %v", in.GoalID, err)
			return existing, false, nil
		}
		return existing, true, nil

	case errors.Is(err, ErrRecordNotFound):
		if !models.IsDurableID(in.UserID) {
			log.Printf("⚠️  [GOAL-PLAN] User %s is not a stored account, goal %s stays unsaved", in.UserID, in.GoalID)
			return nil, false, nil
		}
		goal := &models.Goal{
			ID:        in.GoalID,
			UserID:    in.UserID,
			Title:     in.GoalDescription,
			Context:   in.ContextDescription,
			Status:    models.GoalStatusActive,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.goals.Create(ctx, goal); err != nil {
			GetMetrics().RecordPlanStorageFallback()
			log.Printf("⚠️  [GOAL-PLAN] Failed to create goal %s, continuing unsaved: %v", in.GoalID, err)
			return goal, false, nil
		}
		return goal, true, nil

	default:
		GetMetrics().RecordPlanStorageFallback()
		log.Printf("⚠️  [GOAL-PLAN] Failed to look up goal %s, continuing unsaved: %v", in.GoalID, err)
		return nil, false, nil
	}
}

func (s *GoalPlanService) userSkipsWeekends(ctx context.Context, userID string) bool {
	if s.users == nil {
		return false
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return false
	}
	return user.Settings.SkipsWeekends()
}

func translateGenerationError(err error) error {
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	return &AppError{Kind: KindGenerationFailed, Message: "failed to generate plan", Err: err}
}

// replacePlan swaps the stored strategy and AI tasks of a goal for the new plan.
// The delete and insert steps are not atomic.
func (s *GoalPlanService) replacePlan(ctx context.Context, goalID string, plan *models.PlanResponse, targetDate string, skipWeekends bool) (PlanView, error) {
	now := s.now()
	start := s.today()

	if err := s.strategies.DeleteByGoal(ctx, goalID); err != nil {
		return PlanView{}, err
	}
	strategies := make([]models.Strategy, len(plan.Strategy))
	for i, item := range plan.Strategy {
		strategies[i] = models.Strategy{
			ID:          uuid.NewString(),
			GoalID:      goalID,
			Title:       item.Title,
			Description: item.Description,
			OrderIndex:  i,
			CreatedAt:   now,
		}
	}
	if err := s.strategies.CreateMany(ctx, strategies); err != nil {
		return PlanView{}, err
	}

	if err := s.tasks.DeleteGenerated(ctx, goalID); err != nil {
		return PlanView{}, err
	}
	tasks := make([]models.Task, len(plan.Tasks))
	for i, pt := range plan.Tasks {
		dayIndex := pt.DayIndex
		tasks[i] = models.Task{
			ID:          uuid.NewString(),
			GoalID:      goalID,
			Date:        planner.FormatDate(planner.CalculateTaskDate(pt.DayIndex, start, targetDate, skipWeekends)),
			DayIndex:    &dayIndex,
			Title:       pt.Title,
			Description: pt.Description,
			Priority:    pt.Priority,
			Status:      models.TaskStatusTodo,
			CreatedBy:   models.TaskCreatedByAI,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	}
	if err := s.tasks.CreateMany(ctx, tasks); err != nil {
		return PlanView{}, err
	}

	view := PlanView{
		Strategy:  make([]PlanStrategyView, len(strategies)),
		Tasks:     make([]PlanTaskView, len(tasks)),
		DaysCount: plan.DaysCount,
	}
	for i, st := range strategies {
		view.Strategy[i] = PlanStrategyView{ID: st.ID, Title: st.Title, Description: st.Description}
	}
	for i, t := range tasks {
		view.Tasks[i] = PlanTaskView{
			ID:          t.ID,
			Title:       t.Title,
			Description: t.Description,
			Priority:    t.Priority,
			DayIndex:    *t.DayIndex,
			Date:        t.Date,
		}
	}
	return view, nil
}

// synthesizePlan builds an unsaved plan with temp-strategy-i / temp-task-i ids
func (s *GoalPlanService) synthesizePlan(plan *models.PlanResponse, targetDate string, skipWeekends bool) PlanView {
	start := s.today()

	view := PlanView{
		Strategy:  make([]PlanStrategyView, len(plan.Strategy)),
		Tasks:     make([]PlanTaskView, len(plan.Tasks)),
		DaysCount: plan.DaysCount,
	}
	for i, item := range plan.Strategy {
		view.Strategy[i] = PlanStrategyView{
			ID:          fmt.Sprintf("temp-strategy-%d", i),
			Title:       item.Title,
			Description: item.Description,
		}
	}
	for i, pt := range plan.Tasks {
		view.Tasks[i] = PlanTaskView{
			ID:          fmt.Sprintf("temp-task-%d", i),
			Title:       pt.Title,
			Description: pt.Description,
			Priority:    pt.Priority,
			DayIndex:    pt.DayIndex,
			Date:        planner.FormatDate(planner.CalculateTaskDate(pt.DayIndex, start, targetDate, skipWeekends)),
		}
	}
	return view
}

// GetPlan returns the stored strategy and tasks of an owned goal
func (s *GoalPlanService) GetPlan(ctx context.Context, goalID, userID string) (*GoalPlan, error) {
	if !models.ParseGoalRef(goalID).IsDurable() {
		return nil, notFound("Goal not found")
	}

	goal, err := s.goals.GetByIDForUser(ctx, goalID, userID)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, notFound("Goal not found")
	}
	if err != nil {
		return nil, storageFailure("failed to load goal", err)
	}

	strategies, err := s.strategies.ListByGoal(ctx, goalID)
	if err != nil {
		return nil, storageFailure("failed to load strategy", err)
	}
	sort.SliceStable(strategies, func(i, j int) bool {
		return strategies[i].OrderIndex < strategies[j].OrderIndex
	})

	all, err := s.tasks.ListByGoal(ctx, goalID, "")
	if err != nil {
		return nil, storageFailure("failed to load tasks", err)
	}
	tasks := SortPlanTasks(all)

	daysCount := 0
	for _, t := range tasks {
		if t.DayIndex != nil && *t.DayIndex > daysCount {
			daysCount = *t.DayIndex
		}
	}

	return &GoalPlan{
		Goal:      GoalSummary{ID: goal.ID, Title: goal.Title, Context: goal.Context},
		Strategy:  strategies,
		Tasks:     tasks,
		DaysCount: daysCount,
	}, nil
}

// SortPlanTasks drops manually added tasks without a day index and orders the
// rest by day index, then by priority high to low
func SortPlanTasks(all []models.Task) []models.Task {
	tasks := make([]models.Task, 0, len(all))
	for _, t := range all {
		if t.ManuallyAdded && t.DayIndex == nil {
			continue
		}
		tasks = append(tasks, t)
	}

	dayOf := func(t models.Task) int {
		if t.DayIndex == nil {
			return 0
		}
		return *t.DayIndex
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		di, dj := dayOf(tasks[i]), dayOf(tasks[j])
		if di != dj {
			return di < dj
		}
		return tasks[i].Priority.Weight() > tasks[j].Priority.Weight()
	})
	return tasks
}
