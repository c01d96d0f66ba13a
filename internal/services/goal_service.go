package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"listai/internal/models"

	"github.com/google/uuid"
)

// CreateGoalInput is the payload of POST /goals
type CreateGoalInput struct {
	Title        string `json:"title"`
	Context      string `json:"context"`
	GeneratePlan bool   `json:"generatePlan"`
}

// GoalListMeta accompanies the goal list
type GoalListMeta struct {
	Total int  `json:"total"`
	Limit *int `json:"limit"`
}

// GoalList is returned by FindAll
type GoalList struct {
	Goals []models.Goal `json:"goals"`
	Meta  GoalListMeta  `json:"meta"`
}

// CreateGoalResult is returned by Create
type CreateGoalResult struct {
	Goal      *models.Goal `json:"goal"`
	PlanJobID string       `json:"planJobId,omitempty"`
}

// GoalService manages a user's goals
type GoalService struct {
	stores *Stores
	tier   *TierService
	jobs   *PlanJobService
	now    func() time.Time
}

// NewGoalService creates a new goal service. jobs may be nil when background
// generation is disabled.
func NewGoalService(stores *Stores, tier *TierService, jobs *PlanJobService) *GoalService {
	return &GoalService{
		stores: stores,
		tier:   tier,
		jobs:   jobs,
		now:    time.Now,
	}
}

// FindAll lists the user's goals, newest first
func (s *GoalService) FindAll(ctx context.Context, userID string) (*GoalList, error) {
	goals, err := s.stores.Goals.ListByUser(ctx, userID)
	if err != nil {
		return nil, storageFailure("failed to list goals", err)
	}
	if goals == nil {
		goals = []models.Goal{}
	}

	meta := GoalListMeta{Total: len(goals)}
	if limits := s.tier.GetLimits(ctx, userID); limits.MaxGoals >= 0 {
		limit := limits.MaxGoals
		meta.Limit = &limit
	}
	return &GoalList{Goals: goals, Meta: meta}, nil
}

// FindOne returns an owned goal
func (s *GoalService) FindOne(ctx context.Context, goalID, userID string) (*models.Goal, error) {
	if !models.IsDurableID(goalID) {
		return nil, notFound("Goal not found")
	}
	goal, err := s.stores.Goals.GetByIDForUser(ctx, goalID, userID)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, notFound("Goal not found")
	}
	if err != nil {
		return nil, storageFailure("failed to load goal", err)
	}
	return goal, nil
}

// Create stores a goal, enforcing the tier goal limit, and optionally queues
// plan generation
func (s *GoalService) Create(ctx context.Context, userID string, in CreateGoalInput) (*CreateGoalResult, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, validationFailure("title is required")
	}

	if _, err := s.stores.Users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, notFound("User not found")
		}
		return nil, storageFailure("failed to load user", err)
	}

	count, err := s.stores.Goals.CountByUser(ctx, userID)
	if err != nil {
		return nil, storageFailure("failed to count goals", err)
	}
	if !s.tier.CheckGoalLimit(ctx, userID, count) {
		return nil, forbidden(CodeGoalLimit, "Free tier allows only 1 goal. Upgrade to Pro for unlimited goals.")
	}

	now := s.now()
	goal := &models.Goal{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Context:   in.Context,
		Status:    models.GoalStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.stores.Goals.Create(ctx, goal); err != nil {
		return nil, storageFailure("failed to create goal", err)
	}

	result := &CreateGoalResult{Goal: goal}
	if in.GeneratePlan && s.jobs != nil {
		jobID, err := s.jobs.StartGeneration(ctx, goal.ID, userID)
		if err != nil {
			log.Printf("⚠️  [GOALS] Goal %s created but plan generation was not queued: %v", goal.ID, err)
		} else {
			result.PlanJobID = jobID
		}
	}
	return result, nil
}

// Remove deletes an owned goal with its tasks, strategy, messages and plan
func (s *GoalService) Remove(ctx context.Context, goalID, userID string) error {
	if _, err := s.FindOne(ctx, goalID, userID); err != nil {
		return err
	}

	if err := s.stores.Tasks.DeleteByGoal(ctx, goalID); err != nil {
		return storageFailure("failed to delete tasks", err)
	}
	if err := s.stores.Strategies.DeleteByGoal(ctx, goalID); err != nil {
		return storageFailure("failed to delete strategy", err)
	}
	if err := s.stores.Messages.DeleteByGoal(ctx, goalID); err != nil {
		return storageFailure("failed to delete messages", err)
	}
	if err := s.stores.Plans.DeleteByGoal(ctx, goalID); err != nil {
		return storageFailure("failed to delete plans", err)
	}
	if err := s.stores.Goals.Delete(ctx, goalID); err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return notFound("Goal not found")
		}
		return storageFailure("failed to delete goal", err)
	}

	log.Printf("🗑️  [GOALS] Deleted goal %s", goalID)
	return nil
}
