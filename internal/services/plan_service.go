package services

import (
	"context"
	"errors"

	"listai/internal/models"
)

// PlanService reads stored plan snapshots
type PlanService struct {
	goals GoalStore
	plans PlanStore
}

// NewPlanService creates a new plan service
func NewPlanService(stores *Stores) *PlanService {
	return &PlanService{goals: stores.Goals, plans: stores.Plans}
}

// FindOne returns a plan whose goal belongs to the user
func (s *PlanService) FindOne(ctx context.Context, planID, userID string) (*models.Plan, error) {
	if !models.IsDurableID(planID) {
		return nil, notFound("Plan not found")
	}

	plan, err := s.plans.GetByID(ctx, planID)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, notFound("Plan not found")
	}
	if err != nil {
		return nil, storageFailure("failed to load plan", err)
	}

	if _, err := s.goals.GetByIDForUser(ctx, plan.GoalID, userID); err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, notFound("Plan not found")
		}
		return nil, storageFailure("failed to load goal", err)
	}
	return plan, nil
}

// FindByGoalID returns the goal's current plan, or nil when it has none
func (s *PlanService) FindByGoalID(ctx context.Context, goalID, userID string) (*models.Plan, error) {
	if !models.IsDurableID(goalID) {
		return nil, notFound("Goal not found")
	}

	goal, err := s.goals.GetByIDForUser(ctx, goalID, userID)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, notFound("Goal not found")
	}
	if err != nil {
		return nil, storageFailure("failed to load goal", err)
	}
	if goal.PlanID == nil {
		return nil, nil
	}

	plan, err := s.plans.GetByID(ctx, *goal.PlanID)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storageFailure("failed to load plan", err)
	}
	return plan, nil
}
