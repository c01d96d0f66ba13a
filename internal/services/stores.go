package services

import (
	"context"

	"listai/internal/models"
)

// GoalStore persists goals
type GoalStore interface {
	Create(ctx context.Context, goal *models.Goal) error
	GetByID(ctx context.Context, id string) (*models.Goal, error)
	GetByIDForUser(ctx context.Context, id, userID string) (*models.Goal, error)
	Update(ctx context.Context, goal *models.Goal) error
	ListByUser(ctx context.Context, userID string) ([]models.Goal, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
	SetPlanID(ctx context.Context, goalID, planID string) error
	Delete(ctx context.Context, id string) error
}

// StrategyStore persists strategy items
type StrategyStore interface {
	CreateMany(ctx context.Context, items []models.Strategy) error
	ListByGoal(ctx context.Context, goalID string) ([]models.Strategy, error)
	DeleteByGoal(ctx context.Context, goalID string) error
}

// TaskStore persists tasks
type TaskStore interface {
	Create(ctx context.Context, task *models.Task) error
	CreateMany(ctx context.Context, tasks []models.Task) error
	GetByID(ctx context.Context, id string) (*models.Task, error)
	// ListByGoal returns tasks ordered by date; an empty date means all days
	ListByGoal(ctx context.Context, goalID, date string) ([]models.Task, error)
	// ListCompleted returns up to limit most recently finished tasks, oldest first
	ListCompleted(ctx context.Context, goalID string, limit int) ([]models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, id string) error
	// DeleteGenerated removes AI-authored tasks that were not manually added
	DeleteGenerated(ctx context.Context, goalID string) error
	DeleteByGoal(ctx context.Context, goalID string) error
}

// MessageStore persists chat messages
type MessageStore interface {
	Create(ctx context.Context, msg *models.Message) error
	ListByGoal(ctx context.Context, goalID string) ([]models.Message, error)
	// Recent returns up to limit newest messages in creation order
	Recent(ctx context.Context, goalID string, limit int) ([]models.Message, error)
	DeleteByGoal(ctx context.Context, goalID string) error
}

// PlanStore persists plan snapshots
type PlanStore interface {
	Create(ctx context.Context, plan *models.Plan) error
	GetByID(ctx context.Context, id string) (*models.Plan, error)
	GetByGoalID(ctx context.Context, goalID string) (*models.Plan, error)
	DeleteByGoal(ctx context.Context, goalID string) error
}

// UserStore persists accounts
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateSettings(ctx context.Context, id string, settings models.UserSettings) error
}

// Stores bundles every store the services need
type Stores struct {
	Goals      GoalStore
	Strategies StrategyStore
	Tasks      TaskStore
	Messages   MessageStore
	Plans      PlanStore
	Users      UserStore
}
