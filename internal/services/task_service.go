package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"listai/internal/models"

	"github.com/google/uuid"
)

// CreateTaskInput is the payload of POST /goals/:goalId/tasks
type CreateTaskInput struct {
	Title       string              `json:"title"`
	Date        string              `json:"date"`
	Priority    models.TaskPriority `json:"priority"`
	Description string              `json:"description"`
}

// UpdateTaskInput holds the fields a PATCH may change
type UpdateTaskInput struct {
	Title       *string              `json:"title"`
	Priority    *models.TaskPriority `json:"priority"`
	Status      *models.TaskStatus   `json:"status"`
	Description *string              `json:"description"`
}

// TaskDiscussion points the client at the chat for a task
type TaskDiscussion struct {
	TaskID string `json:"taskId"`
	GoalID string `json:"goalId"`
	ChatID string `json:"chatId"`
}

// TaskService manages the tasks of owned goals
type TaskService struct {
	goals GoalStore
	tasks TaskStore
	tier  *TierService
	now   func() time.Time
}

// NewTaskService creates a new task service
func NewTaskService(stores *Stores, tier *TierService) *TaskService {
	return &TaskService{
		goals: stores.Goals,
		tasks: stores.Tasks,
		tier:  tier,
		now:   time.Now,
	}
}

func (s *TaskService) ownedGoal(ctx context.Context, goalID, userID string) error {
	if !models.IsDurableID(goalID) {
		return notFound("Goal not found")
	}
	_, err := s.goals.GetByIDForUser(ctx, goalID, userID)
	if errors.Is(err, ErrRecordNotFound) {
		return notFound("Goal not found")
	}
	if err != nil {
		return storageFailure("failed to load goal", err)
	}
	return nil
}

// ownedTask loads a task whose goal belongs to the user
func (s *TaskService) ownedTask(ctx context.Context, taskID, userID string) (*models.Task, error) {
	if !models.IsDurableID(taskID) {
		return nil, notFound("Task not found")
	}
	task, err := s.tasks.GetByID(ctx, taskID)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, notFound("Task not found")
	}
	if err != nil {
		return nil, storageFailure("failed to load task", err)
	}
	if err := s.ownedGoal(ctx, task.GoalID, userID); err != nil {
		if IsKind(err, KindNotFound) {
			return nil, notFound("Task not found")
		}
		return nil, err
	}
	return task, nil
}

// FindAll lists the goal's tasks ordered by date, optionally for one day
func (s *TaskService) FindAll(ctx context.Context, goalID, userID, date string) ([]models.Task, error) {
	if date != "" {
		if _, err := time.Parse("2006-01-02", date); err != nil {
			return nil, validationFailure("date must be YYYY-MM-DD")
		}
	}
	if err := s.ownedGoal(ctx, goalID, userID); err != nil {
		return nil, err
	}

	tasks, err := s.tasks.ListByGoal(ctx, goalID, date)
	if err != nil {
		return nil, storageFailure("failed to list tasks", err)
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	return tasks, nil
}

// Create adds a user-authored task that plan regeneration keeps
func (s *TaskService) Create(ctx context.Context, goalID, userID string, in CreateTaskInput) (*models.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, validationFailure("title is required")
	}
	if _, err := time.Parse("2006-01-02", in.Date); err != nil {
		return nil, validationFailure("date must be YYYY-MM-DD")
	}
	priority := in.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !priority.IsValid() {
		return nil, validationFailure("priority must be one of: low, medium, high")
	}

	if err := s.ownedGoal(ctx, goalID, userID); err != nil {
		return nil, err
	}

	now := s.now()
	task := &models.Task{
		ID:            uuid.NewString(),
		GoalID:        goalID,
		Date:          in.Date,
		Title:         title,
		Description:   in.Description,
		Priority:      priority,
		Status:        models.TaskStatusTodo,
		CreatedBy:     models.TaskCreatedByUser,
		ManuallyAdded: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, storageFailure("failed to create task", err)
	}
	return task, nil
}

// Update changes the given fields of a task
func (s *TaskService) Update(ctx context.Context, taskID, userID string, in UpdateTaskInput) (*models.Task, error) {
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return nil, validationFailure("title must not be empty")
	}
	if in.Priority != nil && !in.Priority.IsValid() {
		return nil, validationFailure("priority must be one of: low, medium, high")
	}
	if in.Status != nil && !in.Status.IsValid() {
		return nil, validationFailure("status must be one of: todo, in_progress, done")
	}

	task, err := s.ownedTask(ctx, taskID, userID)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		task.Title = strings.TrimSpace(*in.Title)
	}
	if in.Priority != nil {
		task.Priority = *in.Priority
	}
	if in.Status != nil {
		task.Status = *in.Status
	}
	if in.Description != nil {
		task.Description = *in.Description
	}
	task.UpdatedAt = s.now()

	if err := s.tasks.Update(ctx, task); err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, notFound("Task not found")
		}
		return nil, storageFailure("failed to update task", err)
	}
	return task, nil
}

// Remove deletes a task
func (s *TaskService) Remove(ctx context.Context, taskID, userID string) error {
	if _, err := s.ownedTask(ctx, taskID, userID); err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, taskID); err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return notFound("Task not found")
		}
		return storageFailure("failed to delete task", err)
	}
	return nil
}

// Discuss opens a task discussion; free-tier users are locked out
func (s *TaskService) Discuss(ctx context.Context, taskID, userID string) (*TaskDiscussion, error) {
	task, err := s.ownedTask(ctx, taskID, userID)
	if err != nil {
		return nil, err
	}
	if !GetTierLimits(s.tier.GetUserTier(ctx, userID)).TaskDiscussion {
		return nil, forbidden(CodeFeatureLocked, "Task discussion is available only for Pro users")
	}
	return &TaskDiscussion{
		TaskID: task.ID,
		GoalID: task.GoalID,
		ChatID: "chat_" + task.GoalID,
	}, nil
}
