package models

import "time"

// TaskPriority orders tasks within a day
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

// Weight returns the sort weight of a priority (high=3, medium=2, low=1)
func (p TaskPriority) Weight() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// IsValid reports whether p is one of the known priorities
func (p TaskPriority) IsValid() bool {
	return p.Weight() > 0
}

// TaskStatus is the progress state of a task
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
)

// IsValid reports whether s is one of the known statuses
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone:
		return true
	}
	return false
}

// TaskOrigin records who authored a task
type TaskOrigin string

const (
	TaskCreatedByAI   TaskOrigin = "ai"
	TaskCreatedByUser TaskOrigin = "user"
)

// Task is one schedulable unit of work tied to a goal and a day.
// Tasks with CreatedBy=ai and ManuallyAdded=false are replaced on regeneration.
type Task struct {
	ID            string       `bson:"_id" json:"id"`
	GoalID        string       `bson:"goalId" json:"goalId"`
	PlanID        *string      `bson:"planId,omitempty" json:"planId"`
	Date          string       `bson:"date,omitempty" json:"date,omitempty"` // YYYY-MM-DD
	DayIndex      *int         `bson:"dayIndex,omitempty" json:"dayIndex"`
	Title         string       `bson:"title" json:"title"`
	Description   string       `bson:"description" json:"description"`
	Priority      TaskPriority `bson:"priority" json:"priority"`
	Status        TaskStatus   `bson:"status" json:"status"`
	CreatedBy     TaskOrigin   `bson:"createdBy" json:"createdBy"`
	ManuallyAdded bool         `bson:"manuallyAdded" json:"manuallyAdded"`
	CreatedAt     time.Time    `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time    `bson:"updatedAt" json:"updatedAt"`
}

// IsDisposable reports whether regeneration may delete the task
func (t *Task) IsDisposable() bool {
	return t.CreatedBy == TaskCreatedByAI && !t.ManuallyAdded
}
