package models

import "time"

// JobStatus mirrors the states a queued plan generation passes through
type JobStatus string

const (
	JobStatusWaiting   JobStatus = "waiting"
	JobStatusActive    JobStatus = "active"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// PlanJobName is the only job type on the plan generation queue
const PlanJobName = "generate"

// PlanJob is a queued background plan generation
type PlanJob struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Data       PlanJobData    `json:"data"`
	Status     JobStatus      `json:"status"`
	Progress   int            `json:"progress"`
	Error      string         `json:"error,omitempty"`
	Result     *PlanJobResult `json:"result,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
	StartedAt  *time.Time     `json:"startedAt,omitempty"`
	FinishedAt *time.Time     `json:"finishedAt,omitempty"`
}

// PlanJobData is the payload handed to the worker
type PlanJobData struct {
	GoalID      string          `json:"goalId"`
	UserID      string          `json:"userId"`
	Title       string          `json:"title"`
	Context     string          `json:"context"`
	Constraints PlanConstraints `json:"constraints"`
}

// PlanJobResult is recorded on successful completion
type PlanJobResult struct {
	PlanID string `json:"planId"`
}

// IsFinished reports whether the job reached a terminal state
func (j *PlanJob) IsFinished() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}
