package models

import "time"

// PlanResponse is the validated output of a plan generation call
type PlanResponse struct {
	Strategy  []StrategyItem `json:"strategy"`
	Tasks     []PlanTask     `json:"tasks"`
	DaysCount int            `json:"days_count"`
}

// StrategyItem is one strategy entry proposed by the model
type StrategyItem struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// PlanTask is one task proposed by the model
type PlanTask struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Priority    TaskPriority `json:"priority"`
	DayIndex    int          `json:"day_index"`
}

// Plan is the stored snapshot produced by background generation
type Plan struct {
	ID              string      `bson:"_id" json:"id"`
	GoalID          string      `bson:"goalId" json:"goalId"`
	GeneratedBy     string      `bson:"generatedBy" json:"generatedBy"`
	Content         PlanContent `bson:"content" json:"content"`
	SnapshotVersion int         `bson:"snapshotVersion" json:"snapshotVersion"`
	CreatedAt       time.Time   `bson:"createdAt" json:"createdAt"`
}

// CurrentPlanSnapshotVersion is written to every new plan
const CurrentPlanSnapshotVersion = 1

// PlanContent is the day-by-day layout of a plan
type PlanContent struct {
	Days []PlanDay `bson:"days" json:"days"`
	Meta PlanMeta  `bson:"meta" json:"meta"`
}

// PlanDay groups the tasks scheduled on one date
type PlanDay struct {
	Date  string        `bson:"date" json:"date"`
	Tasks []PlanDayTask `bson:"tasks" json:"tasks"`
}

// PlanDayTask is a task inside a plan snapshot
type PlanDayTask struct {
	ID           string       `bson:"id" json:"id"`
	Title        string       `bson:"title" json:"title"`
	Description  string       `bson:"description,omitempty" json:"description,omitempty"`
	DurationMins int          `bson:"durationMins" json:"duration_mins"`
	Priority     TaskPriority `bson:"priority" json:"priority"`
	CreatedBy    TaskOrigin   `bson:"createdBy,omitempty" json:"created_by,omitempty"`
}

// PlanMeta summarizes a plan snapshot
type PlanMeta struct {
	TotalDays        int              `bson:"totalDays" json:"total_days"`
	AvgDailyDuration int              `bson:"avgDailyDuration" json:"avg_daily_duration"`
	Constraints      *PlanConstraints `bson:"constraints,omitempty" json:"constraints,omitempty"`
	Milestones       []string         `bson:"milestones,omitempty" json:"milestones,omitempty"`
}

// PlanConstraints are the scheduling limits applied during generation
type PlanConstraints struct {
	NoWeekends         bool `bson:"noWeekends" json:"no_weekends"`
	DailyTimeLimitMins int  `bson:"dailyTimeLimitMins" json:"daily_time_limit_mins"`
}
