package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"listai/internal/logging"
	"listai/internal/models"
	"listai/internal/planner"

	"github.com/google/uuid"
)

// Progress milestones reported by the plan worker
const (
	ProgressStarted   = 10
	ProgressGenerated = 80
	ProgressSaved     = 100

	activeJobEstimateSeconds = 30
)

// ModelPlanGenerator is a plan generator that can name the model it uses
type ModelPlanGenerator interface {
	PlanGenerator
	Model() string
}

// JobStatusView is the response of the job status endpoint
type JobStatusView struct {
	Status           models.JobStatus `json:"status"`
	Progress         int              `json:"progress"`
	EstimatedSeconds *int             `json:"estimated_seconds"`
}

// PlanJobService queues background plan generation and runs its workers
type PlanJobService struct {
	goals     GoalStore
	users     UserStore
	plans     PlanStore
	queue     JobQueue
	generator ModelPlanGenerator
	loc       *time.Location
	now       func() time.Time

	wg sync.WaitGroup
}

// NewPlanJobService creates a new plan job service
func NewPlanJobService(stores *Stores, queue JobQueue, generator ModelPlanGenerator, loc *time.Location) *PlanJobService {
	if loc == nil {
		loc = time.UTC
	}
	return &PlanJobService{
		goals:     stores.Goals,
		users:     stores.Users,
		plans:     stores.Plans,
		queue:     queue,
		generator: generator,
		loc:       loc,
		now:       time.Now,
	}
}

// StartGeneration enqueues a generate job for an owned goal and returns its id
func (s *PlanJobService) StartGeneration(ctx context.Context, goalID, userID string) (string, error) {
	if !models.ParseGoalRef(goalID).IsDurable() {
		return "", notFound("Goal not found")
	}

	goal, err := s.goals.GetByIDForUser(ctx, goalID, userID)
	if errors.Is(err, ErrRecordNotFound) {
		return "", notFound("Goal not found")
	}
	if err != nil {
		return "", storageFailure("failed to load goal", err)
	}

	var settings models.UserSettings
	if s.users != nil {
		user, err := s.users.GetByID(ctx, userID)
		switch {
		case err == nil:
			settings = user.Settings
		case !errors.Is(err, ErrRecordNotFound):
			log.Printf("⚠️  [PLAN-JOB] Failed to load settings for user %s: %v", userID, err)
		}
	}

	job := &models.PlanJob{
		ID:   uuid.NewString(),
		Name: models.PlanJobName,
		Data: models.PlanJobData{
			GoalID:  goal.ID,
			UserID:  userID,
			Title:   goal.Title,
			Context: goal.Context,
			Constraints: models.PlanConstraints{
				NoWeekends:         settings.SkipsWeekends(),
				DailyTimeLimitMins: settings.DailyLimitMinutes(),
			},
		},
		Status:    models.JobStatusWaiting,
		CreatedAt: s.now(),
	}

	if err := s.queue.Enqueue(ctx, job); err != nil {
		return "", storageFailure("failed to enqueue plan generation", err)
	}

	GetMetrics().RecordPlanJob(string(models.JobStatusWaiting))
	logging.WithJob(job.ID, goal.ID).Info("plan generation queued")
	return job.ID, nil
}

// GetStatus reports the state and progress of a job
func (s *PlanJobService) GetStatus(ctx context.Context, jobID string) (*JobStatusView, error) {
	job, err := s.queue.Get(ctx, jobID)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, notFound("Job not found")
	}
	if err != nil {
		return nil, storageFailure("failed to load job", err)
	}

	view := &JobStatusView{Status: job.Status, Progress: job.Progress}
	if job.Status == models.JobStatusActive {
		estimate := activeJobEstimateSeconds
		view.EstimatedSeconds = &estimate
	}
	return view, nil
}

// Start launches count workers that run until ctx is cancelled. A job that
// is already running is finished before its worker exits.
func (s *PlanJobService) Start(ctx context.Context, count int) {
	if count <= 0 {
		count = 1
	}
	for i := 0; i < count; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}
	log.Printf("✅ [PLAN-JOB] Started %d plan generation workers", count)
}

// Wait blocks until every worker has exited
func (s *PlanJobService) Wait() {
	s.wg.Wait()
}

func (s *PlanJobService) worker(ctx context.Context, n int) {
	defer s.wg.Done()

	for {
		if ctx.Err() != nil {
			log.Printf("🛑 [PLAN-JOB] Worker %d stopped", n)
			return
		}

		job, err := s.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			log.Printf("⚠️  [PLAN-JOB] Worker %d dequeue failed: %v", n, err)
			time.Sleep(time.Second)
			continue
		}
		if job == nil {
			continue
		}

		// Jobs run to completion even while shutting down
		s.Process(context.Background(), job)
	}
}

// Process runs one job: generate, build the plan content, save it and link it
// to the goal. Progress is reported at 10, 80 and 100.
func (s *PlanJobService) Process(ctx context.Context, job *models.PlanJob) {
	logger := logging.WithJob(job.ID, job.Data.GoalID)

	started := s.now()
	job.Status = models.JobStatusActive
	job.StartedAt = &started
	s.update(ctx, job)
	GetMetrics().RecordPlanJob(string(models.JobStatusActive))

	job.Progress = ProgressStarted
	s.update(ctx, job)

	plan, err := s.generator.GeneratePlan(ctx, PlanRequest{
		GoalDescription:    job.Data.Title,
		ContextDescription: job.Data.Context,
		SkipWeekends:       job.Data.Constraints.NoWeekends,
	})
	if err != nil {
		s.fail(ctx, job, err)
		return
	}

	job.Progress = ProgressGenerated
	s.update(ctx, job)

	start := planner.StartOfDay(started.In(s.loc))
	stored := &models.Plan{
		ID:              uuid.NewString(),
		GoalID:          job.Data.GoalID,
		GeneratedBy:     s.generator.Model(),
		Content:         BuildPlanContent(plan, start, job.Data.Constraints),
		SnapshotVersion: models.CurrentPlanSnapshotVersion,
		CreatedAt:       s.now(),
	}
	if err := s.plans.Create(ctx, stored); err != nil {
		s.fail(ctx, job, fmt.Errorf("failed to save plan: %w", err))
		return
	}
	if err := s.goals.SetPlanID(ctx, job.Data.GoalID, stored.ID); err != nil {
		s.fail(ctx, job, fmt.Errorf("failed to link plan to goal: %w", err))
		return
	}

	finished := s.now()
	job.Progress = ProgressSaved
	job.Status = models.JobStatusCompleted
	job.Result = &models.PlanJobResult{PlanID: stored.ID}
	job.FinishedAt = &finished
	s.update(ctx, job)

	GetMetrics().RecordPlanJob(string(models.JobStatusCompleted))
	logger.Info("plan generation completed", "plan_id", stored.ID, "duration", finished.Sub(started))
}

func (s *PlanJobService) fail(ctx context.Context, job *models.PlanJob, cause error) {
	finished := s.now()
	job.Status = models.JobStatusFailed
	job.Error = cause.Error()
	job.FinishedAt = &finished
	s.update(ctx, job)

	GetMetrics().RecordPlanJob(string(models.JobStatusFailed))
	log.Printf("❌ [PLAN-JOB] Job %s failed: %v", job.ID, cause)
}

func (s *PlanJobService) update(ctx context.Context, job *models.PlanJob) {
	if err := s.queue.Update(ctx, job); err != nil {
		log.Printf("⚠️  [PLAN-JOB] Failed to update job %s: %v", job.ID, err)
	}
}

// FailStale marks jobs stuck in active longer than maxAge as failed
func (s *PlanJobService) FailStale(ctx context.Context, maxAge time.Duration) (int, error) {
	stale, err := s.queue.Stale(ctx, s.now().Add(-maxAge))
	if err != nil {
		return 0, err
	}
	for i := range stale {
		s.fail(ctx, &stale[i], fmt.Errorf("job exceeded %s without finishing", maxAge))
	}
	return len(stale), nil
}

// BuildPlanContent lays a generated plan out by day. Days follow day index
// order and are dated from start; each task gets an equal share of the
// daily time limit.
func BuildPlanContent(plan *models.PlanResponse, start time.Time, constraints models.PlanConstraints) models.PlanContent {
	byDay := make(map[int][]models.PlanTask)
	for _, t := range plan.Tasks {
		byDay[t.DayIndex] = append(byDay[t.DayIndex], t)
	}

	indexes := make([]int, 0, len(byDay))
	for idx := range byDay {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	days := make([]models.PlanDay, 0, len(indexes))
	for _, idx := range indexes {
		tasks := byDay[idx]
		share := constraints.DailyTimeLimitMins / len(tasks)

		day := models.PlanDay{
			Date:  planner.FormatDate(planner.CalculateTaskDate(idx, start, "", constraints.NoWeekends)),
			Tasks: make([]models.PlanDayTask, len(tasks)),
		}
		for i, t := range tasks {
			day.Tasks[i] = models.PlanDayTask{
				ID:           t.ID,
				Title:        t.Title,
				Description:  t.Description,
				DurationMins: share,
				Priority:     t.Priority,
				CreatedBy:    models.TaskCreatedByAI,
			}
		}
		days = append(days, day)
	}

	milestones := make([]string, len(plan.Strategy))
	for i, item := range plan.Strategy {
		milestones[i] = item.Title
	}

	constraintsCopy := constraints
	return models.PlanContent{
		Days: days,
		Meta: models.PlanMeta{
			TotalDays:        plan.DaysCount,
			AvgDailyDuration: constraints.DailyTimeLimitMins,
			Constraints:      &constraintsCopy,
			Milestones:       milestones,
		},
	}
}
