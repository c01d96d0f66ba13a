// Package jobs runs periodic maintenance on a cron schedule.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// Job is a unit of scheduled maintenance
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Locker coordinates runs across instances. RedisService implements it.
type Locker interface {
	AcquireLock(ctx context.Context, lockKey, lockValue string, expiration time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, lockKey, lockValue string) (bool, error)
}

const defaultLockTTL = 5 * time.Minute

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateCron checks a five-field cron expression
func ValidateCron(expr string) error {
	if _, err := cronParser.Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return nil
}

// NextRun returns the first activation of expr after from
func NextRun(expr string, from time.Time) (time.Time, error) {
	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return schedule.Next(from), nil
}

// Scheduler runs registered jobs on their cron schedules
type Scheduler struct {
	scheduler  gocron.Scheduler
	locker     Locker
	instanceID string
	lockTTL    time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	jobs  map[string]Job
	exprs map[string]string
}

// NewScheduler creates a scheduler in loc. locker may be nil for a single
// instance deployment.
func NewScheduler(loc *time.Location, locker Locker) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	scheduler, err := gocron.NewScheduler(gocron.WithLocation(loc))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		scheduler:  scheduler,
		locker:     locker,
		instanceID: uuid.New().String(),
		lockTTL:    defaultLockTTL,
		ctx:        ctx,
		cancel:     cancel,
		jobs:       make(map[string]Job),
		exprs:      make(map[string]string),
	}, nil
}

// Register schedules job on the cron expression expr
func (s *Scheduler) Register(job Job, expr string) error {
	if err := ValidateCron(expr); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.Name()]; exists {
		return fmt.Errorf("job %s already registered", job.Name())
	}

	_, err := s.scheduler.NewJob(
		gocron.CronJob(expr, false),
		gocron.NewTask(func() {
			if err := s.run(s.ctx, job); err != nil {
				log.Printf("❌ [SCHEDULER] Job '%s' failed: %v", job.Name(), err)
			}
		}),
		gocron.WithName(job.Name()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to create job %s: %w", job.Name(), err)
	}

	s.jobs[job.Name()] = job
	s.exprs[job.Name()] = expr
	next, _ := NextRun(expr, time.Now())
	log.Printf("📅 [SCHEDULER] Registered job %s (cron: %s, next run: %s)", job.Name(), expr, next.Format(time.RFC3339))
	return nil
}

// Start begins running registered jobs
func (s *Scheduler) Start() {
	log.Printf("🚀 [SCHEDULER] Starting with %d jobs", len(s.jobs))
	s.scheduler.Start()
}

// Stop cancels running jobs and waits for them to return
func (s *Scheduler) Stop() error {
	log.Println("🛑 [SCHEDULER] Stopping...")
	s.cancel()
	if err := s.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("failed to stop scheduler: %w", err)
	}
	log.Println("✅ [SCHEDULER] Stopped")
	return nil
}

// RunNow runs a registered job immediately
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	job, exists := s.jobs[name]
	s.mu.Unlock()

	if !exists {
		return fmt.Errorf("job %s not registered", name)
	}
	return s.run(ctx, job)
}

// run executes job once. With a locker, only the instance holding the
// per-minute lock runs it.
func (s *Scheduler) run(ctx context.Context, job Job) error {
	if s.locker != nil {
		lockKey := fmt.Sprintf("job-lock:%s:%d", job.Name(), time.Now().Unix()/60)
		acquired, err := s.locker.AcquireLock(ctx, lockKey, s.instanceID, s.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire lock: %w", err)
		}
		if !acquired {
			log.Printf("⏭️  [SCHEDULER] Job '%s' is running on another instance", job.Name())
			return nil
		}
		defer func() {
			// the run may have been cancelled, release on a fresh context
			if _, err := s.locker.ReleaseLock(context.Background(), lockKey, s.instanceID); err != nil {
				log.Printf("⚠️  [SCHEDULER] Failed to release lock for '%s': %v", job.Name(), err)
			}
		}()
	}

	log.Printf("▶️  [SCHEDULER] Running job: %s", job.Name())
	started := time.Now()
	if err := job.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Printf("⏹️  [SCHEDULER] Job '%s' cancelled", job.Name())
			return nil
		}
		return err
	}
	log.Printf("✅ [SCHEDULER] Job '%s' completed in %v", job.Name(), time.Since(started))
	return nil
}

// JobStatus reports a registered job
type JobStatus struct {
	Name        string    `json:"name"`
	Cron        string    `json:"cron"`
	NextRunTime time.Time `json:"next_run_time"`
}

// GetStatus returns the next activation of every registered job
func (s *Scheduler) GetStatus() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	status := make([]JobStatus, 0, len(s.jobs))
	for name, expr := range s.exprs {
		next, _ := NextRun(expr, now)
		status = append(status, JobStatus{Name: name, Cron: expr, NextRunTime: next})
	}
	return status
}
