package jobs

import (
	"context"
	"log"
	"time"
)

// StaleJobFailer marks stuck plan generations failed. PlanJobService
// implements it.
type StaleJobFailer interface {
	FailStale(ctx context.Context, maxAge time.Duration) (int, error)
}

// StalePlanJobCleanup fails plan generation jobs that stayed active longer
// than maxAge, typically after a crash mid-generation.
type StalePlanJobCleanup struct {
	failer StaleJobFailer
	maxAge time.Duration
}

// NewStalePlanJobCleanup creates the cleanup job
func NewStalePlanJobCleanup(failer StaleJobFailer, maxAge time.Duration) *StalePlanJobCleanup {
	return &StalePlanJobCleanup{failer: failer, maxAge: maxAge}
}

// Name identifies the job in the scheduler
func (j *StalePlanJobCleanup) Name() string {
	return "stale-plan-jobs"
}

// Run fails every stale job once
func (j *StalePlanJobCleanup) Run(ctx context.Context) error {
	failed, err := j.failer.FailStale(ctx, j.maxAge)
	if err != nil {
		return err
	}
	if failed > 0 {
		log.Printf("🧹 [PLAN-JOBS] Failed %d stale jobs (active longer than %v)", failed, j.maxAge)
	}
	return nil
}
