package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"listai/internal/models"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// ErrQueueFull is returned by the in-memory queue when its buffer is exhausted
var ErrQueueFull = errors.New("plan job queue is full")

// JobQueue stores plan generation jobs and hands them to workers
type JobQueue interface {
	Enqueue(ctx context.Context, job *models.PlanJob) error
	// Dequeue blocks until a job is available. It returns nil, nil when the
	// poll interval elapses without work.
	Dequeue(ctx context.Context) (*models.PlanJob, error)
	Get(ctx context.Context, id string) (*models.PlanJob, error)
	Update(ctx context.Context, job *models.PlanJob) error
	// Stale returns active jobs started before the cutoff
	Stale(ctx context.Context, startedBefore time.Time) ([]models.PlanJob, error)
}

const (
	planQueueName    = "plan-generation"
	dequeuePollDelay = 5 * time.Second
)

// RedisJobQueue keeps job records as JSON strings with a TTL, a waiting list
// consumed with BRPOP, and a sorted set of active jobs scored by start time
type RedisJobQueue struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisJobQueue creates a queue on top of an existing Redis connection
func NewRedisJobQueue(redisService *RedisService, ttl time.Duration) *RedisJobQueue {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisJobQueue{client: redisService.Client(), ttl: ttl}
}

func jobKey(id string) string {
	return fmt.Sprintf("%s:job:%s", planQueueName, id)
}

func waitingKey() string { return planQueueName + ":waiting" }
func activeKey() string  { return planQueueName + ":active" }

func (q *RedisJobQueue) save(ctx context.Context, job *models.PlanJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	if err := q.client.Set(ctx, jobKey(job.ID), data, q.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}

// Enqueue stores the job and pushes it onto the waiting list
func (q *RedisJobQueue) Enqueue(ctx context.Context, job *models.PlanJob) error {
	if err := q.save(ctx, job); err != nil {
		return err
	}
	if err := q.client.LPush(ctx, waitingKey(), job.ID).Err(); err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}
	return nil
}

// Dequeue pops the oldest waiting job
func (q *RedisJobQueue) Dequeue(ctx context.Context) (*models.PlanJob, error) {
	result, err := q.client.BRPop(ctx, dequeuePollDelay, waitingKey()).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to dequeue job: %w", err)
	}

	// BRPOP returns [key, value]
	job, err := q.Get(ctx, result[1])
	if errors.Is(err, ErrRecordNotFound) {
		log.Printf("⚠️  [PLAN-QUEUE] Job %s expired before it was picked up", result[1])
		return nil, nil
	}
	return job, err
}

// Get loads a job record
func (q *RedisJobQueue) Get(ctx context.Context, id string) (*models.PlanJob, error) {
	data, err := q.client.Get(ctx, jobKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load job: %w", err)
	}

	var job models.PlanJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to decode job: %w", err)
	}
	return &job, nil
}

// Update rewrites the job record and keeps the active set in sync
func (q *RedisJobQueue) Update(ctx context.Context, job *models.PlanJob) error {
	if err := q.save(ctx, job); err != nil {
		return err
	}

	if job.Status == models.JobStatusActive && job.StartedAt != nil {
		err := q.client.ZAdd(ctx, activeKey(), redis.Z{
			Score:  float64(job.StartedAt.Unix()),
			Member: job.ID,
		}).Err()
		if err != nil {
			return fmt.Errorf("failed to mark job active: %w", err)
		}
		return nil
	}

	if err := q.client.ZRem(ctx, activeKey(), job.ID).Err(); err != nil {
		return fmt.Errorf("failed to clear active job: %w", err)
	}
	return nil
}

// Stale returns active jobs whose start time is before the cutoff
func (q *RedisJobQueue) Stale(ctx context.Context, startedBefore time.Time) ([]models.PlanJob, error) {
	ids, err := q.client.ZRangeByScore(ctx, activeKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(startedBefore.Unix(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list active jobs: %w", err)
	}

	jobs := make([]models.PlanJob, 0, len(ids))
	for _, id := range ids {
		job, err := q.Get(ctx, id)
		if errors.Is(err, ErrRecordNotFound) {
			q.client.ZRem(ctx, activeKey(), id)
			continue
		}
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, nil
}

// MemoryJobQueue is the single-process fallback used when Redis is not available
type MemoryJobQueue struct {
	records *cache.Cache
	waiting chan string
}

// NewMemoryJobQueue creates an in-memory queue holding up to capacity waiting jobs
func NewMemoryJobQueue(ttl time.Duration, capacity int) *MemoryJobQueue {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if capacity <= 0 {
		capacity = 256
	}
	return &MemoryJobQueue{
		records: cache.New(ttl, 10*time.Minute),
		waiting: make(chan string, capacity),
	}
}

// Enqueue stores the job and queues its id
func (q *MemoryJobQueue) Enqueue(_ context.Context, job *models.PlanJob) error {
	q.records.Set(job.ID, *job, cache.DefaultExpiration)
	select {
	case q.waiting <- job.ID:
		return nil
	default:
		q.records.Delete(job.ID)
		return ErrQueueFull
	}
}

// Dequeue waits for the next queued job
func (q *MemoryJobQueue) Dequeue(ctx context.Context) (*models.PlanJob, error) {
	timer := time.NewTimer(dequeuePollDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, nil
	case id := <-q.waiting:
		job, err := q.Get(ctx, id)
		if errors.Is(err, ErrRecordNotFound) {
			return nil, nil
		}
		return job, err
	}
}

// Get returns a copy of the job record
func (q *MemoryJobQueue) Get(_ context.Context, id string) (*models.PlanJob, error) {
	item, ok := q.records.Get(id)
	if !ok {
		return nil, ErrRecordNotFound
	}
	job := item.(models.PlanJob)
	return &job, nil
}

// Update replaces the job record
func (q *MemoryJobQueue) Update(_ context.Context, job *models.PlanJob) error {
	q.records.Set(job.ID, *job, cache.DefaultExpiration)
	return nil
}

// Stale returns active jobs started before the cutoff
func (q *MemoryJobQueue) Stale(_ context.Context, startedBefore time.Time) ([]models.PlanJob, error) {
	var jobs []models.PlanJob
	for _, item := range q.records.Items() {
		job := item.Object.(models.PlanJob)
		if job.Status == models.JobStatusActive && job.StartedAt != nil && job.StartedAt.Before(startedBefore) {
			jobs = append(jobs, job)
		}
	}
	return jobs, nil
}
