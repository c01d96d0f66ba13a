package services

import (
	"context"
	"errors"
	"sort"
	"sync"

	"listai/internal/llm"
	"listai/internal/models"
)

// recorder counts write calls across all fake stores
type recorder struct {
	mu     sync.Mutex
	writes []string
}

func (r *recorder) write(op string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes = append(r.writes, op)
}

func (r *recorder) Writes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.writes...)
}

type fakeGoalStore struct {
	rec     *recorder
	mu      sync.Mutex
	goals   map[string]models.Goal
	failGet error
}

func (s *fakeGoalStore) Create(_ context.Context, goal *models.Goal) error {
	s.rec.write("goals.Create")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goals[goal.ID] = *goal
	return nil
}

func (s *fakeGoalStore) GetByID(_ context.Context, id string) (*models.Goal, error) {
	if s.failGet != nil {
		return nil, s.failGet
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.goals[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &g, nil
}

func (s *fakeGoalStore) GetByIDForUser(ctx context.Context, id, userID string) (*models.Goal, error) {
	g, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if g.UserID != userID {
		return nil, ErrRecordNotFound
	}
	return g, nil
}

func (s *fakeGoalStore) Update(_ context.Context, goal *models.Goal) error {
	s.rec.write("goals.Update")
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.goals[goal.ID]; !ok {
		return ErrRecordNotFound
	}
	s.goals[goal.ID] = *goal
	return nil
}

func (s *fakeGoalStore) ListByUser(_ context.Context, userID string) ([]models.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Goal
	for _, g := range s.goals {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *fakeGoalStore) CountByUser(ctx context.Context, userID string) (int64, error) {
	goals, _ := s.ListByUser(ctx, userID)
	return int64(len(goals)), nil
}

func (s *fakeGoalStore) SetPlanID(_ context.Context, goalID, planID string) error {
	s.rec.write("goals.SetPlanID")
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.goals[goalID]
	if !ok {
		return ErrRecordNotFound
	}
	g.PlanID = &planID
	s.goals[goalID] = g
	return nil
}

func (s *fakeGoalStore) Delete(_ context.Context, id string) error {
	s.rec.write("goals.Delete")
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.goals[id]; !ok {
		return ErrRecordNotFound
	}
	delete(s.goals, id)
	return nil
}

type fakeStrategyStore struct {
	rec   *recorder
	mu    sync.Mutex
	items []models.Strategy
}

func (s *fakeStrategyStore) CreateMany(_ context.Context, items []models.Strategy) error {
	s.rec.write("strategies.CreateMany")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, items...)
	return nil
}

func (s *fakeStrategyStore) ListByGoal(_ context.Context, goalID string) ([]models.Strategy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Strategy
	for _, it := range s.items {
		if it.GoalID == goalID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (s *fakeStrategyStore) DeleteByGoal(_ context.Context, goalID string) error {
	s.rec.write("strategies.DeleteByGoal")
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.items[:0]
	for _, it := range s.items {
		if it.GoalID != goalID {
			kept = append(kept, it)
		}
	}
	s.items = kept
	return nil
}

type fakeTaskStore struct {
	rec        *recorder
	mu         sync.Mutex
	tasks      []models.Task
	failCreate error
}

func (s *fakeTaskStore) Create(_ context.Context, task *models.Task) error {
	s.rec.write("tasks.Create")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, *task)
	return nil
}

func (s *fakeTaskStore) CreateMany(_ context.Context, tasks []models.Task) error {
	s.rec.write("tasks.CreateMany")
	if s.failCreate != nil {
		return s.failCreate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, tasks...)
	return nil
}

func (s *fakeTaskStore) GetByID(_ context.Context, id string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, ErrRecordNotFound
}

func (s *fakeTaskStore) ListByGoal(_ context.Context, goalID, date string) ([]models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Task
	for _, t := range s.tasks {
		if t.GoalID == goalID && (date == "" || t.Date == date) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (s *fakeTaskStore) ListCompleted(_ context.Context, goalID string, limit int) ([]models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Task
	for _, t := range s.tasks {
		if t.GoalID == goalID && t.Status == models.TaskStatusDone {
			out = append(out, t)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *fakeTaskStore) Update(_ context.Context, task *models.Task) error {
	s.rec.write("tasks.Update")
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.tasks {
		if t.ID == task.ID {
			s.tasks[i] = *task
			return nil
		}
	}
	return ErrRecordNotFound
}

func (s *fakeTaskStore) Delete(_ context.Context, id string) error {
	s.rec.write("tasks.Delete")
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.tasks {
		if t.ID == id {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			return nil
		}
	}
	return ErrRecordNotFound
}

func (s *fakeTaskStore) DeleteGenerated(_ context.Context, goalID string) error {
	s.rec.write("tasks.DeleteGenerated")
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.tasks[:0]
	for _, t := range s.tasks {
		if t.GoalID == goalID && t.IsDisposable() {
			continue
		}
		kept = append(kept, t)
	}
	s.tasks = kept
	return nil
}

func (s *fakeTaskStore) DeleteByGoal(_ context.Context, goalID string) error {
	s.rec.write("tasks.DeleteByGoal")
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.tasks[:0]
	for _, t := range s.tasks {
		if t.GoalID != goalID {
			kept = append(kept, t)
		}
	}
	s.tasks = kept
	return nil
}

type fakeMessageStore struct {
	rec      *recorder
	mu       sync.Mutex
	messages []models.Message
}

func (s *fakeMessageStore) Create(_ context.Context, msg *models.Message) error {
	s.rec.write("messages.Create")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, *msg)
	return nil
}

func (s *fakeMessageStore) ListByGoal(_ context.Context, goalID string) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Message
	for _, m := range s.messages {
		if m.GoalID == goalID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *fakeMessageStore) Recent(ctx context.Context, goalID string, limit int) ([]models.Message, error) {
	all, _ := s.ListByGoal(ctx, goalID)
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (s *fakeMessageStore) DeleteByGoal(_ context.Context, goalID string) error {
	s.rec.write("messages.DeleteByGoal")
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.messages[:0]
	for _, m := range s.messages {
		if m.GoalID != goalID {
			kept = append(kept, m)
		}
	}
	s.messages = kept
	return nil
}

type fakePlanStore struct {
	rec   *recorder
	mu    sync.Mutex
	plans map[string]models.Plan
}

func (s *fakePlanStore) Create(_ context.Context, plan *models.Plan) error {
	s.rec.write("plans.Create")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[plan.ID] = *plan
	return nil
}

func (s *fakePlanStore) GetByID(_ context.Context, id string) (*models.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &p, nil
}

func (s *fakePlanStore) GetByGoalID(_ context.Context, goalID string) (*models.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.plans {
		if p.GoalID == goalID {
			return &p, nil
		}
	}
	return nil, ErrRecordNotFound
}

func (s *fakePlanStore) DeleteByGoal(_ context.Context, goalID string) error {
	s.rec.write("plans.DeleteByGoal")
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.plans {
		if p.GoalID == goalID {
			delete(s.plans, id)
		}
	}
	return nil
}

type fakeUserStore struct {
	rec   *recorder
	mu    sync.Mutex
	users map[string]models.User
}

func (s *fakeUserStore) Create(_ context.Context, user *models.User) error {
	s.rec.write("users.Create")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email {
			return ErrDuplicateKey
		}
	}
	s.users[user.ID] = *user
	return nil
}

func (s *fakeUserStore) GetByID(_ context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &u, nil
}

func (s *fakeUserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, ErrRecordNotFound
}

func (s *fakeUserStore) UpdateSettings(_ context.Context, id string, settings models.UserSettings) error {
	s.rec.write("users.UpdateSettings")
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrRecordNotFound
	}
	u.Settings = settings
	s.users[id] = u
	return nil
}

type fakeStores struct {
	rec        *recorder
	goals      *fakeGoalStore
	strategies *fakeStrategyStore
	tasks      *fakeTaskStore
	messages   *fakeMessageStore
	plans      *fakePlanStore
	users      *fakeUserStore
}

func newFakeStores() *fakeStores {
	rec := &recorder{}
	return &fakeStores{
		rec:        rec,
		goals:      &fakeGoalStore{rec: rec, goals: map[string]models.Goal{}},
		strategies: &fakeStrategyStore{rec: rec},
		tasks:      &fakeTaskStore{rec: rec},
		messages:   &fakeMessageStore{rec: rec},
		plans:      &fakePlanStore{rec: rec, plans: map[string]models.Plan{}},
		users:      &fakeUserStore{rec: rec, users: map[string]models.User{}},
	}
}

func (f *fakeStores) Stores() *Stores {
	return &Stores{
		Goals:      f.goals,
		Strategies: f.strategies,
		Tasks:      f.tasks,
		Messages:   f.messages,
		Plans:      f.plans,
		Users:      f.users,
	}
}

// fakePlanGenerator returns a canned plan or error
type fakePlanGenerator struct {
	mu       sync.Mutex
	plan     *models.PlanResponse
	err      error
	requests []PlanRequest
}

func (g *fakePlanGenerator) GeneratePlan(_ context.Context, req PlanRequest) (*models.PlanResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if g.err != nil {
		return nil, g.err
	}
	return g.plan, nil
}

func (g *fakePlanGenerator) Model() string { return "test-model" }

// fakeTextGenerator scripts the completions of a text backend
type fakeTextGenerator struct {
	mu        sync.Mutex
	outputs   []string
	errs      []error
	chunks    []string
	streamErr error
	requests  []llm.CompletionRequest
}

func (g *fakeTextGenerator) Complete(_ context.Context, req llm.CompletionRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := len(g.requests)
	g.requests = append(g.requests, req)

	var out string
	var err error
	if i < len(g.outputs) {
		out = g.outputs[i]
	}
	if i < len(g.errs) {
		err = g.errs[i]
	}
	return out, err
}

func (g *fakeTextGenerator) Stream(_ context.Context, req llm.CompletionRequest, onChunk func(string) error) error {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	chunks := g.chunks
	streamErr := g.streamErr
	g.mu.Unlock()

	if streamErr != nil {
		return streamErr
	}
	for _, c := range chunks {
		if err := onChunk(c); err != nil {
			return llm.ErrStreamAborted
		}
	}
	return nil
}

func (g *fakeTextGenerator) Model() string { return "test-model" }

func (g *fakeTextGenerator) Requests() []llm.CompletionRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]llm.CompletionRequest(nil), g.requests...)
}

// fakeChatGenerator answers chat turns directly
type fakeChatGenerator struct {
	reply  string
	err    error
	chunks []string
	turns  [][]llm.Message
}

func (g *fakeChatGenerator) GenerateChatResponse(_ context.Context, messages []llm.Message) (string, error) {
	g.turns = append(g.turns, messages)
	return g.reply, g.err
}

func (g *fakeChatGenerator) GenerateChatResponseStream(_ context.Context, messages []llm.Message, emit func(string) error) error {
	g.turns = append(g.turns, messages)
	for _, c := range g.chunks {
		if err := emit(c); err != nil {
			return llm.ErrStreamAborted
		}
	}
	return nil
}

var errStorageDown = errors.New("storage down")
