package services

import (
	"context"
	"testing"

	"listai/internal/models"
)

func newTaskFixture(tier string) (*TaskService, *fakeStores) {
	stores := newFakeStores()
	stores.users.users[testUserID] = models.User{ID: testUserID, SubscriptionTier: tier}
	stores.goals.goals[testGoalID] = models.Goal{ID: testGoalID, UserID: testUserID}
	return NewTaskService(stores.Stores(), NewTierService(stores.users)), stores
}

func TestTaskCreateDefaults(t *testing.T) {
	svc, _ := newTaskFixture(models.TierPro)

	task, err := svc.Create(context.Background(), testGoalID, testUserID, CreateTaskInput{Title: "Read", Date: "2025-03-05"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if task.Priority != models.PriorityMedium || task.CreatedBy != models.TaskCreatedByUser || !task.ManuallyAdded {
		t.Errorf("task = %+v", task)
	}
	if task.IsDisposable() {
		t.Error("manual task must survive regeneration")
	}
}

func TestTaskValidation(t *testing.T) {
	svc, stores := newTaskFixture(models.TierPro)
	stores.tasks.tasks = []models.Task{{ID: testTaskID, GoalID: testGoalID, Title: "T", Priority: models.PriorityLow}}
	ctx := context.Background()

	bad := models.TaskPriority("urgent")
	badStatus := models.TaskStatus("later")
	empty := " "

	tests := []struct {
		name string
		run  func() error
	}{
		{"create without title", func() error {
			_, err := svc.Create(ctx, testGoalID, testUserID, CreateTaskInput{Date: "2025-03-05"})
			return err
		}},
		{"create with bad date", func() error {
			_, err := svc.Create(ctx, testGoalID, testUserID, CreateTaskInput{Title: "x", Date: "tomorrow"})
			return err
		}},
		{"update priority", func() error {
			_, err := svc.Update(ctx, testTaskID, testUserID, UpdateTaskInput{Priority: &bad})
			return err
		}},
		{"update status", func() error {
			_, err := svc.Update(ctx, testTaskID, testUserID, UpdateTaskInput{Status: &badStatus})
			return err
		}},
		{"update title", func() error {
			_, err := svc.Update(ctx, testTaskID, testUserID, UpdateTaskInput{Title: &empty})
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); !IsKind(err, KindValidation) {
				t.Errorf("err = %v, want validation failure", err)
			}
		})
	}
}

func TestTaskUpdateAndRemove(t *testing.T) {
	svc, stores := newTaskFixture(models.TierPro)
	stores.tasks.tasks = []models.Task{{ID: testTaskID, GoalID: testGoalID, Title: "T", Priority: models.PriorityLow, Status: models.TaskStatusTodo}}
	ctx := context.Background()

	done := models.TaskStatusDone
	task, err := svc.Update(ctx, testTaskID, testUserID, UpdateTaskInput{Status: &done})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if task.Status != models.TaskStatusDone || task.Priority != models.PriorityLow {
		t.Errorf("task = %+v", task)
	}

	if err := svc.Remove(ctx, testTaskID, "33333333-3333-4333-8333-333333333333"); !IsKind(err, KindNotFound) {
		t.Errorf("foreign remove err = %v", err)
	}
	if err := svc.Remove(ctx, testTaskID, testUserID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if len(stores.tasks.tasks) != 0 {
		t.Error("task not removed")
	}
}

func TestTaskDiscuss(t *testing.T) {
	tests := []struct {
		tier    string
		wantErr bool
	}{
		{models.TierFree, true},
		{models.TierPro, false},
		{models.TierEnterprise, false},
	}
	for _, tt := range tests {
		t.Run(tt.tier, func(t *testing.T) {
			svc, stores := newTaskFixture(tt.tier)
			stores.tasks.tasks = []models.Task{{ID: testTaskID, GoalID: testGoalID}}

			got, err := svc.Discuss(context.Background(), testTaskID, testUserID)
			if tt.wantErr {
				appErr, ok := AsAppError(err)
				if !ok || appErr.Code != CodeFeatureLocked {
					t.Fatalf("err = %v, want FEATURE_LOCKED", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Discuss: %v", err)
			}
			if got.ChatID != "chat_"+testGoalID || got.TaskID != testTaskID {
				t.Errorf("discussion = %+v", got)
			}
		})
	}
}

func TestTaskFindAllFiltersByDate(t *testing.T) {
	svc, stores := newTaskFixture(models.TierPro)
	stores.tasks.tasks = []models.Task{
		{ID: "b", GoalID: testGoalID, Date: "2025-03-05"},
		{ID: "a", GoalID: testGoalID, Date: "2025-03-04"},
	}

	all, err := svc.FindAll(context.Background(), testGoalID, testUserID, "")
	if err != nil {
		t.Fatalf("FindAll: %v", err)
	}
	if len(all) != 2 || all[0].ID != "a" {
		t.Errorf("tasks = %+v", all)
	}

	day, err := svc.FindAll(context.Background(), testGoalID, testUserID, "2025-03-05")
	if err != nil {
		t.Fatalf("FindAll: %v", err)
	}
	if len(day) != 1 || day[0].ID != "b" {
		t.Errorf("tasks = %+v", day)
	}
}
