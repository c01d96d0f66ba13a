package services

import (
	"context"
	"errors"
	"fmt"

	"listai/internal/database"
	"listai/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// NewMongoStores builds every store on one database handle
func NewMongoStores(db *database.MongoDB) *Stores {
	return &Stores{
		Goals:      NewMongoGoalStore(db),
		Strategies: NewMongoStrategyStore(db),
		Tasks:      NewMongoTaskStore(db),
		Messages:   NewMongoMessageStore(db),
		Plans:      NewMongoPlanStore(db),
		Users:      NewMongoUserStore(db),
	}
}

func collectionOf(db *database.MongoDB, name string) *mongo.Collection {
	if db == nil {
		return nil
	}
	return db.Collection(name)
}

func findOne[T any](ctx context.Context, coll *mongo.Collection, filter bson.M, what string) (*T, error) {
	var out T
	err := coll.FindOne(ctx, filter).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", what, err)
	}
	return &out, nil
}

func findMany[T any](ctx context.Context, coll *mongo.Collection, filter bson.M, opts *options.FindOptions, what string) ([]T, error) {
	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", what, err)
	}
	defer cursor.Close(ctx)

	out := []T{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", what, err)
	}
	return out, nil
}

// MongoGoalStore stores goals in the goals collection
type MongoGoalStore struct {
	collection *mongo.Collection
}

// NewMongoGoalStore creates a goal store
func NewMongoGoalStore(db *database.MongoDB) *MongoGoalStore {
	return &MongoGoalStore{collection: collectionOf(db, database.CollectionGoals)}
}

func (s *MongoGoalStore) Create(ctx context.Context, goal *models.Goal) error {
	if _, err := s.collection.InsertOne(ctx, goal); err != nil {
		return fmt.Errorf("failed to create goal: %w", err)
	}
	return nil
}

func (s *MongoGoalStore) GetByID(ctx context.Context, id string) (*models.Goal, error) {
	return findOne[models.Goal](ctx, s.collection, bson.M{"_id": id}, "goal")
}

func (s *MongoGoalStore) GetByIDForUser(ctx context.Context, id, userID string) (*models.Goal, error) {
	return findOne[models.Goal](ctx, s.collection, bson.M{"_id": id, "userId": userID}, "goal")
}

func (s *MongoGoalStore) Update(ctx context.Context, goal *models.Goal) error {
	update := bson.M{"$set": bson.M{
		"title":     goal.Title,
		"context":   goal.Context,
		"status":    goal.Status,
		"updatedAt": goal.UpdatedAt,
	}}
	result, err := s.collection.UpdateOne(ctx, bson.M{"_id": goal.ID}, update)
	if err != nil {
		return fmt.Errorf("failed to update goal: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *MongoGoalStore) ListByUser(ctx context.Context, userID string) ([]models.Goal, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return findMany[models.Goal](ctx, s.collection, bson.M{"userId": userID}, opts, "goals")
}

func (s *MongoGoalStore) CountByUser(ctx context.Context, userID string) (int64, error) {
	count, err := s.collection.CountDocuments(ctx, bson.M{"userId": userID})
	if err != nil {
		return 0, fmt.Errorf("failed to count goals: %w", err)
	}
	return count, nil
}

func (s *MongoGoalStore) SetPlanID(ctx context.Context, goalID, planID string) error {
	result, err := s.collection.UpdateOne(ctx, bson.M{"_id": goalID}, bson.M{"$set": bson.M{"planId": planID}})
	if err != nil {
		return fmt.Errorf("failed to set goal plan: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *MongoGoalStore) Delete(ctx context.Context, id string) error {
	if _, err := s.collection.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("failed to delete goal: %w", err)
	}
	return nil
}

// MongoStrategyStore stores strategy items
type MongoStrategyStore struct {
	collection *mongo.Collection
}

// NewMongoStrategyStore creates a strategy store
func NewMongoStrategyStore(db *database.MongoDB) *MongoStrategyStore {
	return &MongoStrategyStore{collection: collectionOf(db, database.CollectionStrategies)}
}

func (s *MongoStrategyStore) CreateMany(ctx context.Context, items []models.Strategy) error {
	if len(items) == 0 {
		return nil
	}
	docs := make([]interface{}, len(items))
	for i := range items {
		docs[i] = items[i]
	}
	if _, err := s.collection.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to create strategies: %w", err)
	}
	return nil
}

func (s *MongoStrategyStore) ListByGoal(ctx context.Context, goalID string) ([]models.Strategy, error) {
	opts := options.Find().SetSort(bson.D{{Key: "orderIndex", Value: 1}})
	return findMany[models.Strategy](ctx, s.collection, bson.M{"goalId": goalID}, opts, "strategies")
}

func (s *MongoStrategyStore) DeleteByGoal(ctx context.Context, goalID string) error {
	if _, err := s.collection.DeleteMany(ctx, bson.M{"goalId": goalID}); err != nil {
		return fmt.Errorf("failed to delete strategies: %w", err)
	}
	return nil
}

// MongoTaskStore stores tasks
type MongoTaskStore struct {
	collection *mongo.Collection
}

// NewMongoTaskStore creates a task store
func NewMongoTaskStore(db *database.MongoDB) *MongoTaskStore {
	return &MongoTaskStore{collection: collectionOf(db, database.CollectionTasks)}
}

func (s *MongoTaskStore) Create(ctx context.Context, task *models.Task) error {
	if _, err := s.collection.InsertOne(ctx, task); err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

func (s *MongoTaskStore) CreateMany(ctx context.Context, tasks []models.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	docs := make([]interface{}, len(tasks))
	for i := range tasks {
		docs[i] = tasks[i]
	}
	if _, err := s.collection.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to create tasks: %w", err)
	}
	return nil
}

func (s *MongoTaskStore) GetByID(ctx context.Context, id string) (*models.Task, error) {
	return findOne[models.Task](ctx, s.collection, bson.M{"_id": id}, "task")
}

func (s *MongoTaskStore) ListByGoal(ctx context.Context, goalID, date string) ([]models.Task, error) {
	filter := bson.M{"goalId": goalID}
	if date != "" {
		filter["date"] = date
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "createdAt", Value: 1}})
	return findMany[models.Task](ctx, s.collection, filter, opts, "tasks")
}

func (s *MongoTaskStore) ListCompleted(ctx context.Context, goalID string, limit int) ([]models.Task, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "updatedAt", Value: -1}}).
		SetLimit(int64(limit))
	tasks, err := findMany[models.Task](ctx, s.collection, bson.M{"goalId": goalID, "status": models.TaskStatusDone}, opts, "completed tasks")
	if err != nil {
		return nil, err
	}
	reverse(tasks)
	return tasks, nil
}

func (s *MongoTaskStore) Update(ctx context.Context, task *models.Task) error {
	update := bson.M{"$set": bson.M{
		"title":       task.Title,
		"description": task.Description,
		"priority":    task.Priority,
		"status":      task.Status,
		"date":        task.Date,
		"updatedAt":   task.UpdatedAt,
	}}
	result, err := s.collection.UpdateOne(ctx, bson.M{"_id": task.ID}, update)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *MongoTaskStore) Delete(ctx context.Context, id string) error {
	if _, err := s.collection.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

func (s *MongoTaskStore) DeleteGenerated(ctx context.Context, goalID string) error {
	filter := bson.M{
		"goalId":        goalID,
		"createdBy":     models.TaskCreatedByAI,
		"manuallyAdded": false,
	}
	if _, err := s.collection.DeleteMany(ctx, filter); err != nil {
		return fmt.Errorf("failed to delete generated tasks: %w", err)
	}
	return nil
}

func (s *MongoTaskStore) DeleteByGoal(ctx context.Context, goalID string) error {
	if _, err := s.collection.DeleteMany(ctx, bson.M{"goalId": goalID}); err != nil {
		return fmt.Errorf("failed to delete tasks: %w", err)
	}
	return nil
}

// MongoMessageStore stores chat messages
type MongoMessageStore struct {
	collection *mongo.Collection
}

// NewMongoMessageStore creates a message store
func NewMongoMessageStore(db *database.MongoDB) *MongoMessageStore {
	return &MongoMessageStore{collection: collectionOf(db, database.CollectionMessages)}
}

func (s *MongoMessageStore) Create(ctx context.Context, msg *models.Message) error {
	if _, err := s.collection.InsertOne(ctx, msg); err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

func (s *MongoMessageStore) ListByGoal(ctx context.Context, goalID string) ([]models.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	return findMany[models.Message](ctx, s.collection, bson.M{"goalId": goalID}, opts, "messages")
}

func (s *MongoMessageStore) Recent(ctx context.Context, goalID string, limit int) ([]models.Message, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit))
	messages, err := findMany[models.Message](ctx, s.collection, bson.M{"goalId": goalID}, opts, "messages")
	if err != nil {
		return nil, err
	}
	reverse(messages)
	return messages, nil
}

func (s *MongoMessageStore) DeleteByGoal(ctx context.Context, goalID string) error {
	if _, err := s.collection.DeleteMany(ctx, bson.M{"goalId": goalID}); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	return nil
}

// MongoPlanStore stores plan snapshots
type MongoPlanStore struct {
	collection *mongo.Collection
}

// NewMongoPlanStore creates a plan store
func NewMongoPlanStore(db *database.MongoDB) *MongoPlanStore {
	return &MongoPlanStore{collection: collectionOf(db, database.CollectionPlans)}
}

func (s *MongoPlanStore) Create(ctx context.Context, plan *models.Plan) error {
	if _, err := s.collection.InsertOne(ctx, plan); err != nil {
		return fmt.Errorf("failed to create plan: %w", err)
	}
	return nil
}

func (s *MongoPlanStore) GetByID(ctx context.Context, id string) (*models.Plan, error) {
	return findOne[models.Plan](ctx, s.collection, bson.M{"_id": id}, "plan")
}

func (s *MongoPlanStore) GetByGoalID(ctx context.Context, goalID string) (*models.Plan, error) {
	var plan models.Plan
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	err := s.collection.FindOne(ctx, bson.M{"goalId": goalID}, opts).Decode(&plan)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	return &plan, nil
}

func (s *MongoPlanStore) DeleteByGoal(ctx context.Context, goalID string) error {
	if _, err := s.collection.DeleteMany(ctx, bson.M{"goalId": goalID}); err != nil {
		return fmt.Errorf("failed to delete plans: %w", err)
	}
	return nil
}

// MongoUserStore stores accounts
type MongoUserStore struct {
	collection *mongo.Collection
}

// NewMongoUserStore creates a user store
func NewMongoUserStore(db *database.MongoDB) *MongoUserStore {
	return &MongoUserStore{collection: collectionOf(db, database.CollectionUsers)}
}

func (s *MongoUserStore) Create(ctx context.Context, user *models.User) error {
	_, err := s.collection.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateKey
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *MongoUserStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	return findOne[models.User](ctx, s.collection, bson.M{"_id": id}, "user")
}

func (s *MongoUserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return findOne[models.User](ctx, s.collection, bson.M{"email": email}, "user")
}

func (s *MongoUserStore) UpdateSettings(ctx context.Context, id string, settings models.UserSettings) error {
	result, err := s.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"settings": settings}})
	if err != nil {
		return fmt.Errorf("failed to update user settings: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func reverse[T any](items []T) {
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
}
