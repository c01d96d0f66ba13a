package models

import "time"

// Strategy is one ordered step of the narrative breakdown of a goal
type Strategy struct {
	ID          string    `bson:"_id" json:"id"`
	GoalID      string    `bson:"goalId" json:"goalId"`
	Title       string    `bson:"title" json:"title"`
	Description string    `bson:"description" json:"description"`
	OrderIndex  int       `bson:"orderIndex" json:"orderIndex"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
}
