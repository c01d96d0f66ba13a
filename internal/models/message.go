package models

import "time"

// MessageRole is the author of a chat message
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// Message is an immutable chat turn attached to a goal
type Message struct {
	ID        string      `bson:"_id" json:"id"`
	GoalID    string      `bson:"goalId" json:"goalId"`
	UserID    string      `bson:"userId" json:"userId"`
	TaskID    *string     `bson:"taskId,omitempty" json:"taskId"`
	Role      MessageRole `bson:"role" json:"role"`
	Content   string      `bson:"content" json:"content"`
	CreatedAt time.Time   `bson:"createdAt" json:"createdAt"`
}
