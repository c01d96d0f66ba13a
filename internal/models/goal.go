package models

import (
	"time"

	"github.com/google/uuid"
)

// GoalStatus is the lifecycle state of a goal
type GoalStatus string

const (
	GoalStatusActive    GoalStatus = "active"
	GoalStatusPaused    GoalStatus = "paused"
	GoalStatusCompleted GoalStatus = "completed"
)

// Goal is a user's stated outcome with supporting context
type Goal struct {
	ID          string     `bson:"_id" json:"id"`
	UserID      string     `bson:"userId" json:"userId"`
	Title       string     `bson:"title" json:"title"`
	Context     string     `bson:"context" json:"context"`
	Status      GoalStatus `bson:"status" json:"status"`
	CreatedByAI bool       `bson:"createdByAi" json:"createdByAi"`
	PlanID      *string    `bson:"planId,omitempty" json:"planId"`
	CreatedAt   time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time  `bson:"updatedAt" json:"updatedAt"`
}

// GoalRefKind tells whether a goal reference is backed by storage
type GoalRefKind int

const (
	GoalRefEphemeral GoalRefKind = iota
	GoalRefDurable
)

// GoalRef identifies a goal either by a durable UUID or by an ephemeral
// client token. Ephemeral goals live for one request and are never stored.
type GoalRef struct {
	kind GoalRefKind
	id   string
}

// DurableGoal returns a reference to a stored goal
func DurableGoal(id string) GoalRef {
	return GoalRef{kind: GoalRefDurable, id: id}
}

// EphemeralGoal returns a reference to a request-scoped goal
func EphemeralGoal(token string) GoalRef {
	return GoalRef{kind: GoalRefEphemeral, id: token}
}

// ParseGoalRef classifies a client-supplied goal id. Only canonical UUIDs are durable;
// tokens such as "goal_abc" or "temp-123" are ephemeral.
func ParseGoalRef(id string) GoalRef {
	if IsDurableID(id) {
		return DurableGoal(id)
	}
	return EphemeralGoal(id)
}

// ID returns the raw id or token
func (r GoalRef) ID() string { return r.id }

// Kind returns the reference kind
func (r GoalRef) Kind() GoalRefKind { return r.kind }

// IsDurable reports whether the goal is backed by storage
func (r GoalRef) IsDurable() bool { return r.kind == GoalRefDurable }

// AsEphemeral downgrades the reference for the rest of a request
func (r GoalRef) AsEphemeral() GoalRef { return EphemeralGoal(r.id) }

func (r GoalRef) String() string {
	if r.IsDurable() {
		return "durable:" + r.id
	}
	return "ephemeral:" + r.id
}

// IsDurableID reports whether s is a canonical 36-character UUID.
// Braced and urn-prefixed forms accepted by uuid.Parse are rejected.
func IsDurableID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}
