package models

import (
	"time"
)

// EntityKind represents the type of a tracked work item
type EntityKind string

const (
	EntityKindCommit      EntityKind = "commit"
	EntityKindPullRequest EntityKind = "pull_request"
	EntityKindIssue       EntityKind = "issue"
	EntityKindTask        EntityKind = "task"
)

// UnassignedActor is the reserved grouping key for entities without an actor
const UnassignedActor = "unassigned"

// IsValid checks if the entity kind is one of the known kinds
func (k EntityKind) IsValid() bool {
	switch k {
	case EntityKindCommit, EntityKindPullRequest, EntityKindIssue, EntityKindTask:
		return true
	}
	return false
}

// Entity represents one unit of tracked work (commit, pull request, issue, task).
// Entities are immutable once fetched and live only for the duration of a
// single pipeline run.
type Entity struct {
	ID        string     `json:"id"`
	Kind      EntityKind `json:"kind"`
	Actor     *string    `json:"actor"`
	CreatedAt time.Time  `json:"created_at"`
	ClosedAt  *time.Time `json:"closed_at"`
	Scope     string     `json:"scope"`
}

// NewEntity creates a new Entity for the given scope
func NewEntity(id string, kind EntityKind, actor *string, createdAt time.Time, scope string) *Entity {
	return &Entity{
		ID:        id,
		Kind:      kind,
		Actor:     actor,
		CreatedAt: createdAt,
		Scope:     scope,
	}
}

// SetClosed records the timestamp at which the entity was closed or completed
func (e *Entity) SetClosed(closedAt time.Time) {
	e.ClosedAt = &closedAt
}

// ActorKey returns the grouping key for this entity's actor.
// Entities without an actor are grouped under UnassignedActor.
func (e *Entity) ActorKey() string {
	if e.Actor == nil || *e.Actor == "" {
		return UnassignedActor
	}
	return *e.Actor
}

// Relation represents a sub-record (comment or story) attached to exactly one entity
type Relation struct {
	ParentID  string    `json:"parent_id"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
	Text      string    `json:"text"`
}
