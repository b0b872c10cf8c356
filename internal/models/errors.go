package models

import (
	"fmt"
)

// Stage names attached to errors so callers can tell which pipeline stage failed
const (
	StageClient        = "client"
	StageWindowFetch   = "window_fetch"
	StageRelationFetch = "relation_fetch"
	StageAggregate     = "aggregate"
	StagePresent       = "present"
)

// AuthenticationError indicates a missing, invalid, or expired credential.
// It is fatal and surfaced immediately.
type AuthenticationError struct {
	Stage  string
	Reason string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("%s: authentication failed: %s", e.Stage, e.Reason)
}

// NotFoundError indicates a scope element or entity identifier that does not
// exist upstream. It is fatal when it affects an entire requested scope and
// recovered locally when it affects a single batch element.
type NotFoundError struct {
	Stage string
	ID    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %s not found", e.Stage, e.ID)
}

// RateLimitError indicates upstream throttling. It is surfaced to the caller
// and never silently retried by the fetch components.
type RateLimitError struct {
	Stage string
	Scope string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: rate limited while fetching %s", e.Stage, e.Scope)
}

// ValidationError indicates malformed input, raised before any network call
type ValidationError struct {
	Stage  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: invalid input: %s", e.Stage, e.Reason)
}
