package models

import (
	"fmt"
	"time"
)

// WindowField selects which entity timestamp a window query filters on
type WindowField string

const (
	// WindowFieldCreated filters on the entity creation timestamp
	WindowFieldCreated WindowField = "created"
	// WindowFieldCompleted filters on the entity close/completion timestamp
	WindowFieldCompleted WindowField = "completed"
)

// IsValid checks if the window field is one of the known fields
func (f WindowField) IsValid() bool {
	return f == WindowFieldCreated || f == WindowFieldCompleted
}

// TimeWindow is a half-open time interval [Start, End) used to filter entities
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Validate checks the window invariant. It runs before any network call.
func (w TimeWindow) Validate() error {
	if w.Start.After(w.End) {
		return &ValidationError{
			Stage:  StageWindowFetch,
			Reason: fmt.Sprintf("window start %s is after end %s", w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339)),
		}
	}
	return nil
}

// Contains reports whether t falls inside the half-open interval [Start, End)
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Matches reports whether the entity's timestamp selected by field falls
// inside the window. Entities without a close timestamp never match a
// completed-field window.
func (w TimeWindow) Matches(entity *Entity, field WindowField) bool {
	if field == WindowFieldCompleted {
		return entity.ClosedAt != nil && w.Contains(*entity.ClosedAt)
	}
	return w.Contains(entity.CreatedAt)
}

// ParseTimeWindow builds a TimeWindow from ISO-8601 start/end strings.
// Date-only values (YYYY-MM-DD) are accepted and interpreted as midnight UTC.
func ParseTimeWindow(start, end string) (TimeWindow, error) {
	startTime, err := parseTimestamp(start)
	if err != nil {
		return TimeWindow{}, &ValidationError{Stage: StageWindowFetch, Reason: fmt.Sprintf("invalid window start %q", start)}
	}
	endTime, err := parseTimestamp(end)
	if err != nil {
		return TimeWindow{}, &ValidationError{Stage: StageWindowFetch, Reason: fmt.Sprintf("invalid window end %q", end)}
	}

	window := TimeWindow{Start: startTime, End: endTime}
	if err := window.Validate(); err != nil {
		return TimeWindow{}, err
	}
	return window, nil
}

func parseTimestamp(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}
