package models

import (
	"sort"
)

// GroupBy selects the grouping key used by an aggregation run
type GroupBy string

const (
	GroupByActor        GroupBy = "actor"
	GroupByKind         GroupBy = "kind"
	GroupByActorAndKind GroupBy = "actor_and_kind"
)

// IsValid checks if the grouping is one of the known groupings
func (g GroupBy) IsValid() bool {
	switch g {
	case GroupByActor, GroupByKind, GroupByActorAndKind:
		return true
	}
	return false
}

// SummaryCount holds the counts accumulated for a single grouping key
type SummaryCount struct {
	Entities  int `json:"entities"`
	Relations int `json:"relations"`
}

// Summary maps a grouping key to its counts. Every aggregation run produces
// a fresh Summary; a Summary is never mutated after it is returned.
type Summary map[string]*SummaryCount

// Keys returns the grouping keys in ascending order for deterministic output
func (s Summary) Keys() []string {
	keys := make([]string, 0, len(s))
	for key := range s {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// TotalEntities returns the number of entities counted across all keys
func (s Summary) TotalEntities() int {
	total := 0
	for _, count := range s {
		total += count.Entities
	}
	return total
}

// TotalRelations returns the number of relations counted across all keys
func (s Summary) TotalRelations() int {
	total := 0
	for _, count := range s {
		total += count.Relations
	}
	return total
}
