package services

import (
	"testing"
	"time"

	"github.com/causify-ai/ascope/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func actorEntity(id, actor string, kind models.EntityKind) *models.Entity {
	var actorPtr *string
	if actor != "" {
		actorPtr = &actor
	}
	return models.NewEntity(id, kind, actorPtr, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), "org/repo")
}

func TestAggregate(t *testing.T) {
	service := NewAggregationService()

	testCases := []struct {
		name      string
		entities  []*models.Entity
		relations []*models.Relation
		groupBy   models.GroupBy
		expected  models.Summary
	}{
		{
			name: "group by actor",
			entities: []*models.Entity{
				actorEntity("1", "alice", models.EntityKindCommit),
				actorEntity("2", "alice", models.EntityKindCommit),
				actorEntity("3", "bob", models.EntityKindCommit),
			},
			groupBy: models.GroupByActor,
			expected: models.Summary{
				"alice": {Entities: 2},
				"bob":   {Entities: 1},
			},
		},
		{
			name:     "empty entity list yields empty summary",
			entities: nil,
			groupBy:  models.GroupByActor,
			expected: models.Summary{},
		},
		{
			name: "entities without actor group under unassigned",
			entities: []*models.Entity{
				actorEntity("1", "", models.EntityKindIssue),
				actorEntity("2", "", models.EntityKindIssue),
				actorEntity("3", "carol", models.EntityKindIssue),
			},
			groupBy: models.GroupByActor,
			expected: models.Summary{
				"unassigned": {Entities: 2},
				"carol":      {Entities: 1},
			},
		},
		{
			name: "group by kind",
			entities: []*models.Entity{
				actorEntity("1", "alice", models.EntityKindCommit),
				actorEntity("2", "alice", models.EntityKindPullRequest),
				actorEntity("3", "bob", models.EntityKindPullRequest),
			},
			groupBy: models.GroupByKind,
			expected: models.Summary{
				"commit":       {Entities: 1},
				"pull_request": {Entities: 2},
			},
		},
		{
			name: "group by actor and kind",
			entities: []*models.Entity{
				actorEntity("1", "alice", models.EntityKindCommit),
				actorEntity("2", "alice", models.EntityKindPullRequest),
				actorEntity("3", "", models.EntityKindIssue),
			},
			groupBy: models.GroupByActorAndKind,
			expected: models.Summary{
				"alice/commit":       {Entities: 1},
				"alice/pull_request": {Entities: 1},
				"unassigned/issue":   {Entities: 1},
			},
		},
		{
			name: "relations count toward the parent entity's key",
			entities: []*models.Entity{
				actorEntity("1", "alice", models.EntityKindTask),
				actorEntity("2", "bob", models.EntityKindTask),
			},
			relations: []*models.Relation{
				{ParentID: "1", Author: "bob"},
				{ParentID: "1", Author: "carol"},
				{ParentID: "2", Author: "alice"},
			},
			groupBy: models.GroupByActor,
			expected: models.Summary{
				"alice": {Entities: 1, Relations: 2},
				"bob":   {Entities: 1, Relations: 1},
			},
		},
		{
			name: "relations without a fetched parent contribute nothing",
			entities: []*models.Entity{
				actorEntity("1", "alice", models.EntityKindTask),
			},
			relations: []*models.Relation{
				{ParentID: "1", Author: "bob"},
				{ParentID: "ghost", Author: "bob"},
			},
			groupBy: models.GroupByActor,
			expected: models.Summary{
				"alice": {Entities: 1, Relations: 1},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			summary, err := service.Aggregate(tc.entities, tc.relations, tc.groupBy)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, summary)
		})
	}
}

func TestAggregateIsDeterministic(t *testing.T) {
	service := NewAggregationService()

	entities := []*models.Entity{
		actorEntity("1", "alice", models.EntityKindCommit),
		actorEntity("2", "", models.EntityKindCommit),
		actorEntity("3", "bob", models.EntityKindCommit),
	}
	relations := []*models.Relation{
		{ParentID: "2", Author: "alice"},
	}

	first, err := service.Aggregate(entities, relations, models.GroupByActor)
	require.NoError(t, err)
	second, err := service.Aggregate(entities, relations, models.GroupByActor)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestAggregateRejectsUnknownGrouping(t *testing.T) {
	service := NewAggregationService()

	_, err := service.Aggregate(nil, nil, models.GroupBy("by_moon_phase"))
	var validationErr *models.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}
