package services

import (
	"github.com/causify-ai/ascope/internal/models"
)

// AggregationService groups fetched entities and relations into count
// summaries. It holds no state and performs no I/O.
type AggregationService struct{}

// NewAggregationService creates a new aggregation service
func NewAggregationService() *AggregationService {
	return &AggregationService{}
}

// Aggregate builds a fresh Summary from the given entities and relations.
// It is deterministic: identical inputs always produce an identical Summary.
// A relation counts toward the key of its parent entity; relations whose
// parent was not fetched in the same run contribute nothing. An empty entity
// list yields an empty Summary.
func (s *AggregationService) Aggregate(entities []*models.Entity, relations []*models.Relation, groupBy models.GroupBy) (models.Summary, error) {
	if !groupBy.IsValid() {
		return nil, &models.ValidationError{Stage: models.StageAggregate, Reason: "unknown grouping " + string(groupBy)}
	}

	summary := make(models.Summary)
	keyByEntityID := make(map[string]string, len(entities))

	for _, entity := range entities {
		key := groupKey(entity, groupBy)
		keyByEntityID[entity.ID] = key

		if _, ok := summary[key]; !ok {
			summary[key] = &models.SummaryCount{}
		}
		summary[key].Entities++
	}

	for _, relation := range relations {
		key, ok := keyByEntityID[relation.ParentID]
		if !ok {
			continue
		}
		summary[key].Relations++
	}

	return summary, nil
}

// groupKey extracts the grouping key of an entity
func groupKey(entity *models.Entity, groupBy models.GroupBy) string {
	switch groupBy {
	case models.GroupByKind:
		return string(entity.Kind)
	case models.GroupByActorAndKind:
		return entity.ActorKey() + "/" + string(entity.Kind)
	default:
		return entity.ActorKey()
	}
}
