package services

import (
	"context"
	"sort"

	"github.com/causify-ai/ascope/internal/models"
)

// EntityFetcher is the contract shared by the source-specific fetchers.
// FetchEntities retrieves all entities of one kind whose window-relevant
// timestamp falls inside the half-open window, ordered ascending by creation
// time with ties broken by identifier. FetchRelations retrieves the
// sub-records attached to the given entity identifiers and reports
// identifiers that no longer exist upstream instead of failing the batch.
type EntityFetcher interface {
	FetchEntities(ctx context.Context, scope []string, window models.TimeWindow, kind models.EntityKind, field models.WindowField, actorFilter []string) ([]*models.Entity, error)
	FetchRelations(ctx context.Context, entityIDs []string) ([]*models.Relation, []string, error)
}

// sortEntities orders entities ascending by creation time, ties broken by
// identifier, so identical inputs always produce identical output.
func sortEntities(entities []*models.Entity) {
	sort.Slice(entities, func(i, j int) bool {
		if entities[i].CreatedAt.Equal(entities[j].CreatedAt) {
			return entities[i].ID < entities[j].ID
		}
		return entities[i].CreatedAt.Before(entities[j].CreatedAt)
	})
}

// filterEntities retains entities matching the window on the selected
// timestamp field and, when actorFilter is non-empty, whose actor is in the
// filter set.
func filterEntities(entities []*models.Entity, window models.TimeWindow, field models.WindowField, actorFilter []string) []*models.Entity {
	actors := make(map[string]bool, len(actorFilter))
	for _, actor := range actorFilter {
		actors[actor] = true
	}

	result := make([]*models.Entity, 0, len(entities))
	for _, entity := range entities {
		if !window.Matches(entity, field) {
			continue
		}
		if len(actors) > 0 {
			if entity.Actor == nil || !actors[*entity.Actor] {
				continue
			}
		}
		result = append(result, entity)
	}
	return result
}

// validateFetchInput enforces the shared fetch preconditions without touching
// the network.
func validateFetchInput(scope []string, window models.TimeWindow, field models.WindowField) error {
	if err := window.Validate(); err != nil {
		return err
	}
	if len(scope) == 0 {
		return &models.ValidationError{Stage: models.StageWindowFetch, Reason: "scope must not be empty"}
	}
	if !field.IsValid() {
		return &models.ValidationError{Stage: models.StageWindowFetch, Reason: "unknown window field " + string(field)}
	}
	return nil
}
