package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/causify-ai/ascope/internal/clients"
	"github.com/causify-ai/ascope/internal/models"
	"github.com/causify-ai/ascope/pkg/logger"
)

// AsanaService fetches task entities and their stories from the Asana API.
// Scope elements are project GIDs; entity identifiers are task GIDs.
type AsanaService struct {
	client *clients.AsanaClient
}

// NewAsanaService creates a new Asana service
func NewAsanaService(client *clients.AsanaClient) *AsanaService {
	return &AsanaService{client: client}
}

type asanaTask struct {
	GID         string     `json:"gid"`
	Name        string     `json:"name"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at"`
	Assignee    *struct {
		Name string `json:"name"`
	} `json:"assignee"`
}

type asanaTaskPage struct {
	Data     []asanaTask `json:"data"`
	NextPage *struct {
		Offset string `json:"offset"`
	} `json:"next_page"`
}

type asanaStory struct {
	GID             string    `json:"gid"`
	ResourceSubtype string    `json:"resource_subtype"`
	Text            string    `json:"text"`
	CreatedAt       time.Time `json:"created_at"`
	CreatedBy       *struct {
		Name string `json:"name"`
	} `json:"created_by"`
}

type asanaStoryPage struct {
	Data     []asanaStory `json:"data"`
	NextPage *struct {
		Offset string `json:"offset"`
	} `json:"next_page"`
}

// FetchEntities retrieves the tasks of every project in scope whose
// window-relevant timestamp falls inside the window
func (s *AsanaService) FetchEntities(ctx context.Context, scope []string, window models.TimeWindow, kind models.EntityKind, field models.WindowField, actorFilter []string) ([]*models.Entity, error) {
	if err := validateFetchInput(scope, window, field); err != nil {
		return nil, err
	}
	if kind != models.EntityKindTask {
		return nil, &models.ValidationError{Stage: models.StageWindowFetch, Reason: "asana only provides task entities"}
	}

	var all []*models.Entity
	for _, projectID := range scope {
		entities, err := s.fetchProjectTasks(ctx, projectID)
		if err != nil {
			return nil, err
		}
		all = append(all, entities...)
	}

	all = filterEntities(all, window, field, actorFilter)
	sortEntities(all)
	return all, nil
}

// FetchRelations retrieves the comment stories attached to the given tasks.
// Tasks that no longer exist are returned in the missing list instead of
// failing the whole batch.
func (s *AsanaService) FetchRelations(ctx context.Context, entityIDs []string) ([]*models.Relation, []string, error) {
	var relations []*models.Relation
	var missing []string

	for _, taskID := range entityIDs {
		fetched, err := s.fetchTaskStories(ctx, taskID)
		if err != nil {
			var notFound *models.NotFoundError
			if errors.As(err, &notFound) {
				missing = append(missing, taskID)
				continue
			}
			var authErr *models.AuthenticationError
			if errors.As(err, &authErr) {
				return nil, nil, err
			}
			var rateErr *models.RateLimitError
			if errors.As(err, &rateErr) {
				return nil, nil, err
			}
			logger.WithError(err).Warnf("Skipping stories for task %s", taskID)
			continue
		}
		relations = append(relations, fetched...)
	}

	return relations, missing, nil
}

func (s *AsanaService) fetchProjectTasks(ctx context.Context, projectID string) ([]*models.Entity, error) {
	var entities []*models.Entity
	offset := ""

	for {
		query := url.Values{}
		query.Set("opt_fields", "name,assignee.name,created_at,completed_at")
		query.Set("limit", "100")
		if offset != "" {
			query.Set("offset", offset)
		}

		var page asanaTaskPage
		if err := s.client.Get(ctx, fmt.Sprintf("/projects/%s/tasks", projectID), query, &page); err != nil {
			return nil, restageAsanaError(err, models.StageWindowFetch, projectID)
		}

		for _, task := range page.Data {
			var actor *string
			if task.Assignee != nil && task.Assignee.Name != "" {
				name := task.Assignee.Name
				actor = &name
			}

			entity := models.NewEntity(task.GID, models.EntityKindTask, actor, task.CreatedAt, projectID)
			if task.CompletedAt != nil {
				entity.SetClosed(*task.CompletedAt)
			}
			entities = append(entities, entity)
		}

		if page.NextPage == nil || page.NextPage.Offset == "" {
			break
		}
		offset = page.NextPage.Offset
	}

	return entities, nil
}

func (s *AsanaService) fetchTaskStories(ctx context.Context, taskID string) ([]*models.Relation, error) {
	var relations []*models.Relation
	offset := ""

	for {
		query := url.Values{}
		query.Set("opt_fields", "resource_subtype,text,created_at,created_by.name")
		query.Set("limit", "100")
		if offset != "" {
			query.Set("offset", offset)
		}

		var page asanaStoryPage
		if err := s.client.Get(ctx, fmt.Sprintf("/tasks/%s/stories", taskID), query, &page); err != nil {
			return nil, restageAsanaError(err, models.StageRelationFetch, taskID)
		}

		for _, story := range page.Data {
			// Stories also record system events; only comments count as relations.
			if story.ResourceSubtype != "comment_added" {
				continue
			}

			author := ""
			if story.CreatedBy != nil {
				author = story.CreatedBy.Name
			}
			relations = append(relations, &models.Relation{
				ParentID:  taskID,
				Author:    author,
				CreatedAt: story.CreatedAt,
				Text:      story.Text,
			})
		}

		if page.NextPage == nil || page.NextPage.Offset == "" {
			break
		}
		offset = page.NextPage.Offset
	}

	return relations, nil
}

// restageAsanaError rewrites the generic client error with the pipeline stage
// and the identifier the caller was fetching
func restageAsanaError(err error, stage, id string) error {
	var notFound *models.NotFoundError
	if errors.As(err, &notFound) {
		return &models.NotFoundError{Stage: stage, ID: id}
	}
	var rateErr *models.RateLimitError
	if errors.As(err, &rateErr) {
		return &models.RateLimitError{Stage: stage, Scope: id}
	}
	return err
}
