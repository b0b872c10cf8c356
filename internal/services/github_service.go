package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/causify-ai/ascope/internal/clients"
	"github.com/causify-ai/ascope/internal/models"
	"github.com/causify-ai/ascope/pkg/logger"
	"github.com/google/go-github/v57/github"
	"golang.org/x/sync/errgroup"
)

// GitHubService fetches entities and relations from the GitHub API.
// Scope elements are repository full names in "owner/repo" form. Entity
// identifiers are "owner/repo#number" for pull requests and issues and
// "owner/repo@sha" for commits.
type GitHubService struct {
	client *clients.GitHubClient
}

// NewGitHubService creates a new GitHub service
func NewGitHubService(client *clients.GitHubClient) *GitHubService {
	return &GitHubService{client: client}
}

// FetchEntities retrieves entities of the given kind for every scope element.
// Per-repository queries run concurrently; results are merged and sorted
// deterministically before returning.
func (s *GitHubService) FetchEntities(ctx context.Context, scope []string, window models.TimeWindow, kind models.EntityKind, field models.WindowField, actorFilter []string) ([]*models.Entity, error) {
	if err := validateFetchInput(scope, window, field); err != nil {
		return nil, err
	}
	if kind == models.EntityKindTask {
		return nil, &models.ValidationError{Stage: models.StageWindowFetch, Reason: "github does not provide task entities"}
	}

	eg, egCtx := errgroup.WithContext(ctx)
	results := make([][]*models.Entity, len(scope))

	for i, repoFullName := range scope {
		i, repoFullName := i, repoFullName
		eg.Go(func() error {
			entities, err := s.fetchRepositoryEntities(egCtx, repoFullName, window, kind)
			if err != nil {
				return err
			}
			results[i] = entities
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var all []*models.Entity
	for _, entities := range results {
		all = append(all, entities...)
	}

	all = filterEntities(all, window, field, actorFilter)
	sortEntities(all)
	return all, nil
}

// FetchRelations retrieves the comments attached to the given entities.
// Identifiers that no longer exist upstream are returned in the missing list
// instead of failing the whole batch.
func (s *GitHubService) FetchRelations(ctx context.Context, entityIDs []string) ([]*models.Relation, []string, error) {
	var relations []*models.Relation
	var missing []string

	for _, entityID := range entityIDs {
		fetched, err := s.fetchEntityComments(ctx, entityID)
		if err != nil {
			var notFound *models.NotFoundError
			if errors.As(err, &notFound) {
				missing = append(missing, entityID)
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
			logger.WithError(err).Warnf("Skipping comments for %s", entityID)
			continue
		}
		relations = append(relations, fetched...)
	}

	return relations, missing, nil
}

// ListRepositories resolves an organization or user name to its repository
// full names, so callers can expand an "all" scope before fetching.
func (s *GitHubService) ListRepositories(ctx context.Context, orgOrUser string) ([]string, error) {
	names, err := s.listOrgRepositories(ctx, orgOrUser)
	if err == nil {
		return names, nil
	}

	var notFound *models.NotFoundError
	if !errors.As(err, &notFound) {
		return nil, err
	}

	// Not an organization, try as a user.
	return s.listUserRepositories(ctx, orgOrUser)
}

// ListContributors returns the contributor usernames of a repository
func (s *GitHubService) ListContributors(ctx context.Context, repoFullName string) ([]string, error) {
	owner, repo, err := parseRepoFullName(repoFullName)
	if err != nil {
		return nil, err
	}

	var logins []string
	opts := &github.ListContributorsOptions{ListOptions: github.ListOptions{PerPage: 100}}
	for {
		contributors, resp, err := s.client.Repositories.ListContributors(ctx, owner, repo, opts)
		if err != nil {
			return nil, mapGitHubError(models.StageWindowFetch, repoFullName, err)
		}
		for _, contributor := range contributors {
			logins = append(logins, contributor.GetLogin())
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return logins, nil
}

func (s *GitHubService) listOrgRepositories(ctx context.Context, org string) ([]string, error) {
	var names []string
	opts := &github.RepositoryListByOrgOptions{ListOptions: github.ListOptions{PerPage: 100}}
	for {
		repos, resp, err := s.client.Repositories.ListByOrg(ctx, org, opts)
		if err != nil {
			return nil, mapGitHubError(models.StageWindowFetch, org, err)
		}
		for _, repo := range repos {
			names = append(names, repo.GetFullName())
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return names, nil
}

func (s *GitHubService) listUserRepositories(ctx context.Context, user string) ([]string, error) {
	var names []string
	opts := &github.RepositoryListOptions{ListOptions: github.ListOptions{PerPage: 100}}
	for {
		repos, resp, err := s.client.Repositories.List(ctx, user, opts)
		if err != nil {
			return nil, mapGitHubError(models.StageWindowFetch, user, err)
		}
		for _, repo := range repos {
			names = append(names, repo.GetFullName())
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return names, nil
}

func (s *GitHubService) fetchRepositoryEntities(ctx context.Context, repoFullName string, window models.TimeWindow, kind models.EntityKind) ([]*models.Entity, error) {
	owner, repo, err := parseRepoFullName(repoFullName)
	if err != nil {
		return nil, err
	}

	switch kind {
	case models.EntityKindCommit:
		return s.fetchCommits(ctx, owner, repo, repoFullName, window)
	case models.EntityKindPullRequest:
		return s.fetchPullRequests(ctx, owner, repo, repoFullName)
	case models.EntityKindIssue:
		return s.fetchIssues(ctx, owner, repo, repoFullName, window)
	default:
		return nil, &models.ValidationError{Stage: models.StageWindowFetch, Reason: "unknown entity kind " + string(kind)}
	}
}

func (s *GitHubService) fetchCommits(ctx context.Context, owner, repo, repoFullName string, window models.TimeWindow) ([]*models.Entity, error) {
	var entities []*models.Entity
	opts := &github.CommitsListOptions{
		Since:       window.Start,
		Until:       window.End,
		ListOptions: github.ListOptions{PerPage: 100},
	}

	for {
		commits, resp, err := s.client.Repositories.ListCommits(ctx, owner, repo, opts)
		if err != nil {
			return nil, mapGitHubError(models.StageWindowFetch, repoFullName, err)
		}

		for _, commit := range commits {
			entity := models.NewEntity(
				fmt.Sprintf("%s@%s", repoFullName, commit.GetSHA()),
				models.EntityKindCommit,
				commitActor(commit),
				commit.GetCommit().GetAuthor().GetDate().Time,
				repoFullName,
			)
			entities = append(entities, entity)
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return entities, nil
}

func (s *GitHubService) fetchPullRequests(ctx context.Context, owner, repo, repoFullName string) ([]*models.Entity, error) {
	var entities []*models.Entity
	opts := &github.PullRequestListOptions{
		State:       "all",
		ListOptions: github.ListOptions{PerPage: 100},
	}

	for {
		prs, resp, err := s.client.PullRequests.List(ctx, owner, repo, opts)
		if err != nil {
			return nil, mapGitHubError(models.StageWindowFetch, repoFullName, err)
		}

		for _, pr := range prs {
			var actor *string
			if login := pr.GetUser().GetLogin(); login != "" {
				actor = &login
			}

			entity := models.NewEntity(
				fmt.Sprintf("%s#%d", repoFullName, pr.GetNumber()),
				models.EntityKindPullRequest,
				actor,
				pr.GetCreatedAt().Time,
				repoFullName,
			)
			if pr.ClosedAt != nil {
				entity.SetClosed(pr.ClosedAt.Time)
			}
			entities = append(entities, entity)
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return entities, nil
}

func (s *GitHubService) fetchIssues(ctx context.Context, owner, repo, repoFullName string, window models.TimeWindow) ([]*models.Entity, error) {
	var entities []*models.Entity
	opts := &github.IssueListByRepoOptions{
		State:       "all",
		Since:       window.Start,
		ListOptions: github.ListOptions{PerPage: 100},
	}

	for {
		issues, resp, err := s.client.Issues.ListByRepo(ctx, owner, repo, opts)
		if err != nil {
			return nil, mapGitHubError(models.StageWindowFetch, repoFullName, err)
		}

		for _, issue := range issues {
			// The issues endpoint also returns pull requests.
			if issue.IsPullRequest() {
				continue
			}

			// Issues are grouped by assignee, so unassigned issues land
			// under the reserved "unassigned" key.
			var actor *string
			if login := issue.GetAssignee().GetLogin(); login != "" {
				actor = &login
			}

			entity := models.NewEntity(
				fmt.Sprintf("%s#%d", repoFullName, issue.GetNumber()),
				models.EntityKindIssue,
				actor,
				issue.GetCreatedAt().Time,
				repoFullName,
			)
			if issue.ClosedAt != nil {
				entity.SetClosed(issue.ClosedAt.Time)
			}
			entities = append(entities, entity)
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return entities, nil
}

func (s *GitHubService) fetchEntityComments(ctx context.Context, entityID string) ([]*models.Relation, error) {
	repoFullName, number, sha, err := parseEntityID(entityID)
	if err != nil {
		return nil, err
	}
	owner, repo, err := parseRepoFullName(repoFullName)
	if err != nil {
		return nil, err
	}

	if sha != "" {
		return s.fetchCommitComments(ctx, owner, repo, sha, entityID)
	}
	return s.fetchIssueComments(ctx, owner, repo, number, entityID)
}

func (s *GitHubService) fetchIssueComments(ctx context.Context, owner, repo string, number int, entityID string) ([]*models.Relation, error) {
	var relations []*models.Relation
	opts := &github.IssueListCommentsOptions{ListOptions: github.ListOptions{PerPage: 100}}

	for {
		comments, resp, err := s.client.Issues.ListComments(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, mapGitHubError(models.StageRelationFetch, entityID, err)
		}

		for _, comment := range comments {
			relations = append(relations, &models.Relation{
				ParentID:  entityID,
				Author:    comment.GetUser().GetLogin(),
				CreatedAt: comment.GetCreatedAt().Time,
				Text:      comment.GetBody(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return relations, nil
}

func (s *GitHubService) fetchCommitComments(ctx context.Context, owner, repo, sha, entityID string) ([]*models.Relation, error) {
	var relations []*models.Relation
	opts := &github.ListOptions{PerPage: 100}

	for {
		comments, resp, err := s.client.Repositories.ListCommitComments(ctx, owner, repo, sha, opts)
		if err != nil {
			return nil, mapGitHubError(models.StageRelationFetch, entityID, err)
		}

		for _, comment := range comments {
			relations = append(relations, &models.Relation{
				ParentID:  entityID,
				Author:    comment.GetUser().GetLogin(),
				CreatedAt: comment.GetCreatedAt().Time,
				Text:      comment.GetBody(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return relations, nil
}

// commitActor prefers the GitHub login of the commit author and falls back to
// the git author name recorded in the commit itself
func commitActor(commit *github.RepositoryCommit) *string {
	if login := commit.GetAuthor().GetLogin(); login != "" {
		return &login
	}
	if name := commit.GetCommit().GetAuthor().GetName(); name != "" {
		return &name
	}
	return nil
}

// mapGitHubError converts go-github errors into the pipeline error taxonomy
func mapGitHubError(stage, id string, err error) error {
	var rateLimitErr *github.RateLimitError
	if errors.As(err, &rateLimitErr) {
		return &models.RateLimitError{Stage: stage, Scope: id}
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return &models.RateLimitError{Stage: stage, Scope: id}
	}

	var errResp *github.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil {
		switch errResp.Response.StatusCode {
		case http.StatusNotFound:
			return &models.NotFoundError{Stage: stage, ID: id}
		case http.StatusUnauthorized:
			return &models.AuthenticationError{Stage: stage, Reason: "github rejected the token"}
		case http.StatusTooManyRequests:
			return &models.RateLimitError{Stage: stage, Scope: id}
		}
	}

	return fmt.Errorf("%s: github request for %s failed: %w", stage, id, err)
}

// parseRepoFullName splits "owner/repo" into its components
func parseRepoFullName(fullName string) (owner, repo string, err error) {
	parts := strings.Split(fullName, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", &models.ValidationError{Stage: models.StageWindowFetch, Reason: fmt.Sprintf("invalid repository name %q, expected owner/repo", fullName)}
	}
	return parts[0], parts[1], nil
}

// parseEntityID splits a GitHub entity identifier into its repository and
// either an issue/PR number or a commit SHA
func parseEntityID(entityID string) (repoFullName string, number int, sha string, err error) {
	if repoPart, shaPart, found := strings.Cut(entityID, "@"); found {
		if shaPart == "" {
			return "", 0, "", &models.ValidationError{Stage: models.StageRelationFetch, Reason: fmt.Sprintf("invalid entity id %q", entityID)}
		}
		return repoPart, 0, shaPart, nil
	}

	repoPart, numberPart, found := strings.Cut(entityID, "#")
	if !found {
		return "", 0, "", &models.ValidationError{Stage: models.StageRelationFetch, Reason: fmt.Sprintf("invalid entity id %q", entityID)}
	}
	parsed, err := strconv.Atoi(numberPart)
	if err != nil {
		return "", 0, "", &models.ValidationError{Stage: models.StageRelationFetch, Reason: fmt.Sprintf("invalid entity id %q", entityID)}
	}
	return repoPart, parsed, "", nil
}
