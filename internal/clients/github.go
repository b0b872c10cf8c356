// Package clients builds authenticated client handles for the upstream
// activity sources. Callers own the handles and must close them when the
// pipeline run is finished.
package clients

import (
	"context"
	"fmt"
	"net/http"

	"github.com/causify-ai/ascope/internal/models"
	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

// GitHubClient wraps an authenticated go-github client
type GitHubClient struct {
	*github.Client
	httpClient *http.Client
}

// NewGitHubClient creates a GitHub client from a personal access token.
// An optional baseURL points the client at a GitHub Enterprise installation.
func NewGitHubClient(token, baseURL string) (*GitHubClient, error) {
	if token == "" {
		return nil, &models.AuthenticationError{Stage: models.StageClient, Reason: "github token is required"}
	}

	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := oauth2.NewClient(context.Background(), tokenSource)

	client := github.NewClient(httpClient)
	if baseURL != "" {
		var err error
		client, err = client.WithEnterpriseURLs(baseURL, baseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to set GitHub base URL %s: %w", baseURL, err)
		}
	}

	return &GitHubClient{Client: client, httpClient: httpClient}, nil
}

// Close releases the client's idle network connections
func (c *GitHubClient) Close() {
	c.httpClient.CloseIdleConnections()
}
