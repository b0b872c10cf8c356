package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/causify-ai/ascope/internal/models"
	"golang.org/x/oauth2"
)

const defaultAsanaBaseURL = "https://app.asana.com/api/1.0"

// AsanaClient is a thin handle over the Asana REST API
type AsanaClient struct {
	BaseURL    string
	httpClient *http.Client
}

// NewAsanaClient creates an Asana client from a personal access token.
// An optional baseURL overrides the public Asana API endpoint.
func NewAsanaClient(token, baseURL string) (*AsanaClient, error) {
	if token == "" {
		return nil, &models.AuthenticationError{Stage: models.StageClient, Reason: "asana token is required"}
	}
	if baseURL == "" {
		baseURL = defaultAsanaBaseURL
	}

	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := oauth2.NewClient(context.Background(), tokenSource)

	return &AsanaClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}, nil
}

// Get issues a GET request against the API and decodes the JSON response into out
func (c *AsanaClient) Get(ctx context.Context, path string, query url.Values, out interface{}) error {
	requestURL := c.BaseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response from %s: %w", path, err)
		}
		return nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return &models.AuthenticationError{Stage: models.StageClient, Reason: fmt.Sprintf("asana rejected the token (status %d)", resp.StatusCode)}
	case http.StatusNotFound:
		return &models.NotFoundError{Stage: models.StageWindowFetch, ID: path}
	case http.StatusTooManyRequests:
		return &models.RateLimitError{Stage: models.StageWindowFetch, Scope: path}
	default:
		return fmt.Errorf("asana returned status %d for %s", resp.StatusCode, path)
	}
}

// Close releases the client's idle network connections
func (c *AsanaClient) Close() {
	c.httpClient.CloseIdleConnections()
}
