package asana

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://app.asana.com/api/1.0"

// requestsPerMinute throttles API polling; a full run walks every project
// and fetches every task individually.
const requestsPerMinute = 100

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(time.Minute/requestsPerMinute), 5),
	}
}

// SetBaseURL points the client at an alternative endpoint, for tests.
func (c *Client) SetBaseURL(u string) {
	c.baseURL = u
}

type NamedResource struct {
	ID   json.Number `json:"id"`
	Name string      `json:"name"`
}

type AsanaTask struct {
	ID          json.Number    `json:"id"`
	Name        string         `json:"name"`
	Completed   bool           `json:"completed"`
	CompletedAt string         `json:"completed_at"`
	Assignee    *NamedResource `json:"assignee"`
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	// Asana v1 API keys go in as the basic-auth username.
	req.SetBasicAuth(c.apiKey, "")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) Workspaces(ctx context.Context) ([]NamedResource, error) {
	var result struct {
		Data []NamedResource `json:"data"`
	}
	if err := c.get(ctx, "/workspaces", &result); err != nil {
		return nil, err
	}
	return result.Data, nil
}

func (c *Client) Projects(ctx context.Context, workspaceID string) ([]NamedResource, error) {
	var result struct {
		Data []NamedResource `json:"data"`
	}
	if err := c.get(ctx, fmt.Sprintf("/workspaces/%s/projects", workspaceID), &result); err != nil {
		return nil, err
	}
	return result.Data, nil
}

func (c *Client) Tasks(ctx context.Context, projectID string) ([]NamedResource, error) {
	var result struct {
		Data []NamedResource `json:"data"`
	}
	if err := c.get(ctx, fmt.Sprintf("/tasks?project=%s", projectID), &result); err != nil {
		return nil, err
	}
	return result.Data, nil
}

func (c *Client) Task(ctx context.Context, taskID string) (AsanaTask, error) {
	var result struct {
		Data AsanaTask `json:"data"`
	}
	if err := c.get(ctx, fmt.Sprintf("/tasks/%s", taskID), &result); err != nil {
		return AsanaTask{}, err
	}
	return result.Data, nil
}

func (c *Client) HealthCheck(ctx context.Context) error {
	var result struct {
		Data NamedResource `json:"data"`
	}
	if err := c.get(ctx, "/users/me", &result); err != nil {
		return fmt.Errorf("API health check failed: %w", err)
	}
	return nil
}
