package dida

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client issues authenticated calls against the Dida365 Open API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ListProjects returns the caller's projects.
func (c *Client) ListProjects(ctx context.Context, provider TokenProvider) ([]Project, error) {
	data, _, err := c.do(ctx, provider, http.MethodGet, "/open/v1/project", nil)
	if err != nil {
		return nil, err
	}
	var projects []Project
	if err := json.Unmarshal(data, &projects); err != nil {
		return nil, fmt.Errorf("decode project list: %w", err)
	}
	return projects, nil
}

// CreateTask creates a task and, when the caller marked it completed, issues
// the follow-up completion call. A failed completion does not roll back the
// creation; it is recorded on the result instead.
func (c *Client) CreateTask(ctx context.Context, provider TokenProvider, payload *TaskPayload, completed bool) (*CreateTaskResult, error) {
	data, retried, err := c.do(ctx, provider, http.MethodPost, "/open/v1/task", payload)
	if err != nil {
		return nil, err
	}

	var task Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("decode created task: %w", err)
	}
	task.Raw = data

	result := &CreateTaskResult{Task: &task, Retried: retried}
	if completed && task.ID != "" {
		if err := c.CompleteTask(ctx, provider, task.ProjectID, task.ID); err != nil {
			result.CompleteError = err.Error()
		} else {
			result.Completed = true
		}
	}
	return result, nil
}

// CompleteTask marks a task complete. The endpoint takes an empty body.
func (c *Client) CompleteTask(ctx context.Context, provider TokenProvider, projectID, taskID string) error {
	path := fmt.Sprintf("/open/v1/project/%s/task/%s/complete", url.PathEscape(projectID), url.PathEscape(taskID))
	_, _, err := c.do(ctx, provider, http.MethodPost, path, nil)
	return err
}

// FetchTask returns the authoritative snapshot of a single task.
func (c *Client) FetchTask(ctx context.Context, provider TokenProvider, projectID, taskID string) (*Task, error) {
	path := fmt.Sprintf("/open/v1/project/%s/task/%s", url.PathEscape(projectID), url.PathEscape(taskID))
	data, _, err := c.do(ctx, provider, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var task Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("decode task: %w", err)
	}
	task.Raw = data
	return &task, nil
}

// FetchProjectData returns a project with its undeleted tasks.
func (c *Client) FetchProjectData(ctx context.Context, provider TokenProvider, projectID string) (*ProjectData, error) {
	path := fmt.Sprintf("/open/v1/project/%s/data", url.PathEscape(projectID))
	data, _, err := c.do(ctx, provider, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var projectData ProjectData
	if err := json.Unmarshal(data, &projectData); err != nil {
		return nil, fmt.Errorf("decode project data: %w", err)
	}
	return &projectData, nil
}

// do runs one API call under the uniform recovery contract: on a 401 the
// provider gets exactly one chance to recover the credential, after which
// the call is retried once with a freshly resolved token. Never more than
// one retry, so a provider that answers 401 for non-credential reasons
// cannot cause a loop. The returned bool reports whether the retry happened.
func (c *Client) do(ctx context.Context, provider TokenProvider, method, path string, body interface{}) ([]byte, bool, error) {
	data, err := c.attempt(ctx, provider, method, path, body)
	if err != nil && IsUnauthorized(err) && provider.HandleUnauthorized(ctx) {
		data, err = c.attempt(ctx, provider, method, path, body)
		return data, true, err
	}
	return data, false, err
}

func (c *Client) attempt(ctx context.Context, provider TokenProvider, method, path string, body interface{}) ([]byte, error) {
	token, err := provider.Token(ctx)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dida api unreachable: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read dida response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}
