package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Run is one collection run as exposed by the API
type Run struct {
	ID           string    `json:"id"`
	Status       string    `json:"status"`
	Mode         string    `json:"mode"`
	OutputPrefix string    `json:"output_prefix"`
	Total        int       `json:"total"`
	Succeeded    int       `json:"succeeded"`
	Failed       int       `json:"failed"`
	Skipped      int       `json:"skipped"`
	Error        string    `json:"error,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	Targets      []Outcome `json:"targets,omitempty"`
}

// Outcome is the per-target result within a run
type Outcome struct {
	Login      string `json:"login"`
	Origin     string `json:"origin,omitempty"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// Client is the API client for github-profile-miner
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ListRuns retrieves the most recent collection runs
func (c *Client) ListRuns(limit int) ([]*Run, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", limit))
	}

	var response struct {
		Data []*Run `json:"data"`
	}
	if err := c.get("/api/v1/runs", params, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// GetRun retrieves one collection run with its per-target outcomes
func (c *Client) GetRun(id string) (*Run, error) {
	var response struct {
		Data *Run `json:"data"`
	}
	if err := c.get("/api/v1/runs/"+url.PathEscape(id), nil, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// HealthCheck checks if the API is healthy
func (c *Client) HealthCheck() error {
	var response struct {
		Status string `json:"status"`
	}
	if err := c.get("/health", nil, &response); err != nil {
		return err
	}
	if response.Status != "ok" {
		return fmt.Errorf("unhealthy status: %s", response.Status)
	}
	return nil
}

func (c *Client) get(path string, params url.Values, result interface{}) error {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return err
	}
	if params != nil {
		u.RawQuery = params.Encode()
	}

	resp, err := c.httpClient.Get(u.String())
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error: %s - %s", resp.Status, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(result)
}
