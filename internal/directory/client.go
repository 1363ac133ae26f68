package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client wraps interactions with the HR directory API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a new client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Ping checks if the remote directory service is available.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/health", c.baseURL), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("directory returned status %d", resp.StatusCode)
	}
	return nil
}

type subordinatesResponse struct {
	EmployeeIDs []int64 `json:"employee_ids"`
}

// SubordinatesOf fetches the direct reports of a supervisor. A supervisor
// with no reports yields an empty list, not an error.
func (c *Client) SubordinatesOf(ctx context.Context, supervisorID int64) ([]int64, error) {
	url := fmt.Sprintf("%s/supervisors/%d/subordinates", c.baseURL, supervisorID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("directory returned status %d", resp.StatusCode)
	}

	var payload subordinatesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode subordinates: %w", err)
	}
	return payload.EmployeeIDs, nil
}

var _ Resolver = (*Client)(nil)
