package tui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"newsdigest/types"
)

// ServiceClient is a thin HTTP client for the digest service API
type ServiceClient struct {
	baseURL string
	client  *http.Client
}

func NewServiceClient(baseURL string) *ServiceClient {
	return &ServiceClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// GetStatus fetches the current run state
func (c *ServiceClient) GetStatus() (*types.StatusResponse, error) {
	var status types.StatusResponse
	found, err := c.getJSON("/api/status", &status)
	if err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("status endpoint not found at %s", c.baseURL)
	}
	return &status, nil
}

// GetReport fetches the latest report; nil means no run has finished yet
func (c *ServiceClient) GetReport() (*types.Report, error) {
	var report types.Report
	found, err := c.getJSON("/api/report", &report)
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &report, nil
}

// StartRun asks the service to begin a run with the given overrides and returns its id
func (c *ServiceClient) StartRun(req types.RunRequest) (string, error) {
	if req.RequestedBy == "" {
		req.RequestedBy = "tui"
	}
	body, _ := json.Marshal(req)
	resp, err := c.client.Post(c.baseURL+"/api/run", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to start run: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		msg, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("server returned %d: %s", resp.StatusCode, string(msg))
	}

	var out struct {
		RunID string `json:"run_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	return out.RunID, nil
}

func (c *ServiceClient) getJSON(path string, out any) (bool, error) {
	resp, err := c.client.Get(c.baseURL + path)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return false, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("failed to decode response: %w", err)
	}
	return true, nil
}
