package simulation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPClient wraps http.Client with a timeout.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

// newHTTPClient creates a new HTTP client with timeout.
func newHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
	}
}

// getJSON performs a GET request and decodes the JSON response into out.
func (c *HTTPClient) getJSON(ctx context.Context, path string, out interface{}) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request %s failed: %w", path, err)
	}
	return decodeResponse(resp, out)
}

// postJSON performs a POST request with a JSON body and decodes the
// response into out.
func (c *HTTPClient) postJSON(ctx context.Context, path string, body, out interface{}) (int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(payload))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request %s failed: %w", path, err)
	}
	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out interface{}) (int, error) {
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// API payload shapes for the tournament endpoints.

type startRequest struct {
	Candidates []Candidate `json:"candidates"`
}

type startResponse struct {
	SessionID string `json:"session_id"`
	State     string `json:"state"`
}

type nextResponse struct {
	Comparison *Comparison `json:"comparison,omitempty"`
	Done       bool        `json:"done"`
}

type voteRequest struct {
	WinnerID string `json:"winner_id"`
	LoserID  string `json:"loser_id"`
}

type voteResponse struct {
	Status string `json:"status"`
	Done   bool   `json:"done"`
}

// startTournament creates a session and returns its id and initial state.
func (c *HTTPClient) startTournament(ctx context.Context, candidates []Candidate) (startResponse, error) {
	var out startResponse
	status, err := c.postJSON(ctx, "/tournaments", startRequest{Candidates: candidates}, &out)
	if err != nil {
		return out, err
	}
	if status != StatusCreated {
		return out, fmt.Errorf("start tournament returned status %d", status)
	}
	return out, nil
}

// nextComparison polls the pending comparison for a session.
func (c *HTTPClient) nextComparison(ctx context.Context, sessionID string) (nextResponse, error) {
	var out nextResponse
	status, err := c.getJSON(ctx, "/tournaments/"+sessionID+"/next", &out)
	if err != nil {
		return out, err
	}
	if status != StatusOK {
		return out, fmt.Errorf("next comparison returned status %d", status)
	}
	return out, nil
}

// submitVote posts one decided comparison.
func (c *HTTPClient) submitVote(ctx context.Context, sessionID, winnerID, loserID string) (voteResponse, error) {
	var out voteResponse
	status, err := c.postJSON(ctx, "/tournaments/"+sessionID+"/votes", voteRequest{WinnerID: winnerID, LoserID: loserID}, &out)
	if err != nil {
		return out, err
	}
	if status != StatusOK {
		return out, fmt.Errorf("vote returned status %d", status)
	}
	return out, nil
}

// fetchResult retrieves the final ranking and deltas for a session.
func (c *HTTPClient) fetchResult(ctx context.Context, sessionID string) (Result, error) {
	var out Result
	status, err := c.getJSON(ctx, "/tournaments/"+sessionID+"/result", &out)
	if err != nil {
		return out, err
	}
	if status != StatusOK {
		return out, fmt.Errorf("result returned status %d", status)
	}
	return out, nil
}

// fetchLeaderboard retrieves the top-N entries.
func (c *HTTPClient) fetchLeaderboard(ctx context.Context, n int) ([]Entry, error) {
	var out []Entry
	status, err := c.getJSON(ctx, fmt.Sprintf("/leaderboard?limit=%d", n), &out)
	if err != nil {
		return nil, err
	}
	if status != StatusOK {
		return nil, fmt.Errorf("leaderboard returned status %d", status)
	}
	return out, nil
}

// checkServiceHealth verifies the service answers on /healthz.
func (c *HTTPClient) checkServiceHealth(ctx context.Context) error {
	status, err := c.getJSON(ctx, "/healthz", nil)
	if err != nil {
		return err
	}
	if status != StatusOK {
		return fmt.Errorf("health check returned status %d", status)
	}
	return nil
}
