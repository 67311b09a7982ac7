package typingapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mcdev12/typesprint/go/internal/models"
)

// Client is the pull side of the backend contract: reference texts,
// aggregate stats, the ranked leaderboard, user profiles, and result
// submission. Responses are snapshots; the caches built on top never
// synthesize missing fields.
type Client struct {
	baseURL  string
	client   *http.Client
	validate *validator.Validate
}

// NewClient creates a client for the given backend base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		validate: validator.New(),
	}
}

// SetTimeout overrides the default request timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.client.Timeout = timeout
}

// GetText fetches a reference text for a new session.
func (c *Client) GetText(ctx context.Context) (*models.ReferenceText, error) {
	var text models.ReferenceText
	if err := c.getJSON(ctx, "/api/text", &text); err != nil {
		return nil, err
	}
	if text.Content == "" {
		return nil, fmt.Errorf("backend returned empty reference text (id=%q)", text.ID)
	}
	return &text, nil
}

// GetStats fetches the whole-system aggregate snapshot.
func (c *Client) GetStats(ctx context.Context) (*models.AggregateStats, error) {
	var stats models.AggregateStats
	if err := c.getJSON(ctx, "/api/stats", &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

type leaderboardResponse struct {
	Leaderboard []models.LeaderboardEntry `json:"leaderboard"`
}

// GetLeaderboard fetches the ranked sequence. The backend assigns
// ranks; callers must not re-sort.
func (c *Client) GetLeaderboard(ctx context.Context, boardType string, limit int) ([]models.LeaderboardEntry, error) {
	endpoint := "/api/leaderboard?type=" + url.QueryEscape(boardType) + "&limit=" + strconv.Itoa(limit)
	var resp leaderboardResponse
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, err
	}
	return resp.Leaderboard, nil
}

// GetUserProfile fetches the rollup for one username.
func (c *Client) GetUserProfile(ctx context.Context, username string) (*models.UserProfile, error) {
	var profile models.UserProfile
	if err := c.getJSON(ctx, "/api/user/"+url.PathEscape(username), &profile); err != nil {
		return nil, err
	}
	if profile.Username == "" {
		profile.Username = username
	}
	return &profile, nil
}

// SubmitResult posts a completed test result. Fire-and-forget from the
// session's perspective; the outbox worker owns retries.
func (c *Client) SubmitResult(ctx context.Context, result models.TestResult) error {
	if err := c.validate.Struct(result); err != nil {
		return fmt.Errorf("invalid result payload: %w", err)
	}

	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/submit", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		responseBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API returned status code: %d, response: %s", resp.StatusCode, string(responseBody))
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		responseBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API returned status code: %d, response: %s", resp.StatusCode, string(responseBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
