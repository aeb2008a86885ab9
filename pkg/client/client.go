package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/terra-clan/interview-engine/internal/models"
)

// Client is a Go SDK for the interview-engine API. Admin calls require
// an API key; candidate calls go through a join token instead and work
// with an empty key.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new interview-engine client
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// envelope mirrors the server's response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ListOptions contains options for listing interviews
type ListOptions struct {
	Phase     string
	CreatedBy string
	Limit     int
	Offset    int
}

// CreateInterview starts a new interview session
func (c *Client) CreateInterview(ctx context.Context, req models.CreateInterviewRequest) (*models.CreateInterviewResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var out models.CreateInterviewResponse
	if err := c.call(ctx, "POST", "/api/v1/interviews", bytes.NewReader(body), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetInterview retrieves a session by ID
func (c *Client) GetInterview(ctx context.Context, id string) (*models.Session, error) {
	var out models.Session
	if err := c.call(ctx, "GET", fmt.Sprintf("/api/v1/interviews/%s", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteInterview removes a session
func (c *Client) DeleteInterview(ctx context.Context, id string) error {
	return c.call(ctx, "DELETE", fmt.Sprintf("/api/v1/interviews/%s", id), nil, nil)
}

// EndInterview ends a session early, forcing report generation
func (c *Client) EndInterview(ctx context.Context, id string) (*models.MessageResponse, error) {
	var out models.MessageResponse
	if err := c.call(ctx, "POST", fmt.Sprintf("/api/v1/interviews/%s/end", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListInterviews retrieves sessions matching the options
func (c *Client) ListInterviews(ctx context.Context, opts ListOptions) ([]*models.Session, error) {
	path := "/api/v1/interviews?"
	if opts.Phase != "" {
		path += fmt.Sprintf("phase=%s&", opts.Phase)
	}
	if opts.CreatedBy != "" {
		path += fmt.Sprintf("created_by=%s&", opts.CreatedBy)
	}
	if opts.Limit > 0 {
		path += fmt.Sprintf("limit=%d&", opts.Limit)
	}
	if opts.Offset > 0 {
		path += fmt.Sprintf("offset=%d&", opts.Offset)
	}

	var out struct {
		Interviews []*models.Session `json:"interviews"`
		Total      int               `json:"total"`
	}
	if err := c.call(ctx, "GET", path, nil, &out); err != nil {
		return nil, err
	}
	return out.Interviews, nil
}

// GetReport fetches the feedback report for a finished session
func (c *Client) GetReport(ctx context.Context, id string) (*models.FeedbackReport, error) {
	var out models.FeedbackReport
	if err := c.call(ctx, "GET", fmt.Sprintf("/api/v1/interviews/%s/report", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Join fetches the candidate view of a session by join token
func (c *Client) Join(ctx context.Context, token string) (*models.JoinResponse, error) {
	var out models.JoinResponse
	if err := c.call(ctx, "GET", fmt.Sprintf("/join/%s", token), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendMessage delivers one candidate answer and returns the next prompt
func (c *Client) SendMessage(ctx context.Context, token, text string) (*models.MessageResponse, error) {
	body, err := json.Marshal(models.MessageRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var out models.MessageResponse
	if err := c.call(ctx, "POST", fmt.Sprintf("/join/%s/message", token), bytes.NewReader(body), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetProgress fetches phase and completion for a session by join token
func (c *Client) GetProgress(ctx context.Context, token string) (*models.Progress, error) {
	var out models.Progress
	if err := c.call(ctx, "GET", fmt.Sprintf("/join/%s/progress", token), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetCandidateReport fetches the report through the candidate surface
func (c *Client) GetCandidateReport(ctx context.Context, token string) (*models.FeedbackReport, error) {
	var out models.FeedbackReport
	if err := c.call(ctx, "GET", fmt.Sprintf("/join/%s/report", token), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health checks if the service is healthy
func (c *Client) Health(ctx context.Context) error {
	_, err := c.doRequest(ctx, "GET", "/health", nil)
	return err
}

// call performs a request and unwraps the response envelope into out.
func (c *Client) call(ctx context.Context, method, path string, body io.Reader, out interface{}) error {
	resp, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(resp, &env); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !env.Success {
		if env.Error != nil {
			return fmt.Errorf("API error: %s - %s", env.Error.Code, env.Error.Message)
		}
		return fmt.Errorf("API error: request failed")
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to unmarshal response data: %w", err)
	}
	return nil
}

// doRequest performs an HTTP request
func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	url := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}
