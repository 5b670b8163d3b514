package anticaptcha

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/umstimetable/timetable-api/pkg/httpclient"
	"github.com/umstimetable/timetable-api/pkg/logger"
	"github.com/umstimetable/timetable-api/pkg/metrics"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL      = "https://api.anti-captcha.com"
	DefaultPollInterval = 3 * time.Second
	DefaultMaxWait      = 2 * time.Minute

	statusReady = "ready"
)

// APIError is an errorId != 0 response from the provider
type APIError struct {
	Code        string
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("anti-captcha %s: %s", e.Code, e.Description)
}

type envelope struct {
	ErrorID          int    `json:"errorId"`
	ErrorCode        string `json:"errorCode"`
	ErrorDescription string `json:"errorDescription"`
}

func (e envelope) err() error {
	if e.ErrorID == 0 {
		return nil
	}
	return &APIError{Code: e.ErrorCode, Description: e.ErrorDescription}
}

type balanceResponse struct {
	envelope
	Balance float64 `json:"balance"`
}

type imageTask struct {
	Type string `json:"type"`
	Body string `json:"body"`
	Case bool   `json:"case"`
}

type createTaskRequest struct {
	ClientKey string    `json:"clientKey"`
	Task      imageTask `json:"task"`
}

type createTaskResponse struct {
	envelope
	TaskID int64 `json:"taskId"`
}

type taskResultRequest struct {
	ClientKey string `json:"clientKey"`
	TaskID    int64  `json:"taskId"`
}

type taskResultResponse struct {
	envelope
	Status   string `json:"status"`
	Solution struct {
		Text string `json:"text"`
	} `json:"solution"`
}

// Client talks to the anti-captcha.com JSON API
type Client struct {
	apiKey       string
	baseURL      string
	httpClient   httpclient.Client
	pollInterval time.Duration
	maxWait      time.Duration
}

// Option customizes a Client
type Option func(*Client)

// WithBaseURL points the client at another API host
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithPolling sets the task result poll interval and the overall wait limit
func WithPolling(interval, maxWait time.Duration) Option {
	return func(c *Client) {
		c.pollInterval = interval
		c.maxWait = maxWait
	}
}

// NewClient creates a new anti-captcha client
func NewClient(apiKey string, httpClient httpclient.Client, opts ...Option) *Client {
	c := &Client{
		apiKey:       apiKey,
		baseURL:      DefaultBaseURL,
		httpClient:   httpClient,
		pollInterval: DefaultPollInterval,
		maxWait:      DefaultMaxWait,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetBalance returns the account balance in USD
func (c *Client) GetBalance(ctx context.Context) (float64, error) {
	var res balanceResponse
	if err := c.call(ctx, "getBalance", map[string]string{"clientKey": c.apiKey}, &res); err != nil {
		return 0, err
	}
	if err := res.err(); err != nil {
		return 0, err
	}

	metrics.CaptchaSolverBalance.Set(res.Balance)
	return res.Balance, nil
}

// SolveImage submits a case-sensitive image-to-text task and waits for its result
func (c *Client) SolveImage(ctx context.Context, image []byte) (string, error) {
	start := time.Now()

	var created createTaskResponse
	err := c.call(ctx, "createTask", createTaskRequest{
		ClientKey: c.apiKey,
		Task: imageTask{
			Type: "ImageToTextTask",
			Body: base64.StdEncoding.EncodeToString(image),
			Case: true,
		},
	}, &created)
	if err != nil {
		return "", err
	}
	if err := created.err(); err != nil {
		return "", err
	}

	waitCtx, cancel := context.WithTimeout(ctx, c.maxWait)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-waitCtx.Done():
			return "", fmt.Errorf("anti-captcha task %d not ready: %w", created.TaskID, waitCtx.Err())
		case <-ticker.C:
		}

		var result taskResultResponse
		if err := c.call(waitCtx, "getTaskResult", taskResultRequest{ClientKey: c.apiKey, TaskID: created.TaskID}, &result); err != nil {
			return "", err
		}
		if err := result.err(); err != nil {
			return "", err
		}
		if result.Status != statusReady {
			continue
		}

		logger.Debug("Captcha solved",
			zap.Int64("task_id", created.TaskID),
			zap.Duration("duration", time.Since(start)))
		return result.Solution.Text, nil
	}
}

func (c *Client) call(ctx context.Context, method string, payload, out any) error {
	start := time.Now()

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(method, "error", start, err)
		return fmt.Errorf("failed to call anti-captcha %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		err = fmt.Errorf("anti-captcha %s returned status %d", method, resp.StatusCode)
		c.observe(method, "error", start, err)
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.observe(method, "error", start, err)
		return fmt.Errorf("failed to decode anti-captcha %s response: %w", method, err)
	}

	c.observe(method, "success", start, nil)
	return nil
}

func (c *Client) observe(method, status string, start time.Time, err error) {
	duration := metrics.MeasureDuration(start)
	metrics.CaptchaSolverRequestDuration.WithLabelValues(method, status).Observe(duration)
	metrics.CaptchaSolverRequestTotal.WithLabelValues(method, status).Inc()
	if err != nil {
		logger.LogAPICall("anticaptcha", method, status, duration, zap.Error(err))
		return
	}
	logger.Debug("API call",
		zap.String("service", "anticaptcha"),
		zap.String("operation", method),
		zap.Float64("duration", duration))
}
