package oracle

// #region imports
import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// #endregion

// #region client-config

const (
	defaultBaseURL   = "https://api.openai.com/v1"
	defaultModel     = "gpt-4o-mini"
	defaultMaxTokens = 100
	httpTimeout      = 30 * time.Second
	maxResponseBytes = 1 << 20
)

// ClientConfig wires a chat-completions endpoint.
type ClientConfig struct {
	BaseURL           string
	APIKey            string
	Model             string
	MaxTokens         int     // default per-request cap when Request.MaxTokens is 0
	RequestsPerSecond float64 // adaptive limiter ceiling
	Retry             RetryConfig
	HTTPClient        *http.Client // optional, tests inject their own
}

// #endregion

// #region client

// Client speaks the OpenAI-style chat-completions protocol. Every Generate
// call is paced by the adaptive limiter and wrapped in bounded retry, so
// callers see only final success or final failure.
type Client struct {
	baseURL   string
	apiKey    string
	model     string
	maxTokens int
	http      *http.Client
	limiter   *AdaptiveLimiter
	retry     RetryConfig
}

// NewClient fills unset config fields with the reference defaults.
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 2
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryConfig()
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: httpTimeout}
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		http:      cfg.HTTPClient,
		limiter:   NewAdaptiveLimiter(cfg.RequestsPerSecond, 1),
		retry:     cfg.Retry,
	}
}

// #endregion

// #region wire-types

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// #endregion

// #region generate

// Generate implements Generator over HTTP with pacing and retry.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	var out string
	err := withRetry(ctx, c.retry, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		text, err := c.generateOnce(ctx, req)
		if err != nil {
			var se *StatusError
			if errors.As(err, &se) && se.Code == http.StatusTooManyRequests {
				c.limiter.RateLimited()
			}
			return err
		}
		c.limiter.Success()
		out = text
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("oracle generate: %w", err)
	}
	return out, nil
}

func (c *Client) generateOnce(ctx context.Context, req Request) (string, error) {
	tokens := req.MaxTokens
	if tokens <= 0 {
		tokens = c.maxTokens
	}

	var messages []chatMessage
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	payload, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   tokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("post chat completion: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("response carried no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

// #endregion
