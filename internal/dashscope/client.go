package dashscope

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultBaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions"

const (
	maxRetries     = 2
	attemptTimeout = 25 * time.Second
	retryBaseDelay = 500 * time.Millisecond
)

// ErrMissingAPIKey is returned before any network attempt when the client
// was constructed without a credential.
var ErrMissingAPIKey = errors.New("DASHSCOPE_API_KEY not configured")

// ErrExhausted marks a transport failure that survived every retry.
var ErrExhausted = errors.New("dashscope retries exhausted")

type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
	sleep   func(time.Duration)
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		client:  &http.Client{},
		sleep:   time.Sleep,
	}
}

// SetBaseURL points the client at a different endpoint. Used by tests.
func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type response struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Chat sends a chat-completion request and returns the first choice's text.
// Each attempt runs under its own timeout; failed attempts are retried with
// a growing delay. Every error leaving this package has bearer tokens masked.
func (c *Client) Chat(ctx context.Context, model string, messages []Message, temperature float64) (string, error) {
	if c.apiKey == "" {
		return "", ErrMissingAPIKey
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
		text, err := c.do(attemptCtx, model, messages, temperature)
		cancel()
		if err == nil {
			return text, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		if attempt < maxRetries {
			c.sleep(retryBaseDelay * time.Duration(attempt+1))
		}
	}

	return "", fmt.Errorf("%w after %d attempts: %s", ErrExhausted, maxRetries+1, Redact(lastErr.Error()))
}

func (c *Client) do(ctx context.Context, model string, messages []Message, temperature float64) (string, error) {
	body, err := json.Marshal(request{
		Model:       model,
		Messages:    messages,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("api call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("api error %d: %s", resp.StatusCode, Redact(string(respBody)))
	}

	var apiResp response
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if len(apiResp.Choices) == 0 {
		return "", fmt.Errorf("empty response choices")
	}

	return apiResp.Choices[0].Message.Content, nil
}
