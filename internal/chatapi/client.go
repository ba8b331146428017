package chatapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"chat-widget/internal/history"
)

var (
	// ErrMalformedResponse is returned when the body is not a JSON object
	ErrMalformedResponse = errors.New("malformed chat response")
	// ErrUnhealthy is returned by HealthCheck for non-200 answers
	ErrUnhealthy = errors.New("chat service unhealthy")
)

// Client handles communication with the remote chat service
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new chat client. A zero timeout keeps the
// transport defaults; no timeout is imposed on the chat call otherwise.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// BaseURL returns the configured service URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Chat posts one user message with the conversation so far and decodes the
// reply. The body alone decides success: non-2xx answers are decoded like
// any other, and callers decide on Succeeded().
func (c *Client) Chat(ctx context.Context, req Request) (*Response, error) {
	if req.ConversationHistory == nil {
		req.ConversationHistory = []history.Turn{}
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal request")
	}

	url := fmt.Sprintf("%s/api/chat", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}

	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response")
	}

	var chatResp Response
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, errors.Wrapf(ErrMalformedResponse, "status %d: %v", resp.StatusCode, err)
	}

	if (resp.StatusCode < 200 || resp.StatusCode > 299) && chatResp.Error == "" {
		chatResp.Error = fmt.Sprintf("chat service returned status %d", resp.StatusCode)
	}

	return &chatResp, nil
}

// HealthCheck verifies that the chat service is reachable
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	url := fmt.Sprintf("%s/health", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create health check request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "chat service is unreachable at %s", c.baseURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Wrapf(ErrUnhealthy, "status %d", resp.StatusCode)
	}

	return nil
}
