package agent

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

	"github.com/sobrus/chatrelay/internal/config"
)

// ErrNotConfigured is returned when no agent gateway base URL is set.
var ErrNotConfigured = errors.New("agent not configured")

const invokeTimeout = 120 * time.Second

// InvokeInput is one request to the conversational agent.
type InvokeInput struct {
	Text      string
	Audio     []byte
	UserID    string
	SessionID string
}

// Reply is the agent's answer. Text returns the dedicated content field
// when the gateway exposes one, falling back to the raw response body
// when the reply is already textual.
type Reply struct {
	content string
	raw     string
}

// NewReply builds a reply carrying the given textual content.
func NewReply(text string) Reply {
	return Reply{content: text}
}

// Text returns the reply's textual content.
func (r Reply) Text() string {
	if strings.TrimSpace(r.content) != "" {
		return r.content
	}
	return r.raw
}

// Client invokes the external agent gateway over HTTP. The process
// holds a single Client constructed once at startup; requests share its
// underlying HTTP client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an agent client for the configured gateway.
func NewClient(cfg config.AgentConfig) *Client {
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		httpClient: &http.Client{Timeout: invokeTimeout},
	}
}

type invokeRequest struct {
	Text      string `json:"text"`
	Audio     []byte `json:"audio,omitempty"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

type invokeResponse struct {
	Content string `json:"content"`
}

// Invoke runs one agent turn. Any transport or gateway failure is
// returned as an error; the caller substitutes a fixed apology reply
// and continues the turn.
func (c *Client) Invoke(ctx context.Context, input InvokeInput) (Reply, error) {
	if c.baseURL == "" {
		return Reply{}, ErrNotConfigured
	}
	payload, err := json.Marshal(invokeRequest{
		Text:      input.Text,
		Audio:     input.Audio,
		UserID:    input.UserID,
		SessionID: input.SessionID,
	})
	if err != nil {
		return Reply{}, fmt.Errorf("marshal agent request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/run", bytes.NewReader(payload))
	if err != nil {
		return Reply{}, fmt.Errorf("build agent request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Reply{}, fmt.Errorf("invoke agent: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Reply{}, fmt.Errorf("read agent response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return Reply{}, fmt.Errorf("agent status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	reply := Reply{raw: string(body)}
	var parsed invokeResponse
	if err := json.Unmarshal(body, &parsed); err == nil {
		reply.content = parsed.Content
	}
	return reply, nil
}
