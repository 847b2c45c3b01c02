// Package discord reads support conversations from Discord channels using the
// REST API (v10) with a bot token.
package discord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"insight-agent/src/logger"
	"insight-agent/src/provider"
)

const (
	// APIBaseURL is the base URL for the Discord API.
	APIBaseURL = "https://discord.com/api/v10"

	// messagePageSize is the largest page the messages endpoint returns.
	messagePageSize = 100
)

// Client is a Discord API client.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        logger.Logger
}

// Channel is the subset of the channel object we use.
type Channel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Author is the user who posted a message.
type Author struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Bot      bool   `json:"bot"`
}

// Message represents a Discord message.
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Author    Author    `json:"author"`
	Thread    *Channel  `json:"thread,omitempty"`
}

// APIError is a non-2xx response. It unwraps to the matching provider sentinel.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return provider.ErrAuthFailed
	case http.StatusNotFound:
		return provider.ErrChannelNotFound
	case http.StatusTooManyRequests:
		return provider.ErrRateLimited
	}
	return nil
}

// NewClient creates a new Discord API client.
func NewClient(token string, log logger.Logger) *Client {
	if log == nil {
		log = logger.NewSilentLogger()
	}
	return &Client{
		token:   token,
		baseURL: APIBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		// Discord allows 50 requests per second per bot; stay well below it.
		limiter: rate.NewLimiter(rate.Every(100*time.Millisecond), 1),
		log:     log,
	}
}

// GetChannel fetches a channel's metadata.
func (c *Client) GetChannel(ctx context.Context, channelID string) (*Channel, error) {
	var ch Channel
	if err := c.get(ctx, fmt.Sprintf("/channels/%s", channelID), &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

// GetMessages fetches the most recent messages of a channel or thread, newest first.
func (c *Client) GetMessages(ctx context.Context, channelID string) ([]Message, error) {
	var msgs []Message
	if err := c.get(ctx, fmt.Sprintf("/channels/%s/messages?limit=%d", channelID, messagePageSize), &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bot "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return fmt.Errorf("%w: %v", provider.ErrNetworkTimeout, err)
		}
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
