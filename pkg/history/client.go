// Package history talks to the session persistence service. Threads and
// their messages live server-side; this client is the only path to them.
// Every call takes the owner and thread id explicitly.
package history

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/tonyyueyu/optimization/pkg/chat"
)

// ThreadInfo is the listing view of a thread.
type ThreadInfo struct {
	Title       string    `json:"title"`
	LastUpdated time.Time `json:"last_updated"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return NewClientWithTimeout(baseURL, 15*time.Second)
}

func NewClientWithTimeout(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Create registers a new thread and returns its id. Titles are set once
// here, from the first query, and never change afterward.
func (c *Client) Create(ctx context.Context, owner, title string) (string, error) {
	reqBody, err := json.Marshal(map[string]string{
		"owner": owner,
		"title": title,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal create request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/history/threads", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("create thread failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("create thread failed with status %d", resp.StatusCode)
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("failed to decode create response: %w", err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("create thread returned an empty id")
	}

	return created.ID, nil
}

// List returns the owner's threads keyed by thread id.
func (c *Client) List(ctx context.Context, owner string) (map[string]ThreadInfo, error) {
	endpoint := fmt.Sprintf("%s/api/history/threads?owner=%s", c.baseURL, url.QueryEscape(owner))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("list threads failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list threads failed with status %d", resp.StatusCode)
	}

	var threads map[string]ThreadInfo
	if err := json.NewDecoder(resp.Body).Decode(&threads); err != nil {
		return nil, fmt.Errorf("failed to decode thread list: %w", err)
	}

	return threads, nil
}

// Fetch returns all messages of one thread in append order.
func (c *Client) Fetch(ctx context.Context, owner, threadID string) ([]chat.Message, error) {
	endpoint := fmt.Sprintf("%s/api/history/threads/%s/messages?owner=%s",
		c.baseURL, url.PathEscape(threadID), url.QueryEscape(owner))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fetch thread failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch thread failed with status %d", resp.StatusCode)
	}

	var messages []chat.Message
	if err := json.NewDecoder(resp.Body).Decode(&messages); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}

	return messages, nil
}

// Append adds one message to a thread. Messages are append-only: once
// persisted they are never edited or reordered.
func (c *Client) Append(ctx context.Context, owner, threadID string, msg chat.Message) error {
	reqBody, err := json.Marshal(struct {
		Owner   string       `json:"owner"`
		Message chat.Message `json:"message"`
	}{Owner: owner, Message: msg})
	if err != nil {
		return fmt.Errorf("failed to marshal append request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/history/threads/%s/messages", c.baseURL, url.PathEscape(threadID))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("append message failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("append message failed with status %d", resp.StatusCode)
	}

	return nil
}

// Delete removes a thread and purges its messages. Callers gate this
// behind an explicit confirm step.
func (c *Client) Delete(ctx context.Context, owner, threadID string) error {
	endpoint := fmt.Sprintf("%s/api/history/threads/%s?owner=%s",
		c.baseURL, url.PathEscape(threadID), url.QueryEscape(owner))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("delete thread failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("delete thread failed with status %d", resp.StatusCode)
	}

	return nil
}

// Close notifies the service that a thread's session ended. It is
// best-effort teardown: a short timeout, no retries, errors swallowed.
// Delivery is not guaranteed.
func (c *Client) Close(owner, threadID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	reqBody, _ := json.Marshal(map[string]string{"owner": owner})

	endpoint := fmt.Sprintf("%s/api/history/threads/%s/close", c.baseURL, url.PathEscape(threadID))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(reqBody))
	if err != nil {
		return
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return
	}
	resp.Body.Close()
}
