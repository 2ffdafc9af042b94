package solve

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tonyyueyu/optimization/pkg/chat"
)

// SolveRequest is the payload for the streaming solve call. Problem and
// SecondProblem are the two retrieved example problems the backend uses
// for few-shot formatting; both are optional.
type SolveRequest struct {
	UserQuery     string         `json:"user_query"`
	Problem       string         `json:"problem,omitempty"`
	SecondProblem string         `json:"second_problem,omitempty"`
	History       []chat.Message `json:"history,omitempty"`
}

// ExampleProblem is one retrieval hit from the solver's example corpus.
type ExampleProblem struct {
	Score    float64 `json:"score"`
	ID       string  `json:"id"`
	Problem  string  `json:"problem"`
	Solution string  `json:"solution,omitempty"`
}

// Client talks to the optimization solving service.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	streamClient *http.Client
}

func NewClient(baseURL string) *Client {
	return NewClientWithTimeout(baseURL, 30*time.Second)
}

func NewClientWithTimeout(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		// No overall timeout on the streaming client: a solve run can
		// legitimately stay open for minutes. Cancellation comes from
		// the request context.
		streamClient: &http.Client{},
	}
}

// Retrieve fetches the most similar solved example problems for a query.
func (c *Client) Retrieve(ctx context.Context, query string) ([]ExampleProblem, error) {
	reqBody, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal retrieve request: %w", err)
	}

	url := fmt.Sprintf("%s/api/retrieve", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create retrieve request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("retrieve request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("retrieve request failed with status %d", resp.StatusCode)
	}

	var results []ExampleProblem
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("failed to decode retrieve response: %w", err)
	}

	return results, nil
}

// Solve opens the streaming solve call. Any failure before the first
// byte of the stream arrives is returned here and is treated by callers
// the same as a backend error event.
func (c *Client) Solve(ctx context.Context, req SolveRequest) (*Stream, error) {
	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal solve request: %w", err)
	}

	url := fmt.Sprintf("%s/api/solve", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create solve request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("solve request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		errorBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("solve request failed with status %d", resp.StatusCode)
		}

		var errorResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(errorBody, &errorResp) == nil && errorResp.Error != "" {
			return nil, fmt.Errorf("solve request failed with status %d: %s", resp.StatusCode, errorResp.Error)
		}
		return nil, fmt.Errorf("solve request failed with status %d: %s", resp.StatusCode, string(errorBody))
	}

	return NewStream(resp.Body), nil
}

// Stream is one open solve response. Events come back strictly in
// arrival order; frames whose payloads do not decode are skipped.
type Stream struct {
	body   io.ReadCloser
	parser *FrameParser
}

func NewStream(body io.ReadCloser) *Stream {
	return &Stream{
		body:   body,
		parser: NewFrameParser(body),
	}
}

// Next returns the next decoded event, io.EOF when the stream closes,
// or the transport's read error (context.Canceled on an aborted run).
func (s *Stream) Next() (Event, error) {
	for {
		frame, err := s.parser.Next()
		if err != nil {
			return Event{}, err
		}

		ev, err := DecodeEvent(frame)
		if err != nil {
			// Same policy as a malformed data line: drop the frame,
			// keep the run alive.
			continue
		}
		return ev, nil
	}
}

func (s *Stream) Close() error {
	return s.body.Close()
}
