/*
Package narrative talks to the external generative-text service.

PURPOSE:
  The service writes prose around the economy: betting odds rationales
  and end-of-day feedback. It is strictly downstream. It receives
  read-only summaries built from committed state, and the economy stays
  correct whether it answers, answers late, or never answers.

PROTOCOL (JSON over HTTP, bearer token):
  POST {base}/odds      OddsRequest   -> {"multiplier": 2.4, "rationale": "..."}
  POST {base}/feedback  DaySummary    -> {"feedback": "..."}

FAILURE MODEL:
  - Unconfigured client: ErrNotConfigured, callers fall back
  - Transport errors, non-2xx, bad JSON: wrapped errors, callers fall back
  - Every call is bounded by the client timeout

SEE ALSO:
  - odds.go: Multiplier quotes with clamp and fallback
  - dispatcher.go: Asynchronous feedback worker
  - summary.go: Read-only summaries sent to the service
*/
package narrative

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

var ErrNotConfigured = errors.New("narrative service is not configured")

type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether a base URL is set.
func (c *Client) Enabled() bool {
	return c != nil && c.BaseURL != ""
}

// OddsResponse is the service's proposal for a draft mission.
type OddsResponse struct {
	Multiplier float64 `json:"multiplier"`
	Rationale  string  `json:"rationale"`
}

// FeedbackResponse is the service's verdict on a day.
type FeedbackResponse struct {
	Feedback string `json:"feedback"`
}

func (c *Client) Odds(ctx context.Context, req OddsRequest) (OddsResponse, error) {
	var out OddsResponse
	err := c.post(ctx, "/odds", req, &out)
	return out, err
}

func (c *Client) Feedback(ctx context.Context, summary DaySummary) (FeedbackResponse, error) {
	var out FeedbackResponse
	if err := c.post(ctx, "/feedback", summary, &out); err != nil {
		return FeedbackResponse{}, err
	}
	if strings.TrimSpace(out.Feedback) == "" {
		return FeedbackResponse{}, fmt.Errorf("narrative: empty feedback")
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	if !c.Enabled() {
		return ErrNotConfigured
	}

	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("narrative: encode %s: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("narrative: build %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("narrative: %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("narrative: read %s: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("narrative: %s returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("narrative: decode %s: %w", path, err)
	}
	return nil
}
