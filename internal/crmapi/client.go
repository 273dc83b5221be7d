// Package crmapi fetches call history from the telephony provider's CRM API.
package crmapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/chubays/DomRU-Telefone-Monthly-Report/internal/allocation"
	"github.com/chubays/DomRU-Telefone-Monthly-Report/internal/metrics"
)

const historyPath = "/crmapi/v1/history/json"

// stampLayout is the API's timestamp format: yyyyMMdd'T'HHmmss'Z'.
const stampLayout = "20060102T150405Z"

// Query selects the history window. Period takes precedence when set
// (the API's own enum, e.g. "last_month"); otherwise Start/End bound the
// window explicitly.
type Query struct {
	Period string
	Start  time.Time
	End    time.Time
}

// Client issues authenticated history requests. The zero timeout and retry
// settings are filled with defaults by New.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	MaxRetries int
	Backoff    time.Duration
}

// New builds a client with a 15s request timeout and three retries with
// exponential backoff for transient failures.
func New(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		BaseURL:    baseURL,
		Token:      token,
		HTTPClient: &http.Client{Timeout: timeout},
		MaxRetries: 3,
		Backoff:    time.Second,
	}
}

// History fetches outgoing call history and returns the raw JSON body.
// Connection failures, timeouts, 429 and 5xx responses are retried up to
// MaxRetries times with exponential backoff; exhaustion surfaces as a
// TransientFetchError. Non-transient HTTP errors (bad token, bad request)
// fail immediately.
func (c *Client) History(ctx context.Context, q Query) ([]byte, error) {
	u, err := url.Parse(c.BaseURL + historyPath)
	if err != nil {
		return nil, fmt.Errorf("history url: %w", err)
	}
	params := url.Values{}
	params.Set("type", "out")
	if q.Period != "" {
		params.Set("period", q.Period)
	} else {
		if !q.Start.IsZero() {
			params.Set("start", q.Start.UTC().Format(stampLayout))
		}
		if !q.End.IsZero() {
			params.Set("end", q.End.UTC().Format(stampLayout))
		}
	}
	u.RawQuery = params.Encode()

	attempts := c.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}
	backoff := c.Backoff
	if backoff <= 0 {
		backoff = time.Second
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		body, err, transient := c.fetch(ctx, u.String())
		if err == nil {
			return body, nil
		}
		if !transient {
			return nil, err
		}
		lastErr = err
		if attempt == attempts {
			break
		}
		metrics.FetchRetries.Inc()
		select {
		case <-ctx.Done():
			return nil, &allocation.TransientFetchError{Attempts: attempt, Err: ctx.Err()}
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return nil, &allocation.TransientFetchError{Attempts: attempts, Err: lastErr}
}

func (c *Client) fetch(ctx context.Context, rawURL string) (body []byte, err error, transient bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err, false
	}
	req.Header.Set("X-API-KEY", c.Token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err, true
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("history request: status %d", resp.StatusCode), true
	default:
		return nil, fmt.Errorf("history request: status %d", resp.StatusCode), false
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err, true
	}
	return b, nil, false
}
