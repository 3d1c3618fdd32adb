package smschan

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"inflow/internal/constants"
	apperrors "inflow/pkg/errors"
)

// smsMessage is the provider's wire format for one listed message. Provider
// payloads vary: the ID and timestamp are optional, which is exactly why the
// dedup store carries three strategies.
type smsMessage struct {
	ID        string `json:"id,omitempty"`
	From      string `json:"from"`
	To        string `json:"to"`
	Body      string `json:"body"`
	Type      string `json:"type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

type listResponse struct {
	Messages []smsMessage `json:"messages"`
}

// Client is a thin REST client for the SMS provider's message listing
// endpoint. Requests are rate-limited client-side so a short poll interval
// can never trip the provider's own limiter.
type Client struct {
	baseURL    string
	apiKey     string
	pageSize   int
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewClient(baseURL, apiKey string, pageSize int, requestsPerSecond float64) *Client {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	return &Client{
		baseURL:  baseURL,
		apiKey:   apiKey,
		pageSize: pageSize,
		httpClient: &http.Client{
			Timeout: constants.DefaultHTTPTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

// ListRecent fetches the most recent messages, newest first, capped at the
// configured page size.
func (c *Client) ListRecent(ctx context.Context) ([]smsMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint, err := url.Parse(c.baseURL + "/messages")
	if err != nil {
		return nil, apperrors.ErrInternal.WithCause(err)
	}
	q := endpoint.Query()
	q.Set("limit", strconv.Itoa(c.pageSize))
	q.Set("sort", "desc")
	// Filter server-side so outbound traffic cannot crowd inbound messages
	// off the bounded newest-first page. The classifier still re-checks each
	// message: not every provider honors the filter.
	q.Set("type", "inbound")
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, apperrors.ErrInternal.WithCause(err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.ErrConnection.WithCause(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, apperrors.ErrAuthFailed.WithDetail("status", resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, apperrors.ErrRateLimited.WithDetail("status", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, apperrors.ErrConnection.
			WithDetail("status", resp.StatusCode).
			WithDetail("body", string(body))
	}

	var parsed listResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, apperrors.ErrConnection.WithCause(fmt.Errorf("decode message list: %w", err))
	}
	return parsed.Messages, nil
}

// parseTimestamp accepts the formats observed across provider payloads.
func parseTimestamp(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts
		}
	}
	return time.Time{}
}
