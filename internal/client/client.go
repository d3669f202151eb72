// Package client is a typed Go client for the public Launchpad API plus a
// local cache that mirrors access grants and progress between sessions.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/equihome/launchpad/internal/domain"
	"github.com/equihome/launchpad/internal/pkg/httpretry"
)

// ErrUnreachable wraps transport failures: the server could not be reached
// or did not answer.
var ErrUnreachable = errors.New("launchpad api unreachable")

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("launchpad api: %d %s: %s", e.Status, e.Code, e.Message)
}

// AccessDecision is the answer of the check-access endpoint.
type AccessDecision struct {
	HasAccess bool       `json:"hasAccess"`
	Since     *time.Time `json:"since,omitempty"`
	Hardcoded bool       `json:"hardcoded,omitempty"`
	Degraded  bool       `json:"degraded,omitempty"`
}

// Client calls the public API.
type Client struct {
	baseURL string
	http    httpretry.HTTPDoer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the retrying transport.
func WithHTTPClient(d httpretry.HTTPDoer) Option {
	return func(c *Client) { c.http = d }
}

// New creates a client for baseURL, retrying transient failures twice.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpretry.NewRetryClient(nil, 2),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CheckAccess asks whether email may view resource.
func (c *Client) CheckAccess(ctx context.Context, email string, resource domain.RequestType) (AccessDecision, error) {
	q := url.Values{"email": {email}, "resourceType": {string(resource)}}
	var out AccessDecision
	err := c.do(ctx, http.MethodGet, "/api/check-access?"+q.Encode(), nil, &out)
	return out, err
}

// RequestAccess submits an access request and returns its id.
func (c *Client) RequestAccess(ctx context.Context, email, name string, resource domain.RequestType) (string, error) {
	var out struct {
		RequestID string `json:"requestId"`
	}
	err := c.do(ctx, http.MethodPost, "/api/request-access", map[string]string{
		"email":       email,
		"name":        name,
		"requestType": string(resource),
	}, &out)
	return out.RequestID, err
}

// PageView is one page visit to record.
type PageView struct {
	UserID        string     `json:"userId"`
	Email         string     `json:"email"`
	Page          string     `json:"page"`
	ScheduledDate *time.Time `json:"scheduledDate,omitempty"`
}

// TrackPageView records a page visit.
func (c *Client) TrackPageView(ctx context.Context, pv PageView) error {
	return c.do(ctx, http.MethodPost, "/api/track/activity", pv, nil)
}

// TrackSignIn records a sign-in.
func (c *Client) TrackSignIn(ctx context.Context, userID, email string) error {
	return c.do(ctx, http.MethodPost, "/api/track/signin", map[string]string{
		"userId": userID,
		"email":  email,
	}, nil)
}

// UpdateProgress merges progress milestones for userID.
func (c *Client) UpdateProgress(ctx context.Context, userID string, progress domain.Progress) error {
	return c.do(ctx, http.MethodPost, "/api/track/progress", map[string]any{
		"userId":   userID,
		"progress": progress,
	}, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrUnreachable, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrUnreachable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		if json.Unmarshal(data, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
