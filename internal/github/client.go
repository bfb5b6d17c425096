// Package github fetches repository activity through the GitHub GraphQL and
// REST APIs, filtered to one ISO week. Transient upstream failures (5xx,
// network errors) are retried with exponential backoff; authorization and
// not-found failures are permanent.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kingrea/grazer/internal/logging"
	"github.com/kingrea/grazer/internal/retry"
)

const (
	defaultGraphQLURL = "https://api.github.com/graphql"
	defaultRESTURL    = "https://api.github.com"
)

// Client talks to the GitHub APIs for one configured token.
type Client struct {
	http       *http.Client
	graphqlURL string
	restURL    string
	token      string
	console    *logging.Console
	policy     retry.Policy
}

// ClientOption customizes a Client during construction.
type ClientOption func(*Client)

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithEndpoints points the client at alternate API bases, used by tests.
func WithEndpoints(graphqlURL, restURL string) ClientOption {
	return func(c *Client) {
		c.graphqlURL = graphqlURL
		c.restURL = restURL
	}
}

// WithConsole routes progress output through the given console.
func WithConsole(console *logging.Console) ClientOption {
	return func(c *Client) { c.console = console }
}

// NewClient builds a client. An empty token is allowed; requests then run
// unauthenticated against public data.
func NewClient(token string, opts ...ClientOption) *Client {
	c := &Client{
		http:       &http.Client{Timeout: 30 * time.Second},
		graphqlURL: defaultGraphQLURL,
		restURL:    defaultRESTURL,
		token:      token,
		policy:     retry.Policy{MaxAttempts: 3, Initial: time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphqlError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphqlError  `json:"errors"`
}

// graphql posts one query and decodes the data payload into out. Attempts
// are bounded by the client's retry policy; 5xx and transport failures are
// retried, everything else fails immediately.
func (c *Client) graphql(ctx context.Context, query string, variables map[string]any, out any) error {
	body, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("github: encode query: %w", err)
	}

	return c.policy.Do(ctx, func(attempt int) error {
		if attempt > 1 && c.console != nil {
			c.console.Warning("retrying GraphQL request (attempt %d)", attempt)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.graphqlURL, bytes.NewReader(body))
		if err != nil {
			return retry.Permanent(fmt.Errorf("github: build request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("github: graphql request: %w", err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			// fall through to decode
		case resp.StatusCode == http.StatusForbidden:
			if resp.Header.Get("X-RateLimit-Remaining") == "0" {
				return retry.Permanent(fmt.Errorf("github: rate limit exceeded, resets at %s", resp.Header.Get("X-RateLimit-Reset")))
			}
			return retry.Permanent(fmt.Errorf("github: access forbidden, check token permissions"))
		case resp.StatusCode == http.StatusBadGateway,
			resp.StatusCode == http.StatusServiceUnavailable,
			resp.StatusCode == http.StatusGatewayTimeout:
			return fmt.Errorf("github: upstream returned %d", resp.StatusCode)
		default:
			return retry.Permanent(fmt.Errorf("github: unexpected status %d", resp.StatusCode))
		}

		var envelope graphqlResponse
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
			return fmt.Errorf("github: decode response: %w", err)
		}
		for _, gqlErr := range envelope.Errors {
			switch gqlErr.Type {
			case "FORBIDDEN", "NOT_FOUND", "UNAUTHORIZED":
				return retry.Permanent(fmt.Errorf("github: %s: %s", gqlErr.Type, gqlErr.Message))
			}
		}
		if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
			return retry.Permanent(fmt.Errorf("github: no data in response"))
		}
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return retry.Permanent(fmt.Errorf("github: decode data: %w", err))
		}
		return nil
	})
}

// rest performs one GET against the REST API and decodes the JSON body.
func (c *Client) rest(ctx context.Context, url string, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("github: build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if c.token != "" {
		req.Header.Set("Authorization", "token "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("github: rest request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, fmt.Errorf("github: %s returned %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("github: decode %s: %w", url, err)
	}
	return resp.StatusCode, nil
}
