// Package edr is a client for the event-search backend: OAuth2 session
// handling, asynchronous event search with polling and pagination, and
// synchronous alert lookup.
package edr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// DefaultBaseURL is the default base URL for the event-search API.
const DefaultBaseURL = "https://api.edrsearch.local"

// tokenExpiryMargin is subtracted from the advertised token lifetime so a
// token is never used right at its expiry boundary.
const tokenExpiryMargin = 30 * time.Second

// Client is an authenticated session with the event-search backend for one
// credential pair. It is safe for concurrent use: the token is refreshed
// internally, and all search and alert operations are read-only with respect
// to client state.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	clientID     string
	clientSecret string

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

// Option is a functional option for configuring the Client.
type Option func(*Client)

// WithBaseURL sets a custom base URL for the API.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// Connect creates a client and performs the initial authentication. Only a
// client whose token fetch succeeded is returned, so a cached Connect result
// is always a fully authenticated session.
func Connect(ctx context.Context, clientID, clientSecret string, opts ...Option) (*Client, error) {
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("%w: client id and secret are required", ErrConfiguration)
	}

	c := &Client{
		baseURL:      DefaultBaseURL,
		httpClient:   http.DefaultClient,
		clientID:     clientID,
		clientSecret: clientSecret,
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.authenticate(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// authenticate fetches a fresh bearer token. Callers must not hold c.mu.
func (c *Client) authenticate(ctx context.Context) error {
	form := url.Values{
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("creating token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("requesting token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return &AuthError{StatusCode: resp.StatusCode, Detail: strings.TrimSpace(string(body))}
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return fmt.Errorf("decoding token response: %w", err)
	}
	if tok.AccessToken == "" {
		return &AuthError{StatusCode: resp.StatusCode, Detail: "empty access token"}
	}

	c.mu.Lock()
	c.token = tok.AccessToken
	c.tokenExp = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - tokenExpiryMargin)
	c.mu.Unlock()

	slog.Debug("authenticated with event-search backend",
		slog.String("base_url", c.baseURL),
		slog.Int("expires_in_s", tok.ExpiresIn),
	)
	return nil
}

// bearer returns a valid token, refreshing it when close to expiry.
func (c *Client) bearer(ctx context.Context) (string, error) {
	c.mu.Lock()
	token, exp := c.token, c.tokenExp
	c.mu.Unlock()

	if token != "" && time.Now().Before(exp) {
		return token, nil
	}
	if err := c.authenticate(ctx); err != nil {
		return "", err
	}
	c.mu.Lock()
	token = c.token
	c.mu.Unlock()
	return token, nil
}

// do performs an authenticated request and decodes the JSON response into
// result (when non-nil). A 401 triggers one forced re-authentication.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, result any) error {
	start := time.Now()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
	}

	for attempt := 0; ; attempt++ {
		token, err := c.bearer(ctx)
		if err != nil {
			return err
		}

		u, err := url.Parse(c.baseURL + path)
		if err != nil {
			return fmt.Errorf("parsing URL: %w", err)
		}
		u.RawQuery = query.Encode()

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			slog.Debug("backend request failed",
				slog.String("method", method),
				slog.String("path", path),
				slog.String("error", err.Error()),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
			return fmt.Errorf("executing request: %w", err)
		}

		if resp.StatusCode == http.StatusUnauthorized && attempt == 0 {
			resp.Body.Close()
			c.mu.Lock()
			c.token = ""
			c.mu.Unlock()
			continue
		}

		if resp.StatusCode >= 400 {
			apiErr := c.parseError(resp)
			resp.Body.Close()
			slog.Debug("backend request returned error",
				slog.String("method", method),
				slog.String("path", path),
				slog.Int("status", resp.StatusCode),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
			return apiErr
		}

		if result != nil {
			if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
				resp.Body.Close()
				return fmt.Errorf("decoding response: %w", err)
			}
		}
		resp.Body.Close()

		slog.Debug("backend request completed",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return nil
	}
}

// parseError extracts an APIError from an error response.
func (c *Client) parseError(resp *http.Response) *APIError {
	body, _ := io.ReadAll(resp.Body)
	var errResp errorResponse
	if json.Unmarshal(body, &errResp) == nil && len(errResp.Errors) > 0 {
		return &APIError{StatusCode: resp.StatusCode, Message: strings.Join(errResp.Errors, "; ")}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
}
