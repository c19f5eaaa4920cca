package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	authsess "github.com/lumora-app/authsess"
)

const (
	loginPath   = "/auth/login"
	logoutPath  = "/auth/logout"
	refreshPath = "/auth/refresh"
	verifyPath  = "/auth/verify"

	// maxErrorBody caps how much of a failure response is read into a
	// StatusError.
	maxErrorBody = 4096
)

// Client is the HTTP implementation of [authsess.Repository].
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
}

// Option configures a [Client].
type Option func(*Client)

// WithHTTPClient replaces the default http.Client. Use this to install
// custom transports, TLS settings, or timeouts.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithTimeout sets the per-request timeout on the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// New creates a [Client] for the given backend base URL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base URL %q must use http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("base URL %q must include a host", baseURL)
	}

	c := &Client{
		baseURL:   u,
		http:      &http.Client{Timeout: 15 * time.Second},
		userAgent: "authsess/1",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type verifyRequest struct {
	Token string `json:"token"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Login implements [authsess.Repository].
func (c *Client) Login(ctx context.Context, creds authsess.Credentials) (*authsess.LoginResponse, error) {
	var out authsess.LoginResponse
	if err := c.post(ctx, loginPath, loginRequest{Email: creds.Email, Password: creds.Password}, &out, ""); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout implements [authsess.Repository]. The access token rides in
// the Authorization header; the backend answers 2xx even when the
// token is already dead.
func (c *Client) Logout(ctx context.Context, accessToken string) error {
	return c.post(ctx, logoutPath, struct{}{}, nil, accessToken)
}

// Refresh implements [authsess.Repository].
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*authsess.RefreshResponse, error) {
	var out authsess.RefreshResponse
	if err := c.post(ctx, refreshPath, refreshRequest{RefreshToken: refreshToken}, &out, ""); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyToken implements [authsess.Repository]. The verify endpoint
// reports invalid tokens inside a 200 body, so only transport and
// server failures produce errors here.
func (c *Client) VerifyToken(ctx context.Context, accessToken string) (*authsess.TokenVerification, error) {
	var out authsess.TokenVerification
	if err := c.post(ctx, verifyPath, verifyRequest{Token: accessToken}, &out, ""); err != nil {
		return nil, err
	}
	return &out, nil
}

// post runs one JSON round trip. Transport failures return as-is;
// non-2xx answers return [*authsess.StatusError].
func (c *Client) post(ctx context.Context, path string, payload any, out any, bearer string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL.JoinPath(path).String(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}

	requestID := authsess.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &authsess.StatusError{
			Code:      resp.StatusCode,
			Body:      readErrorBody(resp),
			RequestID: requestID,
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// readErrorBody extracts the backend's message from a failure response.
// JSON bodies of the {"error": "..."} shape reduce to the message
// alone; anything else is kept raw, truncated.
func readErrorBody(resp *http.Response) string {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return resp.Status
	}

	var er errorResponse
	if json.Unmarshal(raw, &er) == nil && er.Error != "" {
		return er.Error
	}
	return strings.TrimSpace(string(raw))
}
