package client

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

	"github.com/dmitrijs2005/srpkeeper/internal/client/models"
	"github.com/dmitrijs2005/srpkeeper/internal/common"
	"github.com/sethvargo/go-retry"
)

// DefaultRetryBase is the first backoff step between retries.
const DefaultRetryBase = 200 * time.Millisecond

type HTTPClient struct {
	baseURL    string
	http       *http.Client
	maxRetries uint64
	retryBase  time.Duration
}

type Option func(*HTTPClient)

func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTPClient) { h.http = c }
}

// WithTimeout bounds every request, including reading the response.
func WithTimeout(d time.Duration) Option {
	return func(h *HTTPClient) { h.http.Timeout = d }
}

// WithRetries sets how often idempotent requests are retried while the
// server is unavailable, with exponential backoff starting at base.
func WithRetries(n uint64, base time.Duration) Option {
	return func(h *HTTPClient) {
		h.maxRetries = n
		h.retryBase = base
	}
}

func NewHTTPClient(baseURL string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		http:       &http.Client{Timeout: 10 * time.Second},
		maxRetries: 2,
		retryBase:  DefaultRetryBase,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *HTTPClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.withRetry(ctx, func(ctx context.Context) error {
		return c.do(ctx, http.MethodGet, "/", "", nil, nil)
	})
}

type registerRequest struct {
	Email    string `json:"email"`
	Salt     string `json:"salt"`
	Verifier string `json:"verifier"`
	Name     string `json:"name,omitempty"`
}

type userResponse struct {
	User models.User `json:"user"`
}

func (c *HTTPClient) Register(ctx context.Context, email, salt, verifier, name string) (*models.User, error) {
	var resp userResponse
	req := registerRequest{Email: email, Salt: salt, Verifier: verifier, Name: name}
	if err := c.do(ctx, http.MethodPost, "/auth/register", "", req, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

type loginInitRequest struct {
	Email                 string `json:"email"`
	ClientPublicEphemeral string `json:"clientPublicEphemeral"`
}

func (c *HTTPClient) LoginInit(ctx context.Context, email, clientPublicEphemeral string) (*models.LoginChallenge, error) {
	var resp models.LoginChallenge
	req := loginInitRequest{Email: email, ClientPublicEphemeral: clientPublicEphemeral}
	if err := c.do(ctx, http.MethodPost, "/auth/login/init", "", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

type loginVerifyRequest struct {
	SessionID          string `json:"sessionId"`
	ClientSessionProof string `json:"clientSessionProof"`
}

func (c *HTTPClient) LoginVerify(ctx context.Context, sessionID, clientSessionProof string) (*models.LoginResult, error) {
	if sessionID == "" || clientSessionProof == "" {
		return nil, fmt.Errorf("%w: session id and proof are required", ErrBadRequest)
	}

	var resp models.LoginResult
	req := loginVerifyRequest{SessionID: sessionID, ClientSessionProof: clientSessionProof}
	if err := c.do(ctx, http.MethodPost, "/auth/login/verify", "", req, &resp); err != nil {
		var se *statusError
		if errors.As(err, &se) && se.sentinel == ErrBadRequest && se.msg == common.SessionExpiredMessage {
			return nil, fmt.Errorf("%w: %w", ErrSessionExpired, err)
		}
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) Me(ctx context.Context, token string) (*models.User, error) {
	var resp userResponse
	err := c.withRetry(ctx, func(ctx context.Context) error {
		return c.do(ctx, http.MethodGet, "/auth/me", token, nil, &resp)
	})
	if err != nil {
		return nil, err
	}
	return &resp.User, nil
}

func (c *HTTPClient) Logout(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", token, nil, nil)
}

// withRetry repeats fn while it fails with ErrUnavailable.
func (c *HTTPClient) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	b := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.retryBase))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := fn(ctx)
		if errors.Is(err, ErrUnavailable) {
			return retry.RetryableError(err)
		}
		return err
	})
}

type errorResponse struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

func (c *HTTPClient) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(common.AuthorizationHeader, common.BearerPrefix+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return mapStatus(resp)
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

// statusError is a non-2xx answer mapped to one of the client sentinels.
type statusError struct {
	sentinel error
	msg      string
}

func (e *statusError) Error() string { return e.sentinel.Error() + ": " + e.msg }
func (e *statusError) Unwrap() error { return e.sentinel }

func mapStatus(resp *http.Response) error {
	var e errorResponse
	_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&e)
	msg := e.Error
	if msg == "" {
		msg = resp.Status
	}

	var sentinel error
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		sentinel = ErrUnauthorized
	case resp.StatusCode == http.StatusConflict:
		sentinel = ErrDuplicateAccount
	case resp.StatusCode == http.StatusNotFound:
		sentinel = ErrAccountNotFound
	case resp.StatusCode == http.StatusBadGateway,
		resp.StatusCode == http.StatusServiceUnavailable,
		resp.StatusCode == http.StatusGatewayTimeout:
		sentinel = ErrUnavailable
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		sentinel = ErrBadRequest
	default:
		return fmt.Errorf("server error: %s", msg)
	}
	return &statusError{sentinel: sentinel, msg: msg}
}
