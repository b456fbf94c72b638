package license

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/binbin1213/GAGA-Client/internal/model"
)

const (
	authPath    = "/api/auth"
	getKeysPath = "/api/get_keys"

	maxErrorBody = 512
)

// Credentials identify this device to the licensing backend
type Credentials struct {
	DeviceID    string
	LicenseCode string
}

// KeyRequest carries everything needed to resolve the content keys of a stream
type KeyRequest struct {
	Credentials
	PSSH       string
	LicenseURL string
}

// Client is the licensing backend client
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	retry   RetryConfig
	log     *slog.Logger
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. Its timeout is kept as is.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithRetry replaces the retry policy of key requests
func WithRetry(cfg RetryConfig) Option {
	return func(c *Client) {
		c.retry = cfg
	}
}

// WithRateLimit replaces the request rate limiter
func WithRateLimit(l *rate.Limiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// NewClient creates a client for the backend at baseURL
func NewClient(baseURL string, timeout time.Duration, log *slog.Logger, opts ...Option) *Client {
	if log == nil {
		log = slog.Default()
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 2),
		retry:   DefaultRetryConfig(),
		log:     log.With(slog.String("component", "license")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Auth checks the device credentials once. Transport errors are returned
// unchanged so that callers can tell an unreachable backend from a refusal.
func (c *Client) Auth(ctx context.Context, creds Credentials) (AuthResponse, error) {
	var resp AuthResponse
	err := c.post(ctx, authPath, AuthRequest{
		DeviceID:    creds.DeviceID,
		LicenseCode: creds.LicenseCode,
	}, &resp)
	if err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.Unauthorized() {
			return AuthResponse{Status: StatusFailed, Message: httpErr.Body}, nil
		}
		return AuthResponse{}, err
	}
	return resp, nil
}

// GetKeys posts a key request, retrying transient failures
func (c *Client) GetKeys(ctx context.Context, req KeyRequest) (KeysResponse, error) {
	body := KeysRequest{
		DeviceID:    req.DeviceID,
		LicenseCode: req.LicenseCode,
		PSSH:        req.PSSH,
		LicenseURL:  req.LicenseURL,
	}

	var resp KeysResponse
	err := retryLinear(ctx, c.retry, func(attempt int) error {
		if attempt > 0 {
			c.log.Warn("retrying key request", slog.Int("attempt", attempt+1))
		}
		resp = KeysResponse{}
		return c.post(ctx, getKeysPath, body, &resp)
	})
	return resp, err
}

// ResolveKeys returns the content keys of a protected stream or a
// *KeyResolutionError explaining why none could be obtained.
func (c *Client) ResolveKeys(ctx context.Context, req KeyRequest) ([]model.ContentKey, error) {
	if req.PSSH == "" || req.LicenseURL == "" {
		return nil, &KeyResolutionError{
			Reason:  ReasonInvalidRequest,
			Message: "pssh and license url are both required",
		}
	}

	resp, err := c.GetKeys(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.Unauthorized() {
			return nil, &KeyResolutionError{Reason: ReasonNotAuthorized, Message: httpErr.Body, Err: err}
		}
		c.log.Error("licensing backend unreachable", slog.String("error", err.Error()))
		return nil, &KeyResolutionError{Reason: ReasonUnreachable, Err: err}
	}

	if !IsSuccess(resp.Status) {
		msg := resp.Message
		if msg == "" {
			msg = "request rejected"
		}
		c.log.Warn("key request rejected", slog.String("status", resp.Status), slog.String("message", msg))
		return nil, &KeyResolutionError{Reason: ReasonNotAuthorized, Message: msg}
	}

	if len(resp.Keys) == 0 {
		return nil, &KeyResolutionError{Reason: ReasonNoKeys, Message: "no keys returned"}
	}
	// every track needs its key; a partial set cannot decrypt the stream
	keys := make([]model.ContentKey, 0, len(resp.Keys))
	for _, k := range resp.Keys {
		if k.KeyID == "" || k.Key == "" {
			c.log.Warn("incomplete key in response", slog.Int("returned", len(resp.Keys)))
			return nil, &KeyResolutionError{Reason: ReasonNoKeys, Message: "incomplete key set"}
		}
		keys = append(keys, k)
	}

	for _, k := range keys {
		c.log.Info("content key resolved", slog.String("kid", k.KeyID), slog.String("key", k.Masked()))
	}
	return keys, nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &HTTPError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
