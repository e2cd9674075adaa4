// Package upstream is the client for the dealership REST API.
//
// Every authenticated call goes through a Scoped client built from an explicit Session, so the
// bearer token and the reaction to a 401 are chosen by the caller rather than read from globals.
// There are no retries: a failed request is terminal for that operation.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Config configures a Client.
type Config struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	HTTPClient        *http.Client
	Logger            zerolog.Logger
}

// Client talks to the API. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        zerolog.Logger
}

// NewClient creates an API client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 10
	}

	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, burst),
		log:        cfg.Logger,
	}
}

// Session carries the caller's credentials and the policy applied when they are rejected.
type Session struct {
	Token          string
	OnUnauthorized func(ctx context.Context)
}

// Scoped is a Client bound to one Session.
type Scoped struct {
	c    *Client
	sess Session
	once sync.Once
}

// With binds a session. OnUnauthorized fires at most once per Scoped value.
func (c *Client) With(sess Session) *Scoped {
	return &Scoped{c: c, sess: sess}
}

// Token is the login response.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, phoneNumber, password string) (Token, error) {
	body := map[string]string{"phone_number": phoneNumber, "password": password}
	var tok Token
	if err := c.do(ctx, "", http.MethodPost, "/users/login", body, &tok); err != nil {
		return Token{}, err
	}
	if tok.AccessToken == "" {
		return Token{}, errors.New("upstream: login response has no access_token")
	}
	return tok, nil
}

// Do sends a JSON request; body and out may be nil. out may be *json.RawMessage for passthrough.
func (s *Scoped) Do(ctx context.Context, method, path string, body, out any) error {
	err := s.c.do(ctx, s.sess.Token, method, path, body, out)
	s.checkUnauthorized(ctx, err)
	return err
}

// Upload posts a multipart form with a single file field named "file".
func (s *Scoped) Upload(ctx context.Context, path, filename string, content io.Reader, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("upstream: build multipart: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return fmt.Errorf("upstream: copy upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("upstream: close multipart: %w", err)
	}

	err = s.c.send(ctx, s.sess.Token, http.MethodPost, path, mw.FormDataContentType(), &buf, out)
	s.checkUnauthorized(ctx, err)
	return err
}

func (s *Scoped) checkUnauthorized(ctx context.Context, err error) {
	if err == nil || !errors.Is(err, ErrUnauthorized) || s.sess.OnUnauthorized == nil {
		return
	}
	s.once.Do(func() { s.sess.OnUnauthorized(ctx) })
}

func (c *Client) do(ctx context.Context, token, method, path string, body, out any) error {
	var reader io.Reader
	contentType := ""
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("upstream: encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(raw)
		contentType = "application/json"
	}
	return c.send(ctx, token, method, path, contentType, reader, out)
}

func (c *Client) send(ctx context.Context, token, method, path, contentType string, body io.Reader, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("upstream: rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("upstream: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("method", method).Str("path", path).Msg("upstream request failed")
		return fmt.Errorf("upstream: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("upstream call")

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("upstream: read %s %s: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Detail:     parseDetail(raw),
			Method:     method,
			Path:       path,
		}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if rm, ok := out.(*json.RawMessage); ok {
		*rm = append((*rm)[:0], raw...)
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("upstream: decode %s %s: %w", method, path, err)
	}
	return nil
}
