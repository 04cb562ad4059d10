// Package credstore is a client for the external credential store, a
// GoTrue-compatible identity provider that issues and validates opaque
// access and refresh tokens.
package credstore

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

	"github.com/google/uuid"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/budgetly/budgetly/internal/metrics"
	"github.com/budgetly/budgetly/internal/model"
)

const (
	tracerName = "github.com/budgetly/budgetly/internal/credstore"
	// maxErrorBody caps how much of an error response is read for logging.
	maxErrorBody = 4 << 10
	userAgent    = "budgetly/1.0"
)

// Operation names used for tracing and metrics.
const (
	OpSignUp  = "signup"
	OpSignIn  = "signin"
	OpVerify  = "verify"
	OpRefresh = "refresh"
	OpHealth  = "health"
)

// Config configures a Client.
type Config struct {
	// URL is the auth API base, e.g. https://<ref>.supabase.co/auth/v1.
	URL string
	// Key is the project API key sent in the apikey header.
	Key string
	// Timeout bounds each individual call. Zero means DefaultCallTimeout.
	Timeout    time.Duration
	HTTPClient *http.Client
	Metrics    metrics.Recorder
}

// Client talks to the credential store over its REST API.
// It is safe for concurrent use and is meant to be constructed once.
type Client struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
	metrics    metrics.Recorder
	tracer     trace.Tracer
}

// New creates a Client. Both URL and Key are required.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" || cfg.Key == "" {
		return nil, oops.In("credstore").Code("CONFIG_INVALID").Errorf("credential store URL and key are required")
	}
	if _, err := url.ParseRequestURI(cfg.URL); err != nil {
		return nil, oops.In("credstore").Code("CONFIG_INVALID").With("url", cfg.URL).Wrap(err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = NewHTTPClient()
	}
	recorder := cfg.Metrics
	if recorder == nil {
		recorder = metrics.NewNoop()
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.URL, "/"),
		apiKey:     cfg.Key,
		timeout:    timeout,
		httpClient: httpClient,
		metrics:    recorder,
		tracer:     otel.Tracer(tracerName),
	}, nil
}

// SignUpInput holds the registration payload.
type SignUpInput struct {
	Email    string
	Password string
	Name     string
	Surname  string
}

// Session is a token pair together with the principal it was issued for.
type Session struct {
	Tokens    model.TokenPair
	Principal *model.Principal
}

type userResponse struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int          `json:"expires_in"`
	User         userResponse `json:"user"`
}

// errorResponse covers the error shapes GoTrue has used across versions.
type errorResponse struct {
	Code             any    `json:"code"`
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (e errorResponse) reason() string {
	for _, s := range []string{e.Msg, e.Message, e.ErrorDescription, e.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

// SignUp registers a new user. The credential store owns password hashing
// and email verification.
func (c *Client) SignUp(ctx context.Context, in SignUpInput) error {
	body := map[string]any{
		"email":    in.Email,
		"password": in.Password,
		"data": map[string]string{
			"name":    in.Name,
			"surname": in.Surname,
		},
	}
	return c.do(ctx, OpSignUp, http.MethodPost, "/signup", "", body, nil)
}

// SignIn exchanges an email and password for a session.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	body := map[string]string{"email": email, "password": password}

	var resp tokenResponse
	if err := c.do(ctx, OpSignIn, http.MethodPost, "/token?grant_type=password", "", body, &resp); err != nil {
		return nil, err
	}
	return resp.session(OpSignIn)
}

// Verify resolves an access token to its principal.
func (c *Client) Verify(ctx context.Context, accessToken string) (*model.Principal, error) {
	if accessToken == "" {
		return nil, oops.In("credstore").Code("CREDSTORE_REJECTED").With("operation", OpVerify).Wrapf(ErrRejected, "empty access token")
	}

	var resp userResponse
	if err := c.do(ctx, OpVerify, http.MethodGet, "/user", accessToken, nil, &resp); err != nil {
		return nil, err
	}
	return resp.principal(OpVerify)
}

// Refresh exchanges a refresh token for a new session. Refresh tokens are
// single use on the credential store side.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, oops.In("credstore").Code("CREDSTORE_REJECTED").With("operation", OpRefresh).Wrapf(ErrRejected, "empty refresh token")
	}

	body := map[string]string{"refresh_token": refreshToken}

	var resp tokenResponse
	if err := c.do(ctx, OpRefresh, http.MethodPost, "/token?grant_type=refresh_token", "", body, &resp); err != nil {
		return nil, err
	}
	return resp.session(OpRefresh)
}

// Ping checks that the credential store is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, OpHealth, http.MethodGet, "/health", "", nil, nil)
}

// do performs one call under the per-call timeout and classifies the outcome.
func (c *Client) do(ctx context.Context, op, method, path, bearer string, in, out any) (err error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ctx, span := c.tracer.Start(ctx, "credstore."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("credstore.operation", op)),
	)
	start := time.Now()
	defer func() {
		outcome := "success"
		switch {
		case errors.Is(err, ErrRejected):
			outcome = "rejected"
		case err != nil:
			outcome = "error"
		}
		c.metrics.ObserveCredstoreCall(op, outcome, time.Since(start))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		span.End()
	}()

	var reqBody io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return oops.In("credstore").Code("CREDSTORE_ENCODE").With("operation", op).Wrap(err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return oops.In("credstore").Code("CREDSTORE_REQUEST").With("operation", op).Wrap(err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return oops.In("credstore").Code("CREDSTORE_UNAVAILABLE").With("operation", op).Wrapf(ErrUpstream, "%v", err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode >= 300 {
		return classifyError(op, resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return oops.In("credstore").Code("CREDSTORE_DECODE").With("operation", op).Wrapf(ErrUpstream, "decode response: %v", err)
	}
	return nil
}

// classifyError maps an error response to ErrRejected (4xx) or ErrUpstream.
// The provider's message is kept in the error context for logs only.
func classifyError(op string, resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var body errorResponse
	_ = json.Unmarshal(data, &body)

	builder := oops.In("credstore").
		With("operation", op).
		With("status", resp.StatusCode)
	if reason := body.reason(); reason != "" {
		builder = builder.With("reason", reason)
	}
	if body.ErrorCode != "" {
		builder = builder.With("error_code", body.ErrorCode)
	}

	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return builder.Code("CREDSTORE_REJECTED").Wrap(ErrRejected)
	}
	return builder.Code("CREDSTORE_UNAVAILABLE").Wrap(ErrUpstream)
}

func (u userResponse) principal(op string) (*model.Principal, error) {
	id, err := uuid.Parse(u.ID)
	if err != nil {
		return nil, oops.In("credstore").Code("CREDSTORE_DECODE").With("operation", op).Wrapf(ErrUpstream, "invalid user id %q", u.ID)
	}
	return &model.Principal{
		ID:      id,
		Email:   u.Email,
		Name:    metadataString(u.UserMetadata, "name"),
		Surname: metadataString(u.UserMetadata, "surname"),
	}, nil
}

func (t tokenResponse) session(op string) (*Session, error) {
	if t.AccessToken == "" || t.RefreshToken == "" {
		return nil, oops.In("credstore").Code("CREDSTORE_DECODE").With("operation", op).Wrapf(ErrUpstream, "response carries no session")
	}
	principal, err := t.User.principal(op)
	if err != nil {
		return nil, err
	}
	return &Session{
		Tokens: model.TokenPair{
			AccessToken:  t.AccessToken,
			RefreshToken: t.RefreshToken,
		},
		Principal: principal,
	}, nil
}

func metadataString(md map[string]any, key string) string {
	if md == nil {
		return ""
	}
	switch v := md[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
