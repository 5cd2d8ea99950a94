package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/aural-portal/internal/errors"
	"github.com/rs/zerolog/log"
)

const (
	apiPrefix       = "/api/auth"
	maxResponseSize = 1 << 20
	requestIDHeader = "X-Request-Id"
)

// Client is a typed façade over the auth provider's HTTP API. Each Client owns a
// cookie jar, so one Client represents exactly one signed-in (or signed-out) caller.
type Client struct {
	baseURL         string
	origin          string
	timeout         time.Duration
	httpClient      *http.Client
	onSessionChange func()
}

type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Its cookie jar is replaced by the
// Client's own jar unless it already has one.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout bounds every provider call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithOrigin sets the Origin header sent to the provider, which it checks against its trusted origins.
func WithOrigin(origin string) Option {
	return func(c *Client) {
		c.origin = strings.TrimRight(origin, "/")
	}
}

// WithSessionListener registers a hook run after every call that changes the provider session.
func WithSessionListener(fn func()) Option {
	return func(c *Client) {
		c.onSessionChange = fn
	}
}

// New creates a gateway client for the provider at providerURL (without the /api/auth suffix).
func New(providerURL string, opts ...Option) (*Client, error) {
	if providerURL == "" {
		return nil, errors.New("[gateway New] provider URL is required")
	}
	c := &Client{
		baseURL:    strings.TrimRight(providerURL, "/") + apiPrefix,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, errors.Wrapf(err, "[gateway New] cookie jar")
		}
		hc := *c.httpClient
		hc.Jar = jar
		c.httpClient = &hc
	}
	return c, nil
}

// SignUpWithPassword creates an account with email and password.
func (c *Client) SignUpWithPassword(ctx context.Context, in SignUpInput) (Result[AuthPayload], error) {
	res, err := call[AuthPayload](ctx, c, "sign-up", http.MethodPost, "/sign-up/email", in)
	if err == nil && res.Ok() && res.Data.Token != "" {
		c.notify()
	}
	return res, err
}

// SignInWithPassword signs in with email and password. An unverified email is reported
// as a structured error with status StatusUnverifiedEmail.
func (c *Client) SignInWithPassword(ctx context.Context, in SignInInput) (Result[AuthPayload], error) {
	res, err := call[AuthPayload](ctx, c, "sign-in", http.MethodPost, "/sign-in/email", in)
	if err == nil && res.Ok() {
		c.notify()
	}
	return res, err
}

// SignInWithOAuth starts (or, given an ID token, completes) a social sign-in.
func (c *Client) SignInWithOAuth(ctx context.Context, in OAuthInput) (Result[OAuthPayload], error) {
	res, err := call[OAuthPayload](ctx, c, "sign-in-social", http.MethodPost, "/sign-in/social", in)
	if err == nil && res.Ok() && res.Data.Token != "" {
		c.notify()
	}
	return res, err
}

// SignOut ends the provider session held in this client's cookie jar.
func (c *Client) SignOut(ctx context.Context) (Result[SignOutPayload], error) {
	res, err := call[SignOutPayload](ctx, c, "sign-out", http.MethodPost, "/sign-out", struct{}{})
	if err == nil && res.Ok() {
		c.notify()
	}
	return res, err
}

// SendOTP asks the provider to email a one-time code for the given purpose.
func (c *Client) SendOTP(ctx context.Context, email string, purpose OTPPurpose) (Result[StatusPayload], error) {
	body := struct {
		Email string     `json:"email"`
		Type  OTPPurpose `json:"type"`
	}{Email: email, Type: purpose}
	return call[StatusPayload](ctx, c, "send-otp", http.MethodPost, "/email-otp/send-verification-otp", body)
}

// VerifyOTP verifies an email-verification code. The provider signs the user in on success.
func (c *Client) VerifyOTP(ctx context.Context, email, code string) (Result[AuthPayload], error) {
	body := struct {
		Email string `json:"email"`
		OTP   string `json:"otp"`
	}{Email: email, OTP: code}
	res, err := call[AuthPayload](ctx, c, "verify-otp", http.MethodPost, "/email-otp/verify-email", body)
	if err == nil && res.Ok() {
		c.notify()
	}
	return res, err
}

// RequestPasswordReset asks the provider to email a reset link pointing at redirectURL.
func (c *Client) RequestPasswordReset(ctx context.Context, email, redirectURL string) (Result[StatusPayload], error) {
	body := struct {
		Email      string `json:"email"`
		RedirectTo string `json:"redirectTo"`
	}{Email: email, RedirectTo: redirectURL}
	return call[StatusPayload](ctx, c, "request-password-reset", http.MethodPost, "/request-password-reset", body)
}

// ResetPassword consumes a reset token and sets a new password.
func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) (Result[StatusPayload], error) {
	body := struct {
		Token       string `json:"token"`
		NewPassword string `json:"newPassword"`
	}{Token: token, NewPassword: newPassword}
	return call[StatusPayload](ctx, c, "reset-password", http.MethodPost, "/reset-password", body)
}

// GetSession looks up the session held in the cookie jar. Data is nil when signed out.
func (c *Client) GetSession(ctx context.Context) (Result[*SessionPayload], error) {
	return call[*SessionPayload](ctx, c, "get-session", http.MethodGet, "/get-session", nil)
}

func (c *Client) notify() {
	if c.onSessionChange != nil {
		c.onSessionChange()
	}
}

func call[T any](ctx context.Context, c *Client, op, method, path string, in any) (Result[T], error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return Result[T]{}, errors.Wrapf(err, "[gateway %s] marshal request", op)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return Result[T]{}, errors.Wrapf(err, "[gateway %s] create request", op)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.origin != "" {
		req.Header.Set("Origin", c.origin)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result[T]{}, errors.Wrapf(err, "[gateway %s] %w", op, errors.ErrProviderUnavailable)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return Result[T]{}, errors.Wrapf(err, "[gateway %s] read response", op)
	}

	log.Debug().
		Str("op", op).
		Str("request_id", requestID).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("auth provider call")

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var out T
		if len(bytes.TrimSpace(raw)) > 0 {
			if err := json.Unmarshal(raw, &out); err != nil {
				return Result[T]{}, errors.Wrapf(err, "[gateway %s] %w", op, errors.ErrMalformedResponse)
			}
		}
		return Success(out), nil
	}

	// The status alone is a usable error when the body is empty or not JSON.
	var errBody struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return Failure[T](&Error{Status: resp.StatusCode}), nil
	}
	if err := json.Unmarshal(raw, &errBody); err != nil {
		log.Debug().Err(err).Str("op", op).Int("status", resp.StatusCode).Msg("auth provider error body ignored")
	}
	return Failure[T](&Error{Status: resp.StatusCode, Code: errBody.Code, Message: errBody.Message}), nil
}
